package cmd

import (
	"fmt"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/database"
	"github.com/Layr-Labs/ve-rewards/pkg/database/migrations"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/Layr-Labs/ve-rewards/pkg/token"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the set of components every long running command needs.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	grm          *gorm.DB
	clock        clock.Clock
	ledger       *token.Ledger
	eventBus     *eventBus.EventBus
	sink         *metrics.MetricsSink
	escrow       *lockEscrow.LockEscrow
	distributors []*rewardDistributor.RewardDistributor
}

func initCmdFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}

func newClock(cfg *config.Config) clock.Clock {
	if cfg.ClockConfig.Mode == config.ClockMode_Manual {
		return clock.NewManualClock(
			cfg.ClockConfig.GenesisTimestamp,
			cfg.ClockConfig.GenesisBlock,
			uint64(cfg.ClockConfig.BlockInterval/time.Second),
		)
	}
	return clock.NewWallClock(cfg.ClockConfig.GenesisTimestamp, cfg.ClockConfig.GenesisBlock, cfg.ClockConfig.BlockInterval)
}

func openMigratedDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	grm, err := database.NewDatabase(cfg, l)
	if err != nil {
		return nil, err
	}
	if err := migrations.NewMigrator(grm, l, cfg).MigrateAll(); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return grm, nil
}

// newApp opens storage, initializes the escrow and loads every configured distributor,
// deploying the ones that do not exist yet.
func newApp(cfg *config.Config, l *zap.Logger, sink *metrics.MetricsSink) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	owner, err := utils.ParseAddress(cfg.EscrowConfig.Owner)
	if err != nil {
		return nil, errors.Wrap(err, config.EscrowOwner)
	}
	lockToken, err := utils.ParseAddress(cfg.EscrowConfig.TokenAddress)
	if err != nil {
		return nil, errors.Wrap(err, config.EscrowTokenAddress)
	}
	escrowAddress, err := utils.ParseAddress(cfg.EscrowConfig.EscrowAddress)
	if err != nil {
		return nil, errors.Wrap(err, config.EscrowAddress)
	}

	grm, err := openMigratedDatabase(cfg, l)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   l,
		grm:      grm,
		clock:    newClock(cfg),
		ledger:   token.NewLedger(grm, l),
		eventBus: eventBus.NewEventBus(l),
		sink:     sink,
	}

	a.escrow = lockEscrow.NewLockEscrow(&lockEscrow.LockEscrowConfig{
		Owner:              owner,
		TokenAddress:       lockToken,
		EscrowAddress:      escrowAddress,
		MaxLock:            uint64(cfg.EscrowConfig.MaxLock / time.Second),
		MaxCheckpointWeeks: cfg.EscrowConfig.MaxCheckpointWeeks,
	}, grm, a.clock, a.ledger, a.eventBus, sink, l)
	if err := a.escrow.Initialize(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize escrow")
	}

	addresses, err := a.distributorAddresses()
	if err != nil {
		return nil, err
	}
	for _, address := range addresses {
		rd := rewardDistributor.NewRewardDistributor(address, grm, a.escrow, a.ledger, a.eventBus, sink, l)
		if err := a.ensureDeployed(rd, owner); err != nil {
			return nil, err
		}
		a.distributors = append(a.distributors, rd)
	}
	return a, nil
}

// distributorAddresses merges the configured addresses with the ones already deployed in storage.
func (a *app) distributorAddresses() ([]common.Address, error) {
	configured, err := utils.ParseAddresses(a.cfg.DistributorConfig.Addresses)
	if err != nil {
		return nil, errors.Wrap(err, config.DistributorAddresses)
	}
	stored, err := rewardDistributor.ListDistributors(a.grm)
	if err != nil {
		return nil, err
	}
	seen := make(map[common.Address]bool)
	out := make([]common.Address, 0, len(configured)+len(stored))
	for _, address := range append(configured, stored...) {
		if seen[address] {
			continue
		}
		seen[address] = true
		out = append(out, address)
	}
	return out, nil
}

func (a *app) ensureDeployed(rd *rewardDistributor.RewardDistributor, owner common.Address) error {
	deployed, err := rd.IsDeployed()
	if err != nil || deployed {
		return err
	}
	tokenAddress, err := utils.ParseAddress(a.cfg.DistributorConfig.TokenAddress)
	if err != nil {
		return errors.Wrapf(err, "%s is required to deploy %s", config.DistributorTokenAddress, rd.Address().Hex())
	}
	var emergencyReturn common.Address
	if a.cfg.DistributorConfig.EmergencyReturn != "" {
		if emergencyReturn, err = utils.ParseAddress(a.cfg.DistributorConfig.EmergencyReturn); err != nil {
			return errors.Wrap(err, config.DistributorEmergencyReturn)
		}
	}
	a.logger.Sugar().Infow("Deploying reward distributor", zap.String("address", rd.Address().Hex()))
	return rd.Deploy(&rewardDistributor.DeployConfig{
		Address:            rd.Address(),
		Owner:              owner,
		TokenAddress:       tokenAddress,
		EmergencyReturn:    emergencyReturn,
		CanCheckpointToken: a.cfg.DistributorConfig.CanCheckpointToken,
	})
}

func (a *app) distributor(address string) (*rewardDistributor.RewardDistributor, error) {
	target, err := utils.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	for _, rd := range a.distributors {
		if rd.Address() == target {
			return rd, nil
		}
	}
	return nil, fmt.Errorf("distributor %s is not configured", target.Hex())
}

func (a *app) keeperCaller() common.Address {
	if a.cfg.KeeperConfig.Caller == "" {
		return common.Address{}
	}
	return common.HexToAddress(a.cfg.KeeperConfig.Caller)
}
