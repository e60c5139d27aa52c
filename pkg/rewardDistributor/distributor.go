// Package rewardDistributor splits reward token deposits into weekly buckets and pays every
// escrow participant its share of each week, proportional to its voting power at the week start.
package rewardDistributor

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/token"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gorm.io/gorm"
)

// ErrNotDeployed is returned for addresses that do not belong to a deployed distributor.
var ErrNotDeployed = &reverts.Revert{Kind: reverts.KindValidation, Message: "distributor not deployed"}

type RewardDistributor struct {
	address     common.Address
	db          *gorm.DB
	escrow      *lockEscrow.LockEscrow
	clock       clock.Clock
	ledger      *token.Ledger
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger

	mu    *sync.Mutex
	inTx  bool
	batch *eventBus.Batch
}

// NewRewardDistributor returns a handle on the distributor at address. The distributor itself is
// created with Deploy; every other call fails with ErrNotDeployed until then.
func NewRewardDistributor(
	address common.Address,
	db *gorm.DB,
	escrow *lockEscrow.LockEscrow,
	ledger *token.Ledger,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RewardDistributor {
	return &RewardDistributor{
		address:     address,
		db:          db,
		escrow:      escrow,
		clock:       escrow.Clock(),
		ledger:      ledger,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l.With(zap.String("distributor", address.Hex())),
		mu:          &sync.Mutex{},
	}
}

// WithTx returns a distributor whose calls join tx and publish their events through batch.
func (rd *RewardDistributor) WithTx(tx *gorm.DB, batch *eventBus.Batch) *RewardDistributor {
	cp := *rd
	cp.db = tx
	cp.escrow = rd.escrow.WithTx(tx, batch)
	cp.inTx = true
	cp.batch = batch
	return &cp
}

func (rd *RewardDistributor) Address() common.Address {
	return rd.address
}

type callCtx struct {
	tx     *gorm.DB
	store  *store
	escrow *lockEscrow.LockEscrow
	ledger *token.Ledger
	now    clock.Moment
	batch  *eventBus.Batch
}

func (rd *RewardDistributor) run(method string, fn func(c *callCtx) error) error {
	if !rd.inTx {
		rd.mu.Lock()
		defer rd.mu.Unlock()
	}
	span := ddTracer.StartSpan("rewardDistributor." + method)
	span.SetTag("distributor", rd.address.Hex())
	start := time.Now()

	batch, owned := rd.batch, rd.batch == nil
	if owned {
		batch = eventBus.NewBatch(rd.eventBus)
	}
	c := &callCtx{now: rd.clock.Now(), batch: batch}
	var weekCursor uint64
	err := rd.db.Transaction(func(tx *gorm.DB) error {
		c.tx = tx
		c.store = newStore(tx, rd.address)
		c.escrow = rd.escrow.WithTx(tx, batch)
		c.ledger = rd.ledger.WithTx(tx)
		if err := fn(c); err != nil {
			return err
		}
		if settings, err := c.store.settings(false); err == nil {
			weekCursor = settings.WeekCursor
		}
		return nil
	})
	span.Finish(ddTracer.WithError(err))
	rd.recordCall(method, err, time.Since(start))

	if err != nil {
		if owned {
			batch.Discard()
		}
		if reverts.IsRevertErr(err) {
			rd.logger.Sugar().Debugw("Distributor call reverted", zap.String("method", method), zap.Error(err))
		} else {
			rd.logger.Sugar().Errorw("Distributor call failed", zap.String("method", method), zap.Error(err))
		}
		return err
	}
	if owned {
		batch.Flush()
	}
	if rd.metricsSink != nil && weekCursor != 0 {
		_ = rd.metricsSink.Gauge(metricsTypes.Metric_Gauge_DistributorWeekCursor, float64(weekCursor), []metricsTypes.MetricsLabel{
			{Name: "distributor", Value: rd.address.Hex()},
		})
	}
	return nil
}

func (rd *RewardDistributor) recordCall(method string, err error, d time.Duration) {
	if rd.metricsSink == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(reverts.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	_ = rd.metricsSink.Incr(metricsTypes.Metric_Incr_DistributorCall, []metricsTypes.MetricsLabel{
		{Name: "distributor", Value: rd.address.Hex()},
		{Name: "method", Value: method},
		{Name: "outcome", Value: outcome},
	}, 1)
	_ = rd.metricsSink.Timing(metricsTypes.Metric_Timing_DistributorCallDuration, d, []metricsTypes.MetricsLabel{
		{Name: "distributor", Value: rd.address.Hex()},
		{Name: "method", Value: method},
	})
}

func (rd *RewardDistributor) emit(c *callCtx, action Action, account common.Address, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	e := &DistributorEvent{
		EventId:     uuid.NewString(),
		Distributor: utils.AddressKey(rd.address),
		Action:      string(action),
		Account:     utils.AddressKey(account),
		Amount:      amount.String(),
		Timestamp:   c.now.Timestamp,
		BlockNumber: c.now.BlockNumber,
	}
	if err := c.store.insertEvent(e); err != nil {
		return err
	}
	c.batch.Add(&eventBusTypes.Event{Name: eventBusTypes.Event_DistributorUpdated, Data: e})
	return nil
}

// liveSettings loads the settings for update and rejects calls on a killed distributor.
func liveSettings(c *callCtx) (*Settings, error) {
	settings, err := c.store.settings(true)
	if err != nil {
		return nil, err
	}
	if settings.Killed {
		return nil, reverts.State("distributor has been killed")
	}
	return settings, nil
}

func requireOwner(settings *Settings, caller common.Address) error {
	if caller != settings.Owner {
		return reverts.Authorization("%s is not the distributor owner", caller.Hex())
	}
	return nil
}

// Deploy creates the distributor starting at the current week.
func (rd *RewardDistributor) Deploy(cfg *DeployConfig) error {
	return rd.run("deploy", func(c *callCtx) error {
		if cfg.Address != rd.address {
			return reverts.Validation("deploy config is for %s", cfg.Address.Hex())
		}
		if utils.IsZeroAddress(cfg.Owner) || utils.IsZeroAddress(cfg.TokenAddress) {
			return reverts.Validation("owner and token address are required")
		}
		_, err := c.store.settings(false)
		if err == nil {
			return reverts.State("distributor %s already deployed", rd.address.Hex())
		}
		if !errors.Is(err, ErrNotDeployed) {
			return err
		}
		start := clock.FloorWeek(c.now.Timestamp)
		settings := &Settings{
			Address:            rd.address,
			Owner:              cfg.Owner,
			TokenAddress:       cfg.TokenAddress,
			EmergencyReturn:    cfg.EmergencyReturn,
			StartWeekCursor:    start,
			WeekCursor:         start,
			LastTokenTimestamp: start,
			LastTokenBalance:   big.NewInt(0),
			CanCheckpointToken: cfg.CanCheckpointToken,
		}
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		rd.logger.Sugar().Infow("Deployed reward distributor",
			zap.String("token", cfg.TokenAddress.Hex()),
			zap.Uint64("startWeek", start),
		)
		return rd.emit(c, Action_Deploy, cfg.Owner, nil)
	})
}

func (rd *RewardDistributor) SetCanCheckpointToken(caller common.Address, enabled bool) error {
	return rd.run("setCanCheckpointToken", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		settings.CanCheckpointToken = enabled
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		flag := big.NewInt(0)
		if enabled {
			flag.SetInt64(1)
		}
		return rd.emit(c, Action_SetCanCheckpointToken, caller, flag)
	})
}

// SetWhitelistedCheckpointCallers controls who may checkpoint tokens before the deadline.
func (rd *RewardDistributor) SetWhitelistedCheckpointCallers(caller common.Address, addresses []common.Address, allowed bool) error {
	return rd.run("setWhitelistedCheckpointCallers", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		if err := c.store.setCheckpointCallers(addresses, allowed); err != nil {
			return err
		}
		return rd.emit(c, Action_SetCheckpointCallers, caller, big.NewInt(int64(len(addresses))))
	})
}

func (rd *RewardDistributor) SetEmergencyReturn(caller common.Address, emergencyReturn common.Address) error {
	return rd.run("setEmergencyReturn", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		settings.EmergencyReturn = emergencyReturn
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		return rd.emit(c, Action_SetEmergencyReturn, emergencyReturn, nil)
	})
}

// Kill sends the whole token balance to the emergency return address and retires the distributor.
func (rd *RewardDistributor) Kill(caller common.Address) (*big.Int, error) {
	var drained *big.Int
	err := rd.run("kill", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		if utils.IsZeroAddress(settings.EmergencyReturn) {
			return reverts.Validation("emergency return address is not set")
		}
		balance, err := c.ledger.BalanceOf(settings.TokenAddress, rd.address)
		if err != nil {
			return err
		}
		settings.Killed = true
		settings.LastTokenBalance.SetInt64(0)
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		if err := c.ledger.Transfer(settings.TokenAddress, rd.address, settings.EmergencyReturn, balance); err != nil {
			return err
		}
		drained = balance
		rd.logger.Sugar().Warnw("Killed reward distributor",
			zap.String("emergencyReturn", settings.EmergencyReturn.Hex()),
			zap.String("amount", balance.String()),
		)
		return rd.emit(c, Action_Kill, settings.EmergencyReturn, balance)
	})
	if err != nil {
		return nil, err
	}
	return drained, nil
}
