package cmd

import (
	"errors"
	"os"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var catchUpCmd = &cobra.Command{
	Use:   "catch-up",
	Short: "Run checkpoints until the escrow and every distributor have reached the current time",
	RunE: func(cmd *cobra.Command, args []string) error {
		initCmdFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		a, err := newApp(cfg, l, metrics.NewNoopMetricsSink())
		if err != nil {
			return err
		}

		if err := a.catchUpEscrow(); err != nil {
			return err
		}
		for _, rd := range a.distributors {
			if err := a.catchUpDistributor(rd); err != nil {
				return err
			}
		}
		l.Sugar().Info("Caught up")
		return nil
	},
}

func newWeeksBar(total uint64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(int64(total),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("weeks"),
		progressbar.OptionClearOnFinish(),
	)
}

func weeksBehind(from uint64, to uint64) uint64 {
	if to <= from {
		return 0
	}
	return (to-from)/clock.Week + 1
}

func (a *app) lastGlobalPointTimestamp() (uint64, error) {
	epoch, err := a.escrow.Epoch()
	if err != nil {
		return 0, err
	}
	p, err := a.escrow.GlobalPoint(epoch)
	if err != nil {
		return 0, err
	}
	return p.Timestamp, nil
}

func (a *app) catchUpEscrow() error {
	start, err := a.lastGlobalPointTimestamp()
	if err != nil {
		return err
	}
	now := a.clock.Now().Timestamp
	bar := newWeeksBar(weeksBehind(start, now), "escrow checkpoint")
	defer bar.Finish() //nolint:errcheck

	for {
		caughtUp, err := a.escrow.Checkpoint()
		if err != nil {
			return err
		}
		reached, err := a.lastGlobalPointTimestamp()
		if err != nil {
			return err
		}
		_ = bar.Set64(int64(weeksBehind(start, reached)))
		if caughtUp {
			return nil
		}
	}
}

// catchUpDistributor advances the supply cursor and, when the keeper caller is allowed to, the token
// checkpoint. Either loop stops as soon as a call makes no progress.
func (a *app) catchUpDistributor(rd *rewardDistributor.RewardDistributor) error {
	settings, err := rd.Settings()
	if err != nil {
		return err
	}
	if settings.Killed {
		a.logger.Sugar().Infow("Skipping killed distributor", zap.String("distributor", rd.Address().Hex()))
		return nil
	}
	caller := a.keeperCaller()
	now := a.clock.Now().Timestamp

	bar := newWeeksBar(weeksBehind(settings.WeekCursor, now), "supply "+rd.Address().Hex())
	cursor := settings.WeekCursor
	for cursor < now {
		next, err := rd.CheckpointTotalSupply(caller)
		if err != nil {
			return err
		}
		if next == cursor {
			break
		}
		_ = bar.Set64(int64(weeksBehind(settings.WeekCursor, next)))
		cursor = next
	}
	_ = bar.Finish()

	last := settings.LastTokenTimestamp
	for last < now {
		if _, err := rd.CheckpointToken(caller); err != nil {
			if errors.Is(err, reverts.ErrAuthorization) {
				a.logger.Sugar().Warnw("Keeper caller may not checkpoint tokens, skipping",
					zap.String("distributor", rd.Address().Hex()),
					zap.String("caller", caller.Hex()),
				)
				return nil
			}
			return err
		}
		updated, err := rd.Settings()
		if err != nil {
			return err
		}
		if updated.LastTokenTimestamp == last {
			break
		}
		last = updated.LastTokenTimestamp
	}
	return nil
}
