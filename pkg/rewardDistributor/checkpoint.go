package rewardDistributor

import (
	"errors"
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func tokenCheckpointDue(settings *Settings, now uint64) bool {
	return settings.CanCheckpointToken && now > settings.LastTokenTimestamp+TokenCheckpointDeadline
}

// checkpointToken spreads the tokens received since the last checkpoint over the weeks between
// the last checkpoint and now, pro rata by time. It stops at a week boundary after MaxWeekSteps
// weeks, leaving the share of the remaining time pending for the next call.
func (rd *RewardDistributor) checkpointToken(c *callCtx, settings *Settings) (*big.Int, error) {
	balance, err := c.ledger.BalanceOf(settings.TokenAddress, rd.address)
	if err != nil {
		return nil, err
	}
	toDistribute := new(big.Int).Sub(balance, settings.LastTokenBalance)
	if toDistribute.Sign() < 0 {
		toDistribute.SetInt64(0)
	}

	now := c.now.Timestamp
	t := settings.LastTokenTimestamp
	sinceLast := new(big.Int).SetUint64(now - t)
	thisWeek := clock.FloorWeek(t)
	distributed := big.NewInt(0)

	share := func(until uint64) *big.Int {
		if sinceLast.Sign() == 0 {
			return new(big.Int).Set(toDistribute)
		}
		s := new(big.Int).Mul(toDistribute, new(big.Int).SetUint64(until-t))
		return s.Quo(s, sinceLast)
	}

	for i := 0; i < MaxWeekSteps; i++ {
		nextWeek := thisWeek + clock.Week
		until := nextWeek
		if now < nextWeek {
			until = now
		}
		amount := share(until)
		if err := c.store.addTokensPerWeek(thisWeek, amount); err != nil {
			return nil, err
		}
		distributed.Add(distributed, amount)
		if until == now {
			t = now
			break
		}
		t = nextWeek
		thisWeek = nextWeek
	}

	settings.LastTokenTimestamp = t
	settings.LastTokenBalance.Add(settings.LastTokenBalance, distributed)
	if t < now {
		rd.logger.Sugar().Infow("Token checkpoint stopped before reaching now",
			zap.Uint64("reached", t),
			zap.Uint64("now", now),
			zap.String("pending", new(big.Int).Sub(toDistribute, distributed).String()),
		)
	}
	return distributed, nil
}

// checkpointTotalSupply brings the escrow history up to date, then caches the escrow total supply
// for every week start from the week cursor up to now. A week start equal to now is left for a
// later call since locks created at that same instant still change it.
func (rd *RewardDistributor) checkpointTotalSupply(c *callCtx, settings *Settings) error {
	if _, err := c.escrow.Checkpoint(); err != nil {
		return err
	}
	t := settings.WeekCursor
	for i := 0; i < MaxWeekSteps; i++ {
		if t >= c.now.Timestamp {
			break
		}
		supply, err := c.escrow.TotalSupplyAtTime(t)
		if errors.Is(err, lockEscrow.ErrCheckpointRequired) {
			break
		}
		if err != nil {
			return err
		}
		if err := c.store.saveTotalSupply(t, supply); err != nil {
			return err
		}
		t += clock.Week
	}
	settings.WeekCursor = t
	return nil
}

// Feed pulls amount of the reward token from caller, checkpointing the token when that is due.
func (rd *RewardDistributor) Feed(caller common.Address, amount *big.Int) error {
	return rd.run("feed", func(c *callCtx) error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.Validation("amount must be greater than zero")
		}
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := c.ledger.TransferFrom(settings.TokenAddress, rd.address, caller, rd.address, amount); err != nil {
			return err
		}
		if tokenCheckpointDue(settings, c.now.Timestamp) {
			distributed, err := rd.checkpointToken(c, settings)
			if err != nil {
				return err
			}
			if err := c.store.saveSettings(settings); err != nil {
				return err
			}
			if err := rd.emit(c, Action_CheckpointToken, caller, distributed); err != nil {
				return err
			}
		}
		return rd.emit(c, Action_Feed, caller, amount)
	})
}

// CheckpointToken distributes newly received tokens over the elapsed weeks. The owner and allowed
// checkpoint callers may always call it, anyone else only when checkpointing is enabled and due.
// It returns the amount assigned to week buckets by this call.
func (rd *RewardDistributor) CheckpointToken(caller common.Address) (*big.Int, error) {
	var distributed *big.Int
	err := rd.run("checkpointToken", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if caller != settings.Owner && !tokenCheckpointDue(settings, c.now.Timestamp) {
			allowed, err := c.store.isCheckpointCaller(caller)
			if err != nil {
				return err
			}
			if !allowed {
				return reverts.Authorization("%s may not checkpoint tokens yet", caller.Hex())
			}
		}
		if distributed, err = rd.checkpointToken(c, settings); err != nil {
			return err
		}
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		return rd.emit(c, Action_CheckpointToken, caller, distributed)
	})
	if err != nil {
		return nil, err
	}
	return distributed, nil
}

// CheckpointTotalSupply is permissionless and returns the week cursor reached.
func (rd *RewardDistributor) CheckpointTotalSupply(caller common.Address) (uint64, error) {
	var cursor uint64
	err := rd.run("checkpointTotalSupply", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		if err := rd.checkpointTotalSupply(c, settings); err != nil {
			return err
		}
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		cursor = settings.WeekCursor
		return rd.emit(c, Action_CheckpointTotalSupply, caller, new(big.Int).SetUint64(cursor))
	})
	return cursor, err
}
