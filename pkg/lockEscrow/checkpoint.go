package lockEscrow

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func floorZero(v *big.Int) {
	if v.Sign() < 0 {
		v.SetInt64(0)
	}
}

func weeksBetween(from uint64, to uint64) uint64 {
	if to <= from {
		return 0
	}
	return (clock.FloorWeek(to) - clock.FloorWeek(from)) / clock.Week
}

// accountCurve returns the point a lock contributes at now. Expired or empty locks contribute nothing.
func accountCurve(lock *Lock, maxLock *big.Int, now clock.Moment) *Point {
	p := zeroPoint(now.Timestamp, now.BlockNumber)
	if lock == nil || !lock.IsActive() || lock.End <= now.Timestamp {
		return p
	}
	p.Slope.Quo(lock.Amount, maxLock)
	p.Bias.Mul(p.Slope, new(big.Int).SetUint64(lock.End-now.Timestamp))
	return p
}

// requireVotingPower rejects a lock amount whose slope would round down to zero. Such a lock would
// hold principal without ever carrying voting power.
func requireVotingPower(settings *Settings, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if amount.Cmp(new(big.Int).SetUint64(settings.MaxLock)) < 0 {
		return reverts.Validation("lock amount %s is below the minimum of %d base units", amount.String(), settings.MaxLock)
	}
	return nil
}

// requireCaughtUp rejects account operations while the global curve is too far behind to be
// advanced within a single call.
func (le *LockEscrow) requireCaughtUp(c *callCtx, settings *Settings) error {
	last, err := c.store.globalPoint(settings.Epoch)
	if err != nil {
		return err
	}
	if weeksBetween(last.Timestamp, c.now.Timestamp) > le.config.MaxCheckpointWeeks {
		return ErrCheckpointRequired
	}
	return nil
}

// checkpoint walks the global curve forward to now one week at a time, appending a point for
// every crossed week boundary and applying the scheduled slope changes. When account is set the
// change from oldLock to newLock is applied to the account history, the global curve and the
// slope change schedule. It returns false when the walk stopped short of now; settings.Epoch is
// always updated and must be saved by the caller.
func (le *LockEscrow) checkpoint(c *callCtx, settings *Settings, account *common.Address, oldLock *Lock, newLock *Lock) (bool, error) {
	now := c.now
	maxLock := new(big.Int).SetUint64(settings.MaxLock)

	var uOld, uNew *Point
	oldDslope, newDslope := big.NewInt(0), big.NewInt(0)
	if account != nil {
		uOld = accountCurve(oldLock, maxLock, now)
		uNew = accountCurve(newLock, maxLock, now)

		var err error
		if oldLock.End != 0 {
			if oldDslope, err = c.store.slopeChange(oldLock.End); err != nil {
				return false, err
			}
		}
		if newLock.End != 0 {
			if newLock.End == oldLock.End {
				newDslope = new(big.Int).Set(oldDslope)
			} else if newDslope, err = c.store.slopeChange(newLock.End); err != nil {
				return false, err
			}
		}
	}

	epoch := settings.Epoch
	lastPoint, err := c.store.globalPoint(epoch)
	if err != nil {
		return false, err
	}
	initialTs := lastPoint.Timestamp
	initialBlock := lastPoint.BlockNumber
	lastCheckpoint := lastPoint.Timestamp

	blockSlope := big.NewInt(0)
	if now.Timestamp > initialTs {
		blockSlope.SetUint64(now.BlockNumber - initialBlock)
		blockSlope.Mul(blockSlope, big.NewInt(blockSlopeMultiplier))
		blockSlope.Quo(blockSlope, new(big.Int).SetUint64(now.Timestamp-initialTs))
	}

	caughtUp := false
	tI := clock.FloorWeek(lastCheckpoint)
	for i := uint64(0); i <= le.config.MaxCheckpointWeeks; i++ {
		tI += clock.Week
		dSlope := big.NewInt(0)
		if tI > now.Timestamp {
			tI = now.Timestamp
		} else if dSlope, err = c.store.slopeChange(tI); err != nil {
			return false, err
		}

		elapsed := new(big.Int).SetUint64(tI - lastCheckpoint)
		lastPoint.Bias.Sub(lastPoint.Bias, elapsed.Mul(elapsed, lastPoint.Slope))
		lastPoint.Slope.Add(lastPoint.Slope, dSlope)
		floorZero(lastPoint.Bias)
		floorZero(lastPoint.Slope)

		lastCheckpoint = tI
		lastPoint.Timestamp = tI
		sinceStart := new(big.Int).SetUint64(tI - initialTs)
		blockOffset := sinceStart.Mul(sinceStart, blockSlope)
		blockOffset.Quo(blockOffset, big.NewInt(blockSlopeMultiplier))
		lastPoint.BlockNumber = initialBlock + blockOffset.Uint64()
		epoch++

		if tI == now.Timestamp {
			lastPoint.BlockNumber = now.BlockNumber
			caughtUp = true
			break
		}
		if err := c.store.saveGlobalPoint(epoch, lastPoint); err != nil {
			return false, err
		}
	}
	settings.Epoch = epoch

	if !caughtUp {
		le.logger.Sugar().Infow("Global checkpoint stopped before reaching now",
			zap.Uint64("epoch", epoch),
			zap.Uint64("reached", lastPoint.Timestamp),
			zap.Uint64("now", now.Timestamp),
		)
		return false, nil
	}

	if account != nil {
		lastPoint.Slope.Add(lastPoint.Slope, new(big.Int).Sub(uNew.Slope, uOld.Slope))
		lastPoint.Bias.Add(lastPoint.Bias, new(big.Int).Sub(uNew.Bias, uOld.Bias))
		floorZero(lastPoint.Slope)
		floorZero(lastPoint.Bias)
	}
	if err := c.store.saveGlobalPoint(epoch, lastPoint); err != nil {
		return false, err
	}

	if account == nil {
		return true, nil
	}

	// the old end no longer loses the old slope; a new end loses the new one
	if oldLock.End > now.Timestamp {
		oldDslope.Add(oldDslope, uOld.Slope)
		if newLock.End == oldLock.End {
			oldDslope.Sub(oldDslope, uNew.Slope)
		}
		if err := c.store.saveSlopeChange(oldLock.End, oldDslope); err != nil {
			return false, err
		}
	}
	if newLock.End > now.Timestamp && newLock.End > oldLock.End {
		newDslope.Sub(newDslope, uNew.Slope)
		if err := c.store.saveSlopeChange(newLock.End, newDslope); err != nil {
			return false, err
		}
	}

	accountEpoch, err := c.store.accountEpoch(*account)
	if err != nil {
		return false, err
	}
	if err := c.store.saveAccountPoint(*account, accountEpoch+1, uNew); err != nil {
		return false, err
	}
	return true, nil
}

// Checkpoint appends global points up to the current time. It is permissionless and returns
// false when more calls are needed to fully catch up.
func (le *LockEscrow) Checkpoint() (bool, error) {
	caughtUp := false
	err := le.run("checkpoint", func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		ok, err := le.checkpoint(c, settings, nil, nil, nil)
		if err != nil {
			return err
		}
		caughtUp = ok
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		return le.emit(c, settings, Action_Checkpoint, common.Address{}, nil, 0, nil)
	})
	return caughtUp, err
}
