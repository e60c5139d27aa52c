package lockEscrow

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// checkCaller applies the caller policy: relayed calls must come from an allow-listed caller.
func (le *LockEscrow) checkCaller(c *callCtx, call Call) error {
	if !call.IsIntermediary() {
		return nil
	}
	ok, err := c.store.isWhitelisted(WhitelistKind_Caller, call.Sender)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.Authorization("%s is not an allowed intermediary caller", call.Sender.Hex())
	}
	return nil
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.Validation("amount must be greater than zero")
	}
	return nil
}

// lockForUpdate loads the settings row for update, makes sure the global history can be advanced
// in this call and returns the current lock of account.
func (le *LockEscrow) lockForUpdate(c *callCtx, account common.Address) (*Settings, *Lock, error) {
	settings, err := c.store.settings(true)
	if err != nil {
		return nil, nil, err
	}
	if err := le.requireCaughtUp(c, settings); err != nil {
		return nil, nil, err
	}
	lock, err := c.store.lock(account)
	if err != nil {
		return nil, nil, err
	}
	return settings, lock, nil
}

func requireUnexpired(lock *Lock, now uint64) error {
	if !lock.IsActive() {
		return reverts.State("no existing lock found")
	}
	if lock.End <= now {
		return reverts.State("lock expired")
	}
	return nil
}

// applyLock moves account from oldLock to newLock, updating the history, the lock row and the
// locked supply counter. lockedDelta is added to the counter.
func (le *LockEscrow) applyLock(c *callCtx, settings *Settings, account common.Address, oldLock *Lock, newLock *Lock, lockedDelta *big.Int) error {
	caughtUp, err := le.checkpoint(c, settings, &account, oldLock, newLock)
	if err != nil {
		return err
	}
	if !caughtUp {
		return ErrCheckpointRequired
	}
	if err := c.store.saveLock(account, newLock); err != nil {
		return err
	}
	settings.LockedSupply.Add(settings.LockedSupply, lockedDelta)
	return c.store.saveSettings(settings)
}

// depositFor adds amount to the lock of account, optionally moving its end, and pulls the funds from payer.
func (le *LockEscrow) depositFor(c *callCtx, settings *Settings, payer common.Address, account common.Address, lock *Lock, amount *big.Int, end uint64, action Action) error {
	oldLock := lock.copy()
	newLock := lock.copy()
	newLock.Amount.Add(newLock.Amount, amount)
	if end != 0 {
		newLock.End = end
	}
	if err := requireVotingPower(settings, newLock.Amount); err != nil {
		return err
	}
	if err := le.applyLock(c, settings, account, oldLock, newLock, amount); err != nil {
		return err
	}
	if amount.Sign() > 0 {
		if err := c.ledger.TransferFrom(settings.TokenAddress, settings.EscrowAddress, payer, settings.EscrowAddress, amount); err != nil {
			return err
		}
	}
	le.logger.Sugar().Debugw("Lock updated",
		zap.String("action", string(action)),
		zap.String("account", account.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("end", newLock.End),
	)
	return le.emit(c, settings, action, account, amount, newLock.End, nil)
}

// CreateLock locks amount for the caller until unlockTime, rounded down to a whole week.
func (le *LockEscrow) CreateLock(call Call, amount *big.Int, unlockTime uint64) error {
	return le.run("createLock", func(c *callCtx) error {
		if err := le.checkCaller(c, call); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		settings, lock, err := le.lockForUpdate(c, call.Sender)
		if err != nil {
			return err
		}
		if lock.IsActive() {
			return reverts.State("withdraw old tokens first")
		}
		end := clock.FloorWeek(unlockTime)
		if end <= c.now.Timestamp {
			return reverts.Validation("can only lock until a time in the future")
		}
		if end > c.now.Timestamp+settings.MaxLock {
			return reverts.Validation("lock end %d exceeds the maximum lock of %d seconds", end, settings.MaxLock)
		}
		return le.depositFor(c, settings, call.Sender, call.Sender, lock, amount, end, Action_CreateLock)
	})
}

// DepositFor adds amount to the existing lock of account without changing its end. Anyone may
// top up any lock; the funds come from caller.
func (le *LockEscrow) DepositFor(caller common.Address, account common.Address, amount *big.Int) error {
	return le.run("depositFor", func(c *callCtx) error {
		if err := requirePositive(amount); err != nil {
			return err
		}
		settings, lock, err := le.lockForUpdate(c, account)
		if err != nil {
			return err
		}
		if err := requireUnexpired(lock, c.now.Timestamp); err != nil {
			return err
		}
		return le.depositFor(c, settings, caller, account, lock, amount, 0, Action_DepositFor)
	})
}

func (le *LockEscrow) IncreaseLockAmount(call Call, amount *big.Int) error {
	return le.run("increaseLockAmount", func(c *callCtx) error {
		if err := le.checkCaller(c, call); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		settings, lock, err := le.lockForUpdate(c, call.Sender)
		if err != nil {
			return err
		}
		if err := requireUnexpired(lock, c.now.Timestamp); err != nil {
			return err
		}
		return le.depositFor(c, settings, call.Sender, call.Sender, lock, amount, 0, Action_IncreaseLockAmount)
	})
}

// IncreaseUnlockTime extends the caller's lock to unlockTime, rounded down to a whole week.
func (le *LockEscrow) IncreaseUnlockTime(call Call, unlockTime uint64) error {
	return le.run("increaseUnlockTime", func(c *callCtx) error {
		if err := le.checkCaller(c, call); err != nil {
			return err
		}
		settings, lock, err := le.lockForUpdate(c, call.Sender)
		if err != nil {
			return err
		}
		if err := requireUnexpired(lock, c.now.Timestamp); err != nil {
			return err
		}
		end := clock.FloorWeek(unlockTime)
		if end <= lock.End {
			return reverts.Validation("can only increase the lock duration")
		}
		if end > c.now.Timestamp+settings.MaxLock {
			return reverts.Validation("lock end %d exceeds the maximum lock of %d seconds", end, settings.MaxLock)
		}
		return le.depositFor(c, settings, call.Sender, call.Sender, lock, big.NewInt(0), end, Action_IncreaseUnlockTime)
	})
}

// Withdraw returns the whole locked amount once the lock expired, or at any time while the
// breaker is engaged.
func (le *LockEscrow) Withdraw(caller common.Address) (*big.Int, error) {
	var withdrawn *big.Int
	err := le.run("withdraw", func(c *callCtx) error {
		settings, lock, err := le.lockForUpdate(c, caller)
		if err != nil {
			return err
		}
		if !lock.IsActive() {
			return reverts.State("no existing lock found")
		}
		if !settings.Breaker && c.now.Timestamp < lock.End {
			return reverts.State("the lock didn't expire")
		}
		amount := new(big.Int).Set(lock.Amount)
		if err := le.applyLock(c, settings, caller, lock.copy(), emptyLock(), new(big.Int).Neg(amount)); err != nil {
			return err
		}
		if err := c.ledger.Transfer(settings.TokenAddress, settings.EscrowAddress, caller, amount); err != nil {
			return err
		}
		withdrawn = amount
		le.logger.Sugar().Debugw("Lock withdrawn",
			zap.String("account", caller.Hex()),
			zap.String("amount", amount.String()),
		)
		return le.emit(c, settings, Action_Withdraw, caller, amount, 0, nil)
	})
	if err != nil {
		return nil, err
	}
	return withdrawn, nil
}
