package lockEscrow

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// EarlyPenalty splits the penalty charged for withdrawing amount from a lock ending at end.
type EarlyPenalty struct {
	Penalty       *big.Int `json:"penalty"`
	TreasuryShare *big.Int `json:"treasuryShare"`
	PoolShare     *big.Int `json:"poolShare"`
	Payout        *big.Int `json:"payout"`
}

// computeEarlyPenalty charges penaltyBpsPerWeek for every started week left on the lock, never
// more than amount itself.
func computeEarlyPenalty(settings *Settings, amount *big.Int, end uint64, now uint64) *EarlyPenalty {
	remainingWeeks := (end - now + clock.Week - 1) / clock.Week
	bps := new(big.Int).SetUint64(BpsDenominator)

	penalty := new(big.Int).Mul(amount, new(big.Int).SetUint64(remainingWeeks))
	penalty.Mul(penalty, new(big.Int).SetUint64(settings.PenaltyBpsPerWeek))
	penalty.Quo(penalty, bps)
	if penalty.Cmp(amount) > 0 {
		penalty.Set(amount)
	}
	treasuryShare := new(big.Int).Mul(penalty, new(big.Int).SetUint64(settings.TreasuryShareBps))
	treasuryShare.Quo(treasuryShare, bps)

	return &EarlyPenalty{
		Penalty:       penalty,
		TreasuryShare: treasuryShare,
		PoolShare:     new(big.Int).Sub(penalty, treasuryShare),
		Payout:        new(big.Int).Sub(amount, penalty),
	}
}

// EarlyWithdraw releases amount from an unexpired lock before its end against a penalty. A partial
// withdrawal keeps the end of the lock, a full one clears it.
func (le *LockEscrow) EarlyWithdraw(caller common.Address, amount *big.Int) (*EarlyPenalty, error) {
	var result *EarlyPenalty
	err := le.run("earlyWithdraw", func(c *callCtx) error {
		settings, lock, err := le.lockForUpdate(c, caller)
		if err != nil {
			return err
		}
		if settings.Breaker {
			return reverts.State("early withdraw is disabled while the breaker is engaged")
		}
		if err := requireUnexpired(lock, c.now.Timestamp); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 || amount.Cmp(lock.Amount) > 0 {
			return reverts.Validation("amount must be greater than zero and at most the locked amount")
		}

		p := computeEarlyPenalty(settings, amount, lock.End, c.now.Timestamp)

		newLock := lock.copy()
		newLock.Amount.Sub(newLock.Amount, amount)
		if newLock.Amount.Sign() == 0 {
			newLock.End = 0
		}
		if err := requireVotingPower(settings, newLock.Amount); err != nil {
			return reverts.Validation("remaining lock of %s is below the minimum, withdraw all of it instead", newLock.Amount.String())
		}
		if err := le.applyLock(c, settings, caller, lock.copy(), newLock, new(big.Int).Neg(amount)); err != nil {
			return err
		}
		settings.RedistributionPool.Add(settings.RedistributionPool, p.PoolShare)
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}

		if err := c.ledger.Transfer(settings.TokenAddress, settings.EscrowAddress, caller, p.Payout); err != nil {
			return err
		}
		if err := c.ledger.Transfer(settings.TokenAddress, settings.EscrowAddress, settings.Treasury, p.TreasuryShare); err != nil {
			return err
		}
		result = p
		le.logger.Sugar().Infow("Early withdrawal",
			zap.String("account", caller.Hex()),
			zap.String("amount", amount.String()),
			zap.String("penalty", p.Penalty.String()),
			zap.String("treasuryShare", p.TreasuryShare.String()),
		)
		return le.emit(c, settings, Action_EarlyWithdraw, caller, amount, newLock.End, p.Penalty)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Redistribute sends the whole redistribution pool to the configured target and returns the amount.
func (le *LockEscrow) Redistribute(caller common.Address) (*big.Int, error) {
	var amount *big.Int
	err := le.run("redistribute", func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		ok, err := c.store.isWhitelisted(WhitelistKind_Redistributor, caller)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.Authorization("%s is not an allowed redistributor", caller.Hex())
		}
		amount = new(big.Int).Set(settings.RedistributionPool)
		if amount.Sign() == 0 {
			return le.emit(c, settings, Action_Redistribute, settings.RedistributionTarget, amount, 0, nil)
		}
		if utils.IsZeroAddress(settings.RedistributionTarget) {
			return reverts.State("no redistribution target configured")
		}
		settings.RedistributionPool.SetInt64(0)
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		if err := c.ledger.Transfer(settings.TokenAddress, settings.EscrowAddress, settings.RedistributionTarget, amount); err != nil {
			return err
		}
		return le.emit(c, settings, Action_Redistribute, settings.RedistributionTarget, amount, 0, nil)
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}
