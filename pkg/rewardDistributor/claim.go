package rewardDistributor

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func ceilWeek(ts uint64) uint64 {
	return clock.FloorWeek(ts + clock.Week - 1)
}

// prepareClaim runs the checkpoints a claim depends on and returns the first week that may not
// be claimed yet.
func (rd *RewardDistributor) prepareClaim(c *callCtx, settings *Settings) (uint64, error) {
	if c.now.Timestamp > settings.WeekCursor {
		if err := rd.checkpointTotalSupply(c, settings); err != nil {
			return 0, err
		}
	}
	if tokenCheckpointDue(settings, c.now.Timestamp) {
		if _, err := rd.checkpointToken(c, settings); err != nil {
			return 0, err
		}
	}
	if err := c.store.saveSettings(settings); err != nil {
		return 0, err
	}
	limit := clock.FloorWeek(settings.LastTokenTimestamp)
	if settings.WeekCursor < limit {
		limit = settings.WeekCursor
	}
	if now := clock.FloorWeek(c.now.Timestamp); now < limit {
		limit = now
	}
	return limit, nil
}

// claimable walks at most MaxClaimWeeks weeks from the account cursor up to limit, summing the
// account's share of every week, and moves the cursor to where it stopped.
func (rd *RewardDistributor) claimable(c *callCtx, settings *Settings, account common.Address, limit uint64) (*big.Int, error) {
	total := big.NewInt(0)
	cursor, found, err := c.store.accountCursor(account)
	if err != nil {
		return nil, err
	}
	if !found {
		accountEpoch, err := c.escrow.AccountEpoch(account)
		if err != nil {
			return nil, err
		}
		if accountEpoch == 0 {
			return total, nil
		}
		first, err := c.escrow.AccountPoint(account, 1)
		if err != nil {
			return nil, err
		}
		// weeks before the first lock carry no voting power
		cursor = ceilWeek(first.Timestamp)
		if cursor < settings.StartWeekCursor {
			cursor = settings.StartWeekCursor
		}
	}

	start := cursor
	for i := 0; i < MaxClaimWeeks && cursor < limit; i++ {
		supply, err := c.store.totalSupplyAt(cursor)
		if err != nil {
			return nil, err
		}
		if supply.Sign() > 0 {
			tokens, err := c.store.tokensPerWeek(cursor)
			if err != nil {
				return nil, err
			}
			if tokens.Sign() > 0 {
				balance, err := c.escrow.BalanceOfAtTime(account, cursor)
				if err != nil {
					return nil, err
				}
				share := new(big.Int).Mul(balance, tokens)
				total.Add(total, share.Quo(share, supply))
			}
		}
		cursor += clock.Week
	}
	if !found || cursor != start {
		if err := c.store.saveAccountCursor(account, cursor); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (rd *RewardDistributor) claim(c *callCtx, settings *Settings, caller common.Address, account common.Address, limit uint64) (*big.Int, error) {
	amount, err := rd.claimable(c, settings, account, limit)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	settings.LastTokenBalance.Sub(settings.LastTokenBalance, amount)
	if err := c.store.saveSettings(settings); err != nil {
		return nil, err
	}
	if err := c.ledger.Transfer(settings.TokenAddress, rd.address, account, amount); err != nil {
		return nil, err
	}
	rd.logger.Sugar().Debugw("Claimed rewards",
		zap.String("account", account.Hex()),
		zap.String("caller", caller.Hex()),
		zap.String("amount", amount.String()),
	)
	return amount, rd.emit(c, Action_Claim, account, amount)
}

// Claim pays account everything it earned in the weeks it has not claimed yet, up to
// MaxClaimWeeks weeks per call. Anyone may claim on behalf of any account; nothing owed is not an error.
func (rd *RewardDistributor) Claim(caller common.Address, account common.Address) (*big.Int, error) {
	var amount *big.Int
	err := rd.run("claim", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		limit, err := rd.prepareClaim(c, settings)
		if err != nil {
			return err
		}
		amount, err = rd.claim(c, settings, caller, account, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// ClaimMany claims for every account in one call and returns the amounts in the same order.
func (rd *RewardDistributor) ClaimMany(caller common.Address, accounts []common.Address) ([]*big.Int, error) {
	amounts := make([]*big.Int, 0, len(accounts))
	err := rd.run("claimMany", func(c *callCtx) error {
		settings, err := liveSettings(c)
		if err != nil {
			return err
		}
		limit, err := rd.prepareClaim(c, settings)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			amount, err := rd.claim(c, settings, caller, account, limit)
			if err != nil {
				return err
			}
			amounts = append(amounts, amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amounts, nil
}
