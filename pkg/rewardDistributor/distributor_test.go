package rewardDistributor

import (
	"math/big"
	"testing"

	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/internal/tests"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/token"
	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	lockToken   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	rewardToken = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	escrowAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	distAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	emergency   = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	feeder      = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	alice       = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	keeper      = common.HexToAddress("0x0000000000000000000000000000000000000e11")
)

const (
	w0      = 2000 * clock.Week
	day     = uint64(24 * 60 * 60)
	maxLock = 52 * clock.Week
)

type fixture struct {
	grm         *gorm.DB
	l           *zap.Logger
	clock       *clock.ManualClock
	ledger      *token.Ledger
	escrow      *lockEscrow.LockEscrow
	distributor *RewardDistributor
}

func setup(t *testing.T, canCheckpointToken bool) *fixture {
	cfg := tests.GetConfig()
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	grm, err := tests.GetMigratedSqliteDatabase(cfg, l)
	require.Nil(t, err)

	c := clock.NewManualClock(w0, 5000, 12)
	ledger := token.NewLedger(grm, l)
	eb := eventBus.NewEventBus(l)
	ms := metrics.NewNoopMetricsSink()

	escrow := lockEscrow.NewLockEscrow(&lockEscrow.LockEscrowConfig{
		Owner:         owner,
		TokenAddress:  lockToken,
		EscrowAddress: escrowAddr,
		MaxLock:       maxLock,
	}, grm, c, ledger, eb, ms, l)
	require.Nil(t, escrow.Initialize())

	rd := NewRewardDistributor(distAddr, grm, escrow, ledger, eb, ms, l)
	require.Nil(t, rd.Deploy(&DeployConfig{
		Address:            distAddr,
		Owner:              owner,
		TokenAddress:       rewardToken,
		EmergencyReturn:    emergency,
		CanCheckpointToken: canCheckpointToken,
	}))

	return &fixture{grm: grm, l: l, clock: c, ledger: ledger, escrow: escrow, distributor: rd}
}

func tokens(v string) *big.Int {
	return numbers.MustParseUnits(v, numbers.DefaultDecimals)
}

func (f *fixture) lock(t *testing.T, account common.Address, amount *big.Int, duration uint64) {
	require.Nil(t, f.ledger.Mint(lockToken, account, amount))
	require.Nil(t, f.ledger.Approve(lockToken, account, escrowAddr, amount))
	require.Nil(t, f.escrow.CreateLock(lockEscrow.DirectCall(account), amount, f.clock.Now().Timestamp+duration))
}

func (f *fixture) feed(t *testing.T, amount *big.Int) {
	require.Nil(t, f.ledger.Mint(rewardToken, feeder, amount))
	require.Nil(t, f.ledger.Approve(rewardToken, feeder, distAddr, amount))
	require.Nil(t, f.distributor.Feed(feeder, amount))
}

func (f *fixture) rewardBalance(t *testing.T, account common.Address) *big.Int {
	balance, err := f.ledger.BalanceOf(rewardToken, account)
	require.Nil(t, err)
	return balance
}

func (f *fixture) checkpointSupplyFully(t *testing.T) {
	for i := 0; i < 10; i++ {
		cursor, err := f.distributor.CheckpointTotalSupply(keeper)
		require.Nil(t, err)
		if cursor >= f.clock.Now().Timestamp {
			return
		}
	}
	t.Fatal("total supply checkpoint did not catch up")
}

func Test_Deploy(t *testing.T) {
	f := setup(t, false)

	t.Run("Should start every cursor at the deploy week", func(t *testing.T) {
		settings, err := f.distributor.Settings()
		require.Nil(t, err)
		assert.Equal(t, uint64(w0), settings.StartWeekCursor)
		assert.Equal(t, uint64(w0), settings.WeekCursor)
		assert.Equal(t, uint64(w0), settings.LastTokenTimestamp)
		assert.Equal(t, "0", settings.LastTokenBalance.String())
		assert.False(t, settings.Killed)
	})
	t.Run("Should refuse to deploy twice", func(t *testing.T) {
		err := f.distributor.Deploy(&DeployConfig{Address: distAddr, Owner: owner, TokenAddress: rewardToken})
		assert.ErrorIs(t, err, reverts.ErrState)
	})
	t.Run("Should reject calls on an unknown distributor", func(t *testing.T) {
		other := NewRewardDistributor(common.HexToAddress("0x1234"), f.grm, f.escrow, f.ledger, nil, nil, f.l)
		_, err := other.Claim(alice, alice)
		assert.ErrorIs(t, err, ErrNotDeployed)

		deployed, err := other.IsDeployed()
		assert.Nil(t, err)
		assert.False(t, deployed)
	})
	t.Run("Should list deployed distributors", func(t *testing.T) {
		addrs, err := ListDistributors(f.grm)
		assert.Nil(t, err)
		assert.Equal(t, []common.Address{distAddr}, addrs)
	})
}

func Test_Feed(t *testing.T) {
	f := setup(t, false)

	t.Run("Should reject a zero amount", func(t *testing.T) {
		assert.ErrorIs(t, f.distributor.Feed(feeder, big.NewInt(0)), reverts.ErrValidation)
	})
	t.Run("Should fail without an allowance", func(t *testing.T) {
		require.Nil(t, f.ledger.Mint(rewardToken, feeder, tokens("1")))
		assert.ErrorIs(t, f.distributor.Feed(feeder, tokens("1")), reverts.ErrExternalTransfer)
	})
	t.Run("Should hold fed tokens until checkpointed", func(t *testing.T) {
		f.clock.Advance(3 * day)
		f.feed(t, tokens("10"))

		assert.Equal(t, tokens("10").String(), f.rewardBalance(t, distAddr).String())
		week, err := f.distributor.TokensPerWeek(w0)
		assert.Nil(t, err)
		assert.Equal(t, "0", week.String())
	})
}

func Test_CheckpointTokenAuthorization(t *testing.T) {
	f := setup(t, false)
	f.clock.Advance(2 * day)

	t.Run("Should reject strangers while checkpointing is disabled", func(t *testing.T) {
		_, err := f.distributor.CheckpointToken(alice)
		assert.ErrorIs(t, err, reverts.ErrAuthorization)
	})
	t.Run("Should accept the owner", func(t *testing.T) {
		_, err := f.distributor.CheckpointToken(owner)
		assert.Nil(t, err)
	})
	t.Run("Should accept allowed checkpoint callers", func(t *testing.T) {
		assert.ErrorIs(t, f.distributor.SetWhitelistedCheckpointCallers(alice, []common.Address{keeper}, true), reverts.ErrAuthorization)
		require.Nil(t, f.distributor.SetWhitelistedCheckpointCallers(owner, []common.Address{keeper}, true))
		_, err := f.distributor.CheckpointToken(keeper)
		assert.Nil(t, err)
	})
	t.Run("Should accept anyone once enabled and due", func(t *testing.T) {
		require.Nil(t, f.distributor.SetCanCheckpointToken(owner, true))
		_, err := f.distributor.CheckpointToken(alice)
		assert.ErrorIs(t, err, reverts.ErrAuthorization)

		f.clock.Advance(day + 1)
		_, err = f.distributor.CheckpointToken(alice)
		assert.Nil(t, err)
	})
}

func Test_CheckpointTokenSplitsByWeek(t *testing.T) {
	f := setup(t, false)
	amount := tokens("1000")

	f.clock.Advance(3 * day)
	f.feed(t, amount)
	f.clock.AdvanceTo(w0 + 3*clock.Week + 2*day)

	distributed, err := f.distributor.CheckpointToken(owner)
	require.Nil(t, err)

	sum := big.NewInt(0)
	for i := uint64(0); i <= 3; i++ {
		week, err := f.distributor.TokensPerWeek(w0 + i*clock.Week)
		require.Nil(t, err)
		assert.True(t, week.Sign() > 0)
		sum.Add(sum, week)
	}
	assert.Equal(t, distributed.String(), sum.String())
	assert.True(t, sum.Cmp(amount) <= 0)
	assert.True(t, new(big.Int).Sub(amount, sum).Cmp(big.NewInt(3)) <= 0)

	// a full week gets seven times what two days get
	first, _ := f.distributor.TokensPerWeek(w0)
	last, _ := f.distributor.TokensPerWeek(w0 + 3*clock.Week)
	expectedFull := new(big.Int).Quo(new(big.Int).Mul(amount, big.NewInt(7)), big.NewInt(23))
	expectedLast := new(big.Int).Quo(new(big.Int).Mul(amount, big.NewInt(2)), big.NewInt(23))
	assert.Equal(t, expectedFull.String(), first.String())
	assert.Equal(t, expectedLast.String(), last.String())

	t.Run("Should distribute rounding dust on the next checkpoint", func(t *testing.T) {
		f.clock.Advance(day)
		_, err := f.distributor.CheckpointToken(owner)
		require.Nil(t, err)

		settings, err := f.distributor.Settings()
		require.Nil(t, err)
		assert.Equal(t, amount.String(), settings.LastTokenBalance.String())
	})
}

func Test_CheckpointTokenResumesAfterCap(t *testing.T) {
	f := setup(t, false)
	amount := tokens("3000")

	f.feed(t, amount)
	f.clock.AdvanceTo(w0 + 30*clock.Week)

	first, err := f.distributor.CheckpointToken(owner)
	require.Nil(t, err)

	settings, err := f.distributor.Settings()
	require.Nil(t, err)
	assert.Equal(t, uint64(w0+MaxWeekSteps*clock.Week), settings.LastTokenTimestamp)
	assert.Equal(t, tokens("2000").String(), first.String())

	second, err := f.distributor.CheckpointToken(owner)
	require.Nil(t, err)
	assert.Equal(t, tokens("1000").String(), second.String())

	for i := uint64(0); i < 30; i++ {
		week, err := f.distributor.TokensPerWeek(w0 + i*clock.Week)
		require.Nil(t, err)
		assert.Equal(t, tokens("100").String(), week.String(), "week %d", i)
	}
}

func Test_CheckpointTotalSupply(t *testing.T) {
	f := setup(t, false)
	f.lock(t, alice, tokens("52"), maxLock)
	f.clock.AdvanceTo(w0 + 25*clock.Week + 1)

	cursor, err := f.distributor.CheckpointTotalSupply(keeper)
	require.Nil(t, err)
	assert.Equal(t, uint64(w0+MaxWeekSteps*clock.Week), cursor)

	cursor, err = f.distributor.CheckpointTotalSupply(keeper)
	require.Nil(t, err)
	assert.Equal(t, uint64(w0+26*clock.Week), cursor)

	for _, week := range []uint64{w0, w0 + 10*clock.Week, w0 + 25*clock.Week} {
		cached, err := f.distributor.TotalSupplyAt(week)
		require.Nil(t, err)
		live, err := f.distributor.EscrowTotalSupplyAt(week)
		require.Nil(t, err)
		assert.Equal(t, live.String(), cached.String())
		assert.True(t, cached.Sign() > 0)
	}

	buckets, err := f.distributor.WeekBuckets(w0, w0+clock.Week*26)
	require.Nil(t, err)
	assert.Len(t, buckets, 26)
}

// Alice locks at the deploy week and collects everything fed that week; once Bob locks the
// same amount a week later the next week's rewards split about evenly.
func Test_ClaimScenario(t *testing.T) {
	f := setup(t, true)
	f.lock(t, alice, tokens("1"), maxLock)

	f.clock.Advance(2 * day)
	f.feed(t, tokens("100"))

	f.clock.AdvanceTo(w0 + clock.Week)
	claimed, err := f.distributor.Claim(alice, alice)
	require.Nil(t, err)
	assert.Equal(t, tokens("100").String(), claimed.String())

	again, err := f.distributor.Claim(alice, alice)
	require.Nil(t, err)
	assert.Equal(t, "0", again.String())

	f.lock(t, bob, tokens("1"), maxLock)
	f.clock.Advance(2 * day)
	f.feed(t, tokens("100"))

	f.clock.AdvanceTo(w0 + 2*clock.Week)
	amounts, err := f.distributor.ClaimMany(keeper, []common.Address{alice, bob})
	require.Nil(t, err)
	require.Len(t, amounts, 2)

	aliceShare, _ := new(big.Float).SetInt(amounts[0]).Float64()
	bobShare, _ := new(big.Float).SetInt(amounts[1]).Float64()
	assert.InDelta(t, 50e18, aliceShare, 1e18)
	assert.InDelta(t, 50e18, bobShare, 1e18)
	assert.True(t, bobShare > aliceShare)
	assert.True(t, new(big.Int).Add(amounts[0], amounts[1]).Cmp(tokens("100")) <= 0)

	assert.Equal(t, new(big.Int).Add(tokens("100"), amounts[0]).String(), f.rewardBalance(t, alice).String())
	assert.Equal(t, amounts[1].String(), f.rewardBalance(t, bob).String())

	cursor, found, err := f.distributor.AccountCursor(bob)
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(w0+2*clock.Week), cursor)
}

func Test_ClaimMatchesWeeklyShares(t *testing.T) {
	f := setup(t, false)
	f.lock(t, alice, tokens("40"), 30*clock.Week)
	f.clock.Advance(3 * day)
	f.lock(t, bob, tokens("25"), 52*clock.Week)
	f.feed(t, tokens("6000"))

	f.clock.AdvanceTo(w0 + 60*clock.Week + day)
	for i := 0; i < 5; i++ {
		_, err := f.distributor.CheckpointToken(owner)
		require.Nil(t, err)
	}
	f.checkpointSupplyFully(t)

	settings, err := f.distributor.Settings()
	require.Nil(t, err)
	limit := clock.FloorWeek(settings.LastTokenTimestamp)

	expected := func(account common.Address) *big.Int {
		sum := big.NewInt(0)
		for week := uint64(w0); week < limit; week += clock.Week {
			supply, err := f.distributor.TotalSupplyAt(week)
			require.Nil(t, err)
			if supply.Sign() == 0 {
				continue
			}
			tokensPerWeek, err := f.distributor.TokensPerWeek(week)
			require.Nil(t, err)
			balance, err := f.distributor.BalanceOfAt(account, week)
			require.Nil(t, err)
			share := new(big.Int).Mul(balance, tokensPerWeek)
			sum.Add(sum, share.Quo(share, supply))
		}
		return sum
	}

	for _, account := range []common.Address{alice, bob} {
		total := big.NewInt(0)
		calls := 0
		for {
			calls++
			require.Less(t, calls, 5)
			before, found, err := f.distributor.AccountCursor(account)
			require.Nil(t, err)
			amount, err := f.distributor.Claim(account, account)
			require.Nil(t, err)
			total.Add(total, amount)
			after, _, err := f.distributor.AccountCursor(account)
			require.Nil(t, err)
			if found && after == before {
				break
			}
			if found {
				assert.True(t, after-before <= MaxClaimWeeks*clock.Week)
			}
		}
		assert.Equal(t, expected(account).String(), total.String(), "account %s", account.Hex())
	}

	t.Run("Should start bob from the first full week of his lock", func(t *testing.T) {
		first, err := f.escrow.AccountPoint(bob, 1)
		require.Nil(t, err)
		assert.Equal(t, uint64(w0+clock.Week), ceilWeek(first.Timestamp))
	})
}

func Test_Kill(t *testing.T) {
	f := setup(t, true)
	f.lock(t, alice, tokens("1"), maxLock)
	f.feed(t, tokens("10"))

	t.Run("Should only let the owner kill", func(t *testing.T) {
		_, err := f.distributor.Kill(alice)
		assert.ErrorIs(t, err, reverts.ErrAuthorization)
	})
	t.Run("Should drain the balance to the emergency return", func(t *testing.T) {
		drained, err := f.distributor.Kill(owner)
		require.Nil(t, err)
		assert.Equal(t, tokens("10").String(), drained.String())
		assert.Equal(t, tokens("10").String(), f.rewardBalance(t, emergency).String())
		assert.Equal(t, "0", f.rewardBalance(t, distAddr).String())
	})
	t.Run("Should reject every later mutating call", func(t *testing.T) {
		f.clock.Advance(clock.Week)
		_, err := f.distributor.Claim(alice, alice)
		assert.ErrorIs(t, err, reverts.ErrState)
		assert.ErrorIs(t, f.distributor.Feed(feeder, tokens("1")), reverts.ErrState)
		_, err = f.distributor.CheckpointToken(owner)
		assert.ErrorIs(t, err, reverts.ErrState)
		_, err = f.distributor.Kill(owner)
		assert.ErrorIs(t, err, reverts.ErrState)
		assert.ErrorIs(t, f.distributor.SetCanCheckpointToken(owner, false), reverts.ErrState)
	})
	t.Run("Should still answer queries", func(t *testing.T) {
		settings, err := f.distributor.Settings()
		require.Nil(t, err)
		assert.True(t, settings.Killed)

		events, err := f.distributor.Events("", 10)
		require.Nil(t, err)
		require.NotEmpty(t, events)
		assert.Equal(t, string(Action_Kill), events[0].Action)
	})
}
