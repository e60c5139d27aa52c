package lockEscrow

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator = uint64(10_000)

	// blockSlopeMultiplier keeps precision when interpolating block numbers between points.
	blockSlopeMultiplier = int64(1_000_000_000_000_000_000)
)

type Action string

const (
	Action_CreateLock            Action = "create_lock"
	Action_DepositFor            Action = "deposit_for"
	Action_IncreaseLockAmount    Action = "increase_lock_amount"
	Action_IncreaseUnlockTime    Action = "increase_unlock_time"
	Action_Withdraw              Action = "withdraw"
	Action_EarlyWithdraw         Action = "early_withdraw"
	Action_Redistribute          Action = "redistribute"
	Action_Checkpoint            Action = "checkpoint"
	Action_SetBreaker            Action = "set_breaker"
	Action_SetWhitelistedCallers Action = "set_whitelisted_callers"
	Action_SetRedistributors     Action = "set_whitelisted_redistributors"
	Action_SetEarlyWithdrawCfg   Action = "set_early_withdraw_config"
	Action_TransferOwnership     Action = "transfer_ownership"
)

type WhitelistKind string

const (
	WhitelistKind_Caller        WhitelistKind = "caller"
	WhitelistKind_Redistributor WhitelistKind = "redistributor"
)

// ErrCheckpointRequired is returned while the global history lags further behind the clock
// than a single call may replay. Calling Checkpoint until it reports caught up clears it.
var ErrCheckpointRequired = &reverts.Revert{Kind: reverts.KindState, Message: "global checkpoint required"}

// Point is a linear voting power curve anchored at Timestamp.
type Point struct {
	Bias        *big.Int `json:"bias"`
	Slope       *big.Int `json:"slope"`
	Timestamp   uint64   `json:"timestamp"`
	BlockNumber uint64   `json:"blockNumber"`
}

func zeroPoint(ts uint64, block uint64) *Point {
	return &Point{Bias: big.NewInt(0), Slope: big.NewInt(0), Timestamp: ts, BlockNumber: block}
}

func (p *Point) copy() *Point {
	return &Point{
		Bias:        new(big.Int).Set(p.Bias),
		Slope:       new(big.Int).Set(p.Slope),
		Timestamp:   p.Timestamp,
		BlockNumber: p.BlockNumber,
	}
}

// ValueAt evaluates the curve at ts, floored at zero.
func (p *Point) ValueAt(ts uint64) *big.Int {
	dt := new(big.Int).Sub(new(big.Int).SetUint64(ts), new(big.Int).SetUint64(p.Timestamp))
	v := new(big.Int).Sub(p.Bias, dt.Mul(dt, p.Slope))
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}

type Lock struct {
	Amount *big.Int `json:"amount"`
	End    uint64   `json:"end"`
}

func emptyLock() *Lock {
	return &Lock{Amount: big.NewInt(0)}
}

func (l *Lock) IsActive() bool {
	return l.Amount != nil && l.Amount.Sign() > 0
}

func (l *Lock) copy() *Lock {
	return &Lock{Amount: new(big.Int).Set(l.Amount), End: l.End}
}

// Call identifies who is invoking a lock mutating operation. Sender is the immediate caller,
// Origin the account that started the call chain. An empty Origin means Sender called directly.
type Call struct {
	Sender common.Address
	Origin common.Address
}

func DirectCall(account common.Address) Call {
	return Call{Sender: account, Origin: account}
}

func (c Call) origin() common.Address {
	if utils.IsZeroAddress(c.Origin) {
		return c.Sender
	}
	return c.Origin
}

// IsIntermediary reports whether the call was relayed through another account.
func (c Call) IsIntermediary() bool {
	return c.Sender != c.origin()
}

type Settings struct {
	Owner                common.Address `json:"owner"`
	TokenAddress         common.Address `json:"tokenAddress"`
	EscrowAddress        common.Address `json:"escrowAddress"`
	MaxLock              uint64         `json:"maxLock"`
	Breaker              bool           `json:"breaker"`
	PenaltyBpsPerWeek    uint64         `json:"penaltyBpsPerWeek"`
	TreasuryShareBps     uint64         `json:"treasuryShareBps"`
	Treasury             common.Address `json:"treasury"`
	RedistributionTarget common.Address `json:"redistributionTarget"`
	RedistributionPool   *big.Int       `json:"redistributionPool"`
	Epoch                uint64         `json:"epoch"`
	LockedSupply         *big.Int       `json:"lockedSupply"`
}

// ReconcileResult compares the running locked supply counter with the sum of every lock.
type ReconcileResult struct {
	Counter  *big.Int `json:"counter"`
	Computed *big.Int `json:"computed"`
	Matches  bool     `json:"matches"`
}
