package lockEscrow

import (
	"errors"
	"math/big"
	"sort"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
)

// searchEpoch returns the latest epoch in [lo, hi] whose key is at or before target. Keys must be
// non-decreasing in epoch order.
func searchEpoch(lo uint64, hi uint64, target uint64, key func(epoch uint64) (uint64, error)) (uint64, bool, error) {
	if hi < lo {
		return 0, false, nil
	}
	var loadErr error
	idx := sort.Search(int(hi-lo+1), func(i int) bool {
		if loadErr != nil {
			return true
		}
		k, err := key(lo + uint64(i))
		if err != nil {
			loadErr = err
			return true
		}
		return k > target
	})
	if loadErr != nil {
		return 0, false, loadErr
	}
	if idx == 0 {
		return 0, false, nil
	}
	return lo + uint64(idx-1), true, nil
}

func globalTimestampKey(s *store) func(uint64) (uint64, error) {
	return func(epoch uint64) (uint64, error) {
		p, err := s.globalPoint(epoch)
		if err != nil {
			return 0, err
		}
		return p.Timestamp, nil
	}
}

func globalBlockKey(s *store) func(uint64) (uint64, error) {
	return func(epoch uint64) (uint64, error) {
		p, err := s.globalPoint(epoch)
		if err != nil {
			return 0, err
		}
		return p.BlockNumber, nil
	}
}

func accountTimestampKey(s *store, account common.Address) func(uint64) (uint64, error) {
	return func(epoch uint64) (uint64, error) {
		p, err := s.accountPoint(account, epoch)
		if err != nil {
			return 0, err
		}
		return p.Timestamp, nil
	}
}

func accountBlockKey(s *store, account common.Address) func(uint64) (uint64, error) {
	return func(epoch uint64) (uint64, error) {
		p, err := s.accountPoint(account, epoch)
		if err != nil {
			return 0, err
		}
		return p.BlockNumber, nil
	}
}

// supplyAt replays point forward to t week by week, applying each crossed slope change.
func (le *LockEscrow) supplyAt(s *store, point *Point, t uint64) (*big.Int, error) {
	p := point.copy()
	if t < p.Timestamp {
		return p.ValueAt(t), nil
	}
	tI := clock.FloorWeek(p.Timestamp)
	for i := uint64(0); i <= le.config.MaxCheckpointWeeks; i++ {
		tI += clock.Week
		dSlope := big.NewInt(0)
		if tI > t {
			tI = t
		} else {
			var err error
			if dSlope, err = s.slopeChange(tI); err != nil {
				return nil, err
			}
		}
		elapsed := new(big.Int).SetUint64(tI - p.Timestamp)
		p.Bias.Sub(p.Bias, elapsed.Mul(elapsed, p.Slope))
		floorZero(p.Bias)
		if tI == t {
			return p.Bias, nil
		}
		p.Slope.Add(p.Slope, dSlope)
		floorZero(p.Slope)
		p.Timestamp = tI
	}
	return nil, ErrCheckpointRequired
}

func (le *LockEscrow) supplyAtTime(s *store, settings *Settings, ts uint64) (*big.Int, error) {
	last, err := s.globalPoint(settings.Epoch)
	if err != nil {
		return nil, err
	}
	point := last
	if ts < last.Timestamp {
		epoch, found, err := searchEpoch(0, settings.Epoch, ts, globalTimestampKey(s))
		if err != nil {
			return nil, err
		}
		if !found {
			return big.NewInt(0), nil
		}
		if point, err = s.globalPoint(epoch); err != nil {
			return nil, err
		}
	}
	return le.supplyAt(s, point, ts)
}

// votingSupplyForEvent is the supply recorded on events. While the history lags it falls back
// to the value at the last written point.
func (le *LockEscrow) votingSupplyForEvent(s *store, settings *Settings, ts uint64) (*big.Int, error) {
	supply, err := le.supplyAtTime(s, settings, ts)
	if errors.Is(err, ErrCheckpointRequired) {
		last, err := s.globalPoint(settings.Epoch)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Set(last.Bias), nil
	}
	return supply, err
}

func (le *LockEscrow) balanceAtTime(s *store, account common.Address, ts uint64) (*big.Int, error) {
	accountEpoch, err := s.accountEpoch(account)
	if err != nil {
		return nil, err
	}
	if accountEpoch == 0 {
		return big.NewInt(0), nil
	}
	last, err := s.accountPoint(account, accountEpoch)
	if err != nil {
		return nil, err
	}
	if ts >= last.Timestamp {
		return last.ValueAt(ts), nil
	}
	epoch, found, err := searchEpoch(1, accountEpoch, ts, accountTimestampKey(s, account))
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	p, err := s.accountPoint(account, epoch)
	if err != nil {
		return nil, err
	}
	return p.ValueAt(ts), nil
}

// blockTimestamp estimates when block was produced by interpolating between the global points
// around it, or between the last point and now.
func (le *LockEscrow) blockTimestamp(s *store, settings *Settings, block uint64, now clock.Moment) (uint64, bool, error) {
	epoch, found, err := searchEpoch(0, settings.Epoch, block, globalBlockKey(s))
	if err != nil || !found {
		return 0, false, err
	}
	p0, err := s.globalPoint(epoch)
	if err != nil {
		return 0, false, err
	}
	var dBlock, dTime uint64
	if epoch < settings.Epoch {
		p1, err := s.globalPoint(epoch + 1)
		if err != nil {
			return 0, false, err
		}
		dBlock = p1.BlockNumber - p0.BlockNumber
		dTime = p1.Timestamp - p0.Timestamp
	} else {
		dBlock = now.BlockNumber - p0.BlockNumber
		dTime = now.Timestamp - p0.Timestamp
	}
	ts := p0.Timestamp
	if dBlock != 0 {
		ts += dTime * (block - p0.BlockNumber) / dBlock
	}
	return ts, true, nil
}

func (le *LockEscrow) requireInitialized(s *store) (*Settings, error) {
	return s.settings(false)
}

// BalanceOf returns the current voting power of account.
func (le *LockEscrow) BalanceOf(account common.Address) (*big.Int, error) {
	return le.BalanceOfAtTime(account, le.clock.Now().Timestamp)
}

// BalanceOfAtTime returns the voting power account had, or will have absent changes, at ts.
func (le *LockEscrow) BalanceOfAtTime(account common.Address, ts uint64) (*big.Int, error) {
	s := newStore(le.db)
	if _, err := le.requireInitialized(s); err != nil {
		return nil, err
	}
	return le.balanceAtTime(s, account, ts)
}

// BalanceOfAtBlock returns the voting power account had at a past block.
func (le *LockEscrow) BalanceOfAtBlock(account common.Address, block uint64) (*big.Int, error) {
	now := le.clock.Now()
	if block > now.BlockNumber {
		return nil, reverts.Validation("block %d is in the future", block)
	}
	s := newStore(le.db)
	settings, err := le.requireInitialized(s)
	if err != nil {
		return nil, err
	}
	accountEpoch, err := s.accountEpoch(account)
	if err != nil {
		return nil, err
	}
	epoch, found, err := searchEpoch(1, accountEpoch, block, accountBlockKey(s, account))
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	p, err := s.accountPoint(account, epoch)
	if err != nil {
		return nil, err
	}
	ts, found, err := le.blockTimestamp(s, settings, block, now)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	return p.ValueAt(ts), nil
}

// TotalSupply returns the current total voting power.
func (le *LockEscrow) TotalSupply() (*big.Int, error) {
	return le.TotalSupplyAtTime(le.clock.Now().Timestamp)
}

// TotalSupplyAtTime returns the total voting power at ts. Future timestamps are projected from
// the scheduled slope changes.
func (le *LockEscrow) TotalSupplyAtTime(ts uint64) (*big.Int, error) {
	s := newStore(le.db)
	settings, err := le.requireInitialized(s)
	if err != nil {
		return nil, err
	}
	return le.supplyAtTime(s, settings, ts)
}

// TotalSupplyAtBlock returns the total voting power at a past block.
func (le *LockEscrow) TotalSupplyAtBlock(block uint64) (*big.Int, error) {
	now := le.clock.Now()
	if block > now.BlockNumber {
		return nil, reverts.Validation("block %d is in the future", block)
	}
	s := newStore(le.db)
	settings, err := le.requireInitialized(s)
	if err != nil {
		return nil, err
	}
	epoch, found, err := searchEpoch(0, settings.Epoch, block, globalBlockKey(s))
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	point, err := s.globalPoint(epoch)
	if err != nil {
		return nil, err
	}
	var dt uint64
	if epoch < settings.Epoch {
		next, err := s.globalPoint(epoch + 1)
		if err != nil {
			return nil, err
		}
		if next.BlockNumber != point.BlockNumber {
			dt = (block - point.BlockNumber) * (next.Timestamp - point.Timestamp) / (next.BlockNumber - point.BlockNumber)
		}
	} else if point.BlockNumber != now.BlockNumber {
		dt = (block - point.BlockNumber) * (now.Timestamp - point.Timestamp) / (now.BlockNumber - point.BlockNumber)
	}
	return le.supplyAt(s, point, point.Timestamp+dt)
}

func (le *LockEscrow) GetLock(account common.Address) (*Lock, error) {
	return newStore(le.db).lock(account)
}

func (le *LockEscrow) Settings() (*Settings, error) {
	return newStore(le.db).settings(false)
}

// Epoch returns the index of the latest global point.
func (le *LockEscrow) Epoch() (uint64, error) {
	settings, err := newStore(le.db).settings(false)
	if err != nil {
		return 0, err
	}
	return settings.Epoch, nil
}

func (le *LockEscrow) AccountEpoch(account common.Address) (uint64, error) {
	return newStore(le.db).accountEpoch(account)
}

func (le *LockEscrow) GlobalPoint(epoch uint64) (*Point, error) {
	return newStore(le.db).globalPoint(epoch)
}

func (le *LockEscrow) AccountPoint(account common.Address, epoch uint64) (*Point, error) {
	return newStore(le.db).accountPoint(account, epoch)
}

// SlopeChange returns the slope delta scheduled at week, zero when nothing is scheduled.
func (le *LockEscrow) SlopeChange(week uint64) (*big.Int, error) {
	return newStore(le.db).slopeChange(week)
}

func (le *LockEscrow) LockedSupply() (*big.Int, error) {
	settings, err := newStore(le.db).settings(false)
	if err != nil {
		return nil, err
	}
	return settings.LockedSupply, nil
}

func (le *LockEscrow) RedistributionPool() (*big.Int, error) {
	settings, err := newStore(le.db).settings(false)
	if err != nil {
		return nil, err
	}
	return settings.RedistributionPool, nil
}

func (le *LockEscrow) IsWhitelisted(kind WhitelistKind, address common.Address) (bool, error) {
	return newStore(le.db).isWhitelisted(kind, address)
}

func (le *LockEscrow) Whitelisted(kind WhitelistKind) ([]common.Address, error) {
	return newStore(le.db).whitelisted(kind)
}

// Events lists the most recent escrow events, optionally for one account.
func (le *LockEscrow) Events(account string, limit int) ([]*EscrowEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if account != "" {
		account = utils.AddressKey(common.HexToAddress(account))
	}
	return newStore(le.db).events(account, limit)
}

// ReconcileLockedSupply compares the running locked supply counter with the sum of all locks.
func (le *LockEscrow) ReconcileLockedSupply() (*ReconcileResult, error) {
	s := newStore(le.db)
	settings, err := s.settings(false)
	if err != nil {
		return nil, err
	}
	computed, err := s.lockedAmountSum()
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{
		Counter:  settings.LockedSupply,
		Computed: computed,
		Matches:  settings.LockedSupply.Cmp(computed) == 0,
	}, nil
}
