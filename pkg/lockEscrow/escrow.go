// Package lockEscrow holds locked principal and tracks the linearly decaying voting power
// it grants, per account and globally, as an append-only history of checkpoints.
package lockEscrow

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
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

type LockEscrowConfig struct {
	Owner         common.Address
	TokenAddress  common.Address
	EscrowAddress common.Address
	// MaxLock is the longest lock duration in seconds.
	MaxLock uint64
	// MaxCheckpointWeeks caps the weeks one catch-up or supply replay may walk.
	MaxCheckpointWeeks uint64
}

type LockEscrow struct {
	config      *LockEscrowConfig
	db          *gorm.DB
	clock       clock.Clock
	ledger      *token.Ledger
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger

	mu *sync.Mutex
	// set on copies bound to a caller's transaction
	inTx  bool
	batch *eventBus.Batch
}

func NewLockEscrow(
	cfg *LockEscrowConfig,
	db *gorm.DB,
	c clock.Clock,
	ledger *token.Ledger,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *LockEscrow {
	if cfg.MaxCheckpointWeeks == 0 {
		cfg.MaxCheckpointWeeks = 255
	}
	return &LockEscrow{
		config:      cfg,
		db:          db,
		clock:       c,
		ledger:      ledger,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
		mu:          &sync.Mutex{},
	}
}

// WithTx returns an escrow whose calls run inside tx and hand their events to batch,
// so they commit and publish together with the caller's own work.
func (le *LockEscrow) WithTx(tx *gorm.DB, batch *eventBus.Batch) *LockEscrow {
	return &LockEscrow{
		config:      le.config,
		db:          tx,
		clock:       le.clock,
		ledger:      le.ledger,
		eventBus:    le.eventBus,
		metricsSink: le.metricsSink,
		logger:      le.logger,
		mu:          le.mu,
		inTx:        true,
		batch:       batch,
	}
}

func (le *LockEscrow) Clock() clock.Clock {
	return le.clock
}

// Initialize writes the settings row and the genesis point if they do not exist yet.
// Settings already in the database win over the configured values.
func (le *LockEscrow) Initialize() error {
	if le.config.MaxLock < clock.Week {
		return reverts.Validation("max lock must be at least one week")
	}
	return le.run("initialize", func(c *callCtx) error {
		_, err := c.store.settings(true)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errNotInitialized) {
			return err
		}
		settings := &Settings{
			Owner:              le.config.Owner,
			TokenAddress:       le.config.TokenAddress,
			EscrowAddress:      le.config.EscrowAddress,
			MaxLock:            le.config.MaxLock,
			RedistributionPool: big.NewInt(0),
			LockedSupply:       big.NewInt(0),
		}
		if err := c.store.saveGlobalPoint(0, zeroPoint(c.now.Timestamp, c.now.BlockNumber)); err != nil {
			return err
		}
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		le.logger.Sugar().Infow("Initialized lock escrow",
			zap.String("owner", settings.Owner.Hex()),
			zap.String("token", settings.TokenAddress.Hex()),
			zap.Uint64("maxLock", settings.MaxLock),
		)
		return nil
	})
}

// callCtx carries everything one entry point needs while its transaction is open.
type callCtx struct {
	tx     *gorm.DB
	store  *store
	ledger *token.Ledger
	now    clock.Moment
	batch  *eventBus.Batch
	events []*EscrowEvent
}

func (le *LockEscrow) run(method string, fn func(c *callCtx) error) error {
	if !le.inTx {
		le.mu.Lock()
		defer le.mu.Unlock()
	}
	span := ddTracer.StartSpan("lockEscrow." + method)
	start := time.Now()

	batch, owned := le.batch, le.batch == nil
	if owned {
		batch = eventBus.NewBatch(le.eventBus)
	}
	c := &callCtx{
		now:   le.clock.Now(),
		batch: batch,
	}
	err := le.db.Transaction(func(tx *gorm.DB) error {
		c.tx = tx
		c.store = newStore(tx)
		c.ledger = le.ledger.WithTx(tx)
		return fn(c)
	})
	span.Finish(ddTracer.WithError(err))
	le.recordCall(method, err, time.Since(start))

	if err != nil {
		if owned {
			batch.Discard()
		}
		if reverts.IsRevertErr(err) {
			le.logger.Sugar().Debugw("Escrow call reverted", zap.String("method", method), zap.Error(err))
		} else {
			le.logger.Sugar().Errorw("Escrow call failed", zap.String("method", method), zap.Error(err))
		}
		return err
	}
	if owned {
		batch.Flush()
	}
	if n := len(c.events); n > 0 {
		le.recordSupply(c.events[n-1])
	}
	return nil
}

func (le *LockEscrow) recordCall(method string, err error, d time.Duration) {
	if le.metricsSink == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(reverts.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	_ = le.metricsSink.Incr(metricsTypes.Metric_Incr_EscrowCall, []metricsTypes.MetricsLabel{
		{Name: "method", Value: method},
		{Name: "outcome", Value: outcome},
	}, 1)
	_ = le.metricsSink.Timing(metricsTypes.Metric_Timing_EscrowCallDuration, d, []metricsTypes.MetricsLabel{
		{Name: "method", Value: method},
	})
}

func (le *LockEscrow) recordSupply(e *EscrowEvent) {
	if le.metricsSink == nil {
		return
	}
	if v, ok := new(big.Float).SetString(e.LockedSupply); ok {
		f, _ := v.Float64()
		_ = le.metricsSink.Gauge(metricsTypes.Metric_Gauge_LockedSupply, f, nil)
	}
	if v, ok := new(big.Float).SetString(e.VotingSupply); ok {
		f, _ := v.Float64()
		_ = le.metricsSink.Gauge(metricsTypes.Metric_Gauge_VotingSupply, f, nil)
	}
}

// emit records an event in the open transaction and queues it for publishing after commit.
func (le *LockEscrow) emit(c *callCtx, settings *Settings, action Action, account common.Address, amount *big.Int, lockEnd uint64, penalty *big.Int) error {
	votingSupply, err := le.votingSupplyForEvent(c.store, settings, c.now.Timestamp)
	if err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if penalty == nil {
		penalty = big.NewInt(0)
	}
	e := &EscrowEvent{
		EventId:      uuid.NewString(),
		Action:       string(action),
		Account:      utils.AddressKey(account),
		Amount:       amount.String(),
		LockEnd:      lockEnd,
		VotingSupply: votingSupply.String(),
		LockedSupply: settings.LockedSupply.String(),
		Penalty:      penalty.String(),
		Timestamp:    c.now.Timestamp,
		BlockNumber:  c.now.BlockNumber,
	}
	if err := c.store.insertEvent(e); err != nil {
		return err
	}
	c.events = append(c.events, e)
	c.batch.Add(&eventBusTypes.Event{Name: eventBusTypes.Event_EscrowUpdated, Data: e})
	return nil
}

func requireOwner(settings *Settings, caller common.Address) error {
	if caller != settings.Owner {
		return reverts.Authorization("%s is not the escrow owner", caller.Hex())
	}
	return nil
}

func (le *LockEscrow) SetBreaker(caller common.Address, engaged bool) error {
	return le.run("setBreaker", func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		settings.Breaker = engaged
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		flag := big.NewInt(0)
		if engaged {
			flag = big.NewInt(1)
		}
		le.logger.Sugar().Infow("Escrow breaker updated", zap.Bool("engaged", engaged))
		return le.emit(c, settings, Action_SetBreaker, caller, flag, 0, nil)
	})
}

func (le *LockEscrow) setWhitelist(method string, action Action, kind WhitelistKind, caller common.Address, addresses []common.Address, allowed bool) error {
	return le.run(method, func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		if err := c.store.setWhitelisted(kind, addresses, allowed); err != nil {
			return err
		}
		return le.emit(c, settings, action, caller, big.NewInt(int64(len(addresses))), 0, nil)
	})
}

// SetWhitelistedCallers controls which intermediaries may relay lock mutating calls.
func (le *LockEscrow) SetWhitelistedCallers(caller common.Address, addresses []common.Address, allowed bool) error {
	return le.setWhitelist("setWhitelistedCallers", Action_SetWhitelistedCallers, WhitelistKind_Caller, caller, addresses, allowed)
}

func (le *LockEscrow) SetWhitelistedRedistributors(caller common.Address, addresses []common.Address, allowed bool) error {
	return le.setWhitelist("setWhitelistedRedistributors", Action_SetRedistributors, WhitelistKind_Redistributor, caller, addresses, allowed)
}

func (le *LockEscrow) SetEarlyWithdrawConfig(
	caller common.Address,
	penaltyBpsPerWeek uint64,
	treasuryShareBps uint64,
	treasury common.Address,
	redistributionTarget common.Address,
) error {
	return le.run("setEarlyWithdrawConfig", func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		if penaltyBpsPerWeek > BpsDenominator {
			return reverts.Validation("penalty %d bps per week exceeds %d", penaltyBpsPerWeek, BpsDenominator)
		}
		if treasuryShareBps > BpsDenominator {
			return reverts.Validation("treasury share %d bps exceeds %d", treasuryShareBps, BpsDenominator)
		}
		if treasuryShareBps > 0 && utils.IsZeroAddress(treasury) {
			return reverts.Validation("treasury address required for a non-zero treasury share")
		}
		if penaltyBpsPerWeek > 0 && treasuryShareBps < BpsDenominator && utils.IsZeroAddress(redistributionTarget) {
			return reverts.Validation("redistribution target required while penalties can reach the pool")
		}
		settings.PenaltyBpsPerWeek = penaltyBpsPerWeek
		settings.TreasuryShareBps = treasuryShareBps
		settings.Treasury = treasury
		settings.RedistributionTarget = redistributionTarget
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		return le.emit(c, settings, Action_SetEarlyWithdrawCfg, caller, new(big.Int).SetUint64(penaltyBpsPerWeek), 0, nil)
	})
}

func (le *LockEscrow) TransferOwnership(caller common.Address, newOwner common.Address) error {
	return le.run("transferOwnership", func(c *callCtx) error {
		settings, err := c.store.settings(true)
		if err != nil {
			return err
		}
		if err := requireOwner(settings, caller); err != nil {
			return err
		}
		if utils.IsZeroAddress(newOwner) {
			return reverts.Validation("new owner must not be the null address")
		}
		settings.Owner = newOwner
		if err := c.store.saveSettings(settings); err != nil {
			return err
		}
		le.logger.Sugar().Infow("Escrow ownership transferred", zap.String("newOwner", newOwner.Hex()))
		return le.emit(c, settings, Action_TransferOwnership, newOwner, nil, 0, nil)
	})
}
