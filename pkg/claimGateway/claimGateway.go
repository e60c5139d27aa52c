// Package claimGateway claims from several reward distributors in one all-or-nothing call.
package claimGateway

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/Layr-Labs/ve-rewards/pkg/token"
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gorm.io/gorm"
)

type ClaimGateway struct {
	db          *gorm.DB
	escrow      *lockEscrow.LockEscrow
	ledger      *token.Ledger
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewClaimGateway(
	db *gorm.DB,
	escrow *lockEscrow.LockEscrow,
	ledger *token.Ledger,
	eb eventBusTypes.IEventBus,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *ClaimGateway {
	return &ClaimGateway{
		db:          db,
		escrow:      escrow,
		ledger:      ledger,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
	}
}

// ClaimMultiple claims for recipient from every distributor in order, inside one transaction.
// An unknown distributor reverts the whole batch before anything is claimed. A distributor listed
// more than once is claimed again at each position; amounts are summed under its first position.
func (cg *ClaimGateway) ClaimMultiple(
	caller common.Address,
	distributors []common.Address,
	recipient common.Address,
) (*orderedmap.OrderedMap[common.Address, *big.Int], error) {
	span := ddTracer.StartSpan("claimGateway.claimMultiple")

	claimed := orderedmap.New[common.Address, *big.Int]()
	batch := eventBus.NewBatch(cg.eventBus)

	err := cg.db.Transaction(func(tx *gorm.DB) error {
		handles := make(map[common.Address]*rewardDistributor.RewardDistributor, len(distributors))
		for _, address := range distributors {
			if _, ok := handles[address]; ok {
				continue
			}
			rd := rewardDistributor.NewRewardDistributor(address, cg.db, cg.escrow, cg.ledger, cg.eventBus, cg.metricsSink, cg.logger).WithTx(tx, batch)
			deployed, err := rd.IsDeployed()
			if err != nil {
				return err
			}
			if !deployed {
				return reverts.Validation("%s is not a reward distributor", address.Hex())
			}
			handles[address] = rd
		}
		for _, address := range distributors {
			amount, err := handles[address].Claim(caller, recipient)
			if err != nil {
				return err
			}
			if total, ok := claimed.Get(address); ok {
				total.Add(total, amount)
				continue
			}
			claimed.Set(address, amount)
		}
		return nil
	})
	span.Finish(ddTracer.WithError(err))
	cg.record(err)

	if err != nil {
		batch.Discard()
		cg.logger.Sugar().Debugw("Claim batch reverted",
			zap.String("recipient", recipient.Hex()),
			zap.Int("distributors", len(distributors)),
			zap.Error(err),
		)
		return nil, err
	}
	batch.Flush()
	return claimed, nil
}

func (cg *ClaimGateway) record(err error) {
	if cg.metricsSink == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(reverts.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	_ = cg.metricsSink.Incr(metricsTypes.Metric_Incr_GatewayClaim, []metricsTypes.MetricsLabel{
		{Name: "outcome", Value: outcome},
	}, 1)
}
