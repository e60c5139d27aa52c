// Package keeper runs escrow and distributor maintenance calls through a single serialized queue.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

var ErrKeeperClosed = errors.New("keeper is closed")

func NewKeeper(
	escrow *lockEscrow.LockEscrow,
	distributors []*rewardDistributor.RewardDistributor,
	caller common.Address,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *Keeper {
	dists := orderedmap.New[common.Address, *rewardDistributor.RewardDistributor]()
	for _, rd := range distributors {
		dists.Set(rd.Address(), rd)
	}
	return &Keeper{
		logger:       l,
		metricsSink:  ms,
		escrow:       escrow,
		distributors: dists,
		caller:       caller,
		// allow the queue to buffer up to 100 messages
		queue: make(chan *TaskMessage, 100),
		done:  make(chan struct{}),
	}
}

// Enqueue hands a message to the processing loop without waiting for it to run.
func (k *Keeper) Enqueue(payload *TaskMessage) error {
	select {
	case <-k.done:
		return ErrKeeperClosed
	default:
	}
	k.logger.Sugar().Debugw("Enqueueing keeper task", "task", payload.Data.Task, "distributor", payload.Data.Distributor.Hex())
	select {
	case k.queue <- payload:
		return nil
	case <-k.done:
		return ErrKeeperClosed
	}
}

// EnqueueAndWait queues a task and blocks until it has run or ctx is done.
func (k *Keeper) EnqueueAndWait(ctx context.Context, data TaskData) (*TaskResult, error) {
	responseChan := make(chan *TaskResponse, 1)

	if err := k.Enqueue(&TaskMessage{Data: data, ResponseChan: responseChan}); err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		return response.Data, response.Error
	case <-ctx.Done():
		k.logger.Sugar().Infow("Stopped waiting for keeper task", "task", data.Task, zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

// Process consumes the queue until Close is called. Run it on its own goroutine.
func (k *Keeper) Process() {
	for {
		select {
		case <-k.done:
			k.logger.Sugar().Infow("Keeper stopped processing")
			return
		case msg := <-k.queue:
			result, err := k.runTask(msg.Data)
			if err != nil {
				k.logger.Sugar().Errorw("Keeper task failed",
					zap.String("task", string(msg.Data.Task)),
					zap.Error(err),
				)
			}
			if msg.ResponseChan != nil {
				msg.ResponseChan <- &TaskResponse{Data: result, Error: err}
			}
		}
	}
}

// RunSchedule enqueues a full maintenance round every interval until ctx is done or the keeper closes.
func (k *Keeper) RunSchedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	k.logger.Sugar().Infow("Starting keeper schedule", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.done:
			return
		case <-ticker.C:
			for _, task := range []TaskType{TaskType_Checkpoint, TaskType_CheckpointToken, TaskType_CheckpointTotalSupply} {
				if err := k.Enqueue(&TaskMessage{Data: TaskData{Task: task}}); err != nil {
					return
				}
			}
		}
	}
}

// Close stops the processing loop. Messages still queued are dropped.
func (k *Keeper) Close() {
	k.logger.Sugar().Infow("Closing keeper")
	select {
	case <-k.done:
	default:
		close(k.done)
	}
}

func (k *Keeper) runTask(data TaskData) (*TaskResult, error) {
	start := time.Now()
	var result *TaskResult
	var err error

	switch data.Task {
	case TaskType_Checkpoint:
		result, err = k.checkpointEscrow()
	case TaskType_CheckpointTotalSupply, TaskType_CheckpointToken:
		result, err = k.checkpointDistributors(data)
	default:
		err = fmt.Errorf("unknown keeper task '%s'", data.Task)
	}

	k.recordTask(data.Task, err, time.Since(start))
	return result, err
}

func (k *Keeper) checkpointEscrow() (*TaskResult, error) {
	caughtUp, err := k.escrow.Checkpoint()
	if err != nil {
		return nil, err
	}
	if !caughtUp {
		k.logger.Sugar().Infow("Escrow checkpoint is still behind, another round is needed")
	}
	return &TaskResult{Task: TaskType_Checkpoint, CaughtUp: caughtUp}, nil
}

func (k *Keeper) targets(distributor common.Address) ([]*rewardDistributor.RewardDistributor, bool, error) {
	if distributor != (common.Address{}) {
		rd, ok := k.distributors.Get(distributor)
		if !ok {
			return nil, false, reverts.Validation("distributor %s is not registered with the keeper", distributor.Hex())
		}
		return []*rewardDistributor.RewardDistributor{rd}, true, nil
	}
	all := make([]*rewardDistributor.RewardDistributor, 0, k.distributors.Len())
	for pair := k.distributors.Oldest(); pair != nil; pair = pair.Next() {
		all = append(all, pair.Value)
	}
	return all, false, nil
}

// checkpointDistributors runs the task on one distributor, or on every live one. In the
// all-distributors form a distributor that refuses the keeper's caller is skipped, not failed.
func (k *Keeper) checkpointDistributors(data TaskData) (*TaskResult, error) {
	dists, explicit, err := k.targets(data.Distributor)
	if err != nil {
		return nil, err
	}

	result := &TaskResult{Task: data.Task, Distributors: make([]*DistributorResult, 0, len(dists))}
	for _, rd := range dists {
		if !explicit {
			settings, err := rd.Settings()
			if err != nil {
				return result, err
			}
			if settings.Killed {
				continue
			}
		}

		entry := &DistributorResult{Distributor: rd.Address()}
		switch data.Task {
		case TaskType_CheckpointTotalSupply:
			entry.WeekCursor, err = rd.CheckpointTotalSupply(k.caller)
		case TaskType_CheckpointToken:
			var distributed *big.Int
			distributed, err = rd.CheckpointToken(k.caller)
			entry.Distributed = distributed
		}
		if err != nil {
			if !explicit && errors.Is(err, reverts.ErrAuthorization) {
				k.logger.Sugar().Debugw("Skipping distributor the keeper may not checkpoint",
					zap.String("distributor", rd.Address().Hex()),
					zap.String("task", string(data.Task)),
				)
				continue
			}
			return result, fmt.Errorf("%s on %s: %w", data.Task, rd.Address().Hex(), err)
		}
		result.Distributors = append(result.Distributors, entry)
	}
	return result, nil
}

func (k *Keeper) recordTask(task TaskType, err error, d time.Duration) {
	labels := []metricsTypes.MetricsLabel{
		{Name: "task", Value: string(task)},
		{Name: "hasError", Value: fmt.Sprintf("%t", err != nil)},
	}
	_ = k.metricsSink.Incr(metricsTypes.Metric_Incr_KeeperTask, labels, 1)
	_ = k.metricsSink.Timing(metricsTypes.Metric_Timing_KeeperTaskDuration, d, []metricsTypes.MetricsLabel{
		{Name: "task", Value: string(task)},
	})
}
