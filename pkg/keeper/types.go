package keeper

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// TaskType names a maintenance operation the keeper knows how to run.
type TaskType string

var (
	// TaskType_Checkpoint advances the escrow's global point history toward the current time.
	TaskType_Checkpoint TaskType = "checkpoint"

	// TaskType_CheckpointTotalSupply captures weekly escrow supply on every distributor.
	TaskType_CheckpointTotalSupply TaskType = "checkpointTotalSupply"

	// TaskType_CheckpointToken spreads newly received reward tokens over weeks on every distributor.
	TaskType_CheckpointToken TaskType = "checkpointToken"
)

func ParseTaskType(name string) (TaskType, bool) {
	switch TaskType(name) {
	case TaskType_Checkpoint, TaskType_CheckpointTotalSupply, TaskType_CheckpointToken:
		return TaskType(name), true
	}
	return "", false
}

// TaskData describes one unit of work. A zero Distributor targets every registered distributor;
// it is ignored by escrow-only tasks.
type TaskData struct {
	Task        TaskType
	Distributor common.Address
}

type TaskMessage struct {
	Data TaskData

	// ResponseChan receives the outcome; nil for fire-and-forget.
	ResponseChan chan *TaskResponse
}

type DistributorResult struct {
	Distributor common.Address `json:"distributor"`
	WeekCursor  uint64         `json:"weekCursor,omitempty"`
	Distributed *big.Int       `json:"distributed,omitempty"`
}

type TaskResult struct {
	Task TaskType `json:"task"`
	// CaughtUp is only meaningful for escrow checkpoints.
	CaughtUp     bool                 `json:"caughtUp"`
	Distributors []*DistributorResult `json:"distributors,omitempty"`
}

type TaskResponse struct {
	Data  *TaskResult
	Error error
}

// Keeper runs maintenance calls one at a time on a single goroutine, so scheduled and on-demand
// work never race each other for the same rows.
type Keeper struct {
	logger      *zap.Logger
	metricsSink *metrics.MetricsSink

	escrow       *lockEscrow.LockEscrow
	distributors *orderedmap.OrderedMap[common.Address, *rewardDistributor.RewardDistributor]
	// caller is recorded as the sender of distributor maintenance calls.
	caller common.Address

	queue chan *TaskMessage
	done  chan struct{}
}
