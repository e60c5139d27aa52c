package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_EscrowCall      = "escrow.call"
	Metric_Incr_DistributorCall = "distributor.call"
	Metric_Incr_GatewayClaim    = "gateway.claim"
	Metric_Incr_HttpRequest     = "rpc.http.request"
	Metric_Incr_KeeperTask      = "keeper.task"

	Metric_Gauge_LockedSupply          = "escrow.lockedSupply"
	Metric_Gauge_VotingSupply          = "escrow.votingSupply"
	Metric_Gauge_GlobalEpoch           = "escrow.epoch"
	Metric_Gauge_DistributorWeekCursor = "distributor.weekCursor"

	Metric_Timing_EscrowCallDuration      = "escrow.call.duration"
	Metric_Timing_DistributorCallDuration = "distributor.call.duration"
	Metric_Timing_HttpDuration            = "rpc.http.duration"
	Metric_Timing_KeeperTaskDuration      = "keeper.task.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name: Metric_Incr_EscrowCall,
			Labels: []string{
				"method",
				"outcome",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_DistributorCall,
			Labels: []string{
				"distributor",
				"method",
				"outcome",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_GatewayClaim,
			Labels: []string{
				"outcome",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_HttpRequest,
			Labels: []string{
				"method",
				"pattern",
				"status_code",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_KeeperTask,
			Labels: []string{
				"task",
				"hasError",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_LockedSupply,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_VotingSupply,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_GlobalEpoch,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Gauge_DistributorWeekCursor,
			Labels: []string{
				"distributor",
			},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_EscrowCallDuration,
			Labels: []string{
				"method",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_DistributorCallDuration,
			Labels: []string{
				"distributor",
				"method",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_HttpDuration,
			Labels: []string{
				"method",
				"pattern",
				"status_code",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_KeeperTaskDuration,
			Labels: []string{
				"task",
			},
		},
	},
}
