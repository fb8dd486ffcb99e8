package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics holds the counters/gauges shared across all five
// stage workers, following x/publisher/metrics.go's "one Metrics struct
// per component, built off one ComponentRegistry" shape.
type PipelineMetrics struct {
	registry *ComponentRegistry

	BlocksIngested       prometheus.Counter
	SnosProofsGenerated  prometheus.Counter
	BridgeProofsGenerated prometheus.Counter
	RemoteJobsSubmitted  *prometheus.CounterVec
	RemoteJobFailures    *prometheus.CounterVec
	StageErrorsTotal     *prometheus.CounterVec
	SettlementsConfirmed prometheus.Counter
	CurrentBlockHeight   prometheus.Gauge
	StageLatencySeconds  *prometheus.HistogramVec
}

// NewPipelineMetrics builds the orchestrator's pipeline-wide metrics
// under the "orchestrator" namespace.
func NewPipelineMetrics() *PipelineMetrics {
	reg := NewComponentRegistry("orchestrator", "pipeline")

	return &PipelineMetrics{
		registry: reg,

		BlocksIngested: reg.NewCounter(prometheus.CounterOpts{
			Name: "blocks_ingested_total",
			Help: "Total number of blocks pulled from the upstream chain",
		}),

		SnosProofsGenerated: reg.NewCounter(prometheus.CounterOpts{
			Name: "snos_proofs_generated_total",
			Help: "Total number of SNOS proofs produced or reused from cache",
		}),

		BridgeProofsGenerated: reg.NewCounter(prometheus.CounterOpts{
			Name: "bridge_proofs_generated_total",
			Help: "Total number of layout-bridge proofs produced or reused from cache",
		}),

		RemoteJobsSubmitted: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_jobs_submitted_total",
			Help: "Total number of remote prover jobs submitted, by kind",
		}, []string{"kind"}),

		RemoteJobFailures: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_job_failures_total",
			Help: "Total number of remote prover jobs that reported failure, by kind",
		}, []string{"kind"}),

		StageErrorsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "stage_errors_total",
			Help: "Total number of stage-level errors, by stage",
		}, []string{"stage"}),

		SettlementsConfirmed: reg.NewCounter(prometheus.CounterOpts{
			Name: "settlements_confirmed_total",
			Help: "Total number of blocks settled on-chain",
		}),

		CurrentBlockHeight: reg.NewGauge(prometheus.GaugeOpts{
			Name: "current_block_height",
			Help: "Highest block number the ingestor has observed",
		}),

		StageLatencySeconds: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stage_latency_seconds",
			Help:    "Time spent processing one item within a stage",
			Buckets: NetworkBuckets,
		}, []string{"stage"}),
	}
}
