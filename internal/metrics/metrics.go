package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

var (
	workflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_runs_total",
			Help: "Workflow runs by engine and final status.",
		},
		[]string{"engine", "status"},
	)

	taskResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_task_results_total",
			Help: "Terminal task results by status.",
		},
		[]string{"status"},
	)

	// ToolCallDuration times MCP tool invocations, labelled by tool name
	// and outcome (ok or error).
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(workflowRuns, taskResults, ToolCallDuration)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one finished workflow run and its task outcomes.
func ObserveRun(engine workflow.EngineKind, res *workflow.Result) {
	workflowRuns.WithLabelValues(string(engine), string(res.Status)).Inc()
	for i := range res.Tasks {
		taskResults.WithLabelValues(string(res.Tasks[i].Status)).Inc()
	}
}
