package engine

import (
	"context"
	"time"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

const (
	// DefaultTaskTimeout applies to tasks that declare no timeout of
	// their own.
	DefaultTaskTimeout = 60 * time.Second

	// DefaultMaxRevisits bounds how many times the graph engine may
	// re-execute a node through conditional back-edges. Zero disables
	// revisits entirely; the bound is per node, not per run.
	DefaultMaxRevisits = 3

	// DefaultMaxParallel bounds concurrent tool invocations within one
	// graph-engine run.
	DefaultMaxParallel = 4

	// retryBackoff is the pause between task attempts.
	retryBackoff = 100 * time.Millisecond
)

// Logger defines the logging interface for the engines.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

// RunContext carries everything one workflow run needs: the tool port, a
// logger and the run limits. Engines receive it explicitly per invocation
// and keep no state of their own between runs.
type RunContext struct {
	Tools       tool.Port
	Logger      Logger
	TaskTimeout time.Duration // fallback for tasks without a timeout
	MaxRevisits int           // graph engine revisit bound; negative selects the default
	MaxParallel int           // graph engine concurrency bound
}

func (rc *RunContext) normalize() {
	if rc.Logger == nil {
		rc.Logger = nopLogger{}
	}
	if rc.TaskTimeout <= 0 {
		rc.TaskTimeout = DefaultTaskTimeout
	}
	if rc.MaxRevisits < 0 {
		rc.MaxRevisits = DefaultMaxRevisits
	}
	if rc.MaxParallel <= 0 {
		rc.MaxParallel = DefaultMaxParallel
	}
}

// Engine is one execution strategy for a validated workflow. Execute
// returns an error only for structural problems found before any task runs;
// once execution starts the outcome is always a Result.
type Engine interface {
	Execute(ctx context.Context, wf *workflow.Workflow, rc *RunContext) (*workflow.Result, error)
}
