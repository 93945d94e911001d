package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// Runner dispatches workflows to the execution strategies it knows about.
// The engine set is fixed at construction; only the default kind changes at
// runtime, so callers can switch strategies between runs.
type Runner struct {
	mu      sync.RWMutex
	engines map[workflow.EngineKind]Engine
	def     workflow.EngineKind
	rc      RunContext
}

// NewRunner builds a Runner over the linear and graph engines. The run
// context acts as a template: every run gets its own copy, so engines never
// share mutable state through it.
func NewRunner(rc RunContext) *Runner {
	return &Runner{
		engines: map[workflow.EngineKind]Engine{
			workflow.LinearEngineKind: NewLinearEngine(),
			workflow.GraphEngineKind:  NewGraphEngine(),
		},
		def: workflow.LinearEngineKind,
		rc:  rc,
	}
}

// Engines lists the available engine kinds in stable order.
func (r *Runner) Engines() []workflow.EngineKind {
	kinds := make([]workflow.EngineKind, 0, len(r.engines))
	for k := range r.engines {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Default returns the engine kind used when neither the call nor the
// workflow names one.
func (r *Runner) Default() workflow.EngineKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// SetDefault switches the fallback engine kind.
func (r *Runner) SetDefault(kind workflow.EngineKind) error {
	if _, ok := r.engines[kind]; !ok {
		return errors.Wrapf(workflow.ErrUnsupportedEngine, "engine %q", kind)
	}
	r.mu.Lock()
	r.def = kind
	r.mu.Unlock()
	return nil
}

// Run validates the workflow once and dispatches it. The explicit kind wins
// over the workflow's own engine field, which wins over the default. Schema,
// cycle and unsupported-engine failures return an error and no result;
// anything after execution starts is reported through the Result.
func (r *Runner) Run(ctx context.Context, wf *workflow.Workflow, kind workflow.EngineKind) (*workflow.Result, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	if kind == "" {
		kind = wf.Engine
	}
	if kind == "" {
		kind = r.Default()
	}
	eng, ok := r.engines[kind]
	if !ok {
		return nil, errors.Wrapf(workflow.ErrUnsupportedEngine, "engine %q", kind)
	}

	rc := r.rc
	rc.normalize()
	rc.Logger.Infof("Running workflow %s with engine %s", wf.Name, kind)
	return eng.Execute(ctx, wf, &rc)
}
