package engine

import (
	"context"
	"fmt"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// LinearEngine executes tasks one at a time in resolved dependency order.
// A failed or skipped dependency skips every task downstream of it.
type LinearEngine struct{}

func NewLinearEngine() *LinearEngine {
	return &LinearEngine{}
}

func (e *LinearEngine) Execute(ctx context.Context, wf *workflow.Workflow, rc *RunContext) (*workflow.Result, error) {
	rc.normalize()

	order, err := workflow.Resolve(wf.Tasks)
	if err != nil {
		return nil, err
	}

	rec := newRecorder(wf)
	rc.Logger.Infof("Executing workflow %s with %d tasks", wf.Name, len(order))

	for _, id := range order {
		if ctx.Err() != nil {
			rc.Logger.Infof("Workflow %s cancelled before task %s", wf.Name, id)
			return rec.finalize(workflow.CancelledWorkflowStatus, "workflow cancelled"), nil
		}

		t := wf.Task(id)
		if dep, blocked := failedDependency(rec, t); blocked {
			rc.Logger.Infof("Skipping task %s: dependency %s did not succeed", id, dep)
			rec.record(skipResult(id, workflow.UpstreamFailureCause, fmt.Sprintf("dependency %s did not succeed", dep)))
			continue
		}

		args := buildArgs(t, t.DependsOn, rec.output)
		res := runTask(ctx, rc, t, args)
		if ctx.Err() != nil {
			// The run was cancelled while this task was in flight. Its
			// result is discarded whichever way the race went.
			return rec.finalize(workflow.CancelledWorkflowStatus, "workflow cancelled"), nil
		}
		if res.Status == workflow.FailedTaskStatus {
			rc.Logger.Errorf("Task %s failed after %d attempt(s): %s", id, res.Attempts, res.Error)
		}
		rec.record(res)
	}

	return rec.finalizeAuto(), nil
}

// failedDependency returns the first dependency of t that finished in a
// non-succeeded state.
func failedDependency(rec *recorder, t *workflow.Task) (string, bool) {
	for _, dep := range t.DependsOn {
		if rec.status(dep) != workflow.SucceededTaskStatus {
			return dep, true
		}
	}
	return "", false
}
