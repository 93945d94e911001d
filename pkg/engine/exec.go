package engine

import (
	"context"
	"time"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
	"github.com/pkg/errors"
)

type callOutcome struct {
	out interface{}
	err error
}

// runTask performs one task: a tool invocation under the task's timeout and
// retry policy. It always returns a terminal result; errors are mapped onto
// the result's cause instead of propagating.
func runTask(ctx context.Context, rc *RunContext, t *workflow.Task, args map[string]interface{}) workflow.TaskResult {
	started := time.Now()
	res := workflow.TaskResult{
		TaskID:    t.ID,
		StartedAt: &started,
	}

	timeout := t.Timeout.Std()
	if timeout <= 0 {
		timeout = rc.TaskTimeout
	}

	var out interface{}
	var taskErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		res.Attempts = attempt + 1
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)

		resultCh := make(chan callOutcome, 1)
		go func() {
			o, err := rc.Tools.CallTool(attemptCtx, t.Tool, args)
			resultCh <- callOutcome{out: o, err: err}
		}()

		select {
		case r := <-resultCh:
			out, taskErr = r.out, r.err
		case <-attemptCtx.Done():
			taskErr = attemptCtx.Err()
		}
		cancel()

		if taskErr == nil || ctx.Err() != nil {
			break
		}
		if attempt < t.Retries {
			rc.Logger.Infof("Retrying task %s (attempt %d/%d): %v", t.ID, attempt+1, t.Retries, taskErr)
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
			}
		}
	}

	finished := time.Now()
	res.FinishedAt = &finished

	if taskErr == nil {
		res.Status = workflow.SucceededTaskStatus
		res.Output = out
		return res
	}

	res.Status = workflow.FailedTaskStatus
	res.Error = taskErr.Error()
	switch {
	case errors.Is(taskErr, context.Canceled):
		res.Cause = workflow.CancelledCause
	case errors.Is(taskErr, context.DeadlineExceeded):
		res.Cause = workflow.TimeoutCause
	default:
		res.Cause = workflow.ToolErrorCause
	}
	return res
}

// skipResult builds the terminal result of a task that never ran.
func skipResult(taskID string, cause workflow.FailureCause, detail string) workflow.TaskResult {
	return workflow.TaskResult{
		TaskID: taskID,
		Status: workflow.SkippedTaskStatus,
		Cause:  cause,
		Error:  detail,
	}
}

// buildArgs assembles the argument map for a task invocation: outputs of
// the named dependencies are injected under their task ids, and explicitly
// declared arguments win on collision.
func buildArgs(t *workflow.Task, deps []string, output func(string) (interface{}, bool)) map[string]interface{} {
	args := make(map[string]interface{}, len(t.Arguments)+len(deps))
	for _, dep := range deps {
		if out, ok := output(dep); ok {
			args[dep] = out
		}
	}
	for k, v := range t.Arguments {
		args[k] = v
	}
	return args
}
