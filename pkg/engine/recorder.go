package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// recorder is the per-run result accumulator, the only mutable state shared
// between branches. A single mutex guards every append; appended results are
// never rewritten, a revisit appends a fresh entry.
type recorder struct {
	mu        sync.Mutex
	result    *workflow.Result
	latest    map[string]int // task id -> index of its newest entry
	optional  map[string]bool
	failedReq string // first required task that failed, for the run cause
}

func newRecorder(wf *workflow.Workflow) *recorder {
	optional := make(map[string]bool, len(wf.Tasks))
	for i := range wf.Tasks {
		optional[wf.Tasks[i].ID] = wf.Tasks[i].Optional
	}
	return &recorder{
		result: &workflow.Result{
			WorkflowID: wf.EnsureID(),
			StartedAt:  time.Now(),
		},
		latest:   make(map[string]int, len(wf.Tasks)),
		optional: optional,
	}
}

func (rec *recorder) record(res workflow.TaskResult) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.result.Tasks = append(rec.result.Tasks, res)
	rec.latest[res.TaskID] = len(rec.result.Tasks) - 1
	if res.Status == workflow.FailedTaskStatus && !rec.optional[res.TaskID] && rec.failedReq == "" {
		rec.failedReq = res.TaskID
	}
}

// output returns the newest output of a task, and whether that execution
// succeeded.
func (rec *recorder) output(taskID string) (interface{}, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	idx, ok := rec.latest[taskID]
	if !ok {
		return nil, false
	}
	entry := rec.result.Tasks[idx]
	return entry.Output, entry.Status == workflow.SucceededTaskStatus
}

// status returns the newest terminal status of a task, or pending when the
// task has not completed yet.
func (rec *recorder) status(taskID string) workflow.TaskStatus {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	idx, ok := rec.latest[taskID]
	if !ok {
		return workflow.PendingTaskStatus
	}
	return rec.result.Tasks[idx].Status
}

// finalize seals the result with an explicit status, for cancellation and
// cycle-limit terminations.
func (rec *recorder) finalize(status workflow.WorkflowStatus, cause string) *workflow.Result {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.result.Status = status
	rec.result.Cause = cause
	rec.result.FinishedAt = time.Now()
	return rec.result
}

// finalizeAuto seals the result from the recorded task outcomes: the run
// succeeded unless some required task failed. Skips alone never fail a run,
// and neither do failures of optional tasks.
func (rec *recorder) finalizeAuto() *workflow.Result {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.result.FinishedAt = time.Now()
	if rec.failedReq != "" {
		rec.result.Status = workflow.FailedWorkflowStatus
		rec.result.Cause = fmt.Sprintf("task %s failed", rec.failedReq)
	} else {
		rec.result.Status = workflow.SucceededWorkflowStatus
	}
	return rec.result
}
