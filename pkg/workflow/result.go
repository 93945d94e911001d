package workflow

import "time"

type WorkflowStatus string

const (
	SucceededWorkflowStatus WorkflowStatus = "succeeded"
	FailedWorkflowStatus    WorkflowStatus = "failed"
	CancelledWorkflowStatus WorkflowStatus = "cancelled"
)

// FailureCause classifies why a task or run did not succeed.
type FailureCause string

const (
	ToolErrorCause       FailureCause = "tool_error"
	TimeoutCause         FailureCause = "timeout"
	UpstreamFailureCause FailureCause = "upstream_failure"
	CycleLimitCause      FailureCause = "cycle_limit"
	CancelledCause       FailureCause = "cancelled"
)

// TaskResult is the outcome of one task execution. Once the status is
// terminal the result is immutable; a graph-engine revisit appends a fresh
// result instead of rewriting an earlier one.
type TaskResult struct {
	TaskID     string       `json:"task_id"`
	Status     TaskStatus   `json:"status"`
	Output     interface{}  `json:"output,omitempty"`
	Error      string       `json:"error,omitempty"`
	Cause      FailureCause `json:"cause,omitempty"`
	Attempts   int          `json:"attempts,omitempty"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Result is the aggregate outcome of a workflow run. Tasks are ordered by
// completion; the run succeeded only if every required task did.
type Result struct {
	WorkflowID string         `json:"workflow_id"`
	Status     WorkflowStatus `json:"status"`
	Tasks      []TaskResult   `json:"tasks"`
	Cause      string         `json:"cause,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Task returns the most recent result recorded for the given task id, or
// nil when the task never reached a terminal state.
func (r *Result) Task(id string) *TaskResult {
	for i := len(r.Tasks) - 1; i >= 0; i-- {
		if r.Tasks[i].TaskID == id {
			return &r.Tasks[i]
		}
	}
	return nil
}

// Executions counts how many times the given task reached a terminal state
// during the run. Greater than one only for graph-engine revisits.
func (r *Result) Executions(id string) int {
	n := 0
	for i := range r.Tasks {
		if r.Tasks[i].TaskID == id {
			n++
		}
	}
	return n
}
