package workflow

type TaskStatus string

const (
	PendingTaskStatus   TaskStatus = "pending"
	RunningTaskStatus   TaskStatus = "running"
	SucceededTaskStatus TaskStatus = "succeeded"
	FailedTaskStatus    TaskStatus = "failed"
	SkippedTaskStatus   TaskStatus = "skipped"
)

// Terminal reports whether a task status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == SucceededTaskStatus || s == FailedTaskStatus || s == SkippedTaskStatus
}

// Task is a single unit of work: one tool invocation with its arguments.
// DependsOn names the tasks whose completion this task waits for under the
// linear strategy; the graph strategy reads the workflow's Edges (and treats
// DependsOn entries as unconditional edges).
type Task struct {
	ID        string                 `json:"id" yaml:"id"`
	Tool      string                 `json:"tool" yaml:"tool"`
	Arguments map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	DependsOn []string               `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Optional  bool                   `json:"optional,omitempty" yaml:"optional,omitempty"` // failures of optional tasks do not fail the run
	Retries   int                    `json:"retries,omitempty" yaml:"retries,omitempty"`
	Timeout   Duration               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // zero means the run-level default applies
}
