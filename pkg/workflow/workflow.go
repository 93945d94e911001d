package workflow

import "github.com/google/uuid"

// EngineKind selects the execution strategy for a workflow.
type EngineKind string

const (
	LinearEngineKind EngineKind = "linear"
	GraphEngineKind  EngineKind = "graph"
)

// Workflow is the canonical, engine-agnostic definition consumed by every
// engine. Tasks carry dependency lists (linear strategy); Edges carry the
// directed graph with optional conditions (graph strategy). A workflow is
// constructed once from caller input and read-only afterwards.
type Workflow struct {
	ID      string     `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`
	Name    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Version string     `json:"version,omitempty" yaml:"version,omitempty"`
	Engine  EngineKind `json:"engine,omitempty" yaml:"engine,omitempty"`
	Tasks   []Task     `json:"tasks" yaml:"tasks"`
	Edges   []Edge     `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// EnsureID assigns a fresh UUID when the caller did not provide one and
// returns the effective workflow id.
func (wf *Workflow) EnsureID() string {
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	return wf.ID
}

// Task returns the task with the given id, or nil.
func (wf *Workflow) Task(id string) *Task {
	for i := range wf.Tasks {
		if wf.Tasks[i].ID == id {
			return &wf.Tasks[i]
		}
	}
	return nil
}
