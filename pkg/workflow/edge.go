package workflow

// Edge is a directed transition between two tasks under the graph strategy.
// An edge without a condition always fires once its source succeeds; a
// conditional edge fires only when the condition holds over the source
// task's output.
type Edge struct {
	From string     `json:"from" yaml:"from"`
	To   string     `json:"to" yaml:"to"`
	When *Condition `json:"when,omitempty" yaml:"when,omitempty"`
}

// Conditional reports whether the edge carries a condition.
func (e *Edge) Conditional() bool { return e.When != nil }
