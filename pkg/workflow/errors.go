package workflow

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Sentinels for the structural failure classes. They surface before any
// task executes; everything that happens during execution is reported
// through TaskResult/Result instead of an error return.
var (
	ErrSchema            = errors.New("invalid workflow definition")
	ErrCycle             = errors.New("dependency cycle")
	ErrUnsupportedEngine = errors.New("unsupported engine")
)

// SchemaError reports a malformed workflow definition, naming the offending
// task or edge.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return "invalid workflow definition: " + e.Msg }

func (e *SchemaError) Unwrap() error { return ErrSchema }

func schemaErrorf(format string, args ...interface{}) error {
	return &SchemaError{Msg: fmt.Sprintf(format, args...)}
}

// CycleError reports that the dependency lists cannot be ordered, carrying
// one witness cycle as task ids in traversal order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	return fmt.Sprintf("dependency cycle detected: %s -> %s", strings.Join(e.Cycle, " -> "), e.Cycle[0])
}

func (e *CycleError) Unwrap() error { return ErrCycle }
