package tool

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Handler executes one tool invocation in-process.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type entry struct {
	desc    Descriptor
	handler Handler
}

// Registry is an in-process Port for embedding the engines without an MCP
// server: tests, examples and the CLI's --mock mode. Discovery returns tools
// in registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a named tool. Registering an existing name is an error.
func (r *Registry) Register(desc Descriptor, fn Handler) error {
	if desc.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if fn == nil {
		return errors.Errorf("tool %q has no handler", desc.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return errors.Errorf("tool %q already registered", desc.Name)
	}
	r.tools[desc.Name] = entry{desc: desc, handler: fn}
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry) MustRegister(desc Descriptor, fn Handler) {
	if err := r.Register(desc, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) DiscoverTools(ctx context.Context) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		descs = append(descs, r.tools[name].desc)
	}
	return descs, nil
}

func (r *Registry) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ToolError{Code: CodeNotFound, Message: "unknown tool: " + name}
	}
	return e.handler(ctx, args)
}
