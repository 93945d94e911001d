package workflow_test

import (
	"fmt"
	"testing"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
	"github.com/pkg/errors"
	"pgregory.net/rapid"
)

// Random acyclic workflows: every task's position must exceed all of its
// dependencies' positions, and resolving twice must give the same order.
func TestResolveProperty_AcyclicOrdering(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(rt, "tasks")
		tasks := make([]workflow.Task, n)
		for i := 0; i < n; i++ {
			tasks[i] = workflow.Task{ID: fmt.Sprintf("t%d", i), Tool: "noop"}
			// deps only point at earlier declarations, so the graph is a DAG
			for j := 0; j < i; j++ {
				if rapid.Bool().Draw(rt, fmt.Sprintf("dep_%d_%d", i, j)) {
					tasks[i].DependsOn = append(tasks[i].DependsOn, fmt.Sprintf("t%d", j))
				}
			}
		}

		order, err := workflow.Resolve(tasks)
		if err != nil {
			rt.Fatalf("unexpected resolve error: %v", err)
		}
		if len(order) != n {
			rt.Fatalf("order has %d entries, want %d", len(order), n)
		}

		position := make(map[string]int, n)
		for pos, id := range order {
			position[id] = pos
		}
		for i := range tasks {
			for _, dep := range tasks[i].DependsOn {
				if position[dep] >= position[tasks[i].ID] {
					rt.Fatalf("task %s at %d resolved before its dependency %s at %d",
						tasks[i].ID, position[tasks[i].ID], dep, position[dep])
				}
			}
		}

		again, err := workflow.Resolve(tasks)
		if err != nil {
			rt.Fatalf("second resolve failed: %v", err)
		}
		for i := range order {
			if order[i] != again[i] {
				rt.Fatalf("resolve is not deterministic at %d: %s vs %s", i, order[i], again[i])
			}
		}
	})
}

// Closing any DAG into a ring must surface as a CycleError, not an order.
func TestResolveProperty_CycleAlwaysDetected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(rt, "tasks")
		tasks := make([]workflow.Task, n)
		for i := 0; i < n; i++ {
			tasks[i] = workflow.Task{ID: fmt.Sprintf("t%d", i), Tool: "noop"}
			tasks[i].DependsOn = []string{fmt.Sprintf("t%d", (i+1)%n)}
		}

		_, err := workflow.Resolve(tasks)
		if err == nil {
			rt.Fatalf("resolved a %d-task ring without error", n)
		}
		if !errors.Is(err, workflow.ErrCycle) {
			rt.Fatalf("expected a cycle error, got %v", err)
		}

		var cycleErr *workflow.CycleError
		if !errors.As(err, &cycleErr) || len(cycleErr.Cycle) == 0 {
			rt.Fatalf("cycle error carries no witness: %v", err)
		}
	})
}
