package engine_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/engine"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

func edge(from, to string) workflow.Edge {
	return workflow.Edge{From: from, To: to}
}

func condEdge(from, to string, when workflow.Condition) workflow.Edge {
	return workflow.Edge{From: from, To: to, When: &when}
}

func TestGraphEngineExecute(t *testing.T) {
	t.Run("BranchesOnCondition", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", map[string]interface{}{"result": "go"}))
		reg.MustRegister(tool.Descriptor{Name: "b"}, okHandler(log, "b", nil))
		reg.MustRegister(tool.Descriptor{Name: "c"}, okHandler(log, "c", nil))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c")},
			Edges: []workflow.Edge{
				condEdge("a", "b", workflow.Condition{Field: "result", Op: workflow.OpEq, Value: "go"}),
				condEdge("a", "c", workflow.Condition{Field: "result", Op: workflow.OpEq, Value: "stop"}),
			},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.SucceededWorkflowStatus, res.Status)
		assert.Equal(t, []string{"a", "b"}, log.list())
		assert.Equal(t, workflow.SucceededTaskStatus, res.Task("b").Status)

		skipped := res.Task("c")
		require.NotNil(t, skipped)
		assert.Equal(t, workflow.SkippedTaskStatus, skipped.Status)
		assert.Empty(t, skipped.Cause)
	})

	t.Run("AllDroppedBranchesSkipWithoutFailing", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", map[string]interface{}{"result": "neither"}))
		reg.MustRegister(tool.Descriptor{Name: "b"}, okHandler(log, "b", nil))
		reg.MustRegister(tool.Descriptor{Name: "c"}, okHandler(log, "c", nil))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c")},
			Edges: []workflow.Edge{
				condEdge("a", "b", workflow.Condition{Field: "result", Op: workflow.OpEq, Value: "go"}),
				condEdge("a", "c", workflow.Condition{Field: "result", Op: workflow.OpEq, Value: "stop"}),
			},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.SucceededWorkflowStatus, res.Status)
		assert.Equal(t, []string{"a"}, log.list())
		assert.Equal(t, workflow.SkippedTaskStatus, res.Task("b").Status)
		assert.Equal(t, workflow.SkippedTaskStatus, res.Task("c").Status)
	})

	t.Run("BoundedRevisits", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", "ok"))
		reg.MustRegister(tool.Descriptor{Name: "b"}, okHandler(log, "b", "ok"))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b")},
			Edges: []workflow.Edge{
				edge("a", "b"),
				condEdge("b", "a", workflow.Condition{Op: workflow.OpExists}),
			},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg, MaxRevisits: 2})
		require.NoError(t, err)

		assert.Equal(t, workflow.FailedWorkflowStatus, res.Status)
		assert.Contains(t, res.Cause, "revisit limit")
		assert.Contains(t, res.Cause, "task a")

		// First run plus two revisits on each node, then the third
		// revisit of a trips the bound.
		assert.Equal(t, 3, succeededCount(res, "a"))
		assert.Equal(t, 3, succeededCount(res, "b"))

		last := res.Task("a")
		require.NotNil(t, last)
		assert.Equal(t, workflow.FailedTaskStatus, last.Status)
		assert.Equal(t, workflow.CycleLimitCause, last.Cause)
	})

	t.Run("LoopTerminatesWhenConditionClears", func(t *testing.T) {
		var round int32
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "plan"}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return "planned", nil
		})
		reg.MustRegister(tool.Descriptor{Name: "review"}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			n := atomic.AddInt32(&round, 1)
			return map[string]interface{}{"revision": float64(n)}, nil
		})
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("plan"), task("review")},
			Edges: []workflow.Edge{
				edge("plan", "review"),
				condEdge("review", "plan", workflow.Condition{Field: "revision", Op: workflow.OpLt, Value: 3}),
			},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.SucceededWorkflowStatus, res.Status)
		assert.Equal(t, 3, res.Executions("plan"))
		assert.Equal(t, 3, res.Executions("review"))
		assert.Equal(t, workflow.SucceededTaskStatus, res.Task("plan").Status)
	})

	t.Run("SkipCascadesDownstreamOfFailure", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, failHandler(log, "a"))
		reg.MustRegister(tool.Descriptor{Name: "b"}, okHandler(log, "b", nil))
		reg.MustRegister(tool.Descriptor{Name: "c"}, okHandler(log, "c", nil))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c")},
			Edges: []workflow.Edge{edge("a", "b"), edge("b", "c")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.FailedWorkflowStatus, res.Status)
		assert.Equal(t, []string{"a"}, log.list())
		for _, id := range []string{"b", "c"} {
			assert.Equal(t, workflow.SkippedTaskStatus, res.Task(id).Status)
			assert.Equal(t, workflow.UpstreamFailureCause, res.Task(id).Cause)
		}
	})

	t.Run("ParallelBranchesBothRun", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		for _, name := range []string{"a", "b", "c", "d"} {
			reg.MustRegister(tool.Descriptor{Name: name}, okHandler(log, name, name))
		}
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c"), task("d")},
			Edges: []workflow.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.SucceededWorkflowStatus, res.Status)
		calls := log.list()
		require.Len(t, calls, 4)
		assert.Equal(t, "a", calls[0])
		assert.Equal(t, "d", calls[3])
		assert.ElementsMatch(t, []string{"b", "c"}, calls[1:3])
	})

	t.Run("DiamondJoinSkipsWhenOneParentFails", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", nil))
		reg.MustRegister(tool.Descriptor{Name: "b"}, failHandler(log, "b"))
		reg.MustRegister(tool.Descriptor{Name: "c"}, okHandler(log, "c", nil))
		reg.MustRegister(tool.Descriptor{Name: "d"}, okHandler(log, "d", nil))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c"), task("d")},
			Edges: []workflow.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.FailedWorkflowStatus, res.Status)
		assert.Equal(t, workflow.SucceededTaskStatus, res.Task("c").Status)
		assert.Equal(t, workflow.SkippedTaskStatus, res.Task("d").Status)
		assert.Equal(t, workflow.UpstreamFailureCause, res.Task("d").Cause)
	})

	t.Run("DependsOnFoldedIntoGraph", func(t *testing.T) {
		log := &callLog{}
		var seen map[string]interface{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", "A-OUT"))
		reg.MustRegister(tool.Descriptor{Name: "b"}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			log.add("b")
			seen = args
			return nil, nil
		})
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b", "a")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.SucceededWorkflowStatus, res.Status)
		assert.Equal(t, []string{"a", "b"}, log.list())
		assert.Equal(t, "A-OUT", seen["a"])
	})

	t.Run("UnconditionalBackEdgeRejected", func(t *testing.T) {
		reg := tool.NewRegistry()
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b")},
			Edges: []workflow.Edge{edge("a", "b"), edge("b", "a")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.Error(t, err)
		assert.True(t, errors.Is(err, workflow.ErrSchema))
		assert.Contains(t, err.Error(), "must declare a condition")
		assert.Nil(t, res)
	})

	t.Run("CancellationDiscardsLateResults", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", nil))
		reg.MustRegister(tool.Descriptor{Name: "b"}, func(c context.Context, args map[string]interface{}) (interface{}, error) {
			log.add("b")
			cancel()
			return "done anyway", nil
		})
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b")},
			Edges: []workflow.Edge{edge("a", "b")},
		}

		res, err := engine.NewGraphEngine().Execute(ctx, wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.CancelledWorkflowStatus, res.Status)
		require.NotNil(t, res.Task("a"))
		assert.Equal(t, workflow.SucceededTaskStatus, res.Task("a").Status)
		assert.Nil(t, res.Task("b"))
	})

	t.Run("FailureInOneBranchLeavesSiblingAlone", func(t *testing.T) {
		log := &callLog{}
		reg := tool.NewRegistry()
		reg.MustRegister(tool.Descriptor{Name: "a"}, okHandler(log, "a", nil))
		reg.MustRegister(tool.Descriptor{Name: "b"}, failHandler(log, "b"))
		reg.MustRegister(tool.Descriptor{Name: "c"}, okHandler(log, "c", nil))
		wf := &workflow.Workflow{
			Tasks: []workflow.Task{task("a"), task("b"), task("c")},
			Edges: []workflow.Edge{edge("a", "b"), edge("a", "c")},
		}

		res, err := engine.NewGraphEngine().Execute(context.Background(), wf, &engine.RunContext{Tools: reg})
		require.NoError(t, err)

		assert.Equal(t, workflow.FailedWorkflowStatus, res.Status)
		assert.Equal(t, workflow.FailedTaskStatus, res.Task("b").Status)
		assert.Equal(t, workflow.SucceededTaskStatus, res.Task("c").Status)
	})
}
