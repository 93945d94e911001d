package workflow_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultJSONRoundTrip(t *testing.T) {
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)
	taskFinished := started.Add(time.Second)

	original := workflow.Result{
		WorkflowID: "wf-42",
		Status:     workflow.FailedWorkflowStatus,
		Cause:      "task analyze failed",
		StartedAt:  started,
		FinishedAt: finished,
		Tasks: []workflow.TaskResult{
			{
				TaskID:     "collect",
				Status:     workflow.SucceededTaskStatus,
				Output:     map[string]interface{}{"result": "data", "count": 3.0},
				Attempts:   1,
				StartedAt:  &started,
				FinishedAt: &taskFinished,
			},
			{
				TaskID:   "analyze",
				Status:   workflow.FailedTaskStatus,
				Error:    "tool error boom: upstream unavailable",
				Cause:    workflow.ToolErrorCause,
				Attempts: 2,
			},
			{
				TaskID: "report",
				Status: workflow.SkippedTaskStatus,
				Cause:  workflow.UpstreamFailureCause,
			},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded workflow.Result
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.WorkflowID, decoded.WorkflowID)
	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.Cause, decoded.Cause)
	assert.True(t, original.StartedAt.Equal(decoded.StartedAt))
	assert.True(t, original.FinishedAt.Equal(decoded.FinishedAt))
	require.Len(t, decoded.Tasks, 3)
	assert.Equal(t, original.Tasks[0].Output, decoded.Tasks[0].Output)
	assert.Equal(t, original.Tasks[1].Error, decoded.Tasks[1].Error)
	assert.Equal(t, workflow.ToolErrorCause, decoded.Tasks[1].Cause)
	assert.Equal(t, workflow.SkippedTaskStatus, decoded.Tasks[2].Status)
}

func TestResultTaskLookup(t *testing.T) {
	res := workflow.Result{
		Tasks: []workflow.TaskResult{
			{TaskID: "a", Status: workflow.SucceededTaskStatus, Output: "first"},
			{TaskID: "b", Status: workflow.SucceededTaskStatus},
			{TaskID: "a", Status: workflow.SucceededTaskStatus, Output: "second"},
		},
	}

	latest := res.Task("a")
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Output)
	assert.Equal(t, 2, res.Executions("a"))
	assert.Equal(t, 1, res.Executions("b"))
	assert.Nil(t, res.Task("missing"))
	assert.Equal(t, 0, res.Executions("missing"))
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, workflow.PendingTaskStatus.Terminal())
	assert.False(t, workflow.RunningTaskStatus.Terminal())
	assert.True(t, workflow.SucceededTaskStatus.Terminal())
	assert.True(t, workflow.FailedTaskStatus.Terminal())
	assert.True(t, workflow.SkippedTaskStatus.Terminal())
}

func TestDurationRoundTrip(t *testing.T) {
	type wrapper struct {
		Timeout workflow.Duration `json:"timeout"`
	}

	t.Run("String", func(t *testing.T) {
		var w wrapper
		require.NoError(t, json.Unmarshal([]byte(`{"timeout":"2m30s"}`), &w))
		assert.Equal(t, 150*time.Second, w.Timeout.Std())

		data, err := json.Marshal(w)
		require.NoError(t, err)
		assert.JSONEq(t, `{"timeout":"2m30s"}`, string(data))
	})

	t.Run("BareSecondsNumber", func(t *testing.T) {
		var w wrapper
		require.NoError(t, json.Unmarshal([]byte(`{"timeout":30}`), &w))
		assert.Equal(t, 30*time.Second, w.Timeout.Std())
	})

	t.Run("Invalid", func(t *testing.T) {
		var w wrapper
		assert.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &w))
	})
}
