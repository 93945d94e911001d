package workflow_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDefinition = `
name: research-pipeline
version: "0.2.0"
engine: graph
tasks:
  - id: collect
    tool: search_web
    arguments:
      query: golang workflow engines
    timeout: 45s
  - id: triage
    tool: analyze_text
    retries: 2
  - id: deep_dive
    tool: analyze_text
    optional: true
edges:
  - from: collect
    to: triage
  - from: triage
    to: deep_dive
    when:
      field: score
      op: gt
      value: 5
`

func TestParseYAML(t *testing.T) {
	wf, err := workflow.Parse([]byte(yamlDefinition))
	require.NoError(t, err)
	require.NoError(t, wf.Validate())

	assert.Equal(t, "research-pipeline", wf.Name)
	assert.Equal(t, workflow.GraphEngineKind, wf.Engine)
	require.Len(t, wf.Tasks, 3)
	assert.Equal(t, "golang workflow engines", wf.Tasks[0].Arguments["query"])
	assert.Equal(t, 45*time.Second, wf.Tasks[0].Timeout.Std())
	assert.Equal(t, 2, wf.Tasks[1].Retries)
	assert.True(t, wf.Tasks[2].Optional)

	require.Len(t, wf.Edges, 2)
	assert.False(t, wf.Edges[0].Conditional())
	require.True(t, wf.Edges[1].Conditional())
	assert.Equal(t, workflow.OpGt, wf.Edges[1].When.Op)
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{
		"name": "demo",
		"engine": "linear",
		"tasks": [
			{"id": "a", "tool": "research_tool"},
			{"id": "b", "tool": "output_tool", "depends_on": ["a"], "timeout": "10s"}
		]
	}`)

	wf, err := workflow.ParseJSON(data)
	require.NoError(t, err)
	require.NoError(t, wf.Validate())
	assert.Equal(t, workflow.LinearEngineKind, wf.Engine)
	assert.Equal(t, []string{"a"}, wf.Tasks[1].DependsOn)
	assert.Equal(t, 10*time.Second, wf.Tasks[1].Timeout.Std())
}

func TestLoadPicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDefinition), 0o600))
	jsonPath := filepath.Join(dir, "wf.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"tasks":[{"id":"a","tool":"t"}]}`), 0o600))

	fromYAML, err := workflow.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "research-pipeline", fromYAML.Name)

	fromJSON, err := workflow.Load(jsonPath)
	require.NoError(t, err)
	require.Len(t, fromJSON.Tasks, 1)

	_, err = workflow.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestEnsureID(t *testing.T) {
	wf := &workflow.Workflow{Tasks: []workflow.Task{{ID: "a", Tool: "t"}}}
	id := wf.EnsureID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, wf.EnsureID()) // stable once assigned

	preset := &workflow.Workflow{ID: "wf-explicit"}
	assert.Equal(t, "wf-explicit", preset.EnsureID())
}
