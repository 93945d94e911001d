package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brunolnetto/graph-mcp-mvp/internal/config"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "Graph MCP MVP", cfg.AppName)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "http://localhost:8001", cfg.MCPServerURL)
	assert.Equal(t, 30*time.Second, cfg.MCPTimeout)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Neo4jDatabase)
	assert.Equal(t, workflow.LinearEngineKind, cfg.DefaultEngine)
	assert.Equal(t, 300*time.Second, cfg.EngineTimeout)
	assert.Equal(t, 3, cfg.MaxRevisits)
	assert.Equal(t, 4, cfg.MaxParallel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_ENGINE", "graph")
	t.Setenv("MCP_TIMEOUT", "5s")
	t.Setenv("TASK_TIMEOUT", "45")
	t.Setenv("MAX_REVISITS", "7")
	t.Setenv("MCP_RATE_LIMIT", "2.5")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, workflow.GraphEngineKind, cfg.DefaultEngine)
	assert.Equal(t, 5*time.Second, cfg.MCPTimeout)
	assert.Equal(t, 45*time.Second, cfg.TaskTimeout, "bare numbers are seconds")
	assert.Equal(t, 7, cfg.MaxRevisits)
	assert.Equal(t, 2.5, cfg.MCPRateLimit)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_REVISITS", "many")
	t.Setenv("ENGINE_TIMEOUT", "soon")
	t.Setenv("MCP_RATE_LIMIT", "fast")

	cfg := config.Load()

	assert.Equal(t, 3, cfg.MaxRevisits)
	assert.Equal(t, 300*time.Second, cfg.EngineTimeout)
	assert.Equal(t, float64(0), cfg.MCPRateLimit)
}
