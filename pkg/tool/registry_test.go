package tool_test

import (
	"context"
	"testing"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndCall(t *testing.T) {
	r := tool.NewRegistry()
	err := r.Register(tool.Descriptor{Name: "echo"}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return args["msg"], nil
	})
	require.NoError(t, err)

	out, err := r.CallTool(context.Background(), "echo", map[string]interface{}{"msg": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	r := tool.NewRegistry()
	noop := func(ctx context.Context, args map[string]interface{}) (interface{}, error) { return nil, nil }

	assert.Error(t, r.Register(tool.Descriptor{}, noop))
	assert.Error(t, r.Register(tool.Descriptor{Name: "echo"}, nil))

	require.NoError(t, r.Register(tool.Descriptor{Name: "echo"}, noop))
	err := r.Register(tool.Descriptor{Name: "echo"}, noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `tool "echo" already registered`)
}

func TestRegistryUnknownToolIsToolError(t *testing.T) {
	r := tool.NewRegistry()
	_, err := r.CallTool(context.Background(), "ghost", nil)
	require.Error(t, err)

	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, tool.CodeNotFound, toolErr.Code)
	assert.Contains(t, toolErr.Message, "ghost")
}

func TestRegistryDiscoveryKeepsRegistrationOrder(t *testing.T) {
	r := tool.NewRegistry()
	noop := func(ctx context.Context, args map[string]interface{}) (interface{}, error) { return nil, nil }
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(tool.Descriptor{Name: name}, noop))
	}

	descs, err := r.DiscoverTools(context.Background())
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, "zeta", descs[0].Name)
	assert.Equal(t, "alpha", descs[1].Name)
	assert.Equal(t, "mid", descs[2].Name)
}

func TestRegistryHonorsCancelledContext(t *testing.T) {
	r := tool.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.DiscoverTools(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = r.CallTool(ctx, "anything", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockPortCannedTools(t *testing.T) {
	mock := tool.NewMockPort()
	ctx := context.Background()

	descs, err := mock.DiscoverTools(ctx)
	require.NoError(t, err)
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	assert.Contains(t, names, "search_web")
	assert.Contains(t, names, "analyze_text")
	assert.Contains(t, names, "research_tool")

	out, err := mock.CallTool(ctx, "search_web", map[string]interface{}{"query": "graph engines"})
	require.NoError(t, err)
	result, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Mock search results for: graph engines", result["result"])

	out, err = mock.CallTool(ctx, "analyze_text", map[string]interface{}{"text": "short"})
	require.NoError(t, err)
	result = out.(map[string]interface{})
	assert.Equal(t, "summary", result["analysis_type"])
}
