package tool

import (
	"context"
	"fmt"
)

// NewMockPort returns a Registry pre-loaded with canned tools, mirroring
// what a development MCP server exposes. Useful for tests, examples and
// running the demo workflow without any server.
func NewMockPort() *Registry {
	r := NewRegistry()

	r.MustRegister(Descriptor{
		Name:        "search_web",
		Description: "Search the web for information",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string", "description": "Search query"},
			},
			"required": []interface{}{"query"},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		query, _ := args["query"].(string)
		return map[string]interface{}{
			"result":  fmt.Sprintf("Mock search results for: %s", query),
			"sources": []interface{}{"mock_source_1", "mock_source_2"},
		}, nil
	})

	r.MustRegister(Descriptor{
		Name:        "analyze_text",
		Description: "Analyze text content",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text":          map[string]interface{}{"type": "string", "description": "Text to analyze"},
				"analysis_type": map[string]interface{}{"type": "string", "enum": []interface{}{"sentiment", "summary", "keywords"}},
			},
			"required": []interface{}{"text"},
		},
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		text, _ := args["text"].(string)
		if len(text) > 50 {
			text = text[:50]
		}
		analysisType, ok := args["analysis_type"].(string)
		if !ok {
			analysisType = "summary"
		}
		return map[string]interface{}{
			"result":        fmt.Sprintf("Mock analysis of text: %s...", text),
			"analysis_type": analysisType,
		}, nil
	})

	// the three tools the demo workflow wires together
	for _, name := range []string{"research_tool", "processing_tool", "output_tool"} {
		name := name
		r.MustRegister(Descriptor{
			Name:        name,
			Description: fmt.Sprintf("Mock %s used by the demo workflow", name),
		}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"result": fmt.Sprintf("Mock output of %s", name)}, nil
		})
	}

	return r
}
