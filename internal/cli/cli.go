package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brunolnetto/graph-mcp-mvp/internal/config"
	"github.com/brunolnetto/graph-mcp-mvp/internal/graphstore"
	internal_http "github.com/brunolnetto/graph-mcp-mvp/internal/http"
	"github.com/brunolnetto/graph-mcp-mvp/internal/log"
	"github.com/brunolnetto/graph-mcp-mvp/internal/mcp"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/engine"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Run: func(cmd *cobra.Command, args []string) {
			mock, _ := cmd.Flags().GetBool("mock")
			serve(config.Load(), mock)
		},
	}
	serveCmd.Flags().Bool("mock", false, "Use the built-in mock tools instead of an MCP server")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a workflow definition file",
		Run: func(cmd *cobra.Command, args []string) {
			file, _ := cmd.Flags().GetString("file")
			engineFlag, _ := cmd.Flags().GetString("engine")
			mock, _ := cmd.Flags().GetBool("mock")
			if file == "" {
				fmt.Fprintln(os.Stderr, "Error: --file is required")
				os.Exit(1)
			}
			runWorkflowFile(config.Load(), file, workflow.EngineKind(engineFlag), mock)
		},
	}
	runCmd.Flags().StringP("file", "f", "", "Workflow definition file (YAML or JSON)")
	runCmd.Flags().String("engine", "", "Engine to run with (linear or graph)")
	runCmd.Flags().Bool("mock", false, "Use the built-in mock tools instead of an MCP server")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured provider exposes",
		Run: func(cmd *cobra.Command, args []string) {
			mock, _ := cmd.Flags().GetBool("mock")
			listTools(config.Load(), mock)
		},
	}
	toolsCmd.Flags().Bool("mock", false, "Use the built-in mock tools instead of an MCP server")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a workflow definition without executing it",
		Run: func(cmd *cobra.Command, args []string) {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				fmt.Fprintln(os.Stderr, "Error: --file is required")
				os.Exit(1)
			}
			validateWorkflow(file)
		},
	}
	validateCmd.Flags().StringP("file", "f", "", "Workflow definition file (YAML or JSON)")

	rootCmd.AddCommand(serveCmd, runCmd, toolsCmd, validateCmd)
}

func serve(cfg *config.Config, mock bool) {
	logger := log.GetLogger()
	ctx := context.Background()

	port, err := buildPort(ctx, cfg, mock)
	if err != nil {
		logger.Warnf("MCP server not reachable, tool calls will fail until it is: %v", err)
	}

	store, err := graphstore.Connect(ctx, graphstore.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, logger)
	if err != nil {
		logger.Warnf("Graph store unavailable, graph endpoints disabled: %v", err)
	} else {
		defer func() {
			if err := store.Close(ctx); err != nil {
				logger.Errorf("Failed to close graph store: %v", err)
			}
		}()
	}

	srv := internal_http.NewServer(internal_http.Config{
		AppName:    cfg.AppName,
		Version:    cfg.Version,
		Addr:       cfg.Addr(),
		Runner:     newRunner(cfg, port),
		Tools:      port,
		Graph:      store,
		Logger:     logger,
		RunTimeout: cfg.EngineTimeout,
	})
	if err := srv.Start(); err != nil {
		logger.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func runWorkflowFile(cfg *config.Config, path string, kind workflow.EngineKind, mock bool) {
	logger := log.GetLogger()

	wf, err := workflow.Load(path)
	if err != nil {
		logger.Errorf("Failed to load workflow: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cancel := func() {}
	if cfg.EngineTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.EngineTimeout)
	}
	defer cancel()

	port, err := buildPort(ctx, cfg, mock)
	if err != nil {
		logger.Errorf("Failed to reach MCP server: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := newRunner(cfg, port).Run(ctx, wf, kind)
	if err != nil {
		logger.Errorf("Workflow rejected: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Errorf("Failed to encode result: %v", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stdout, string(out))
	if res.Status != workflow.SucceededWorkflowStatus {
		os.Exit(1)
	}
}

func listTools(cfg *config.Config, mock bool) {
	logger := log.GetLogger()
	ctx := context.Background()

	port, err := buildPort(ctx, cfg, mock)
	if err != nil {
		logger.Errorf("Failed to reach MCP server: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tools, err := port.DiscoverTools(ctx)
	if err != nil {
		logger.Errorf("Failed to discover tools: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to discover tools: %v\n", err)
		os.Exit(1)
	}
	if len(tools) == 0 {
		fmt.Fprintf(os.Stdout, "No tools available.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Tools:\n")
	for _, d := range tools {
		fmt.Fprintf(os.Stdout, "- %s: %s\n", d.Name, d.Description)
	}
}

func validateWorkflow(path string) {
	wf, err := workflow.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := wf.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	order, err := workflow.Resolve(wf.Tasks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	name := wf.Name
	if name == "" {
		name = path
	}
	fmt.Fprintf(os.Stdout, "Workflow %q is valid: %d tasks, %d edges\n", name, len(wf.Tasks), len(wf.Edges))
	fmt.Fprintf(os.Stdout, "Execution order: %s\n", strings.Join(order, " -> "))
}

// buildPort picks the tool provider: the built-in mocks or an MCP client.
// The client is returned even when the initial health probe fails so the
// caller can decide whether an unreachable server is fatal.
func buildPort(ctx context.Context, cfg *config.Config, mock bool) (tool.Port, error) {
	if mock {
		log.GetLogger().Infof("Using built-in mock tools")
		return tool.NewMockPort(), nil
	}
	client := mcp.NewClient(mcp.Config{
		BaseURL:   cfg.MCPServerURL,
		APIKey:    cfg.MCPAPIKey,
		Timeout:   cfg.MCPTimeout,
		RateLimit: cfg.MCPRateLimit,
	}, log.GetLogger())
	if err := client.Connect(ctx); err != nil {
		return client, err
	}
	return client, nil
}

func newRunner(cfg *config.Config, port tool.Port) *engine.Runner {
	runner := engine.NewRunner(engine.RunContext{
		Tools:       port,
		Logger:      log.GetLogger(),
		TaskTimeout: cfg.TaskTimeout,
		MaxRevisits: cfg.MaxRevisits,
		MaxParallel: cfg.MaxParallel,
	})
	if err := runner.SetDefault(cfg.DefaultEngine); err != nil {
		log.GetLogger().Warnf("Invalid DEFAULT_ENGINE %q, keeping %s", cfg.DefaultEngine, runner.Default())
	}
	return runner
}
