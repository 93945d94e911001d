package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunolnetto/graph-mcp-mvp/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "graph-mcp-mvp",
	Short: "Workflow engine over MCP tools with linear and graph execution",
}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
