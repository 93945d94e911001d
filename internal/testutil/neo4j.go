// internal/testutil/neo4j.go
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/brunolnetto/graph-mcp-mvp/internal/graphstore"
)

const (
	neo4jImage    = "neo4j:5"
	neo4jUser     = "neo4j"
	neo4jPassword = "integration"
)

// TestGraph holds the test graph store and its container.
type TestGraph struct {
	Store     *graphstore.Store
	container testcontainers.Container
}

// SetupTestGraph starts a Neo4j container and returns a connected store.
// Skipped unless GRAPH_TESTS is set, so the unit suite stays Docker-free.
func SetupTestGraph(t *testing.T) *TestGraph {
	if os.Getenv("GRAPH_TESTS") == "" {
		t.Skip("set GRAPH_TESTS=1 to run Neo4j container tests")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        neo4jImage,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": fmt.Sprintf("%s/%s", neo4jUser, neo4jPassword),
		},
		WaitingFor: wait.ForListeningPort("7687/tcp").WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Neo4j container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		terminate(t, container)
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		terminate(t, container)
		t.Fatal(err)
	}

	cfg := graphstore.Config{
		URI:      fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		User:     neo4jUser,
		Password: neo4jPassword,
		Database: "neo4j",
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	// Bolt accepts connections a moment before the server is ready to
	// authenticate, so retry the initial connect.
	var store *graphstore.Store
	for i := 0; i < 20; i++ {
		store, err = graphstore.Connect(ctx, cfg, logger)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		terminate(t, container)
		t.Fatalf("Failed to connect to test Neo4j after retries: %v", err)
	}

	return &TestGraph{
		Store:     store,
		container: container,
	}
}

// Teardown closes the store and terminates the container.
func (tg *TestGraph) Teardown(t *testing.T) {
	if err := tg.Store.Close(context.Background()); err != nil {
		t.Errorf("Failed to close graph store: %v", err)
	}
	if err := tg.container.Terminate(context.Background()); err != nil {
		t.Fatalf("Failed to terminate container: %v", err)
	}
}

func terminate(t *testing.T, c testcontainers.Container) {
	if err := c.Terminate(context.Background()); err != nil {
		t.Fatalf("Failed to terminate container: %v", err)
	}
}
