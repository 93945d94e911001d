package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/brunolnetto/graph-mcp-mvp/internal/log"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// Config collects every environment-driven setting. Invalid numeric or
// duration values fall back to their defaults with a warning instead of
// refusing to start.
type Config struct {
	AppName  string
	Version  string
	Host     string
	Port     string
	LogLevel string

	MCPServerURL string
	MCPAPIKey    string
	MCPTimeout   time.Duration
	MCPRateLimit float64

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	DefaultEngine workflow.EngineKind
	EngineTimeout time.Duration // deadline for a whole workflow run
	TaskTimeout   time.Duration // fallback for tasks without their own
	MaxRevisits   int
	MaxParallel   int
}

// Load reads the configuration from the environment, preloading a .env file
// when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.GetLogger().Debugf("No .env file loaded: %v", err)
	}

	return &Config{
		AppName:  getenv("APP_NAME", "Graph MCP MVP"),
		Version:  getenv("APP_VERSION", "0.1.0"),
		Host:     getenv("HOST", "0.0.0.0"),
		Port:     getenv("PORT", "8000"),
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		MCPServerURL: getenv("MCP_SERVER_URL", "http://localhost:8001"),
		MCPAPIKey:    getenv("MCP_API_KEY", ""),
		MCPTimeout:   getenvDuration("MCP_TIMEOUT", 30*time.Second),
		MCPRateLimit: getenvFloat("MCP_RATE_LIMIT", 0),

		Neo4jURI:      getenv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getenv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getenv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase: getenv("NEO4J_DATABASE", "neo4j"),

		DefaultEngine: workflow.EngineKind(getenv("DEFAULT_ENGINE", string(workflow.LinearEngineKind))),
		EngineTimeout: getenvDuration("ENGINE_TIMEOUT", 300*time.Second),
		TaskTimeout:   getenvDuration("TASK_TIMEOUT", 60*time.Second),
		MaxRevisits:   getenvInt("MAX_REVISITS", 3),
		MaxParallel:   getenvInt("MAX_PARALLEL", 4),
	}
}

// Addr is the host:port the API server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.GetLogger().Warnf("Invalid %s=%q, using %d: %v", key, v, fallback, err)
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.GetLogger().Warnf("Invalid %s=%q, using %g: %v", key, v, fallback, err)
		return fallback
	}
	return f
}

// getenvDuration accepts Go duration strings; a bare number means seconds,
// matching the original environment convention.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.GetLogger().Warnf("Invalid %s=%q, using %s: %v", key, v, fallback, err)
		return fallback
	}
	return d
}
