package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/brunolnetto/graph-mcp-mvp/internal/graphstore"
	"github.com/brunolnetto/graph-mcp-mvp/internal/metrics"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/engine"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/tool"
	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

const apiPrefix = "/api/v1"

var engineDescriptions = map[workflow.EngineKind]string{
	workflow.LinearEngineKind: "Dependency-ordered sequential execution",
	workflow.GraphEngineKind:  "State-machine traversal with branching and bounded cycles",
}

// Config wires the server's collaborators. Graph may be nil; the graph
// endpoints then answer 503 instead of failing at startup.
type Config struct {
	AppName    string
	Version    string
	Addr       string
	Runner     *engine.Runner
	Tools      tool.Port
	Graph      *graphstore.Store
	Logger     *logrus.Logger
	RunTimeout time.Duration // per-run deadline, zero disables
}

// Server exposes workflow execution, tool discovery and the graph store
// over HTTP. Workflow runs are stateless; the only mutable server state is
// the runner's default engine kind.
type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Start blocks serving the API.
func (s *Server) Start() error {
	s.cfg.Logger.Infof("Starting %s v%s on %s", s.cfg.AppName, s.cfg.Version, s.cfg.Addr)
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc(apiPrefix+"/workflow/execute", s.executeHandler)
	mux.HandleFunc(apiPrefix+"/workflow/engines", s.enginesHandler)
	mux.HandleFunc(apiPrefix+"/workflow/engine", s.switchEngineHandler)
	mux.HandleFunc(apiPrefix+"/workflow/engine/current", s.currentEngineHandler)
	mux.HandleFunc(apiPrefix+"/workflow/demo", s.demoHandler)
	mux.HandleFunc(apiPrefix+"/tools", s.toolsHandler)
	mux.HandleFunc(apiPrefix+"/graph/nodes", s.nodesHandler)
	mux.HandleFunc(apiPrefix+"/graph/nodes/", s.nodeByIDHandler)
	mux.HandleFunc(apiPrefix+"/graph/query", s.queryHandler)
	mux.HandleFunc(apiPrefix+"/graph/relationships", s.relationshipsHandler)
	mux.HandleFunc(apiPrefix+"/graph/stats", s.statsHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Welcome to " + s.cfg.AppName,
		"version":         s.cfg.Version,
		"status":          "running",
		"workflow_engine": s.cfg.Runner.Default(),
		"health":          "/health",
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"app":     s.cfg.AppName,
		"version": s.cfg.Version,
		"engine":  s.cfg.Runner.Default(),
	})
}

// executeResponse is the wire shape of a finished run.
type executeResponse struct {
	WorkflowID string                  `json:"workflow_id"`
	Status     workflow.WorkflowStatus `json:"status"`
	Result     *workflow.Result        `json:"result"`
	Engine     workflow.EngineKind     `json:"engine"`
}

func (s *Server) executeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var wf workflow.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow payload: %v", err)
		return
	}
	kind := workflow.EngineKind(r.URL.Query().Get("engine"))
	s.runWorkflow(w, r, &wf, kind)
}

func (s *Server) demoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	wf := &workflow.Workflow{
		ID:   "demo-1",
		Name: "demo",
		Tasks: []workflow.Task{
			{ID: "data_collection", Tool: "research_tool"},
			{ID: "analysis", Tool: "processing_tool", DependsOn: []string{"data_collection"}},
			{ID: "report_generation", Tool: "output_tool", DependsOn: []string{"analysis"}},
		},
	}
	s.runWorkflow(w, r, wf, "")
}

// runWorkflow dispatches one run and writes the outcome. Pre-execution
// failures (schema, cycle, unknown engine) are the caller's fault and come
// back as 400; once a run starts it always produces a 200 with the result,
// failed tasks included.
func (s *Server) runWorkflow(w http.ResponseWriter, r *http.Request, wf *workflow.Workflow, kind workflow.EngineKind) {
	ctx := r.Context()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	resolved := kind
	if resolved == "" {
		resolved = wf.Engine
	}
	if resolved == "" {
		resolved = s.cfg.Runner.Default()
	}

	res, err := s.cfg.Runner.Run(ctx, wf, kind)
	if err != nil {
		s.cfg.Logger.Errorf("Workflow rejected: %v", err)
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	metrics.ObserveRun(resolved, res)
	writeJSON(w, http.StatusOK, executeResponse{
		WorkflowID: res.WorkflowID,
		Status:     res.Status,
		Result:     res,
		Engine:     resolved,
	})
}

func (s *Server) enginesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available_engines": s.cfg.Runner.Engines(),
		"current_engine":    s.cfg.Runner.Default(),
		"descriptions":      engineDescriptions,
	})
}

func (s *Server) switchEngineHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Engine workflow.EngineKind `json:"engine"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
		return
	}
	if err := s.cfg.Runner.SetDefault(body.Engine); err != nil {
		writeError(w, http.StatusBadRequest, "failed to switch engine: %v", err)
		return
	}
	s.cfg.Logger.Infof("Default engine switched to %s", body.Engine)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Switched to " + string(body.Engine),
		"current_engine": s.cfg.Runner.Default(),
	})
}

func (s *Server) currentEngineHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	current := s.cfg.Runner.Default()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_engine": current,
		"engine_info":    engineDescriptions[current],
	})
}

func (s *Server) toolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tools, err := s.cfg.Tools.DiscoverTools(r.Context())
	if err != nil {
		s.cfg.Logger.Errorf("Tool discovery failed: %v", err)
		writeError(w, http.StatusBadGateway, "tool discovery failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

func (s *Server) nodesHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := s.graphStore(w)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Labels     []string               `json:"labels"`
			Properties map[string]interface{} `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
			return
		}
		node, err := store.CreateNode(r.Context(), body.Labels, body.Properties)
		if err != nil {
			s.graphError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, node)
	case http.MethodGet:
		var labels []string
		for _, group := range r.URL.Query()["labels"] {
			for _, l := range strings.Split(group, ",") {
				if l = strings.TrimSpace(l); l != "" {
					labels = append(labels, l)
				}
			}
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		nodes, err := store.Nodes(r.Context(), labels, nil, limit)
		if err != nil {
			s.graphError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nodes)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) nodeByIDHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := s.graphStore(w)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, apiPrefix+"/graph/nodes/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var props map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&props); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
			return
		}
		node, err := store.UpdateNode(r.Context(), id, props)
		if err != nil {
			s.graphError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, node)
	case http.MethodDelete:
		deleted, err := store.DeleteNode(r.Context(), id)
		if err != nil {
			s.graphError(w, err)
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "node not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := s.graphStore(w)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Query      string                 `json:"query"`
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	rows, err := store.ExecuteQuery(r.Context(), body.Query, body.Parameters)
	if err != nil {
		s.graphError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": rows})
}

func (s *Server) relationshipsHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := s.graphStore(w)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var body struct {
			FromNodeID string                 `json:"from_node_id"`
			ToNodeID   string                 `json:"to_node_id"`
			Type       string                 `json:"relationship_type"`
			Properties map[string]interface{} `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
			return
		}
		rel, err := store.CreateRelationship(r.Context(), body.FromNodeID, body.ToNodeID, body.Type, body.Properties)
		if err != nil {
			s.graphError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rel)
	case http.MethodGet:
		q := r.URL.Query()
		rels, err := store.Relationships(r.Context(), q.Get("node_id"), q.Get("type"), q.Get("direction"))
		if err != nil {
			s.graphError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rels)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	store, ok := s.graphStore(w)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := store.Stats(r.Context())
	if err != nil {
		s.graphError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) graphStore(w http.ResponseWriter) (*graphstore.Store, bool) {
	if s.cfg.Graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph store not configured")
		return nil, false
	}
	return s.cfg.Graph, true
}

func (s *Server) graphError(w http.ResponseWriter, err error) {
	if errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	s.cfg.Logger.Errorf("Graph operation failed: %v", err)
	writeError(w, http.StatusInternalServerError, "%v", err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
