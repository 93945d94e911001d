package graphstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a node or relationship id does not resolve.
var ErrNotFound = errors.New("not found")

// Config carries the connection settings for one Neo4j instance.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// Node is the wire shape of a graph node. The id is Neo4j's element id.
type Node struct {
	ID         string                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// Relationship is the wire shape of a directed relationship between nodes.
type Relationship struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	FromNodeID string                 `json:"from_node_id"`
	ToNodeID   string                 `json:"to_node_id"`
}

// Stats summarizes the graph's contents.
type Stats struct {
	TotalNodes         int64    `json:"total_nodes"`
	TotalRelationships int64    `json:"total_relationships"`
	NodeLabels         []string `json:"node_labels"`
	RelationshipTypes  []string `json:"relationship_types"`
	Database           string   `json:"database"`
	URI                string   `json:"uri"`
}

// Store wraps the Neo4j driver for node and relationship storage. It is
// independent of the workflow engines; the API layer exposes it alongside
// them. Safe for concurrent use.
type Store struct {
	cfg    Config
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

// Connect opens a driver and verifies connectivity before returning.
func Connect(ctx context.Context, cfg Config, logger *logrus.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, errors.Wrap(err, "creating neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrapf(err, "connecting to neo4j at %s", cfg.URI)
	}
	logger.Infof("Connected to Neo4j at %s", cfg.URI)
	return &Store{cfg: cfg, driver: driver, logger: logger}, nil
}

func (s *Store) Close(ctx context.Context) error {
	s.logger.Infof("Closing Neo4j connection")
	return s.driver.Close(ctx)
}

// ExecuteQuery runs a Cypher query and returns one map per record. Node and
// relationship values are flattened to their wire shapes.
func (s *Store) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	records, err := s.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		row := make(map[string]interface{}, len(rec.Keys))
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			row[key] = flatten(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CreateNode creates a node with the given labels and properties.
func (s *Store) CreateNode(ctx context.Context, labels []string, props map[string]interface{}) (*Node, error) {
	if len(labels) == 0 {
		return nil, errors.New("node needs at least one label")
	}
	labelExpr, err := identifierList(labels, ":")
	if err != nil {
		return nil, err
	}

	assignments := make([]string, 0, len(props))
	for k := range props {
		if err := checkIdentifier(k); err != nil {
			return nil, err
		}
		assignments = append(assignments, fmt.Sprintf("%s: $%s", k, k))
	}

	query := fmt.Sprintf("CREATE (n:%s {%s}) RETURN n", labelExpr, strings.Join(assignments, ", "))
	records, err := s.run(ctx, query, props)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("create node returned no record")
	}
	return nodeFromRecord(records[0], "n")
}

// Nodes lists nodes filtered by labels and property equality, newest-first
// up to limit (zero means 100).
func (s *Store) Nodes(ctx context.Context, labels []string, props map[string]interface{}, limit int) ([]Node, error) {
	match := "MATCH (n)"
	if len(labels) > 0 {
		labelExpr, err := identifierList(labels, ":")
		if err != nil {
			return nil, err
		}
		match = fmt.Sprintf("MATCH (n:%s)", labelExpr)
	}

	var conditions []string
	for k := range props {
		if err := checkIdentifier(k); err != nil {
			return nil, err
		}
		conditions = append(conditions, fmt.Sprintf("n.%s = $%s", k, k))
	}
	query := match
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" RETURN n LIMIT %d", limit)

	records, err := s.run(ctx, query, props)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(records))
	for _, rec := range records {
		n, err := nodeFromRecord(rec, "n")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

// UpdateNode overwrites the given properties on a node.
func (s *Store) UpdateNode(ctx context.Context, id string, props map[string]interface{}) (*Node, error) {
	if len(props) == 0 {
		return nil, errors.New("no properties to update")
	}
	assignments := make([]string, 0, len(props))
	params := map[string]interface{}{"node_id": id}
	for k, v := range props {
		if err := checkIdentifier(k); err != nil {
			return nil, err
		}
		assignments = append(assignments, fmt.Sprintf("n.%s = $%s", k, k))
		params[k] = v
	}

	query := fmt.Sprintf("MATCH (n) WHERE elementId(n) = $node_id SET %s RETURN n", strings.Join(assignments, ", "))
	records, err := s.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "node %s", id)
	}
	return nodeFromRecord(records[0], "n")
}

// DeleteNode removes a node and its relationships. Reports whether a node
// was actually deleted.
func (s *Store) DeleteNode(ctx context.Context, id string) (bool, error) {
	query := "MATCH (n) WHERE elementId(n) = $node_id DETACH DELETE n RETURN count(n) AS deleted"
	records, err := s.run(ctx, query, map[string]interface{}{"node_id": id})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	deleted, _ := records[0].Get("deleted")
	count, ok := deleted.(int64)
	return ok && count > 0, nil
}

// CreateRelationship links two existing nodes with a typed relationship.
func (s *Store) CreateRelationship(ctx context.Context, fromID, toID, relType string, props map[string]interface{}) (*Relationship, error) {
	if err := checkIdentifier(relType); err != nil {
		return nil, err
	}
	params := map[string]interface{}{"from_id": fromID, "to_id": toID}
	var assignments []string
	for k, v := range props {
		if err := checkIdentifier(k); err != nil {
			return nil, err
		}
		assignments = append(assignments, fmt.Sprintf("r.%s = $%s", k, k))
		params[k] = v
	}

	query := fmt.Sprintf(
		"MATCH (a), (b) WHERE elementId(a) = $from_id AND elementId(b) = $to_id CREATE (a)-[r:%s]->(b)", relType)
	if len(assignments) > 0 {
		query += " SET " + strings.Join(assignments, ", ")
	}
	query += " RETURN a, r, b"

	records, err := s.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrNotFound, "one or both nodes")
	}
	return relationshipFromRecord(records[0])
}

// Relationships lists relationships, optionally filtered by an endpoint
// node, a type and a direction ("outgoing", "incoming" or "both").
func (s *Store) Relationships(ctx context.Context, nodeID, relType, direction string) ([]Relationship, error) {
	query := "MATCH (n)-[r]-(m)"
	params := map[string]interface{}{}
	if nodeID != "" {
		switch direction {
		case "outgoing":
			query = "MATCH (n)-[r]->(m)"
		case "incoming":
			query = "MATCH (n)<-[r]-(m)"
		}
		query += " WHERE elementId(n) = $node_id"
		params["node_id"] = nodeID
	}
	if relType != "" {
		if nodeID == "" {
			query += " WHERE"
		} else {
			query += " AND"
		}
		query += " type(r) = $rel_type"
		params["rel_type"] = relType
	}
	query += " RETURN n AS a, r, m AS b"

	records, err := s.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(records))
	for _, rec := range records {
		rel, err := relationshipFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rels = append(rels, *rel)
	}
	return rels, nil
}

// Stats counts nodes and relationships and collects the distinct labels and
// relationship types.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		NodeLabels:        []string{},
		RelationshipTypes: []string{},
		Database:          "Neo4j",
		URI:               s.cfg.URI,
	}

	records, err := s.run(ctx,
		"MATCH (n) RETURN count(n) AS total, collect(DISTINCT labels(n)) AS label_sets", nil)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if total, ok := records[0].Values[0].(int64); ok {
			stats.TotalNodes = total
		}
		if sets, ok := records[0].Values[1].([]interface{}); ok {
			seen := map[string]bool{}
			for _, set := range sets {
				labels, _ := set.([]interface{})
				for _, l := range labels {
					if name, ok := l.(string); ok && !seen[name] {
						seen[name] = true
						stats.NodeLabels = append(stats.NodeLabels, name)
					}
				}
			}
		}
	}

	records, err = s.run(ctx,
		"MATCH ()-[r]->() RETURN count(r) AS total, collect(DISTINCT type(r)) AS types", nil)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if total, ok := records[0].Values[0].(int64); ok {
			stats.TotalRelationships = total
		}
		if types, ok := records[0].Values[1].([]interface{}); ok {
			for _, t := range types {
				if name, ok := t.(string); ok {
					stats.RelationshipTypes = append(stats.RelationshipTypes, name)
				}
			}
		}
	}
	return stats, nil
}

// Clear deletes every node and relationship in the database.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return err
	}
	s.logger.Warnf("Cleared graph database %s", s.cfg.Database)
	return nil
}

func (s *Store) run(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Database})
	defer func() {
		if err := session.Close(ctx); err != nil {
			s.logger.Errorf("Failed to close neo4j session: %v", err)
		}
	}()

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, errors.Wrap(err, "cypher query failed")
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "collecting query results")
	}
	return records, nil
}

func nodeFromRecord(rec *neo4j.Record, key string) (*Node, error) {
	v, ok := rec.Get(key)
	if !ok {
		return nil, errors.Errorf("record has no %q entry", key)
	}
	n, ok := v.(dbtype.Node)
	if !ok {
		return nil, errors.Errorf("record entry %q is not a node", key)
	}
	return &Node{ID: n.ElementId, Labels: n.Labels, Properties: n.Props}, nil
}

func relationshipFromRecord(rec *neo4j.Record) (*Relationship, error) {
	v, ok := rec.Get("r")
	if !ok {
		return nil, errors.New(`record has no "r" entry`)
	}
	r, ok := v.(dbtype.Relationship)
	if !ok {
		return nil, errors.New(`record entry "r" is not a relationship`)
	}
	return &Relationship{
		ID:         r.ElementId,
		Type:       r.Type,
		Properties: r.Props,
		FromNodeID: r.StartElementId,
		ToNodeID:   r.EndElementId,
	}, nil
}

// flatten converts driver node and relationship values into their wire
// shapes so query results serialize cleanly.
func flatten(v interface{}) interface{} {
	switch t := v.(type) {
	case dbtype.Node:
		return map[string]interface{}{"id": t.ElementId, "labels": t.Labels, "properties": t.Props}
	case dbtype.Relationship:
		return map[string]interface{}{
			"id": t.ElementId, "type": t.Type, "properties": t.Props,
			"from_node_id": t.StartElementId, "to_node_id": t.EndElementId,
		}
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = flatten(t[i])
		}
		return out
	default:
		return v
	}
}

// identifier matches the label, type and property names we are willing to
// splice into Cypher text; everything else travels as a parameter.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifier(name string) error {
	if !identifier.MatchString(name) {
		return errors.Errorf("invalid identifier %q", name)
	}
	return nil
}

func identifierList(names []string, sep string) (string, error) {
	for _, n := range names {
		if err := checkIdentifier(n); err != nil {
			return "", err
		}
	}
	return strings.Join(names, sep), nil
}
