package engine

import (
	"context"
	"fmt"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// GraphEngine executes tasks as nodes of a directed graph. Forward edges
// gate readiness: a node runs once every inbound forward edge is resolved
// and at least one of them fired. Conditional back-edges model bounded
// cycles; firing one re-executes the target immediately, up to the revisit
// bound carried by the RunContext.
type GraphEngine struct{}

func NewGraphEngine() *GraphEngine {
	return &GraphEngine{}
}

func (e *GraphEngine) Execute(ctx context.Context, wf *workflow.Workflow, rc *RunContext) (*workflow.Result, error) {
	rc.normalize()

	p, err := buildGraphPlan(wf)
	if err != nil {
		return nil, err
	}

	s := newScheduler(wf, rc, p)
	rc.Logger.Infof("Executing graph workflow %s: %d tasks, %d edges", wf.Name, len(wf.Tasks), len(p.edges))
	return s.run(ctx), nil
}

type graphEdge struct {
	from, to int
	when     *workflow.Condition
	back     bool
}

// graphPlan is the immutable structural analysis of one workflow: edges
// classified as forward or back, adjacency in both directions, and the set
// of entry nodes. Forward edges always form a DAG, so a first wave starting
// from the entries settles every node.
type graphPlan struct {
	edges   []graphEdge
	out     [][]int    // node -> outgoing edge indices
	inFwd   [][]int    // node -> inbound forward edge indices
	parents [][]string // node -> distinct forward-edge source ids
	entries []int
}

func buildGraphPlan(wf *workflow.Workflow) (*graphPlan, error) {
	n := len(wf.Tasks)
	idx := make(map[string]int, n)
	for i := range wf.Tasks {
		idx[wf.Tasks[i].ID] = i
	}

	// Declared edges first, then dependency lists folded in as
	// unconditional edges where no edge covers the pair already.
	edges := make([]graphEdge, 0, len(wf.Edges))
	seen := make(map[[2]int]bool, len(wf.Edges))
	for i := range wf.Edges {
		from, to := idx[wf.Edges[i].From], idx[wf.Edges[i].To]
		edges = append(edges, graphEdge{from: from, to: to, when: wf.Edges[i].When})
		seen[[2]int{from, to}] = true
	}
	for i := range wf.Tasks {
		for _, dep := range wf.Tasks[i].DependsOn {
			from := idx[dep]
			if seen[[2]int{from, i}] {
				continue
			}
			edges = append(edges, graphEdge{from: from, to: i})
			seen[[2]int{from, i}] = true
		}
	}

	p := &graphPlan{
		edges:   edges,
		out:     make([][]int, n),
		inFwd:   make([][]int, n),
		parents: make([][]string, n),
	}
	for ei := range edges {
		p.out[edges[ei].from] = append(p.out[edges[ei].from], ei)
	}

	classifyEdges(p, n)

	for ei := range p.edges {
		e := &p.edges[ei]
		if e.back {
			if e.when == nil {
				return nil, &workflow.SchemaError{Msg: fmt.Sprintf(
					"edge %s -> %s closes a cycle and must declare a condition",
					wf.Tasks[e.from].ID, wf.Tasks[e.to].ID)}
			}
			continue
		}
		p.inFwd[e.to] = append(p.inFwd[e.to], ei)
	}

	for i := 0; i < n; i++ {
		if len(p.inFwd[i]) == 0 {
			p.entries = append(p.entries, i)
		}
		p.parents[i] = forwardParents(wf, p, i)
	}
	return p, nil
}

// classifyEdges runs a depth-first traversal over the declaration order and
// marks every edge that lands on a node still on the stack as a back-edge.
func classifyEdges(p *graphPlan, n int) {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, n)

	var visit func(int)
	visit = func(u int) {
		color[u] = gray
		for _, ei := range p.out[u] {
			e := &p.edges[ei]
			switch color[e.to] {
			case white:
				visit(e.to)
			case gray:
				e.back = true
			}
		}
		color[u] = black
	}
	for u := 0; u < n; u++ {
		if color[u] == white {
			visit(u)
		}
	}
}

func forwardParents(wf *workflow.Workflow, p *graphPlan, node int) []string {
	var ids []string
	dup := make(map[int]bool, len(p.inFwd[node]))
	for _, ei := range p.inFwd[node] {
		from := p.edges[ei].from
		if dup[from] {
			continue
		}
		dup[from] = true
		ids = append(ids, wf.Tasks[from].ID)
	}
	return ids
}
