package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/brunolnetto/graph-mcp-mvp/pkg/workflow"
)

// edgeState tracks the verdict on one forward edge. Fired means the source
// succeeded and the condition held; dropped means the condition did not
// hold; a hard drop means the source itself failed or was skipped and
// poisons the target.
type edgeState int

const (
	edgeUnresolved edgeState = iota
	edgeFired
	edgeDropped
	edgeDroppedHard
)

type completion struct {
	node int
	res  workflow.TaskResult
}

// scheduler drives one graph run. All graph state lives in the scheduler
// goroutine; workers only invoke the tool and send a completion back, so no
// lock guards the edge states or launch counters.
type scheduler struct {
	wf   *workflow.Workflow
	rc   *RunContext
	plan *graphPlan
	rec  *recorder

	state       []edgeState
	launches    []int
	allowed     int // launches permitted per node: first run plus revisits
	running     int
	tripped     bool
	trippedID   string
	sem         *semaphore.Weighted
	completions chan completion
}

func newScheduler(wf *workflow.Workflow, rc *RunContext, p *graphPlan) *scheduler {
	return &scheduler{
		wf:          wf,
		rc:          rc,
		plan:        p,
		rec:         newRecorder(wf),
		state:       make([]edgeState, len(p.edges)),
		launches:    make([]int, len(wf.Tasks)),
		allowed:     1 + rc.MaxRevisits,
		sem:         semaphore.NewWeighted(int64(rc.MaxParallel)),
		completions: make(chan completion),
	}
}

func (s *scheduler) run(ctx context.Context) *workflow.Result {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, n := range s.plan.entries {
		s.launch(runCtx, n)
	}

	for s.running > 0 {
		c := <-s.completions
		s.running--

		if ctx.Err() != nil {
			// Cancelled: whatever is still in flight may finish, but its
			// results are discarded, this one included.
			s.drain()
			return s.rec.finalize(workflow.CancelledWorkflowStatus, "workflow cancelled")
		}

		s.rec.record(c.res)
		if c.res.Status == workflow.FailedTaskStatus {
			s.rc.Logger.Errorf("Task %s failed after %d attempt(s): %s", c.res.TaskID, c.res.Attempts, c.res.Error)
		}
		s.settle(runCtx, c.node, c.res)

		if s.tripped {
			cancel()
			s.drain()
			s.rec.record(workflow.TaskResult{
				TaskID: s.trippedID,
				Status: workflow.FailedTaskStatus,
				Cause:  workflow.CycleLimitCause,
				Error:  fmt.Sprintf("revisit limit of %d exceeded", s.rc.MaxRevisits),
			})
			return s.rec.finalize(workflow.FailedWorkflowStatus, fmt.Sprintf("task %s exceeded its revisit limit", s.trippedID))
		}
	}

	return s.rec.finalizeAuto()
}

func (s *scheduler) drain() {
	for s.running > 0 {
		<-s.completions
		s.running--
	}
}

// settle resolves the outgoing edges of a finished node and re-evaluates
// the affected targets. Back-edges fire only off a success and launch their
// target directly; forward edges feed the readiness check.
func (s *scheduler) settle(ctx context.Context, node int, res workflow.TaskResult) {
	succeeded := res.Status == workflow.SucceededTaskStatus
	var targets []int
	for _, ei := range s.plan.out[node] {
		e := &s.plan.edges[ei]
		if e.back {
			if succeeded && e.when.Eval(res.Output) {
				s.rc.Logger.Infof("Back-edge %s -> %s fired", res.TaskID, s.wf.Tasks[e.to].ID)
				s.launch(ctx, e.to)
			}
			continue
		}
		switch {
		case !succeeded:
			s.state[ei] = edgeDroppedHard
		case e.when == nil || e.when.Eval(res.Output):
			s.state[ei] = edgeFired
		default:
			s.state[ei] = edgeDropped
		}
		targets = append(targets, e.to)
	}
	for _, t := range targets {
		s.checkTarget(ctx, t)
	}
}

// checkTarget launches or skips a node once every inbound forward edge is
// resolved. A hard-dropped edge skips the node as an upstream failure; all
// edges soft-dropped means no branch selected it.
func (s *scheduler) checkTarget(ctx context.Context, n int) {
	fired, hard := false, false
	for _, ei := range s.plan.inFwd[n] {
		switch s.state[ei] {
		case edgeUnresolved:
			return
		case edgeFired:
			fired = true
		case edgeDroppedHard:
			hard = true
		}
	}
	switch {
	case hard:
		s.skip(ctx, n, workflow.UpstreamFailureCause, "an upstream task did not succeed")
	case fired:
		s.launch(ctx, n)
	default:
		s.skip(ctx, n, "", "no inbound edge fired")
	}
}

// skip settles a node without running it. Its inbound edges are consumed
// like a launch would, so a later revisit wave can resolve them afresh.
func (s *scheduler) skip(ctx context.Context, n int, cause workflow.FailureCause, detail string) {
	id := s.wf.Tasks[n].ID
	s.rc.Logger.Infof("Skipping task %s: %s", id, detail)
	res := skipResult(id, cause, detail)
	s.rec.record(res)
	for _, ei := range s.plan.inFwd[n] {
		s.state[ei] = edgeUnresolved
	}
	s.settle(ctx, n, res)
}

func (s *scheduler) launch(ctx context.Context, n int) {
	if s.tripped {
		return
	}
	t := &s.wf.Tasks[n]
	if s.launches[n] >= s.allowed {
		s.tripped = true
		s.trippedID = t.ID
		return
	}
	s.launches[n]++
	for _, ei := range s.plan.inFwd[n] {
		s.state[ei] = edgeUnresolved
	}
	if s.launches[n] > 1 {
		s.rc.Logger.Infof("Revisiting task %s (run %d of %d)", t.ID, s.launches[n], s.allowed)
	}

	args := buildArgs(t, s.plan.parents[n], s.rec.output)
	s.running++
	go func() {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			now := time.Now()
			s.completions <- completion{node: n, res: workflow.TaskResult{
				TaskID:     t.ID,
				Status:     workflow.FailedTaskStatus,
				Error:      err.Error(),
				Cause:      workflow.CancelledCause,
				StartedAt:  &now,
				FinishedAt: &now,
			}}
			return
		}
		res := runTask(ctx, s.rc, t, args)
		s.sem.Release(1)
		s.completions <- completion{node: n, res: res}
	}()
}
