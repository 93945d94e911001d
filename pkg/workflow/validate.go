package workflow

// Validate checks the structural invariants every engine relies on: unique
// non-empty task ids, a tool per task, and dependency/edge references that
// resolve to declared tasks. It runs once before dispatch, never per engine.
func (wf *Workflow) Validate() error {
	if len(wf.Tasks) == 0 {
		return schemaErrorf("workflow has no tasks")
	}

	seen := make(map[string]struct{}, len(wf.Tasks))
	for i := range wf.Tasks {
		t := &wf.Tasks[i]
		if t.ID == "" {
			return schemaErrorf("task #%d has an empty id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return schemaErrorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.Tool == "" {
			return schemaErrorf("task %q has no tool", t.ID)
		}
		if t.Retries < 0 {
			return schemaErrorf("task %q has negative retries", t.ID)
		}
		if t.Timeout < 0 {
			return schemaErrorf("task %q has a negative timeout", t.ID)
		}
	}

	for i := range wf.Tasks {
		t := &wf.Tasks[i]
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return schemaErrorf("task %q depends on itself", t.ID)
			}
			if _, ok := seen[dep]; !ok {
				return schemaErrorf("task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}

	for i := range wf.Edges {
		e := &wf.Edges[i]
		if _, ok := seen[e.From]; !ok {
			return schemaErrorf("edge #%d references unknown source task %q", i, e.From)
		}
		if _, ok := seen[e.To]; !ok {
			return schemaErrorf("edge #%d references unknown target task %q", i, e.To)
		}
		if e.From == e.To {
			return schemaErrorf("edge #%d loops task %q onto itself", i, e.From)
		}
		if e.When != nil {
			if err := e.When.validate(); err != nil {
				return schemaErrorf("edge %s -> %s: %v", e.From, e.To, err)
			}
		}
	}
	return nil
}
