package workflow

import "container/heap"

// Resolve computes a total execution order over the tasks' dependency
// lists: every task appears after all of its dependencies, with ties among
// independent tasks broken by declaration order so repeated runs resolve
// identically. Unorderable dependencies yield a *CycleError carrying one
// witness cycle. Kahn's algorithm with a declaration-index heap.
func Resolve(tasks []Task) ([]string, error) {
	index := make(map[string]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}

	dependents := make([][]int, len(tasks))
	inDegree := make([]int, len(tasks))
	for i := range tasks {
		seen := make(map[int]struct{}, len(tasks[i].DependsOn))
		for _, dep := range tasks[i].DependsOn {
			j := index[dep]
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	ready := &indexHeap{}
	for i := range tasks {
		if inDegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]string, 0, len(tasks))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, tasks[i].ID)
		for _, j := range dependents[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, &CycleError{Cycle: findCycle(tasks, index)}
	}
	return order, nil
}

// findCycle walks the dependency edges depth-first in declaration order and
// returns the first simple cycle it closes.
func findCycle(tasks []Task, index map[string]int) []string {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)
	color := make([]int, len(tasks))
	stack := make([]int, 0, len(tasks))
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)
		for _, dep := range tasks[i].DependsOn {
			j := index[dep]
			switch color[j] {
			case gray:
				for k, node := range stack {
					if node == j {
						for _, on := range stack[k:] {
							cycle = append(cycle, tasks[on].ID)
						}
						return true
					}
				}
			case white:
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range tasks {
		if color[i] == white && visit(i) {
			break
		}
	}
	return cycle
}

// indexHeap is a min-heap of declaration indices backing the deterministic
// tie-break in Resolve.
type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
