// Package dag builds and validates the dependency graph behind a
// workflow: reference checking, cycle detection with a witness path,
// and a stable topological order. The node/edge bookkeeping follows
// the teacher's WorkflowDAG (adjacency list + reverse "dependents"
// list, guarded by one RWMutex) generalized to surface a Kahn's
// algorithm order and a cycle witness, both required by the spec but
// absent from the teacher (whose own Validate only checked for cycles,
// it never returned the witness path).
package dag

import (
	"fmt"

	"github.com/llmdevops/orchestrator/workflow"
)

// Node is one vertex of the dependency graph.
type Node struct {
	ID           string
	Dependencies []string
	Dependents   []string
}

// DAG is the validated, navigable dependency graph of a Workflow.
type DAG struct {
	order []string
	nodes map[string]*Node
}

// InvalidDagError reports a structural problem with the workflow that
// prevents building a DAG (unknown reference, duplicate id, etc).
type InvalidDagError struct {
	Reason string
}

func (e *InvalidDagError) Error() string { return "invalid dag: " + e.Reason }

// CycleDetectedError reports a cycle, with a witness path whose first
// and last elements are equal.
type CycleDetectedError struct {
	Path []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// Build validates a Workflow's step graph and produces a DAG exposing
// a topological order plus per-step predecessor/successor sets. It
// fails with *InvalidDagError for structural problems and
// *CycleDetectedError (with a witness path) for cycles.
func Build(w *workflow.Workflow) (*DAG, error) {
	nodes := make(map[string]*Node, len(w.Steps))
	declOrder := make([]string, 0, len(w.Steps))

	for _, s := range w.Steps {
		if _, exists := nodes[s.ID]; exists {
			return nil, &InvalidDagError{Reason: fmt.Sprintf("duplicate step id %q", s.ID)}
		}
		nodes[s.ID] = &Node{ID: s.ID, Dependencies: append([]string(nil), s.DependsOn...)}
		declOrder = append(declOrder, s.ID)
	}

	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			if dep == n.ID {
				return nil, &CycleDetectedError{Path: []string{n.ID, n.ID}}
			}
			depNode, exists := nodes[dep]
			if !exists {
				return nil, &InvalidDagError{Reason: fmt.Sprintf("step %q depends on undeclared step %q", n.ID, dep)}
			}
			depNode.Dependents = append(depNode.Dependents, n.ID)
		}
	}

	order, err := kahn(nodes, declOrder)
	if err != nil {
		return nil, err
	}

	return &DAG{order: order, nodes: nodes}, nil
}

// kahn runs Kahn's algorithm, seeding the ready queue in declaration
// order so ties are broken stably as spec.md requires. If nodes remain
// unemitted once the queue drains, it recovers one witness cycle path
// by walking dependency edges (not dependents: we want an actual cycle
// among the leftover, unsatisfiable nodes) from an unemitted node.
func kahn(nodes map[string]*Node, declOrder []string) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	for id, n := range nodes {
		inDegree[id] = len(n.Dependencies)
	}

	var queue []string
	for _, id := range declOrder {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(nodes))
	emitted := make(map[string]bool, len(nodes))
	queued := make(map[string]bool, len(nodes))
	for _, id := range queue {
		queued[id] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		emitted[current] = true

		// Newly-ready dependents are appended in declaration order so
		// ties resolve the same way regardless of map iteration order.
		var freshlyReady []string
		for _, depID := range nodes[current].Dependents {
			inDegree[depID]--
			if inDegree[depID] == 0 && !queued[depID] {
				freshlyReady = append(freshlyReady, depID)
				queued[depID] = true
			}
		}
		for _, id := range declOrder {
			for _, f := range freshlyReady {
				if f == id {
					queue = append(queue, id)
				}
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}

	for _, id := range declOrder {
		if !emitted[id] {
			return nil, &CycleDetectedError{Path: witnessPath(nodes, id, emitted)}
		}
	}
	return nil, &CycleDetectedError{Path: []string{}}
}

// witnessPath walks dependency edges from start among the unemitted
// (still-cyclic) node set until a node repeats, returning the path
// from that repeated node back to itself.
func witnessPath(nodes map[string]*Node, start string, emitted map[string]bool) []string {
	visited := make(map[string]int)
	path := []string{}
	cur := start
	for {
		if idx, ok := visited[cur]; ok {
			return append(append([]string{}, path[idx:]...), cur)
		}
		visited[cur] = len(path)
		path = append(path, cur)

		n := nodes[cur]
		next := ""
		for _, dep := range n.Dependencies {
			if !emitted[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			// No unemitted predecessor found; the node is part of a
			// cycle among its dependents instead (rare shape), fall
			// back to returning what we have plus itself.
			return append(path, cur)
		}
		cur = next
	}
}

// Order returns the topological order computed at Build time.
func (d *DAG) Order() []string {
	return append([]string(nil), d.order...)
}

// Predecessors returns the direct dependencies of a step.
func (d *DAG) Predecessors(id string) []string {
	n := d.nodes[id]
	if n == nil {
		return nil
	}
	return append([]string(nil), n.Dependencies...)
}

// Successors returns the direct dependents of a step.
func (d *DAG) Successors(id string) []string {
	n := d.nodes[id]
	if n == nil {
		return nil
	}
	return append([]string(nil), n.Dependents...)
}

// Len returns the number of nodes in the graph.
func (d *DAG) Len() int { return len(d.nodes) }

// Levels groups nodes by execution level (nodes in a level have no
// dependency relationship among them and can run in parallel),
// grounded on the teacher's GetExecutionLevels.
func (d *DAG) Levels() [][]string {
	processed := make(map[string]bool, len(d.nodes))
	var levels [][]string

	for {
		var level []string
		for _, id := range d.order {
			if processed[id] {
				continue
			}
			ready := true
			for _, dep := range d.nodes[id].Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			break
		}
		for _, id := range level {
			processed[id] = true
		}
		levels = append(levels, level)
	}
	return levels
}

// Stats summarizes structural properties of the DAG, grounded on the
// teacher's GetStatistics/DAGStatistics.
type Stats struct {
	TotalNodes      int
	MaxDependencies int
	MaxDependents   int
	MaxParallelism  int
	Depth           int
}

// Stats computes structural statistics for the CLI's validate command.
func (d *DAG) Stats() Stats {
	s := Stats{TotalNodes: len(d.nodes)}
	for _, n := range d.nodes {
		if len(n.Dependencies) > s.MaxDependencies {
			s.MaxDependencies = len(n.Dependencies)
		}
		if len(n.Dependents) > s.MaxDependents {
			s.MaxDependents = len(n.Dependents)
		}
	}
	levels := d.Levels()
	s.Depth = len(levels)
	for _, level := range levels {
		if len(level) > s.MaxParallelism {
			s.MaxParallelism = len(level)
		}
	}
	return s
}
