package depgraph

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// CycleError reports modules that depend on each other cyclically. Names
// are in the order the modules were passed to TopologicalSort.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Names, ", "))
}

// TopologicalSort orders names so that every module comes after the
// modules of the set it strictly depends on. Dependencies outside the set
// and conditional dependencies are ignored. Where the dependencies allow
// it, the input order is kept.
func (b *Builder) TopologicalSort(ctx context.Context, names []string) ([]string, error) {
	var nodes []string
	pos := make(map[string]int, len(names))
	for _, name := range names {
		if _, dup := pos[name]; dup {
			continue
		}
		pos[name] = len(nodes)
		nodes = append(nodes, name)
	}

	deps := make([][]int, len(nodes))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range nodes {
		eg.Go(func() error {
			info, err := b.src.ModuleInfo(egCtx, name)
			if err != nil {
				if egCtx.Err() != nil {
					return egCtx.Err()
				}
				b.logger.Warn("module info unavailable, sorting without dependencies", "resource", name, "err", err)
				return nil
			}
			for _, dep := range info.Dependencies() {
				j, ok := pos[dep]
				if !ok || j == i || info.IsConditionalDependency(dep) {
					continue
				}
				deps[i] = append(deps[i], j)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	pending := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, ds := range deps {
		pending[i] = len(ds)
		for _, j := range ds {
			dependents[j] = append(dependents[j], i)
		}
	}

	emitted := make([]bool, len(nodes))
	result := make([]string, 0, len(nodes))
	for len(result) < len(nodes) {
		next := -1
		for i := range nodes {
			if !emitted[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &CycleError{Names: cycleMembers(nodes, deps, emitted)}
		}
		emitted[next] = true
		result = append(result, nodes[next])
		for _, d := range dependents[next] {
			pending[d]--
		}
	}
	return result, nil
}

// cycleMembers returns the unsorted modules that lie on a cycle: members
// of strongly connected components with more than one module. Modules that
// merely depend on or sit between cycles are left out.
func cycleMembers(nodes []string, deps [][]int, emitted []bool) []string {
	const unvisited = -1
	index := make([]int, len(nodes))
	low := make([]int, len(nodes))
	onStack := make([]bool, len(nodes))
	inCycle := make([]bool, len(nodes))
	for i := range index {
		index[i] = unvisited
	}
	var stack []int
	next := 0

	var connect func(v int)
	connect = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range deps[v] {
			switch {
			case emitted[w]:
			case index[w] == unvisited:
				connect(w)
				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var component []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			for _, w := range component {
				inCycle[w] = true
			}
		}
	}
	for i := range nodes {
		if !emitted[i] && index[i] == unvisited {
			connect(i)
		}
	}

	var out []string
	for i, name := range nodes {
		if inCycle[i] {
			out = append(out, name)
		}
	}
	return out
}
