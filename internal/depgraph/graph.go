// Package depgraph builds module dependency graphs from the resource pool
// and orders module sets so that dependencies come first.
package depgraph

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/frederic-klein/yamb/internal/moduleinfo"
)

// InfoSource provides module information, usually a *pool.Pool.
type InfoSource interface {
	ModuleInfo(ctx context.Context, name string) (*moduleinfo.ModuleInfo, error)
}

// Node is a module in a Graph. The graph owns all nodes; edges refer to
// nodes by their index.
type Node struct {
	Name string

	successors   []int
	predecessors []int
	visited      bool
}

// Graph is a dependency graph with a synthetic root node named "" that is a
// predecessor of every explicit root module.
type Graph struct {
	mu    sync.Mutex
	nodes []*Node
	index map[string]int
}

func newGraph() *Graph {
	g := &Graph{index: make(map[string]int)}
	g.nodes = append(g.nodes, &Node{})
	return g
}

// Root returns the synthetic root node.
func (g *Graph) Root() *Node {
	return g.nodes[0]
}

// Node returns the node for name.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Nodes returns all module nodes in creation order, excluding the root.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, len(g.nodes)-1)
	copy(out, g.nodes[1:])
	return out
}

// Successors returns the names n depends on.
func (g *Graph) Successors(n *Node) []string {
	return g.names(n.successors)
}

// Predecessors returns the names depending on n. The root is reported as "".
func (g *Graph) Predecessors(n *Node) []string {
	return g.names(n.predecessors)
}

func (g *Graph) names(ids []int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id].Name
	}
	return out
}

func (g *Graph) nodeFor(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i, ok := g.index[name]; ok {
		return i
	}
	g.nodes = append(g.nodes, &Node{Name: name})
	i := len(g.nodes) - 1
	g.index[name] = i
	return i
}

func (g *Graph) nameOf(id int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id].Name
}

// addEdge records that dependent needs dependency.
func (g *Graph) addEdge(dependent, dependency int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	from, to := g.nodes[dependent], g.nodes[dependency]
	for _, s := range from.successors {
		if s == dependency {
			return
		}
	}
	from.successors = append(from.successors, dependency)
	to.predecessors = append(to.predecessors, dependent)
}

// claim marks a node visited and reports whether the caller should expand it.
func (g *Graph) claim(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.nodes[id]
	if n.visited {
		return false
	}
	n.visited = true
	return true
}

// Builder builds graphs and orders module sets.
type Builder struct {
	src    InfoSource
	logger *log.Logger
}

// NewBuilder creates a Builder reading module information from src.
func NewBuilder(src InfoSource, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{src: src, logger: logger}
}

// Build creates the graph of everything reachable from roots. Conditional
// dependencies are followed only if includeConditional is set. Modules
// whose information cannot be obtained stay leaves.
func (b *Builder) Build(ctx context.Context, roots []string, includeConditional bool) (*Graph, error) {
	g := newGraph()
	eg, ctx := errgroup.WithContext(ctx)

	var expand func(id int) error
	expand = func(id int) error {
		if !g.claim(id) {
			return nil
		}
		name := g.nameOf(id)
		info, err := b.src.ModuleInfo(ctx, name)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			b.logger.Warn("module info unavailable, treating as leaf", "resource", name, "err", err)
			return nil
		}
		for _, dep := range info.Dependencies() {
			if !includeConditional && info.IsConditionalDependency(dep) {
				continue
			}
			child := g.nodeFor(dep)
			g.addEdge(id, child)
			eg.Go(func() error { return expand(child) })
		}
		return nil
	}

	for _, root := range roots {
		id := g.nodeFor(root)
		g.addEdge(0, id)
		eg.Go(func() error { return expand(id) })
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}
