// Package resolver turns bundle definitions into concrete, ordered module
// lists per section.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamb/internal/bundle"
	"github.com/frederic-klein/yamb/internal/depgraph"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

// Pool is the part of the resource pool the resolver needs.
type Pool interface {
	Names() []string
	ModuleInfo(ctx context.Context, name string) (*moduleinfo.ModuleInfo, error)
	IgnoreMissing() bool
}

// Section is a bundle section with its resolved modules.
type Section struct {
	bundle.Section
	Modules []string
}

// Bundle is a bundle definition whose sections have been resolved.
type Bundle struct {
	Name     string
	Sections []Section
	Options  bundle.Options
}

// Resolver resolves bundle sections against a pool.
type Resolver struct {
	pool   Pool
	sorter *depgraph.Builder
	logger *log.Logger
}

// New creates a resolver.
func New(pool Pool, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		pool:   pool,
		sorter: depgraph.NewBuilder(pool, logger),
		logger: logger,
	}
}

// bundleResolution tracks modules across the sections of one bundle. A
// module belongs to the first section that selects it. Modules embedded in
// selected bundles are never resolved again.
type bundleResolution struct {
	selected      map[string]bool
	contained     map[string]bool
	names         map[string]bool
	ignoreMissing bool
}

// Resolve resolves every section of b in declaration order.
func (r *Resolver) Resolve(ctx context.Context, b *bundle.Bundle) (*Bundle, error) {
	all := r.pool.Names()
	state := &bundleResolution{
		selected:      make(map[string]bool),
		contained:     make(map[string]bool),
		names:         make(map[string]bool, len(all)),
		ignoreMissing: b.Options.IgnoreMissingModules || r.pool.IgnoreMissing(),
	}
	for _, n := range all {
		state.names[n] = true
	}

	out := &Bundle{Name: b.Name, Options: b.Options}
	for i, s := range b.Sections {
		modules, err := r.resolveSection(ctx, b, s, all, state)
		if err != nil {
			return nil, fmt.Errorf("resolving bundle %s section %d (%s): %w", b.Name, i, s.Mode, err)
		}
		r.logger.Debug("resolved section", "bundle", b.Name, "mode", s.Mode, "modules", len(modules))
		out.Sections = append(out.Sections, Section{Section: s, Modules: modules})
	}
	return out, nil
}

func (r *Resolver) resolveSection(ctx context.Context, b *bundle.Bundle, s bundle.Section, all []string, state *bundleResolution) ([]string, error) {
	filters, err := bundle.NewFilterList(s.Filters, b.FileTypes())
	if err != nil {
		return nil, err
	}
	matched, err := filters.Select(all)
	if err != nil {
		return nil, err
	}
	for _, name := range filters.Missing(all) {
		if !state.ignoreMissing {
			return nil, fmt.Errorf("filter %s: %w", name, &resource.NotFoundError{Name: name})
		}
		r.logger.Warn("missing module ignored", "resource", name, "bundle", b.Name)
	}

	var modules []string
	inSection := make(map[string]bool)
	add := func(name string) bool {
		if state.selected[name] || inSection[name] {
			return false
		}
		inSection[name] = true
		modules = append(modules, name)
		return true
	}

	for _, name := range matched {
		add(name)
	}

	if s.Renderer {
		for _, name := range modules {
			if renderer, ok := rendererOf(name); ok && state.names[renderer] {
				add(renderer)
			}
		}
	}

	if s.Resolve {
		for _, name := range modules {
			if info, err := r.pool.ModuleInfo(ctx, name); err == nil {
				for _, sub := range info.SubModules() {
					state.contained[sub] = true
				}
			}
		}
		// modules grows while it is walked
		for i := 0; i < len(modules); i++ {
			name := modules[i]
			info, err := r.pool.ModuleInfo(ctx, name)
			if err != nil {
				if errors.Is(err, resource.ErrNotFound) && state.ignoreMissing {
					r.logger.Warn("missing module ignored", "resource", name, "bundle", b.Name)
					continue
				}
				return nil, err
			}
			for _, sub := range info.SubModules() {
				state.contained[sub] = true
			}
			for _, dep := range info.Dependencies() {
				kind, _ := info.Dependency(dep)
				switch {
				case kind == moduleinfo.Implicit:
					continue
				case kind == moduleinfo.Conditional && !s.ResolveConditional:
					continue
				case state.contained[dep]:
					// embedded in a selected bundle
					continue
				}
				if !state.names[dep] {
					if state.ignoreMissing {
						r.logger.Warn("missing dependency ignored", "resource", dep, "requiredBy", name, "bundle", b.Name)
						continue
					}
					return nil, fmt.Errorf("%s requires %s: %w", name, dep, &resource.NotFoundError{Name: dep})
				}
				if add(dep) && s.Renderer {
					if renderer, ok := rendererOf(dep); ok && state.names[renderer] {
						add(renderer)
					}
				}
			}
		}
	}

	for _, name := range modules {
		state.selected[name] = true
	}

	if !s.Sorted() || s.Mode == bundle.ModeProvided || s.Mode == bundle.ModeBundleInfo {
		return modules, nil
	}
	return r.sorter.TopologicalSort(ctx, modules)
}

// rendererOf returns the renderer module paired with a control module.
func rendererOf(name string) (string, bool) {
	stem, ok := strings.CutSuffix(name, ".js")
	if !ok || strings.HasSuffix(stem, "Renderer") {
		return "", false
	}
	return stem + "Renderer.js", true
}
