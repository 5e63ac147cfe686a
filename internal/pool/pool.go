// Package pool maps resource names to module information. Each resource is
// analyzed at most once, however many goroutines ask for it.
package pool

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/frederic-klein/yamb/internal/analyzer"
	"github.com/frederic-klein/yamb/internal/metrics"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

// Resource types used for analyzer dispatch and metrics.
const (
	TypeJS      = "js"
	TypeXML     = "xml"
	TypeLibrary = "library"
	TypeOther   = "other"
)

var xmlSuffixes = []string{".view.xml", ".fragment.xml", ".control.xml"}

type entry struct {
	info *moduleinfo.ModuleInfo
	err  error
}

// Pool is the resource pool used by the graph builder, the section
// resolver and the bundle builder.
type Pool struct {
	resources     resource.Collection
	logger        *log.Logger
	metrics       *metrics.Collector
	ignoreMissing bool
	ignoreGlobals []string

	js        *analyzer.JSAnalyzer
	xml       analyzer.Analyzer
	library   analyzer.Analyzer
	libraryJS analyzer.Analyzer
	component analyzer.Analyzer

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]entry
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger for the pool and its analyzers.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithMetrics records analysis counters in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pool) { p.metrics = c }
}

// WithIgnoreMissing makes callers of IgnoreMissing tolerate missing resources.
func WithIgnoreMissing(ignore bool) Option {
	return func(p *Pool) { p.ignoreMissing = ignore }
}

// WithIgnoreGlobals drops names from the exposed globals of every module.
func WithIgnoreGlobals(names []string) Option {
	return func(p *Pool) { p.ignoreGlobals = names }
}

// New creates a pool over resources.
func New(resources resource.Collection, opts ...Option) *Pool {
	p := &Pool{
		resources: resources,
		cache:     make(map[string]entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	p.js = analyzer.NewJSAnalyzer(p.logger)
	p.xml = analyzer.NewXMLAnalyzer(p.logger)
	p.library = analyzer.NewLibraryAnalyzer(p.logger)
	p.libraryJS = analyzer.NewLibraryJSAnalyzer(resources, p.logger)
	p.component = analyzer.NewComponentAnalyzer(resources, p.logger)
	return p
}

// Names returns all resource names known to the pool.
func (p *Pool) Names() []string {
	return p.resources.Names()
}

// IgnoreMissing reports whether missing resources should be logged and
// skipped instead of failing the build.
func (p *Pool) IgnoreMissing() bool {
	return p.ignoreMissing
}

// FindResource looks up a resource. A missing resource yields an error
// matching resource.ErrNotFound.
func (p *Pool) FindResource(name string) (resource.Resource, error) {
	return p.resources.Lookup(name)
}

// ModuleInfo returns the analysis result for name. The first caller
// computes it; concurrent callers for the same name wait for that result.
func (p *Pool) ModuleInfo(ctx context.Context, name string) (*moduleinfo.ModuleInfo, error) {
	if e, ok := p.cached(name); ok {
		p.metrics.CacheHit()
		return e.info, e.err
	}
	v, err, _ := p.group.Do(name, func() (any, error) {
		if e, ok := p.cached(name); ok {
			return e.info, e.err
		}
		info, err := p.analyze(ctx, name)
		if err == nil || !isContextError(err) {
			p.mu.Lock()
			p.cache[name] = entry{info: info, err: err}
			p.mu.Unlock()
		}
		return info, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*moduleinfo.ModuleInfo), nil
}

func (p *Pool) cached(name string) (entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.cache[name]
	return e, ok
}

func (p *Pool) analyze(ctx context.Context, name string) (*moduleinfo.ModuleInfo, error) {
	res, err := p.resources.Lookup(name)
	if err != nil {
		return nil, err
	}
	info := moduleinfo.New(name)
	resourceType, analyzers := p.analyzersFor(name)
	for _, a := range analyzers {
		if err := a.Analyze(ctx, res, info); err != nil {
			if isContextError(err) {
				return nil, err
			}
			p.metrics.AnalysisFailed()
			p.logger.Error("failed to analyze module", "resource", name, "err", err)
		}
	}
	info.IgnoreGlobals(p.ignoreGlobals)
	p.metrics.ModuleAnalyzed(resourceType)
	p.logger.Debug("analyzed module", "resource", name, "type", resourceType, "dependencies", len(info.Dependencies()))
	return info, nil
}

func (p *Pool) analyzersFor(name string) (string, []analyzer.Analyzer) {
	switch {
	case strings.HasSuffix(name, ".js"):
		switch path.Base(name) {
		case "Component.js":
			return TypeJS, []analyzer.Analyzer{p.js, p.component}
		case "library.js":
			return TypeJS, []analyzer.Analyzer{p.js, p.libraryJS}
		}
		return TypeJS, []analyzer.Analyzer{p.js}
	case strings.HasSuffix(name, ".library"):
		return TypeLibrary, []analyzer.Analyzer{p.library}
	}
	for _, suffix := range xmlSuffixes {
		if strings.HasSuffix(name, suffix) {
			return TypeXML, []analyzer.Analyzer{p.xml}
		}
	}
	return TypeOther, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
