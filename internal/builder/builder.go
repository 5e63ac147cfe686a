// Package builder renders resolved bundles into JavaScript artifacts.
package builder

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamb/internal/metrics"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resolver"
	"github.com/frederic-klein/yamb/internal/resource"
)

// DefaultRuntimeVersion is the loader runtime bundles are built for unless
// configured otherwise.
const DefaultRuntimeVersion = "1.120.0"

// Pool is the part of the resource pool the builder reads from.
type Pool interface {
	FindResource(name string) (resource.Resource, error)
	ModuleInfo(ctx context.Context, name string) (*moduleinfo.ModuleInfo, error)
}

// Output is one rendered bundle file.
type Output struct {
	Name      string
	Content   []byte
	SourceMap []byte
	Modules   []string
}

// Builder renders bundles.
type Builder struct {
	pool    Pool
	logger  *log.Logger
	metrics *metrics.Collector
	runtime *semver.Version
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithMetrics records section timings and bundle sizes in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *Builder) { b.metrics = c }
}

// WithRuntimeVersion sets the loader runtime the bundles target.
func WithRuntimeVersion(v *semver.Version) Option {
	return func(b *Builder) { b.runtime = v }
}

// New creates a Builder reading module content from pool.
func New(pool Pool, opts ...Option) *Builder {
	b := &Builder{pool: pool}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	if b.runtime == nil {
		b.runtime = semver.MustParse(DefaultRuntimeVersion)
	}
	return b
}

// Build renders rb into one output per part.
func (b *Builder) Build(ctx context.Context, rb *resolver.Bundle) ([]*Output, error) {
	sections := make([]renderedSection, 0, len(rb.Sections))
	for i, s := range rb.Sections {
		start := time.Now()
		rs, err := b.renderSection(ctx, rb, s)
		if err != nil {
			return nil, fmt.Errorf("rendering bundle %s section %d (%s): %w", rb.Name, i, s.Mode, err)
		}
		b.metrics.ObserveSection(string(s.Mode), time.Since(start))
		if len(rs.chunks) > 0 {
			sections = append(sections, rs)
		}
	}

	parts := split(sections, rb.Options.Parts())
	outputs := make([]*Output, 0, len(parts))
	for i, part := range parts {
		name := rb.Name
		if len(parts) > 1 {
			name = partName(rb.Name, i)
		}
		out, err := assemble(name, part, rb.Options)
		if err != nil {
			return nil, err
		}
		b.metrics.BundleWritten(name, len(out.Content))
		b.logger.Info("bundle rendered", "bundle", name, "modules", len(out.Modules), "bytes", len(out.Content))
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// partName derives the file name of part i of a split bundle.
func partName(name string, i int) string {
	return strings.TrimSuffix(name, ".js") + "-" + strconv.Itoa(i) + ".js"
}
