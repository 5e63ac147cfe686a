package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/frederic-klein/yamb/internal/analyzer"
	"github.com/frederic-klein/yamb/internal/bundle"
	"github.com/frederic-klein/yamb/internal/modname"
	"github.com/frederic-klein/yamb/internal/resolver"
)

// chunk is a piece of rendered output. Entries belong inside a
// sap.ui.require.preload block, everything else is a statement.
type chunk struct {
	module string
	entry  bool
	text   string
	// mapLine is the line of text where the mapped module source starts.
	mapLine   int
	sourceMap json.RawMessage
}

type renderedSection struct {
	mode   bundle.Mode
	chunks []chunk
}

func (b *Builder) renderSection(ctx context.Context, rb *resolver.Bundle, s resolver.Section) (renderedSection, error) {
	rs := renderedSection{mode: s.Mode}
	var err error
	switch s.Mode {
	case bundle.ModeRaw:
		rs.chunks, err = b.renderRaw(ctx, rb, s)
	case bundle.ModePreload:
		rs.chunks, err = b.renderPreload(ctx, rb, s)
	case bundle.ModeRequire:
		rs.chunks = b.renderRequire(rb, s)
	case bundle.ModeBundleInfo:
		rs.chunks = renderBundleInfo(rb, s)
	}
	return rs, err
}

func (b *Builder) content(ctx context.Context, name string) (string, error) {
	res, err := b.pool.FindResource(name)
	if err != nil {
		return "", err
	}
	src, err := res.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(src), nil
}

// mapped returns the name under which a module is written into the bundle.
func mapped(rb *resolver.Bundle, name string) string {
	if to, ok := rb.Options.ModuleNameMapping[name]; ok {
		return to
	}
	return name
}

func (b *Builder) renderRaw(ctx context.Context, rb *resolver.Bundle, s resolver.Section) ([]chunk, error) {
	var chunks, declarations []chunk
	for _, name := range s.Modules {
		src, err := b.content(ctx, name)
		if err != nil {
			return nil, err
		}
		code, sm := src, json.RawMessage(nil)
		if isJS(name) {
			code, sm = b.process(ctx, name, src, rb.Options)
		}
		chunks = append(chunks, chunk{
			module:    name,
			text:      "//@ui5-bundle-raw-include " + mapped(rb, name) + "\n" + code,
			mapLine:   1,
			sourceMap: sm,
		})

		if !s.DeclareRawModules || !isJS(name) {
			continue
		}
		info, err := b.pool.ModuleInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		if !info.RawModule {
			continue
		}
		requireName, err := modname.ToRequireName(mapped(rb, name))
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, chunk{
			module: name,
			text:   "sap.ui.define(" + analyzer.QuoteString(requireName) + ", [], function(){});",
		})
	}
	return append(chunks, declarations...), nil
}

func (b *Builder) renderPreload(ctx context.Context, rb *resolver.Bundle, s resolver.Section) ([]chunk, error) {
	var chunks []chunk
	for _, name := range s.Modules {
		src, err := b.content(ctx, name)
		if err != nil {
			return nil, err
		}
		target := mapped(rb, name)
		key := analyzer.QuoteString(target) + ":"

		if !isJS(name) {
			chunks = append(chunks, chunk{module: name, entry: true, text: key + analyzer.QuoteString(src)})
			continue
		}

		rewritten, ok, err := analyzer.RewriteDefine(ctx, []byte(src), target)
		if err != nil {
			var parseErr *analyzer.ParseError
			if !errors.As(err, &parseErr) {
				return nil, err
			}
			b.logger.Warn("module could not be parsed, embedding it unchanged", "resource", name, "err", err)
		}
		if ok {
			code, sm := b.process(ctx, name, string(rewritten), rb.Options)
			chunks = append(chunks, chunk{module: name, text: code, sourceMap: sm})
			continue
		}

		info, err := b.pool.ModuleInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		code, sm := b.process(ctx, name, src, rb.Options)
		if info.RequiresTopLevelScope {
			b.logger.Debug("module requires top level scope, embedding it as string", "resource", name, "globals", info.ExposedGlobals)
			chunks = append(chunks, chunk{module: name, entry: true, text: key + analyzer.QuoteString(code)})
			continue
		}
		chunks = append(chunks, chunk{
			module:    name,
			entry:     true,
			text:      key + "function(){\n" + code + "\n}",
			mapLine:   1,
			sourceMap: sm,
		})
	}
	return chunks, nil
}

func (b *Builder) renderRequire(rb *resolver.Bundle, s resolver.Section) []chunk {
	var names []string
	for _, name := range s.Modules {
		requireName, err := modname.ToRequireName(mapped(rb, name))
		if err != nil {
			b.logger.Warn("only JavaScript modules can be required, skipping", "resource", name)
			continue
		}
		names = append(names, requireName)
	}
	if len(names) == 0 {
		return nil
	}

	if s.IsAsync() {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = analyzer.QuoteString(n)
		}
		return []chunk{{text: "sap.ui.require([" + strings.Join(quoted, ",") + "]);"}}
	}

	if b.runtime.Major() >= 2 {
		b.logger.Warn("synchronous require is not supported by the target runtime", "bundle", rb.Name, "runtime", b.runtime.String())
	}
	chunks := make([]chunk, len(names))
	for i, n := range names {
		chunks[i] = chunk{text: "sap.ui.requireSync(" + analyzer.QuoteString(n) + ");"}
	}
	return chunks
}

func renderBundleInfo(rb *resolver.Bundle, s resolver.Section) []chunk {
	if len(s.Modules) == 0 {
		return nil
	}
	owner := s.Name
	if owner == "" {
		owner = rb.Name
	}
	quoted := make([]string, len(s.Modules))
	for i, n := range s.Modules {
		quoted[i] = analyzer.QuoteString(mapped(rb, n))
	}
	return []chunk{{
		text: "sap.ui.loader.config({bundlesUI5:{\n" +
			analyzer.QuoteString(owner) + ":[" + strings.Join(quoted, ",") + "]\n}});",
	}}
}

func isJS(name string) bool {
	return strings.HasSuffix(name, ".js")
}
