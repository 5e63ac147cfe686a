package builder

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/frederic-klein/yamb/internal/bundle"
)

const (
	optimizedMarker = `window["sap-ui-optimized"] = true;`
	restartCatch    = "} catch(oError) {\nif (oError.name != \"Restart\") { throw oError; }\n}"
)

type writer struct {
	buf      strings.Builder
	line     int
	sections []mapSection
}

func (w *writer) write(s string) {
	w.buf.WriteString(s)
	w.line += strings.Count(s, "\n")
}

func (w *writer) writeln(s string) {
	w.write(s + "\n")
}

func (w *writer) chunk(c chunk) {
	if c.sourceMap != nil {
		w.sections = append(w.sections, mapSection{
			Offset: mapOffset{Line: w.line + c.mapLine},
			Map:    c.sourceMap,
		})
	}
	w.write(c.text)
}

// assemble writes the sections of one bundle file.
func assemble(name string, sections []renderedSection, opts bundle.Options) (*Output, error) {
	w := &writer{}
	w.writeln("//@ui5-bundle " + name)
	if opts.DecorateBootstrapModule {
		w.writeln(optimizedMarker)
	}
	if opts.AddTryCatchRestartWrapper {
		w.writeln("try {")
	}

	var modules []string
	seen := make(map[string]bool)
	for _, s := range sections {
		inPreload := false
		for _, c := range s.chunks {
			if c.module != "" && !seen[c.module] {
				seen[c.module] = true
				modules = append(modules, c.module)
			}
			switch {
			case c.entry && !inPreload:
				w.writeln("sap.ui.require.preload({")
				inPreload = true
			case c.entry:
				w.writeln(",")
			case inPreload:
				w.writeln("\n});")
				inPreload = false
			}
			w.chunk(c)
			if !c.entry {
				w.writeln("")
			}
		}
		if inPreload {
			w.writeln("\n});")
		}
	}

	if opts.AddTryCatchRestartWrapper {
		w.writeln(restartCatch)
	}

	out := &Output{Name: name, Modules: modules}
	if opts.SourceMap {
		w.writeln("//# sourceMappingURL=" + path.Base(name) + ".map")
		sm, err := json.Marshal(indexMap{Version: 3, File: path.Base(name), Sections: w.sections})
		if err != nil {
			return nil, err
		}
		out.SourceMap = sm
	}
	out.Content = []byte(w.buf.String())
	return out, nil
}
