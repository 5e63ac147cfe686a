package artifact

import (
	"fmt"
	"io"
	"sort"

	"github.com/frederic-klein/yamb/internal/builder"
)

const reportHeader = "# yamb bundle report: version 1\n"

// Emitter writes bundle reports.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new report emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one entry per output file, sorted by name.
func (e *Emitter) Emit(outputs []*builder.Output) error {
	sorted := make([]*builder.Output, len(outputs))
	copy(sorted, outputs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	if _, err := fmt.Fprint(e.w, reportHeader); err != nil {
		return err
	}
	if _, err := fmt.Fprint(e.w, "BUNDLES\n"); err != nil {
		return err
	}
	for _, out := range sorted {
		if err := e.emitOutput(out); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitOutput(out *builder.Output) error {
	if _, err := fmt.Fprintf(e.w, "  %s\n", out.Name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "    size: %d\n", len(out.Content)); err != nil {
		return err
	}
	if out.SourceMap != nil {
		if _, err := fmt.Fprintf(e.w, "    sourcemap: %s.map\n", out.Name); err != nil {
			return err
		}
	}

	if len(out.Modules) > 0 {
		if _, err := fmt.Fprint(e.w, "    modules:\n"); err != nil {
			return err
		}
		// bundle order, not sorted
		for _, m := range out.Modules {
			if _, err := fmt.Fprintf(e.w, "      %s\n", m); err != nil {
				return err
			}
		}
	}
	return nil
}
