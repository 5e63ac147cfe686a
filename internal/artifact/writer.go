// Package artifact writes rendered bundles and the bundle report to disk.
package artifact

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/frederic-klein/yamb/internal/builder"
)

// ReportName is the file name of the bundle report in the output directory.
const ReportName = "bundles.report"

// Writer stores outputs below <dir>/resources.
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter creates a writer for the output directory dir.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Path returns the file path of the artifact for a bundle name.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, "resources", filepath.FromSlash(path.Clean("/"+name)))
}

// Write stores the bundle content and its source map, if any.
func (w *Writer) Write(out *builder.Output) error {
	p := w.Path(out.Name)
	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", out.Name, err)
	}
	if err := afero.WriteFile(w.fs, p, out.Content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out.Name, err)
	}
	if out.SourceMap != nil {
		if err := afero.WriteFile(w.fs, p+".map", out.SourceMap, 0o644); err != nil {
			return fmt.Errorf("writing source map of %s: %w", out.Name, err)
		}
	}
	return nil
}

// WriteAll stores all outputs and the report listing them.
func (w *Writer) WriteAll(outputs []*builder.Output) error {
	for _, out := range outputs {
		if err := w.Write(out); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := NewEmitter(&buf).Emit(outputs); err != nil {
		return err
	}
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(w.fs, filepath.Join(w.dir, ReportName), buf.Bytes(), 0o644)
}
