// Package resource provides named resources and the index that maps
// resource names to them.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("resource not found")

// NotFoundError reports a resource name missing from a collection.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resource is a named piece of content, e.g. "sap/m/Button.js".
type Resource interface {
	Name() string
	Content(ctx context.Context) ([]byte, error)
}

// Collection looks up resources by name.
type Collection interface {
	Lookup(name string) (Resource, error)
	Names() []string
}

// File is a resource backed by a file on an afero file system.
type File struct {
	name string
	fs   afero.Fs
	path string
}

// NewFile creates a resource called name reading path from fs.
func NewFile(fs afero.Fs, path, name string) *File {
	return &File{name: name, fs: fs, path: path}
}

func (f *File) Name() string { return f.name }

func (f *File) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.name, err)
	}
	return data, nil
}

// Bytes is an in-memory resource.
type Bytes struct {
	name string
	data []byte
}

// NewBytes creates an in-memory resource.
func NewBytes(name string, data []byte) *Bytes {
	return &Bytes{name: name, data: data}
}

func (b *Bytes) Name() string { return b.name }

func (b *Bytes) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.data, nil
}
