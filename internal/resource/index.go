package resource

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Root maps a directory to a resource name prefix, e.g. "src" to "sap/m/".
type Root struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// Index provides lookup of resources from a list of roots. A name found in
// several roots resolves to the first root.
type Index struct {
	fs    afero.Fs
	roots []Root

	mu        sync.RWMutex
	resources map[string]Resource
}

// NewIndex creates an index over roots on fs.
func NewIndex(fs afero.Fs, roots ...Root) *Index {
	return &Index{
		fs:        fs,
		roots:     roots,
		resources: make(map[string]Resource),
	}
}

// Load walks all roots and registers every regular file.
func (idx *Index) Load() error {
	for _, root := range idx.roots {
		if err := idx.loadRoot(root); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) loadRoot(root Root) error {
	prefix := strings.TrimPrefix(root.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	err := afero.Walk(idx.fs, root.Path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root.Path, p)
		if err != nil {
			return err
		}
		name := path.Join(prefix, filepath.ToSlash(rel))
		idx.mu.Lock()
		if _, ok := idx.resources[name]; !ok {
			idx.resources[name] = NewFile(idx.fs, p, name)
		}
		idx.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", root.Path, err)
	}
	return nil
}

// Add registers r, replacing any resource with the same name.
func (idx *Index) Add(r Resource) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resources[r.Name()] = r
}

// Lookup finds a resource by name.
func (idx *Index) Lookup(name string) (Resource, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	r, ok := idx.resources[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return r, nil
}

// Names returns all resource names in sorted order.
func (idx *Index) Names() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	names := make([]string, 0, len(idx.resources))
	for name := range idx.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed resources.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.resources)
}
