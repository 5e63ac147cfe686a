package bundle

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// File is the content of a bundle definition file.
type File struct {
	Bundles []Bundle `yaml:"bundles" toml:"bundles"`
}

// Loader reads bundle definition files.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a loader reading from fs.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load reads and validates the bundles in path. The format is chosen by
// the file extension: .yaml/.yml or .toml.
func (l *Loader) Load(path string) ([]Bundle, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle definition: %w", err)
	}
	var file File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported bundle definition format %q", ext)
	}

	for i := range file.Bundles {
		if err := file.Bundles[i].Validate(); err != nil {
			return nil, err
		}
	}
	return file.Bundles, nil
}
