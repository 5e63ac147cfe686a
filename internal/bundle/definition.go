// Package bundle describes bundles: their sections, filters and build
// options, and loads them from YAML or TOML definition files.
package bundle

import (
	"fmt"
)

// Mode selects how a section packages its modules.
type Mode string

const (
	// ModeProvided modules are assumed to be loaded already. They are not
	// written but satisfy dependencies of later sections.
	ModeProvided Mode = "provided"
	// ModeRaw modules are concatenated verbatim.
	ModeRaw Mode = "raw"
	// ModePreload modules are registered for lazy loading.
	ModePreload Mode = "preload"
	// ModeRequire emits a call that loads the modules eagerly.
	ModeRequire Mode = "require"
	// ModeBundleInfo emits loader configuration naming the bundle that
	// contains the modules.
	ModeBundleInfo Mode = "bundleInfo"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeProvided, ModeRaw, ModePreload, ModeRequire, ModeBundleInfo:
		return true
	}
	return false
}

// DefaultFileTypes are appended to filters that name no file type.
var DefaultFileTypes = []string{
	".js",
	".control.xml",
	".fragment.html",
	".fragment.json",
	".fragment.xml",
	".view.html",
	".view.json",
	".view.xml",
	".properties",
}

// Section is a filtered subset of a bundle packaged in one mode.
type Section struct {
	Mode               Mode     `yaml:"mode" toml:"mode"`
	Name               string   `yaml:"name,omitempty" toml:"name,omitempty"`
	Filters            []string `yaml:"filters" toml:"filters"`
	Resolve            bool     `yaml:"resolve,omitempty" toml:"resolve,omitempty"`
	ResolveConditional bool     `yaml:"resolveConditional,omitempty" toml:"resolveConditional,omitempty"`
	Renderer           bool     `yaml:"renderer,omitempty" toml:"renderer,omitempty"`
	Sort               *bool    `yaml:"sort,omitempty" toml:"sort,omitempty"`
	DeclareRawModules  bool     `yaml:"declareRawModules,omitempty" toml:"declareRawModules,omitempty"`
	Async              *bool    `yaml:"async,omitempty" toml:"async,omitempty"`
}

// Sorted reports whether the section modules are ordered topologically.
func (s Section) Sorted() bool {
	return s.Sort == nil || *s.Sort
}

// IsAsync reports whether a require section loads its modules
// asynchronously.
func (s Section) IsAsync() bool {
	return s.Async == nil || *s.Async
}

// Definition is a named bundle made of sections.
type Definition struct {
	Name             string    `yaml:"name" toml:"name"`
	DefaultFileTypes []string  `yaml:"defaultFileTypes,omitempty" toml:"defaultFileTypes,omitempty"`
	Sections         []Section `yaml:"sections" toml:"sections"`
}

// FileTypes returns the file types appended to filters without one.
func (d *Definition) FileTypes() []string {
	if len(d.DefaultFileTypes) > 0 {
		return d.DefaultFileTypes
	}
	return DefaultFileTypes
}

// Options control post-processing of a bundle.
type Options struct {
	Optimize                  bool              `yaml:"optimize,omitempty" toml:"optimize,omitempty"`
	SourceMap                 bool              `yaml:"sourceMap,omitempty" toml:"sourceMap,omitempty"`
	DecorateBootstrapModule   bool              `yaml:"decorateBootstrapModule,omitempty" toml:"decorateBootstrapModule,omitempty"`
	AddTryCatchRestartWrapper bool              `yaml:"addTryCatchRestartWrapper,omitempty" toml:"addTryCatchRestartWrapper,omitempty"`
	NumberOfParts             int               `yaml:"numberOfParts,omitempty" toml:"numberOfParts,omitempty"`
	IgnoreMissingModules      bool              `yaml:"ignoreMissingModules,omitempty" toml:"ignoreMissingModules,omitempty"`
	ModuleNameMapping         map[string]string `yaml:"moduleNameMapping,omitempty" toml:"moduleNameMapping,omitempty"`
}

// Parts returns the number of files the bundle is split into.
func (o Options) Parts() int {
	if o.NumberOfParts < 1 {
		return 1
	}
	return o.NumberOfParts
}

// Bundle is a definition together with its options, as found in a
// definition file.
type Bundle struct {
	Definition `yaml:",inline"`
	Options    Options `yaml:"options,omitempty" toml:"options,omitempty"`
}

// DefinitionError reports an invalid bundle definition.
type DefinitionError struct {
	Bundle  string
	Section int
	Reason  string
}

func (e *DefinitionError) Error() string {
	if e.Section >= 0 {
		return fmt.Sprintf("bundle %q section %d: %s", e.Bundle, e.Section, e.Reason)
	}
	return fmt.Sprintf("bundle %q: %s", e.Bundle, e.Reason)
}

// Validate checks the definition and its options.
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return &DefinitionError{Section: -1, Reason: "missing name"}
	}
	if len(b.Sections) == 0 {
		return &DefinitionError{Bundle: b.Name, Section: -1, Reason: "no sections"}
	}
	if b.Options.NumberOfParts < 0 {
		return &DefinitionError{Bundle: b.Name, Section: -1, Reason: "numberOfParts must not be negative"}
	}
	for i, s := range b.Sections {
		if !s.Mode.Valid() {
			return &DefinitionError{Bundle: b.Name, Section: i, Reason: fmt.Sprintf("unknown mode %q", s.Mode)}
		}
		if s.Mode == ModeRaw && !s.Sorted() {
			return &DefinitionError{Bundle: b.Name, Section: i, Reason: "raw sections must be sorted"}
		}
		if s.Async != nil && s.Mode != ModeRequire {
			return &DefinitionError{Bundle: b.Name, Section: i, Reason: "async is only supported by require sections"}
		}
		if _, err := NewFilterList(s.Filters, b.FileTypes()); err != nil {
			return &DefinitionError{Bundle: b.Name, Section: i, Reason: err.Error()}
		}
	}
	return nil
}
