// Package moduleinfo holds the per-resource analysis record shared by the
// analyzers, the resource pool, the dependency graph and the bundle builder.
package moduleinfo

import (
	"slices"
)

// DependencyKind is the strength of a dependency. Lower values are stronger.
type DependencyKind int

const (
	Strict DependencyKind = iota
	Implicit
	Conditional
)

func (k DependencyKind) String() string {
	switch k {
	case Strict:
		return "strict"
	case Implicit:
		return "implicit"
	case Conditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// Format is the module declaration style detected in a resource.
type Format string

const (
	FormatNone   Format = ""
	FormatLegacy Format = "legacy-declare"
	FormatDefine Format = "define-style"
	FormatAMD    Format = "amd"
)

// ModuleInfo describes one resource: its dependencies, the modules it
// physically contains and what the analysis found out about its format.
//
// A ModuleInfo is mutated by exactly one analysis pass and is read-only
// afterwards.
type ModuleInfo struct {
	Name                  string
	Format                Format
	RawModule             bool
	RequiresTopLevelScope bool
	ExposedGlobals        []string
	DynamicDependencies   bool

	deps       map[string]DependencyKind
	depOrder   []string
	subModules []string
}

// New creates an empty ModuleInfo for name.
func New(name string) *ModuleInfo {
	return &ModuleInfo{
		Name: name,
		deps: make(map[string]DependencyKind),
	}
}

// SetName changes the module name. A dependency on the new name is dropped.
func (m *ModuleInfo) SetName(name string) {
	m.Name = name
	m.removeDependency(name)
}

// AddDependency records a strict or, when conditional is set, a conditional
// dependency.
func (m *ModuleInfo) AddDependency(name string, conditional bool) {
	kind := Strict
	if conditional {
		kind = Conditional
	}
	m.addDependency(name, kind)
}

// AddImplicitDependency records a dependency that is not visible in the
// source but required at runtime, e.g. the loader bootstrap.
func (m *ModuleInfo) AddImplicitDependency(name string) {
	m.addDependency(name, Implicit)
}

func (m *ModuleInfo) addDependency(name string, kind DependencyKind) {
	if name == "" || name == m.Name || m.HasSubModule(name) {
		return
	}
	if m.deps == nil {
		m.deps = make(map[string]DependencyKind)
	}
	old, ok := m.deps[name]
	if !ok {
		m.deps[name] = kind
		m.depOrder = append(m.depOrder, name)
		return
	}
	if kind < old {
		m.deps[name] = kind
	}
}

func (m *ModuleInfo) removeDependency(name string) {
	if _, ok := m.deps[name]; !ok {
		return
	}
	delete(m.deps, name)
	m.depOrder = slices.DeleteFunc(m.depOrder, func(d string) bool { return d == name })
}

// AddSubModule records a module that is contained in this resource. The
// module is removed from the dependencies and can never re-enter them.
func (m *ModuleInfo) AddSubModule(name string) {
	if name == "" || m.HasSubModule(name) {
		return
	}
	m.subModules = append(m.subModules, name)
	m.removeDependency(name)
}

// RemoveSubModule drops name from the submodules.
func (m *ModuleInfo) RemoveSubModule(name string) {
	m.subModules = slices.DeleteFunc(m.subModules, func(s string) bool { return s == name })
}

// HasSubModule reports whether name is contained in this resource.
func (m *ModuleInfo) HasSubModule(name string) bool {
	return slices.Contains(m.subModules, name)
}

// SubModules returns the contained modules in declaration order.
func (m *ModuleInfo) SubModules() []string {
	return slices.Clone(m.subModules)
}

// Dependencies returns the dependency names in insertion order.
func (m *ModuleInfo) Dependencies() []string {
	return slices.Clone(m.depOrder)
}

// Dependency returns the stored strength of name.
func (m *ModuleInfo) Dependency(name string) (DependencyKind, bool) {
	k, ok := m.deps[name]
	return k, ok
}

// IsConditionalDependency reports whether name is only needed on some code paths.
func (m *ModuleInfo) IsConditionalDependency(name string) bool {
	k, ok := m.deps[name]
	return ok && k == Conditional
}

// IsImplicitDependency reports whether name was added as implicit dependency.
func (m *ModuleInfo) IsImplicitDependency(name string) bool {
	k, ok := m.deps[name]
	return ok && k == Implicit
}

// SetFormat applies the upgrade rule: an unset format accepts anything and
// the legacy format replaces the define style.
func (m *ModuleInfo) SetFormat(f Format) {
	if f == FormatNone {
		return
	}
	if m.Format == FormatNone || (m.Format == FormatDefine && f == FormatLegacy) {
		m.Format = f
	}
}

// IgnoreGlobals removes names from the exposed globals and recomputes
// RequiresTopLevelScope.
func (m *ModuleInfo) IgnoreGlobals(names []string) {
	if len(names) == 0 {
		return
	}
	m.ExposedGlobals = slices.DeleteFunc(m.ExposedGlobals, func(g string) bool {
		return slices.Contains(names, g)
	})
	m.RequiresTopLevelScope = len(m.ExposedGlobals) > 0
}
