package moduleinfo

// record is the serialized form used by `yamb analyze`.
type record struct {
	Name                  string            `yaml:"name"`
	Format                Format            `yaml:"format,omitempty"`
	RawModule             bool              `yaml:"rawModule,omitempty"`
	RequiresTopLevelScope bool              `yaml:"requiresTopLevelScope,omitempty"`
	ExposedGlobals        []string          `yaml:"exposedGlobals,omitempty"`
	DynamicDependencies   bool              `yaml:"dynamicDependencies,omitempty"`
	Dependencies          map[string]string `yaml:"dependencies,omitempty"`
	SubModules            []string          `yaml:"subModules,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (m *ModuleInfo) MarshalYAML() (interface{}, error) {
	r := record{
		Name:                  m.Name,
		Format:                m.Format,
		RawModule:             m.RawModule,
		RequiresTopLevelScope: m.RequiresTopLevelScope,
		ExposedGlobals:        m.ExposedGlobals,
		DynamicDependencies:   m.DynamicDependencies,
		SubModules:            m.subModules,
	}
	if len(m.deps) > 0 {
		r.Dependencies = make(map[string]string, len(m.deps))
		for name, kind := range m.deps {
			r.Dependencies[name] = kind.String()
		}
	}
	return r, nil
}
