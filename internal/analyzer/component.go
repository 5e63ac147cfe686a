package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamb/internal/modname"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

// ViewRef handles manifest values that are either a view name or an object
// carrying the name and the view type.
type ViewRef struct {
	ViewName string `json:"viewName"`
	Type     string `json:"type"`
}

func (v *ViewRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ViewRef{ViewName: s}
		return nil
	}
	type plain ViewRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = ViewRef(p)
	return nil
}

// LibraryRef is an entry of sap.ui5/dependencies/libs.
type LibraryRef struct {
	MinVersion string `json:"minVersion"`
	Lazy       bool   `json:"lazy"`
}

// RoutingTarget is a target of sap.ui5/routing.
type RoutingTarget struct {
	ViewName string `json:"viewName"`
	Name     string `json:"name"`
	ViewPath string `json:"viewPath"`
	ViewType string `json:"viewType"`
}

// Manifest is the part of a component descriptor that carries dependencies.
type Manifest struct {
	UI5 struct {
		RootView     *ViewRef `json:"rootView"`
		Dependencies struct {
			Libs map[string]LibraryRef `json:"libs"`
		} `json:"dependencies"`
		Models map[string]struct {
			Type string `json:"type"`
		} `json:"models"`
		Routing struct {
			Config struct {
				ViewPath string `json:"viewPath"`
				ViewType string `json:"viewType"`
			} `json:"config"`
			Targets map[string]RoutingTarget `json:"targets"`
		} `json:"routing"`
	} `json:"sap.ui5"`
}

// ComponentAnalyzer adds the dependencies declared in the manifest.json
// next to a Component.js.
type ComponentAnalyzer struct {
	resources resource.Collection
	logger    *log.Logger
}

// NewComponentAnalyzer creates a Component.js analyzer that reads
// manifests from resources.
func NewComponentAnalyzer(resources resource.Collection, logger *log.Logger) *ComponentAnalyzer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ComponentAnalyzer{resources: resources, logger: logger}
}

func (a *ComponentAnalyzer) Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error {
	manifestName := path.Join(path.Dir(res.Name()), "manifest.json")
	manifestRes, err := a.resources.Lookup(manifestName)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			a.logger.Debug("no manifest", "resource", res.Name())
			return nil
		}
		return err
	}
	data, err := manifestRes.Content(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestName, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return &ParseError{Resource: manifestName, Err: err}
	}
	applyManifest(&manifest, info)
	return nil
}

func applyManifest(m *Manifest, info *moduleinfo.ModuleInfo) {
	ui5 := &m.UI5
	for _, lib := range slices.Sorted(maps.Keys(ui5.Dependencies.Libs)) {
		info.AddDependency(modname.FromLegacyName(lib+".library", ""), ui5.Dependencies.Libs[lib].Lazy)
	}
	if rv := ui5.RootView; rv != nil && rv.ViewName != "" {
		info.AddDependency(viewModule(rv.ViewName, rv.Type), false)
	}
	for _, key := range slices.Sorted(maps.Keys(ui5.Models)) {
		if t := ui5.Models[key].Type; t != "" {
			info.AddDependency(modname.FromLegacyName(t, ""), false)
		}
	}
	cfg := ui5.Routing.Config
	for _, key := range slices.Sorted(maps.Keys(ui5.Routing.Targets)) {
		target := ui5.Routing.Targets[key]
		name := target.ViewName
		if name == "" {
			name = target.Name
		}
		if name == "" {
			continue
		}
		viewPath := target.ViewPath
		if viewPath == "" {
			viewPath = cfg.ViewPath
		}
		if viewPath != "" && !strings.HasPrefix(name, "module:") {
			name = viewPath + "." + name
		}
		viewType := target.ViewType
		if viewType == "" {
			viewType = cfg.ViewType
		}
		info.AddDependency(viewModule(name, viewType), true)
	}
}

// viewModule returns the resource name of a view. Names with a "module:"
// prefix are require names of typed views.
func viewModule(name, viewType string) string {
	if rest, ok := strings.CutPrefix(name, "module:"); ok {
		return modname.FromRequireName(rest)
	}
	suffix, ok := viewSuffixes[strings.ToUpper(viewType)]
	if !ok {
		suffix = viewSuffixes["XML"]
	}
	return modname.FromLegacyName(name, suffix)
}
