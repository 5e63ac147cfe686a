package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamb/internal/bundle"
	"github.com/frederic-klein/yamb/internal/depgraph"
	"github.com/frederic-klein/yamb/internal/pool"
	"github.com/frederic-klein/yamb/internal/resource"
)

func newPool(files map[string]string, opts ...pool.Option) *pool.Pool {
	idx := resource.NewIndex(afero.NewMemMapFs())
	for name, content := range files {
		idx.Add(resource.NewBytes(name, []byte(content)))
	}
	return pool.New(idx, opts...)
}

var appFiles = map[string]string{
	"sap/ui/core/mvc/XMLView.js":  `sap.ui.define([], function() {});`,
	"sap/ui/core/Core.js":         `sap.ui.define([], function() {});`,
	"sap/m/Button.js":             `sap.ui.define(["sap/ui/core/Core", "./ButtonRenderer"], function() {});`,
	"sap/m/ButtonRenderer.js":     `sap.ui.define([], function() {});`,
	"sap/m/Text.js":               `sap.ui.define(["sap/ui/core/Core"], function() {});`,
	"sap/m/TextRenderer.js":       `sap.ui.define([], function() {});`,
	"my/app/Component.js":         `sap.ui.define(["sap/m/Button", "./util/Formatter"], function() { if (window.x) { sap.ui.requireSync("my/app/Lazy"); } });`,
	"my/app/util/Formatter.js":    `sap.ui.define([], function() {});`,
	"my/app/Lazy.js":              `sap.ui.define([], function() {});`,
	"my/app/view/Main.view.xml":   `<mvc:View xmlns:mvc="sap.ui.core.mvc" xmlns="sap.m"><Text/></mvc:View>`,
	"my/app/test/Test.js":         `sap.ui.define([], function() {});`,
	"my/app/thirdparty/lib.js":    `var lib = {};`,
	"my/app/thirdparty/plugin.js": `lib.plugin = {};`,
}

func boolPtr(b bool) *bool { return &b }

func TestResolver_Resolve(t *testing.T) {
	p := newPool(appFiles)
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "my/app/Component-preload.js",
			Sections: []bundle.Section{
				{Mode: bundle.ModeProvided, Filters: []string{"sap/ui/core/"}},
				{Mode: bundle.ModeRaw, Filters: []string{"my/app/thirdparty/"}},
				{Mode: bundle.ModePreload, Filters: []string{"my/app/", "!my/app/test/"}, Resolve: true},
				{Mode: bundle.ModeRequire, Filters: []string{"my/app/Component.js"}, Async: boolPtr(true)},
			},
		},
	}

	got, err := New(p, nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, got.Sections, 4)

	assert.Equal(t, []string{"sap/ui/core/Core.js", "sap/ui/core/mvc/XMLView.js"}, got.Sections[0].Modules)
	assert.Equal(t, []string{"my/app/thirdparty/lib.js", "my/app/thirdparty/plugin.js"}, got.Sections[1].Modules)
	assert.Equal(t, []string{
		"my/app/Lazy.js",
		"my/app/util/Formatter.js",
		"sap/m/Text.js",
		"my/app/view/Main.view.xml",
		"sap/m/ButtonRenderer.js",
		"sap/m/Button.js",
		"my/app/Component.js",
	}, got.Sections[2].Modules, "strict dependencies are resolved, provided modules are not repeated")
	assert.Empty(t, got.Sections[3].Modules, "modules are only packaged once")
}

func TestResolver_ResolveConditionalAndRenderer(t *testing.T) {
	p := newPool(appFiles)
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "b.js",
			Sections: []bundle.Section{
				{Mode: bundle.ModePreload, Filters: []string{"my/app/Component.js", "sap/m/Text.js"}, Resolve: true, ResolveConditional: true, Renderer: true, Sort: boolPtr(false)},
			},
		},
	}

	got, err := New(p, nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"my/app/Component.js",
		"sap/m/Text.js",
		"sap/m/TextRenderer.js",
		"sap/m/Button.js",
		"sap/m/ButtonRenderer.js",
		"my/app/util/Formatter.js",
		"my/app/Lazy.js",
		"sap/ui/core/Core.js",
	}, got.Sections[0].Modules)
}

func TestResolver_MissingDependency(t *testing.T) {
	files := map[string]string{
		"a.js": `sap.ui.define(["missing"], function() {});`,
	}
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name:     "b.js",
			Sections: []bundle.Section{{Mode: bundle.ModePreload, Filters: []string{"a.js"}, Resolve: true}},
		},
	}

	_, err := New(newPool(files), nil).Resolve(context.Background(), def)
	assert.True(t, errors.Is(err, resource.ErrNotFound), "error = %v", err)

	def.Options.IgnoreMissingModules = true
	got, err := New(newPool(files), nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, got.Sections[0].Modules)

	def.Options.IgnoreMissingModules = false
	got, err = New(newPool(files, pool.WithIgnoreMissing(true)), nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js"}, got.Sections[0].Modules)
}

func TestResolver_Cycle(t *testing.T) {
	files := map[string]string{
		"a.js": `var a = 1; jQuery.sap.require("b");`,
		"b.js": `jQuery.sap.require("a");`,
	}
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name:     "b.js",
			Sections: []bundle.Section{{Mode: bundle.ModeRaw, Filters: []string{"a.js", "b.js"}}},
		},
	}

	_, err := New(newPool(files), nil).Resolve(context.Background(), def)
	var cycle *depgraph.CycleError
	require.True(t, errors.As(err, &cycle), "error = %v", err)
	assert.Equal(t, []string{"a.js", "b.js"}, cycle.Names)
}

func TestRendererOf(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"sap/m/Button.js", "sap/m/ButtonRenderer.js", true},
		{"sap/m/ButtonRenderer.js", "", false},
		{"my/view.xml", "", false},
	}
	for _, tt := range tests {
		got, ok := rendererOf(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("rendererOf(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolver_EmbeddedModules(t *testing.T) {
	files := map[string]string{
		"app/A.js":      `sap.ui.define(["lib/x"], function() {});`,
		"lib/bundle.js": "//@ui5-bundle lib/bundle.js\nsap.ui.predefine(\"lib/x\", [], function() {});\n",
	}
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name:     "b.js",
			Sections: []bundle.Section{{Mode: bundle.ModePreload, Filters: []string{"app/", "lib/"}, Resolve: true}},
		},
	}

	got, err := New(newPool(files), nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app/A.js", "lib/bundle.js"}, got.Sections[0].Modules)
}

func TestResolver_MissingFilterModule(t *testing.T) {
	files := map[string]string{
		"my/app/Component.js": `sap.ui.define([], function() {});`,
	}
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "b.js",
			Sections: []bundle.Section{{
				Mode:    bundle.ModePreload,
				Filters: []string{"my/app/DoesNotExist.js", "my/app/Component.js"},
			}},
		},
	}

	_, err := New(newPool(files), nil).Resolve(context.Background(), def)
	var notFound *resource.NotFoundError
	require.True(t, errors.As(err, &notFound), "error = %v", err)
	assert.Equal(t, "my/app/DoesNotExist.js", notFound.Name)

	def.Options.IgnoreMissingModules = true
	got, err := New(newPool(files), nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"my/app/Component.js"}, got.Sections[0].Modules)
}
