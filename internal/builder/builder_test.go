package builder

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamb/internal/bundle"
	"github.com/frederic-klein/yamb/internal/metrics"
	"github.com/frederic-klein/yamb/internal/pool"
	"github.com/frederic-klein/yamb/internal/resolver"
	"github.com/frederic-klein/yamb/internal/resource"
)

var preloadFiles = map[string]string{
	"my/app/A.js":          "sap.ui.define([], function() {\n\treturn 1;\n});\n",
	"my/app/V.view.xml":    `<mvc:View xmlns:mvc="sap.ui.core.mvc"/>`,
	"my/app/global.js":     "var g = 1;\n",
	"my/app/legacy.js":     "jQuery.sap.declare(\"my.app.legacy\");\nmy.app.legacy = {};\n",
	"app/Main.js":          "sap.ui.define([], function() {});",
	"app/Lazy.js":          "sap.ui.define([], function() {});",
	"lib/a.js":             "var a = 1;\n",
	"lib/b.js":             "sap.ui.define([], function() {});\n",
	"my/app/thirdparty.js": "/* Copyright 2024 ACME */\nsap.ui.define([], function() {\n\tvar longName = 1;\n\treturn longName;\n});\n",
}

func newPool(files map[string]string) *pool.Pool {
	idx := resource.NewIndex(afero.NewMemMapFs())
	for name, content := range files {
		idx.Add(resource.NewBytes(name, []byte(content)))
	}
	return pool.New(idx)
}

func build(t *testing.T, def *bundle.Bundle, opts ...Option) []*Output {
	t.Helper()
	p := newPool(preloadFiles)
	rb, err := resolver.New(p, nil).Resolve(context.Background(), def)
	require.NoError(t, err)
	outputs, err := New(p, opts...).Build(context.Background(), rb)
	require.NoError(t, err)
	return outputs
}

func boolPtr(b bool) *bool { return &b }

func preloadBundle() *bundle.Bundle {
	return &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "my/app/Component-preload.js",
			Sections: []bundle.Section{
				{Mode: bundle.ModePreload, Filters: []string{"my/app/", "!my/app/thirdparty.js"}},
			},
		},
	}
}

func TestBuild_Preload(t *testing.T) {
	outputs := build(t, preloadBundle())
	require.Len(t, outputs, 1)

	want := `//@ui5-bundle my/app/Component-preload.js
sap.ui.predefine("my/app/A", [], function() {
	return 1;
});
sap.ui.require.preload({
"my/app/V.view.xml":"<mvc:View xmlns:mvc=\"sap.ui.core.mvc\"/>",
"my/app/global.js":"var g = 1;",
"my/app/legacy.js":function(){
jQuery.sap.declare("my.app.legacy");
my.app.legacy = {};
}
});
`
	assert.Equal(t, want, string(outputs[0].Content))
	assert.Equal(t, []string{"my/app/A.js", "my/app/V.view.xml", "my/app/global.js", "my/app/legacy.js"}, outputs[0].Modules)
	assert.Nil(t, outputs[0].SourceMap)
}

func TestBuild_RawRequireBundleInfo(t *testing.T) {
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "app/all.js",
			Sections: []bundle.Section{
				{Mode: bundle.ModeRaw, Filters: []string{"lib/"}, DeclareRawModules: true},
				{Mode: bundle.ModeRequire, Filters: []string{"app/Main.js"}},
				{Mode: bundle.ModeBundleInfo, Name: "app/lazy.js", Filters: []string{"app/Lazy.js"}},
			},
		},
	}

	outputs := build(t, def)
	require.Len(t, outputs, 1)

	want := `//@ui5-bundle app/all.js
//@ui5-bundle-raw-include lib/a.js
var a = 1;
//@ui5-bundle-raw-include lib/b.js
sap.ui.define([], function() {});
sap.ui.define("lib/a", [], function(){});
sap.ui.require(["app/Main"]);
sap.ui.loader.config({bundlesUI5:{
"app/lazy.js":["app/Lazy.js"]
}});
`
	assert.Equal(t, want, string(outputs[0].Content))
	assert.Equal(t, []string{"lib/a.js", "lib/b.js"}, outputs[0].Modules)
}

func TestBuild_SyncRequire(t *testing.T) {
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name: "app/all.js",
			Sections: []bundle.Section{
				{Mode: bundle.ModeRequire, Filters: []string{"app/"}, Async: boolPtr(false)},
			},
		},
	}

	for _, runtime := range []string{"1.120.0", "2.0.0"} {
		t.Run(runtime, func(t *testing.T) {
			outputs := build(t, def, WithRuntimeVersion(semver.MustParse(runtime)))
			got := string(outputs[0].Content)
			assert.Contains(t, got, "sap.ui.requireSync(\"app/Lazy\");\nsap.ui.requireSync(\"app/Main\");\n")
		})
	}
}

func TestBuild_Wrappers(t *testing.T) {
	def := preloadBundle()
	def.Options = bundle.Options{DecorateBootstrapModule: true, AddTryCatchRestartWrapper: true}

	got := string(build(t, def)[0].Content)
	assert.True(t, strings.HasPrefix(got, "//@ui5-bundle my/app/Component-preload.js\nwindow[\"sap-ui-optimized\"] = true;\ntry {\nsap.ui.predefine("), got)
	assert.True(t, strings.HasSuffix(got, "});\n} catch(oError) {\nif (oError.name != \"Restart\") { throw oError; }\n}\n"), got)
}

func TestBuild_SourceMap(t *testing.T) {
	def := preloadBundle()
	def.Options.SourceMap = true

	out := build(t, def)[0]
	assert.True(t, strings.HasSuffix(string(out.Content), "\n//# sourceMappingURL=Component-preload.js.map\n"))

	var sm indexMap
	require.NoError(t, json.Unmarshal(out.SourceMap, &sm))
	assert.Equal(t, 3, sm.Version)
	assert.Equal(t, "Component-preload.js", sm.File)
	require.Len(t, sm.Sections, 2)
	assert.Equal(t, 1, sm.Sections[0].Offset.Line)
	assert.Equal(t, 8, sm.Sections[1].Offset.Line)

	var first lineMap
	require.NoError(t, json.Unmarshal(sm.Sections[0].Map, &first))
	assert.Equal(t, []string{"my/app/A.js"}, first.Sources)
	assert.Equal(t, "AAAA;AACA;AACA", first.Mappings)
}

func TestBuild_Optimize(t *testing.T) {
	def := &bundle.Bundle{
		Definition: bundle.Definition{
			Name:     "my/app/min.js",
			Sections: []bundle.Section{{Mode: bundle.ModePreload, Filters: []string{"my/app/thirdparty.js"}}},
		},
		Options: bundle.Options{Optimize: true, SourceMap: true},
	}

	out := build(t, def)[0]
	got := string(out.Content)
	assert.Contains(t, got, "/*! Copyright 2024 ACME */")
	assert.Contains(t, got, "sap.ui.predefine(\"my/app/thirdparty\"")
	assert.NotContains(t, got, "longName")

	var sm indexMap
	require.NoError(t, json.Unmarshal(out.SourceMap, &sm))
	require.Len(t, sm.Sections, 1)
	assert.Contains(t, string(sm.Sections[0].Map), "my/app/thirdparty.js")
}

func TestBuild_ModuleNameMapping(t *testing.T) {
	def := preloadBundle()
	def.Options.ModuleNameMapping = map[string]string{"my/app/legacy.js": "my/app/renamed.js"}

	got := string(build(t, def)[0].Content)
	assert.Contains(t, got, "\"my/app/renamed.js\":function(){")
	assert.NotContains(t, got, "\"my/app/legacy.js\"")
}

func TestBuild_Parts(t *testing.T) {
	def := preloadBundle()
	def.Sections = append(def.Sections, bundle.Section{Mode: bundle.ModeRequire, Filters: []string{"app/Main.js"}})
	def.Options.NumberOfParts = 2
	c := metrics.New()

	outputs := build(t, def, WithMetrics(c))
	require.Len(t, outputs, 2)
	assert.Equal(t, "my/app/Component-preload-0.js", outputs[0].Name)
	assert.Equal(t, "my/app/Component-preload-1.js", outputs[1].Name)

	var modules []string
	for _, out := range outputs {
		assert.NotEmpty(t, out.Modules)
		assert.True(t, strings.HasPrefix(string(out.Content), "//@ui5-bundle "+out.Name+"\n"))
		modules = append(modules, out.Modules...)
	}
	assert.Equal(t, []string{"my/app/A.js", "my/app/V.view.xml", "my/app/global.js", "my/app/legacy.js"}, modules)
	assert.NotContains(t, string(outputs[0].Content), "sap.ui.require([")
	assert.Contains(t, string(outputs[1].Content), "sap.ui.require([\"app/Main\"]);")

	n, err := testutil.GatherAndCount(c.Registry(), "yamb_bundle_bytes")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPartName(t *testing.T) {
	tests := []struct {
		name string
		i    int
		want string
	}{
		{"my/app/Component-preload.js", 0, "my/app/Component-preload-0.js"},
		{"sap-ui-core", 2, "sap-ui-core-2.js"},
	}
	for _, tt := range tests {
		if got := partName(tt.name, tt.i); got != tt.want {
			t.Errorf("partName(%q, %d) = %q, want %q", tt.name, tt.i, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	sections := []renderedSection{{
		mode: bundle.ModePreload,
		chunks: []chunk{
			{module: "a", text: strings.Repeat("a", 10)},
			{module: "b", text: strings.Repeat("b", 10)},
			{module: "c", text: strings.Repeat("c", 10)},
		},
	}}

	tests := []struct {
		parts int
		want  []int
	}{
		{1, []int{3}},
		{2, []int{2, 1}},
		{3, []int{1, 1, 1}},
		{5, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		got := split(sections, tt.parts)
		var sizes []int
		for _, part := range got {
			n := 0
			for _, s := range part {
				n += len(s.chunks)
			}
			sizes = append(sizes, n)
		}
		assert.Equal(t, tt.want, sizes, "split into %d parts", tt.parts)
	}
}
