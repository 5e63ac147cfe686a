package modname

import (
	"errors"
	"testing"
)

func TestFromLegacyName(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		want   string
	}{
		{"sap.ui.core.Core", "", "sap/ui/core/Core.js"},
		{"sap.m.Button", ".js", "sap/m/Button.js"},
		{"sap.m.messagebundle", ".properties", "sap/m/messagebundle.properties"},
		{"jquery.sap.global", "", "jquery.sap.global.js"},
		{"jquery-ui-core", "", "jquery-ui-core.js"},
		{"sap.ui.thirdparty.jquery.jquery-1.11.1", "", "sap/ui/thirdparty/jquery/jquery-1.11.1.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromLegacyName(tt.name, tt.suffix)
			if got != tt.want {
				t.Errorf("FromLegacyName(%q, %q) = %q, want %q", tt.name, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestToLegacyName(t *testing.T) {
	got, err := ToLegacyName("jquery.sap.global.js")
	if err != nil || got != "jquery.sap.global" {
		t.Errorf("ToLegacyName(jquery.sap.global.js) = %q, %v", got, err)
	}

	_, err = ToLegacyName("sap/m/library.properties")
	var invalid *InvalidNameError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidNameError, got %v", err)
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	for _, name := range []string{"sap.ui.testmodule", "a", "my.app.controller.Main", "sap.ui.core.mvc.XMLView"} {
		got, err := ToLegacyName(FromLegacyName(name, ""))
		if err != nil {
			t.Fatalf("round trip %q: %v", name, err)
		}
		if got != name {
			t.Errorf("round trip %q = %q", name, got)
		}
	}
}

func TestRequireRoundTrip(t *testing.T) {
	for _, path := range []string{"sap/m/Button.js", "a.js", "jquery.sap.global.js"} {
		req, err := ToRequireName(path)
		if err != nil {
			t.Fatalf("ToRequireName(%q): %v", path, err)
		}
		if got := FromRequireName(req); got != path {
			t.Errorf("FromRequireName(ToRequireName(%q)) = %q", path, got)
		}
	}
	if _, err := ToRequireName("sap/m/style.css"); err == nil {
		t.Error("expected error for non-JS path")
	}
}

func TestDebugVariantName(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"sap/m/Button.js", "sap/m/Button-dbg.js", true},
		{"my/Main.controller.js", "my/Main-dbg.controller.js", true},
		{"my/Main.view.js", "my/Main-dbg.view.js", true},
		{"my/Main.fragment.js", "my/Main-dbg.fragment.js", true},
		{"my/theme.css", "my/theme-dbg.css", true},
		{"sap/m/Button-dbg.js", "", false},
		{"my/Main.view.xml", "", false},
		{"my/i18n.properties", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DebugVariantName(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("DebugVariantName(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDebugVariantIdempotence(t *testing.T) {
	for _, name := range []string{"a/b.js", "a/b.controller.js", "a/b.designtime.js", "a/b.support.js", "a/b.view.js", "a/b.fragment.js", "a/b.css"} {
		dbg, ok := DebugVariantName(name)
		if !ok {
			t.Fatalf("DebugVariantName(%q) not supported", name)
		}
		got, ok := CanonicalFromDebugVariant(dbg)
		if !ok || got != name {
			t.Errorf("CanonicalFromDebugVariant(%q) = %q, %v, want %q", dbg, got, ok, name)
		}
	}

	if got, ok := CanonicalFromDebugVariant("a/b.js"); ok || got != "" {
		t.Errorf("CanonicalFromDebugVariant(a/b.js) = %q, %v", got, ok)
	}
	if got, ok := CanonicalFromDebugVariant("a/b-dbg.xml"); ok || got != "" {
		t.Errorf("CanonicalFromDebugVariant(a/b-dbg.xml) = %q, %v", got, ok)
	}
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		base    string
		spec    string
		want    string
		wantErr bool
	}{
		{"a/b/c.js", "./d", "a/b/d", false},
		{"a/b/c.js", "../d", "a/d", false},
		{"a/b/c.js", "../../d/e", "d/e", false},
		{"a/b/c.js", "x/y", "x/y", false},
		{"a/b/c.js", "x/./y", "a/b/x/y", false},
		{"a/b/c.js", "../../../d", "", true},
		{"a/b/c.js", "./.../d", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ResolveRelative(tt.base, tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveRelative(%q, %q) error = %v, wantErr %v", tt.base, tt.spec, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveRelative(%q, %q) = %q, want %q", tt.base, tt.spec, got, tt.want)
			}
		})
	}
}
