// Package modname converts between the naming schemes used for modules:
// dotted legacy names (sap.ui.core.Core), slash separated resource names
// (sap/ui/core/Core.js), require names without suffix (sap/ui/core/Core) and
// debug variants (sap/ui/core/Core-dbg.js).
package modname

import (
	"fmt"
	"strings"
)

const (
	jsSuffix  = ".js"
	dbgInfix  = "-dbg"
	jqueryDir = "sap.ui.thirdparty.jquery.jquery-"
)

// debugSuffixes lists the terminal suffixes that may carry a debug infix.
// Longer suffixes come first so that ".controller.js" wins over ".js".
var debugSuffixes = []string{
	".controller.js",
	".designtime.js",
	".fragment.js",
	".support.js",
	".view.js",
	".js",
	".css",
}

// InvalidNameError reports a name that cannot be converted.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Name, e.Reason)
}

// FromLegacyName converts a dotted legacy name to a resource name. Dots become
// slashes except for the jQuery compatibility modules, which keep their dots.
// An empty suffix defaults to ".js".
func FromLegacyName(name, suffix string) string {
	if suffix == "" {
		suffix = jsSuffix
	}
	switch {
	case strings.HasPrefix(name, jqueryDir):
		name = "sap/ui/thirdparty/jquery/jquery-" + name[len(jqueryDir):]
	case strings.HasPrefix(name, "jquery.sap."), strings.HasPrefix(name, "jquery-"):
	default:
		name = strings.ReplaceAll(name, ".", "/")
	}
	return name + suffix
}

// ToLegacyName converts a ".js" resource name back to its dotted legacy name.
func ToLegacyName(path string) (string, error) {
	if !strings.HasSuffix(path, jsSuffix) {
		return "", &InvalidNameError{Name: path, Reason: "not a JavaScript resource"}
	}
	name := strings.TrimSuffix(path, jsSuffix)
	switch {
	case strings.HasPrefix(name, "sap/ui/thirdparty/jquery/jquery-"):
		return jqueryDir + name[len("sap/ui/thirdparty/jquery/jquery-"):], nil
	case strings.HasPrefix(name, "jquery.sap."), strings.HasPrefix(name, "jquery-"):
		return name, nil
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

// FromRequireName appends the ".js" suffix to a require name.
func FromRequireName(name string) string {
	return name + jsSuffix
}

// ToRequireName strips the ".js" suffix from a resource name.
func ToRequireName(path string) (string, error) {
	if !strings.HasSuffix(path, jsSuffix) {
		return "", &InvalidNameError{Name: path, Reason: "not a JavaScript resource"}
	}
	return strings.TrimSuffix(path, jsSuffix), nil
}

// DebugVariantName returns the debug variant of name. It reports false when
// the suffix is not supported or name already is a debug variant.
func DebugVariantName(name string) (string, bool) {
	suffix := matchSuffix(name)
	if suffix == "" {
		return "", false
	}
	stem := strings.TrimSuffix(name, suffix)
	if strings.HasSuffix(stem, dbgInfix) {
		return "", false
	}
	return stem + dbgInfix + suffix, true
}

// CanonicalFromDebugVariant strips the debug infix from name. It reports
// false when name is not a debug variant of a supported suffix.
func CanonicalFromDebugVariant(name string) (string, bool) {
	suffix := matchSuffix(name)
	if suffix == "" {
		return "", false
	}
	stem := strings.TrimSuffix(name, suffix)
	if !strings.HasSuffix(stem, dbgInfix) {
		return "", false
	}
	return strings.TrimSuffix(stem, dbgInfix) + suffix, true
}

func matchSuffix(name string) string {
	for _, s := range debugSuffixes {
		if strings.HasSuffix(name, s) {
			return s
		}
	}
	return ""
}

// IsRelative reports whether spec contains a "." or ".." segment.
func IsRelative(spec string) bool {
	for _, seg := range strings.Split(spec, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// ResolveRelative resolves a require specifier against the resource name of
// the requesting module. Specifiers without "." or ".." segments are returned
// unchanged.
func ResolveRelative(base, spec string) (string, error) {
	if !IsRelative(spec) {
		return spec, nil
	}
	stack := strings.Split(base, "/")
	stack = stack[:len(stack)-1]
	for _, seg := range strings.Split(spec, "/") {
		switch {
		case seg == ".":
		case seg == "..":
			if len(stack) == 0 {
				return "", &InvalidNameError{Name: spec, Reason: fmt.Sprintf("cannot resolve against %q beyond the root", base)}
			}
			stack = stack[:len(stack)-1]
		case strings.HasPrefix(seg, "..."):
			return "", &InvalidNameError{Name: spec, Reason: fmt.Sprintf("illegal segment %q", seg)}
		default:
			stack = append(stack, seg)
		}
	}
	return strings.Join(stack, "/"), nil
}
