// Package analyzer derives module information from resources. The JS
// analyzer walks a tree-sitter syntax tree and tracks whether code runs
// unconditionally when the file is executed; the format specific analyzers
// handle XML views, fragments, library descriptors and components.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/frederic-klein/yamb/internal/modname"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

const (
	// LegacyBootstrapModule is implicitly required by modules using the
	// legacy declare API.
	LegacyBootstrapModule = "jquery.sap.global.js"
	// LoaderAutoconfigModule is implicitly required by modules using
	// sap.ui.define and friends.
	LoaderAutoconfigModule = "ui5loader-autoconfig.js"
)

var reservedAMDNames = map[string]bool{
	"require": true,
	"exports": true,
	"module":  true,
}

var (
	bundleHeaderRe     = regexp.MustCompile(`^//@ui5-bundle(-raw-include)?\s+(\S+)`)
	preloadV2Threshold = mustConstraint(">= 2.0")
)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// JSAnalyzer derives module information from JavaScript sources.
type JSAnalyzer struct {
	logger *log.Logger
}

// NewJSAnalyzer creates a JS analyzer. A nil logger discards output.
func NewJSAnalyzer(logger *log.Logger) *JSAnalyzer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &JSAnalyzer{logger: logger}
}

// Analyze reads res and enriches info.
func (a *JSAnalyzer) Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error {
	src, err := res.Content(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", res.Name(), err)
	}
	return a.AnalyzeSource(ctx, src, res.Name(), info)
}

// AnalyzeSource analyzes src. defaultName is the module name derived from
// the resource path; it becomes the module name unless the source declares
// a different main module.
func (a *JSAnalyzer) AnalyzeSource(ctx context.Context, src []byte, defaultName string, info *moduleinfo.ModuleInfo) error {
	tree, err := parseJS(ctx, src)
	if err != nil {
		return &ParseError{Resource: defaultName, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstErrorNode(root); bad != nil {
		p := bad.StartPoint()
		return &ParseError{Resource: defaultName, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
	}

	v := &jsVisitor{
		src:         src,
		info:        info,
		defaultName: defaultName,
		logger:      a.logger,
	}
	if err := v.visit(root, false); err != nil {
		return err
	}
	v.finish(root)
	return nil
}

func parseJS(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return parser.ParseCtx(ctx, nil, src)
}

// jsVisitor is the state of one analysis pass.
type jsVisitor struct {
	src         []byte
	info        *moduleinfo.ModuleInfo
	defaultName string
	logger      *log.Logger

	declarations   int
	registrations  int
	unnamedDefines int
	mainFound      bool
	candidate      string
}

func (v *jsVisitor) visit(n *sitter.Node, conditional bool) error {
	if n == nil {
		return nil
	}
	switch t := n.Type(); {
	case t == nodeComment:
		return nil
	case t == nodeCall:
		return v.visitCall(n, conditional)
	case isFunction(n):
		return v.visitChildren(n, true)
	case t == nodeIf:
		return v.visitIf(n, conditional)
	case t == nodeFor, t == nodeForIn, t == nodeWhile:
		return v.visitLoop(n, conditional)
	case t == nodeDo:
		return v.visitChildren(n, true)
	case t == nodeTry:
		return v.visitFields(n, conditional, map[string]bool{"handler": true})
	case t == nodeSwitch:
		return v.visitFields(n, conditional, map[string]bool{"body": true})
	case t == nodeTernary:
		return v.visitFields(n, conditional, map[string]bool{"consequence": true, "alternative": true})
	case t == nodeBinary, t == nodeAugmentedAssignment:
		if isShortCircuit(n) {
			return v.visitFields(n, conditional, map[string]bool{"right": true})
		}
	}
	return v.visitChildren(n, conditional)
}

func (v *jsVisitor) visitChildren(n *sitter.Node, conditional bool) error {
	return v.visitNodes(namedChildren(n), conditional)
}

func (v *jsVisitor) visitNodes(nodes []*sitter.Node, conditional bool) error {
	for _, c := range nodes {
		if err := v.visit(c, conditional); err != nil {
			return err
		}
	}
	return nil
}

// visitFields visits the children of n, forcing the named fields into
// conditional context.
func (v *jsVisitor) visitFields(n *sitter.Node, conditional bool, forced map[string]bool) error {
	var forcedNodes []*sitter.Node
	for field := range forced {
		if f := n.ChildByFieldName(field); f != nil {
			forcedNodes = append(forcedNodes, f)
		}
	}
	for _, c := range namedChildren(n) {
		cond := conditional
		for _, f := range forcedNodes {
			if sameNode(c, f) {
				cond = true
			}
		}
		if err := v.visit(c, cond); err != nil {
			return err
		}
	}
	return nil
}

func isShortCircuit(n *sitter.Node) bool {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return false
	}
	switch op.Type() {
	case "&&", "||", "??", "&&=", "||=", "??=":
		return true
	}
	return false
}

func (v *jsVisitor) visitIf(n *sitter.Node, conditional bool) error {
	test := n.ChildByFieldName("condition")
	consequence := n.ChildByFieldName("consequence")
	alternative := n.ChildByFieldName("alternative")

	// if (!jQuery.sap.isDeclared(...)) guards merged files: the guarded
	// branch runs whenever the enclosing code runs.
	if v.isNotDeclaredGuard(test) {
		if err := v.visit(consequence, conditional); err != nil {
			return err
		}
		return v.visit(alternative, true)
	}
	if err := v.visit(test, conditional); err != nil {
		return err
	}
	if err := v.visit(consequence, true); err != nil {
		return err
	}
	return v.visit(alternative, true)
}

func (v *jsVisitor) isNotDeclaredGuard(test *sitter.Node) bool {
	n := unwrapParens(test)
	if n == nil || n.Type() != nodeUnary {
		return false
	}
	op := n.ChildByFieldName("operator")
	if op == nil || op.Type() != "!" {
		return false
	}
	arg := unwrapParens(n.ChildByFieldName("argument"))
	return arg != nil && arg.Type() == nodeCall && classifyCall(arg, v.src) == callLegacyIsDeclared
}

func (v *jsVisitor) visitLoop(n *sitter.Node, conditional bool) error {
	return v.visitFields(n, conditional, map[string]bool{"body": true, "increment": true})
}

func (v *jsVisitor) visitCall(n *sitter.Node, conditional bool) error {
	args := callArguments(n)
	switch classifyCall(n, v.src) {
	case callLegacyDeclare:
		v.info.SetFormat(moduleinfo.FormatLegacy)
		if conditional {
			v.onConditionalDeclare(args)
			return nil
		}
		v.declarations++
		return v.onDeclare(args)

	case callDefine:
		v.info.SetFormat(moduleinfo.FormatDefine)
		return v.onDefine(args, conditional)

	case callAMDDefine:
		v.info.SetFormat(moduleinfo.FormatAMD)
		return v.onDefine(args, conditional)

	case callPredefine:
		v.info.SetFormat(moduleinfo.FormatDefine)
		return v.onPredefine(args, conditional)

	case callRequire:
		v.info.SetFormat(moduleinfo.FormatDefine)
		return v.onAsyncRequire(args, conditional)

	case callAMDRequire:
		v.info.SetFormat(moduleinfo.FormatAMD)
		return v.onAsyncRequire(args, conditional)

	case callRequireSync:
		v.info.SetFormat(moduleinfo.FormatDefine)
		return v.onSyncRequire(args, conditional)

	case callLegacyRequire:
		v.info.SetFormat(moduleinfo.FormatLegacy)
		return v.onLegacyRequire(args, conditional)

	case callLegacyRegisterPreloaded:
		v.info.SetFormat(moduleinfo.FormatLegacy)
		v.onRegisterPreloaded(args[0], false)
		return v.visitNodes(args, conditional)

	case callRequirePreload:
		v.info.SetFormat(moduleinfo.FormatDefine)
		v.onRegisterPreloaded(args[0], true)
		return v.visitNodes(args, conditional)
	}
	return v.visitPlainCall(n, conditional)
}

// visitPlainCall handles calls that are not module APIs. Immediately invoked
// function expressions run synchronously, so their body keeps the current
// context.
func (v *jsVisitor) visitPlainCall(n *sitter.Node, conditional bool) error {
	callee := unwrapParens(n.ChildByFieldName("function"))
	fn := callee
	if callee != nil && callee.Type() == nodeMember {
		prop := callee.ChildByFieldName("property")
		if prop != nil && (text(prop, v.src) == "call" || text(prop, v.src) == "apply") {
			fn = unwrapParens(callee.ChildByFieldName("object"))
		}
	}
	if isFunctionExpression(fn) {
		if err := v.visitChildren(fn, conditional); err != nil {
			return err
		}
		return v.visitNodes(callArguments(n), conditional)
	}
	return v.visitChildren(n, conditional)
}

func (v *jsVisitor) onDeclare(args []*sitter.Node) error {
	name, ok := stringValue(unwrapParens(args[0]), v.src)
	if !ok {
		v.logger.Error("jQuery.sap.declare: module name could not be determined from first argument",
			"resource", v.defaultName, "line", line(args[0]))
		return nil
	}
	module := modname.FromLegacyName(name, "")
	switch {
	case v.declarations == 1 && !v.mainFound:
		return v.setMainModule(module)
	case v.declarations > 1 && module == v.info.Name:
		v.logger.Warn("duplicate declaration of module name", "module", module, "resource", v.defaultName, "line", line(args[0]))
	default:
		v.info.AddSubModule(module)
	}
	return nil
}

func (v *jsVisitor) onConditionalDeclare(args []*sitter.Node) {
	name, ok := stringValue(unwrapParens(args[0]), v.src)
	if !ok {
		return
	}
	if module := modname.FromLegacyName(name, ""); module != v.info.Name {
		v.info.AddSubModule(module)
	}
}

func (v *jsVisitor) onDefine(args []*sitter.Node, conditional bool) error {
	if !conditional {
		v.declarations++
	}
	i := 0
	var name string
	if s, ok := stringValue(unwrapParens(args[0]), v.src); ok {
		name = modname.FromRequireName(s)
		i++
		if !conditional && name == v.defaultName {
			if err := v.setMainModule(name); err != nil {
				return err
			}
		} else {
			v.info.AddSubModule(name)
			if !conditional {
				v.candidate = name
			}
		}
	}

	if name == "" {
		if conditional {
			v.logger.Warn("unnamed module definition in conditional code", "resource", v.defaultName, "line", line(args[0]))
			name = v.defaultName
		} else {
			v.unnamedDefines++
			if v.unnamedDefines > 1 {
				return &ConflictingDeclarationError{
					Resource: v.defaultName,
					Message:  "if multiple modules are contained in a file, only one of them may omit the module ID",
				}
			}
			if v.defaultName == "" {
				return &ConflictingDeclarationError{Message: "unnamed module found, but no default name given"}
			}
			name = v.defaultName
			if err := v.setMainModule(name); err != nil {
				return err
			}
		}
	}

	if i < len(args) {
		if arr := unwrapParens(args[i]); arr.Type() == nodeArray {
			v.addDependencyArray(arr, name, conditional)
			i++
		}
	}

	// The factory of a definition runs as soon as its dependencies are
	// available, i.e. in the context of the define call itself.
	for ; i < len(args); i++ {
		a := unwrapParens(args[i])
		if isFunctionExpression(a) {
			if err := v.visitChildren(a, conditional); err != nil {
				return err
			}
			continue
		}
		if err := v.visit(a, conditional); err != nil {
			return err
		}
	}
	return nil
}

func (v *jsVisitor) onPredefine(args []*sitter.Node, conditional bool) error {
	s, ok := stringValue(unwrapParens(args[0]), v.src)
	if !ok {
		v.logger.Warn("sap.ui.predefine call is missing a module name (ignored)", "resource", v.defaultName, "line", line(args[0]))
		return v.visitNodes(args, conditional)
	}
	name := modname.FromRequireName(s)
	v.info.AddSubModule(name)
	v.registrations++

	rest := args[1:]
	if len(rest) > 0 {
		if arr := unwrapParens(rest[0]); arr.Type() == nodeArray {
			v.addDependencyArray(arr, name, conditional)
			rest = rest[1:]
		}
	}
	return v.visitNodes(rest, conditional)
}

func (v *jsVisitor) onAsyncRequire(args []*sitter.Node, conditional bool) error {
	first := unwrapParens(args[0])
	switch {
	case first.Type() == nodeArray:
		v.addDependencyArray(first, v.info.Name, conditional)
	case isStringLiteral(first):
		// probing call, returns the module only if it is already loaded
	default:
		v.markDynamic(first)
		if err := v.visit(first, conditional); err != nil {
			return err
		}
	}
	return v.visitNodes(args[1:], conditional)
}

func (v *jsVisitor) onSyncRequire(args []*sitter.Node, conditional bool) error {
	first := unwrapParens(args[0])
	if s, ok := stringValue(first, v.src); ok {
		v.addDependency(v.info.Name, s, conditional)
	} else {
		v.markDynamic(first)
	}
	return v.visitNodes(args, conditional)
}

func (v *jsVisitor) onLegacyRequire(args []*sitter.Node, conditional bool) error {
	for _, a := range args {
		if s, ok := stringValue(unwrapParens(a), v.src); ok {
			v.info.AddDependency(modname.FromLegacyName(s, ""), conditional)
			continue
		}
		v.markDynamic(a)
		if err := v.visit(a, conditional); err != nil {
			return err
		}
	}
	return nil
}

// onRegisterPreloaded records the keys of a preload registration as
// submodules. The legacy API uses dotted names unless the registration
// declares version 2.0 or higher; the newer API always uses resource names.
func (v *jsVisitor) onRegisterPreloaded(arg *sitter.Node, resourceNames bool) {
	obj := unwrapParens(arg)
	if obj.Type() != nodeObject {
		v.logger.Warn("preload registration without object literal", "resource", v.defaultName, "line", line(arg))
		return
	}
	modules := obj
	legacyNames := false
	if !resourceNames {
		legacyNames = true
		modules = nil
		for _, p := range pairs(obj) {
			key, _ := propertyKey(p, v.src)
			value := unwrapParens(p.ChildByFieldName("value"))
			switch key {
			case "version":
				if v.versionAtLeast2(value) {
					legacyNames = false
				}
			case "modules":
				if value != nil && value.Type() == nodeObject {
					modules = value
				}
			}
		}
		if modules == nil {
			v.logger.Warn("preload registration without modules", "resource", v.defaultName, "line", line(arg))
			return
		}
	}
	v.registrations++
	for _, p := range pairs(modules) {
		key, ok := propertyKey(p, v.src)
		if !ok {
			continue
		}
		if legacyNames {
			key = modname.FromLegacyName(key, "")
		}
		v.info.AddSubModule(key)
	}
}

func (v *jsVisitor) versionAtLeast2(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	raw, ok := stringValue(n, v.src)
	if !ok && n.Type() == nodeNumber {
		raw, ok = text(n, v.src), true
	}
	if !ok {
		return false
	}
	ver, err := semver.NewVersion(raw)
	if err != nil {
		v.logger.Warn("invalid preload version", "version", raw, "resource", v.defaultName)
		return false
	}
	return preloadV2Threshold.Check(ver)
}

func (v *jsVisitor) addDependencyArray(arr *sitter.Node, base string, conditional bool) {
	for _, el := range namedChildren(arr) {
		s, ok := stringValue(el, v.src)
		if !ok {
			v.markDynamic(el)
			continue
		}
		if reservedAMDNames[s] {
			continue
		}
		v.addDependency(base, s, conditional)
	}
}

func (v *jsVisitor) addDependency(base, spec string, conditional bool) {
	resolved, err := modname.ResolveRelative(base, spec)
	if err != nil {
		v.logger.Warn("cannot resolve dependency", "dependency", spec, "resource", v.defaultName, "err", err)
		return
	}
	v.info.AddDependency(modname.FromRequireName(resolved), conditional)
}

func (v *jsVisitor) markDynamic(n *sitter.Node) {
	v.info.DynamicDependencies = true
	v.logger.Warn("dependency could not be determined statically", "resource", v.defaultName, "line", line(n))
}

func (v *jsVisitor) setMainModule(name string) error {
	if v.mainFound {
		return &ConflictingDeclarationError{
			Resource: v.defaultName,
			Message:  "conflicting main modules found (unnamed + named)",
		}
	}
	v.mainFound = true
	v.info.SetName(name)
	return nil
}

// finish runs the post-pass: main module fallback, bundle header comments,
// implicit bootstrap dependencies and the global scope.
func (v *jsVisitor) finish(root *sitter.Node) {
	if !v.mainFound {
		if v.candidate != "" && v.declarations == 1 {
			v.info.RemoveSubModule(v.candidate)
			v.info.SetName(v.candidate)
			v.mainFound = true
		} else {
			v.info.SetName(v.defaultName)
		}
	}

	v.applyBundleComments(root)

	switch v.info.Format {
	case moduleinfo.FormatLegacy:
		v.info.AddImplicitDependency(LegacyBootstrapModule)
	case moduleinfo.FormatDefine:
		v.info.AddImplicitDependency(LoaderAutoconfigModule)
	}

	globals := collectGlobals(root, v.src)
	v.info.ExposedGlobals = globals
	v.info.RequiresTopLevelScope = len(globals) > 0
	// predefine and preload registrations make a file a bundle, not raw code
	v.info.RawModule = v.declarations == 0 && v.registrations == 0
}

func (v *jsVisitor) applyBundleComments(root *sitter.Node) {
	var bundleName string
	walkComments(root, func(c *sitter.Node) {
		m := bundleHeaderRe.FindStringSubmatch(text(c, v.src))
		if m == nil {
			return
		}
		if m[1] != "" {
			v.info.AddSubModule(m[2])
		} else if bundleName == "" {
			bundleName = m[2]
		}
	})
	if bundleName == "" || bundleName == v.info.Name {
		return
	}
	if v.mainFound {
		v.info.AddSubModule(v.info.Name)
	}
	v.info.RemoveSubModule(bundleName)
	v.info.SetName(bundleName)
}

func walkComments(n *sitter.Node, fn func(*sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == nodeComment {
			fn(c)
			continue
		}
		walkComments(c, fn)
	}
}

func isStringLiteral(n *sitter.Node) bool {
	return n != nil && (n.Type() == nodeString || n.Type() == nodeTemplateString)
}

func line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}
