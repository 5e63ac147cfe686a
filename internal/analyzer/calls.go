package analyzer

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// callKind enumerates the module API calls the JS analyzer understands.
type callKind int

const (
	callNone callKind = iota
	callLegacyDeclare
	callLegacyRequire
	callLegacyIsDeclared
	callLegacyRegisterPreloaded
	callDefine
	callAMDDefine
	callPredefine
	callRequire
	callAMDRequire
	callRequireSync
	callRequirePreload
	numCallKinds
)

type callShape struct {
	kind    callKind
	minArgs int
}

// globalAliases maps alternative names of a global to its canonical name.
var globalAliases = map[string]string{
	"$": "jQuery",
}

var callShapes = map[string]callShape{
	"jQuery.sap.declare":                  {callLegacyDeclare, 1},
	"jQuery.sap.require":                  {callLegacyRequire, 1},
	"jQuery.sap.isDeclared":               {callLegacyIsDeclared, 1},
	"jQuery.sap.registerPreloadedModules": {callLegacyRegisterPreloaded, 1},
	"sap.ui.define":                       {callDefine, 1},
	"define":                              {callAMDDefine, 1},
	"sap.ui.predefine":                    {callPredefine, 1},
	"sap.ui.require":                      {callRequire, 1},
	"require":                             {callAMDRequire, 1},
	"sap.ui.requireSync":                  {callRequireSync, 1},
	"sap.ui.require.preload":              {callRequirePreload, 1},
}

func init() {
	seen := make(map[callKind]bool, len(callShapes))
	for _, shape := range callShapes {
		seen[shape.kind] = true
	}
	for k := callNone + 1; k < numCallKinds; k++ {
		if !seen[k] {
			panic(fmt.Sprintf("analyzer: call kind %d has no call shape", k))
		}
	}
}

// classifyCall matches the callee of a call expression against the known
// call shapes.
func classifyCall(call *sitter.Node, src []byte) callKind {
	path, ok := memberPath(call.ChildByFieldName("function"), src)
	if !ok {
		return callNone
	}
	if alias, ok := globalAliases[path[0]]; ok {
		path[0] = alias
	}
	shape, ok := callShapes[strings.Join(path, ".")]
	if !ok {
		return callNone
	}
	if len(callArguments(call)) < shape.minArgs {
		return callNone
	}
	return shape.kind
}

// callArguments returns the argument expressions of a call. Tagged template
// calls have no argument list.
func callArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return nil
	}
	return namedChildren(args)
}
