package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// collectGlobals returns the names a script binds in the global scope:
// var declarations outside of functions, plus top level lexical, function
// and class declarations.
func collectGlobals(root *sitter.Node, src []byte) []string {
	g := &globals{src: src, seen: make(map[string]bool)}
	for _, stmt := range namedChildren(root) {
		switch stmt.Type() {
		case nodeLexicalDeclaration:
			g.declarators(stmt)
		case nodeFunctionDeclaration, nodeGeneratorDecl, nodeClassDeclaration:
			if name := stmt.ChildByFieldName("name"); name != nil {
				g.add(text(name, src))
			}
			continue
		}
		g.hoisted(stmt)
	}
	return g.names
}

type globals struct {
	src   []byte
	seen  map[string]bool
	names []string
}

func (g *globals) add(name string) {
	if name == "" || g.seen[name] {
		return
	}
	g.seen[name] = true
	g.names = append(g.names, name)
}

// hoisted finds var declarations below n that are not nested in a function.
func (g *globals) hoisted(n *sitter.Node) {
	if isFunction(n) || n.Type() == nodeClass || n.Type() == nodeClassDeclaration {
		return
	}
	switch n.Type() {
	case nodeVarDeclaration:
		g.declarators(n)
	case nodeForIn:
		if kind := n.ChildByFieldName("kind"); kind != nil && text(kind, g.src) == "var" {
			g.pattern(n.ChildByFieldName("left"))
		}
	}
	for _, c := range namedChildren(n) {
		g.hoisted(c)
	}
}

func (g *globals) declarators(decl *sitter.Node) {
	for _, d := range namedChildren(decl) {
		if d.Type() == nodeVariableDeclarator {
			g.pattern(d.ChildByFieldName("name"))
		}
	}
}

// pattern adds the identifiers bound by a binding pattern.
func (g *globals) pattern(p *sitter.Node) {
	if p == nil {
		return
	}
	switch p.Type() {
	case nodeIdentifier, "shorthand_property_identifier_pattern":
		g.add(text(p, g.src))
	case "object_pattern", "array_pattern", "rest_pattern":
		for _, c := range namedChildren(p) {
			g.pattern(c)
		}
	case "pair_pattern":
		g.pattern(p.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		g.pattern(p.ChildByFieldName("left"))
	}
}
