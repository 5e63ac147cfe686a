package analyzer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// tree-sitter-javascript node types used by the analyzers.
const (
	nodeProgram             = "program"
	nodeComment             = "comment"
	nodeCall                = "call_expression"
	nodeMember              = "member_expression"
	nodeIdentifier          = "identifier"
	nodePropertyIdentifier  = "property_identifier"
	nodeString              = "string"
	nodeStringFragment      = "string_fragment"
	nodeEscapeSequence      = "escape_sequence"
	nodeTemplateString      = "template_string"
	nodeTemplateSubst       = "template_substitution"
	nodeNumber              = "number"
	nodeArray               = "array"
	nodeObject              = "object"
	nodePair                = "pair"
	nodeParenthesized       = "parenthesized_expression"
	nodeUnary               = "unary_expression"
	nodeBinary              = "binary_expression"
	nodeTernary             = "ternary_expression"
	nodeAugmentedAssignment = "augmented_assignment_expression"
	nodeIf                  = "if_statement"
	nodeFor                 = "for_statement"
	nodeForIn               = "for_in_statement"
	nodeWhile               = "while_statement"
	nodeDo                  = "do_statement"
	nodeTry                 = "try_statement"
	nodeSwitch              = "switch_statement"
	nodeExpressionStatement = "expression_statement"
	nodeVarDeclaration      = "variable_declaration"
	nodeLexicalDeclaration  = "lexical_declaration"
	nodeVariableDeclarator  = "variable_declarator"
	nodeFunctionDeclaration = "function_declaration"
	nodeGeneratorDecl       = "generator_function_declaration"
	nodeClassDeclaration    = "class_declaration"
	nodeClass               = "class"
	nodeError               = "ERROR"
)

// functionNodes are the node types that introduce a function body. Older
// grammar versions name function expressions "function".
var functionNodes = map[string]bool{
	"function":                       true,
	"function_expression":            true,
	"arrow_function":                 true,
	"generator_function":             true,
	"function_declaration":           true,
	"generator_function_declaration": true,
	"method_definition":              true,
	"class_static_block":             true,
	"field_definition":               true,
	"public_field_definition":        true,
}

func isFunction(n *sitter.Node) bool {
	return n != nil && functionNodes[n.Type()]
}

func isFunctionExpression(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "function", "function_expression", "arrow_function", "generator_function":
		return true
	}
	return false
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == nodeComment {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func unwrapParens(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == nodeParenthesized {
		inner := namedChildren(n)
		if len(inner) != 1 {
			return n
		}
		n = inner[0]
	}
	return n
}

func text(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

// stringValue returns the value of a string literal or of a template
// literal without substitutions.
func stringValue(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case nodeString:
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case nodeStringFragment:
				b.WriteString(text(c, src))
			case nodeEscapeSequence:
				b.WriteString(unescape(text(c, src)))
			}
		}
		return b.String(), true
	case nodeTemplateString:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == nodeTemplateSubst {
				return "", false
			}
		}
		raw := text(n, src)
		if len(raw) < 2 {
			return "", false
		}
		return unescapeAll(raw[1 : len(raw)-1]), true
	}
	return "", false
}

func unescapeAll(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		j := i + 2
		switch s[i+1] {
		case 'x':
			j = min(i+4, len(s))
		case 'u':
			if i+2 < len(s) && s[i+2] == '{' {
				if end := strings.IndexByte(s[i:], '}'); end > 0 {
					j = i + end + 1
				}
			} else {
				j = min(i+6, len(s))
			}
		}
		b.WriteString(unescape(s[i:j]))
		i = j - 1
	}
	return b.String()
}

// unescape decodes a single JavaScript escape sequence.
func unescape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	switch seq[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		return "\x00"
	case '\n', '\r':
		return ""
	case 'x', 'u':
		hex := strings.Trim(seq[2:], "{}")
		r, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(r)) {
			return seq
		}
		return string(rune(r))
	}
	return seq[1:]
}

// propertyKey returns the literal key of an object property.
func propertyKey(pair *sitter.Node, src []byte) (string, bool) {
	key := pair.ChildByFieldName("key")
	if key == nil {
		return "", false
	}
	switch key.Type() {
	case nodePropertyIdentifier, nodeIdentifier, nodeNumber:
		return text(key, src), true
	case nodeString:
		return stringValue(key, src)
	}
	return "", false
}

// pairs returns the key/value properties of an object literal.
func pairs(obj *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range namedChildren(obj) {
		if c.Type() == nodePair {
			out = append(out, c)
		}
	}
	return out
}

// memberPath flattens an identifier/property chain like jQuery.sap.declare.
func memberPath(n *sitter.Node, src []byte) ([]string, bool) {
	n = unwrapParens(n)
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case nodeIdentifier:
		return []string{text(n, src)}, true
	case nodeMember:
		obj, ok := memberPath(n.ChildByFieldName("object"), src)
		if !ok {
			return nil, false
		}
		prop := n.ChildByFieldName("property")
		if prop == nil || prop.Type() != nodePropertyIdentifier {
			return nil, false
		}
		return append(obj, text(prop, src)), true
	}
	return nil, false
}

// firstErrorNode returns the first syntax error or missing node below n.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == nodeError || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstErrorNode(n.Child(i)); e != nil {
			return e
		}
	}
	return n
}
