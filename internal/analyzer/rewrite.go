package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/frederic-klein/yamb/internal/modname"
)

var legalCommentRe = regexp.MustCompile(`(?i)copyright|\(c\)(?:[0-9]+|\s+[0-9A-Za-z])|released under|license|\x{00A9}`)

type edit struct {
	start, end uint32
	text       string
}

func applyEdits(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var out bytes.Buffer
	out.Grow(len(src) + 64)
	var pos uint32
	for _, e := range edits {
		out.Write(src[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(src[pos:])
	return out.Bytes()
}

// RewriteDefine turns the single top level sap.ui.define call of src into
// sap.ui.predefine, inserting name as module ID when the call omits it. The
// boolean result is false when src does not consist of exactly one such
// definition; src is returned unchanged in that case.
func RewriteDefine(ctx context.Context, src []byte, name string) ([]byte, bool, error) {
	tree, err := parseJS(ctx, src)
	if err != nil {
		return src, false, &ParseError{Resource: name, Err: err}
	}
	defer tree.Close()
	root := tree.RootNode()
	if root.HasError() {
		return src, false, nil
	}

	var define *sitter.Node
	for _, stmt := range namedChildren(root) {
		if stmt.Type() != nodeExpressionStatement {
			continue
		}
		call := unwrapParens(stmt.NamedChild(0))
		if call == nil || call.Type() != nodeCall || classifyCall(call, src) != callDefine {
			continue
		}
		if define != nil {
			return src, false, nil
		}
		define = call
	}
	if define == nil {
		return src, false, nil
	}

	callee := define.ChildByFieldName("function")
	edits := []edit{{start: callee.StartByte(), end: callee.EndByte(), text: "sap.ui.predefine"}}
	args := callArguments(define)
	if _, named := stringValue(unwrapParens(args[0]), src); !named {
		requireName, err := modname.ToRequireName(name)
		if err != nil {
			return src, false, err
		}
		at := define.ChildByFieldName("arguments").StartByte() + 1
		edits = append(edits, edit{start: at, end: at, text: QuoteString(requireName) + ", "})
	}
	return applyEdits(src, edits), true, nil
}

// MarkLegalComments converts comments carrying copyright or license notices
// into the /*! and //! forms that survive minification.
func MarkLegalComments(ctx context.Context, src []byte) ([]byte, error) {
	tree, err := parseJS(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var edits []edit
	walkComments(tree.RootNode(), func(c *sitter.Node) {
		body := text(c, src)
		if strings.HasPrefix(body, "/*!") || strings.HasPrefix(body, "//!") || !legalCommentRe.MatchString(body) {
			return
		}
		at := c.StartByte() + 2
		edits = append(edits, edit{start: at, end: at, text: "!"})
	})
	if len(edits) == 0 {
		return src, nil
	}
	return applyEdits(src, edits), nil
}

// QuoteString quotes s as a JavaScript string literal.
func QuoteString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
