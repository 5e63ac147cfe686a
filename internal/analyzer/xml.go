package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamb/internal/modname"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

// Analyzer enriches a ModuleInfo from a resource.
type Analyzer interface {
	Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error
}

const (
	nsCore = "sap.ui.core"
	nsMVC  = "sap.ui.core.mvc"

	xmlViewModule = "sap/ui/core/mvc/XMLView.js"
)

var (
	controlNamespaceRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)
	requireValueRe     = regexp.MustCompile(`:\s*['"]([^'"]+)['"]`)
)

var viewSuffixes = map[string]string{
	"XML":  ".view.xml",
	"JS":   ".view.js",
	"JSON": ".view.json",
	"HTML": ".view.html",
}

// XMLAnalyzer finds the controls, controllers, fragments and required
// modules referenced by XML views, fragments and composite controls.
type XMLAnalyzer struct {
	logger *log.Logger
}

// NewXMLAnalyzer creates an XML analyzer. A nil logger discards output.
func NewXMLAnalyzer(logger *log.Logger) *XMLAnalyzer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &XMLAnalyzer{logger: logger}
}

func (a *XMLAnalyzer) Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error {
	src, err := res.Content(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", res.Name(), err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(src); err != nil {
		return &ParseError{Resource: res.Name(), Err: err}
	}
	root := doc.Root()
	if root == nil {
		return &ParseError{Resource: res.Name(), Err: errors.New("no root element")}
	}

	if strings.HasSuffix(res.Name(), ".view.xml") && root.NamespaceURI() == nsMVC && root.Tag == "View" {
		info.AddDependency(xmlViewModule, false)
		if controller := root.SelectAttrValue("controllerName", ""); controller != "" {
			info.AddDependency(modname.FromLegacyName(controller, ".controller.js"), false)
		}
		a.analyzeChildren(root, info)
		return nil
	}
	a.analyzeElement(root, info)
	return nil
}

func (a *XMLAnalyzer) analyzeChildren(el *etree.Element, info *moduleinfo.ModuleInfo) {
	a.analyzeRequire(el, info)
	for _, child := range el.ChildElements() {
		a.analyzeElement(child, info)
	}
}

func (a *XMLAnalyzer) analyzeElement(el *etree.Element, info *moduleinfo.ModuleInfo) {
	ns := el.NamespaceURI()
	if isControl(ns, el.Tag) {
		info.AddDependency(modname.FromLegacyName(ns+"."+el.Tag, ""), false)
		if ns == nsCore && el.Tag == "Fragment" {
			a.analyzeFragmentRef(el, info)
		}
	}
	a.analyzeChildren(el, info)
}

func (a *XMLAnalyzer) analyzeFragmentRef(el *etree.Element, info *moduleinfo.ModuleInfo) {
	name := el.SelectAttrValue("fragmentName", "")
	if name == "" {
		return
	}
	switch el.SelectAttrValue("type", "XML") {
	case "XML":
		info.AddDependency(modname.FromLegacyName(name, ".fragment.xml"), false)
	case "JS":
		info.AddDependency(modname.FromLegacyName(name, ".fragment.js"), false)
	default:
		a.logger.Debug("fragment type not analyzed", "fragment", name, "resource", info.Name)
	}
}

// analyzeRequire handles core:require="{Alias: 'module/name'}".
func (a *XMLAnalyzer) analyzeRequire(el *etree.Element, info *moduleinfo.ModuleInfo) {
	for _, attr := range el.Attr {
		if attr.Key != "require" || attr.NamespaceURI() != nsCore {
			continue
		}
		matches := requireValueRe.FindAllStringSubmatch(attr.Value, -1)
		if len(matches) == 0 {
			a.logger.Warn("core:require without module references", "value", attr.Value, "resource", info.Name)
		}
		for _, m := range matches {
			info.AddDependency(modname.FromRequireName(m[1]), false)
		}
	}
}

// isControl reports whether an element names a control class: a dotted
// namespace and an upper case tag. Aggregations use lower case tags.
func isControl(ns, tag string) bool {
	if ns == "" || tag == "" || !controlNamespaceRe.MatchString(ns) {
		return false
	}
	if ns == nsCore && tag == "FragmentDefinition" {
		return false
	}
	return unicode.IsUpper([]rune(tag)[0])
}
