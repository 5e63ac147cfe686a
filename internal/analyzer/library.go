package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamb/internal/modname"
	"github.com/frederic-klein/yamb/internal/moduleinfo"
	"github.com/frederic-klein/yamb/internal/resource"
)

// LibraryAnalyzer reads the dependencies declared in a .library descriptor.
// Lazy library dependencies become conditional.
type LibraryAnalyzer struct {
	logger *log.Logger
}

// NewLibraryAnalyzer creates a .library analyzer. A nil logger discards output.
func NewLibraryAnalyzer(logger *log.Logger) *LibraryAnalyzer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LibraryAnalyzer{logger: logger}
}

func (a *LibraryAnalyzer) Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error {
	src, err := res.Content(ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", res.Name(), err)
	}
	deps, err := libraryDependencies(src)
	if err != nil {
		return &ParseError{Resource: res.Name(), Err: err}
	}
	for _, d := range deps {
		info.AddDependency(modname.FromLegacyName(d.name+".library", ""), d.lazy)
	}
	return nil
}

type libraryDependency struct {
	name string
	lazy bool
}

func libraryDependencies(src []byte) ([]libraryDependency, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(src); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "library" {
		return nil, errors.New("missing library root element")
	}
	var deps []libraryDependency
	for _, el := range root.FindElements("./dependencies/dependency") {
		name := el.FindElement("libraryName")
		if name == nil || strings.TrimSpace(name.Text()) == "" {
			continue
		}
		lazy := false
		if l := el.FindElement("lazy"); l != nil {
			lazy = strings.TrimSpace(l.Text()) == "true"
		}
		deps = append(deps, libraryDependency{name: strings.TrimSpace(name.Text()), lazy: lazy})
	}
	return deps, nil
}

// LibraryJSAnalyzer adds the dependencies of the sibling .library
// descriptor to a library.js module.
type LibraryJSAnalyzer struct {
	resources resource.Collection
	logger    *log.Logger
}

// NewLibraryJSAnalyzer creates a library.js analyzer that reads descriptors
// from resources.
func NewLibraryJSAnalyzer(resources resource.Collection, logger *log.Logger) *LibraryJSAnalyzer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LibraryJSAnalyzer{resources: resources, logger: logger}
}

func (a *LibraryJSAnalyzer) Analyze(ctx context.Context, res resource.Resource, info *moduleinfo.ModuleInfo) error {
	descriptorName := path.Join(path.Dir(res.Name()), ".library")
	descriptor, err := a.resources.Lookup(descriptorName)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			a.logger.Debug("no library descriptor", "resource", res.Name())
			return nil
		}
		return err
	}
	return NewLibraryAnalyzer(a.logger).Analyze(ctx, descriptor, info)
}
