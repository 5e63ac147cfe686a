package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/frederic-klein/yamb/internal/analyzer"
	"github.com/frederic-klein/yamb/internal/bundle"
)

// MinifyError reports JavaScript esbuild could not minify.
type MinifyError struct {
	Resource string
	Messages []string
}

func (e *MinifyError) Error() string {
	return fmt.Sprintf("minifying %s: %s", e.Resource, strings.Join(e.Messages, "; "))
}

// process prepares module code for embedding and returns its source map
// when one was requested. Code that cannot be minified is kept as is.
func (b *Builder) process(ctx context.Context, name, src string, opts bundle.Options) (string, json.RawMessage) {
	code := strings.TrimRight(src, "\n")
	if opts.Optimize {
		minified, sm, err := minify(ctx, name, code, opts.SourceMap)
		if err == nil {
			return minified, sm
		}
		b.logger.Warn("module kept unminified", "resource", name, "err", err)
	}
	if !opts.SourceMap {
		return code, nil
	}
	return code, identityMap(name, code)
}

func minify(ctx context.Context, name, src string, withMap bool) (string, json.RawMessage, error) {
	marked, err := analyzer.MarkLegalComments(ctx, []byte(src))
	if err != nil {
		return "", nil, err
	}
	opts := api.TransformOptions{
		Loader:            api.LoaderJS,
		Sourcefile:        name,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsInline,
	}
	if withMap {
		opts.Sourcemap = api.SourceMapExternal
	}
	result := api.Transform(string(marked), opts)
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, m := range result.Errors {
			msgs[i] = m.Text
		}
		return "", nil, &MinifyError{Resource: name, Messages: msgs}
	}
	var sm json.RawMessage
	if withMap {
		sm = json.RawMessage(result.Map)
	}
	return strings.TrimRight(string(result.Code), "\n"), sm, nil
}
