package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// extractor pulls one attribute value out of a sample document. A rule
// whose configured value is a scalar literal (number, bool) yields that
// literal verbatim; a string value is compiled as a JSONPath expression.
// Compilation happens once, at registry construction, so an unparsable
// path is a configuration error and can never surface mid-batch.
type extractor struct {
	literal any
	eval    func(context.Context, any) (any, error)
}

// compilePath builds an extractor for one attribute rule value.
func compilePath(value any) (extractor, error) {
	switch v := value.(type) {
	case nil:
		return extractor{}, nil
	case string:
		if v == "" {
			return extractor{}, nil
		}
		expr := v
		// Configuration paths are usually written without the JSONPath
		// root selector; imply it for them.
		if !strings.HasPrefix(expr, "$") {
			expr = "$." + expr
		}
		eval, err := jsonpath.New(expr)
		if err != nil {
			return extractor{}, fmt.Errorf("parse error in path %q: %w", v, err)
		}
		return extractor{eval: eval}, nil
	default:
		return extractor{literal: v}, nil
	}
}

// extract returns the rule's value for the given sample document, or nil
// when the path matches nothing. Evaluation errors mean "no match": the
// library reports missing keys as errors rather than null results.
func (e extractor) extract(ctx context.Context, doc any) any {
	if e.literal != nil {
		return e.literal
	}
	if e.eval == nil {
		return nil
	}
	v, err := e.eval(ctx, doc)
	if err != nil {
		return nil
	}
	return firstValue(v)
}

// firstValue collapses a multi-match result (wildcard or recursive
// descent paths yield a slice) to its first non-null entry.
func firstValue(v any) any {
	matches, ok := v.([]any)
	if !ok {
		return v
	}
	for _, m := range matches {
		if m != nil {
			return m
		}
	}
	return nil
}
