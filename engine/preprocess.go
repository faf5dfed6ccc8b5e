package engine

import (
	"fmt"
	"strings"
	"sync"
)

// Literal marks a dynamic-template interpolated value for splicing
// directly into the adjacent static string chunks at compile time rather
// than becoming a part hole, used for values that must be decided before
// a template is parsed, like an attribute name or a tag name assembled at
// runtime.
type Literal struct{ Value string }

// Lit wraps s as a template-literal splice value.
func Lit(s string) Literal { return Literal{Value: s} }

// dynamicPreprocessCache memoizes the result of splicing literal values
// into a dynamic template call's strings array, keyed by the original
// array's identity and then by the positions+contents of its literal
// values: two calls at the same source site whose literal
// values match reuse the same expanded strings array (and so the same
// compiled Template) even if their non-literal values differ.
var dynamicPreprocessCache = struct {
	mu sync.Mutex
	m  map[uintptr]map[string][]string
}{m: make(map[uintptr]map[string][]string)}

// Preprocess is the dynamic-template preprocessor: it
// walks (strings, values), splicing every Literal value into the adjacent
// static chunks, and returns the expanded strings array alongside the
// remaining non-literal values in order. Calls with no Literal values are
// returned unchanged (the common case, handled without touching the
// cache).
func Preprocess(strings []string, values []any) ([]string, []any) {
	hasLiteral := false
	for _, v := range values {
		if _, ok := v.(Literal); ok {
			hasLiteral = true
			break
		}
	}
	if !hasLiteral {
		return strings, values
	}

	sig := literalSignature(values)
	key := identityOf(strings)

	dynamicPreprocessCache.mu.Lock()
	byKey, ok := dynamicPreprocessCache.m[key]
	if !ok {
		byKey = make(map[string][]string)
		dynamicPreprocessCache.m[key] = byKey
	}
	expanded, cached := byKey[sig]
	dynamicPreprocessCache.mu.Unlock()

	if !cached {
		expanded = spliceLiterals(strings, values)
		dynamicPreprocessCache.mu.Lock()
		byKey[sig] = expanded
		dynamicPreprocessCache.mu.Unlock()
	}

	return expanded, nonLiteralValues(values)
}

func spliceLiterals(strs []string, values []any) []string {
	expanded := make([]string, 0, len(strs))
	expanded = append(expanded, strs[0])
	for i, v := range values {
		if lit, ok := v.(Literal); ok {
			last := len(expanded) - 1
			expanded[last] = expanded[last] + lit.Value + strs[i+1]
			continue
		}
		expanded = append(expanded, strs[i+1])
	}
	return expanded
}

func nonLiteralValues(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if _, ok := v.(Literal); ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// literalSignature builds the cache sub-key: the index and content of
// every Literal value, in order. Non-literal values don't affect the
// signature since they never change which strings array results.
func literalSignature(values []any) string {
	var sb strings.Builder
	for i, v := range values {
		if lit, ok := v.(Literal); ok {
			fmt.Fprintf(&sb, "%d:%s|", i, lit.Value)
		}
	}
	return sb.String()
}
