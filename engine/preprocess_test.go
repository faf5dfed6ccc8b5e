package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessNoLiteralsPassesThrough(t *testing.T) {
	strs := []string{"<p>", "</p>"}
	values := []any{42}

	outStrs, outValues := Preprocess(strs, values)

	assert.Equal(t, strs, outStrs)
	assert.Equal(t, values, outValues)
}

func TestPreprocessSplicesLiterals(t *testing.T) {
	strs := []string{"<", " class=\"", "\">", "</p>"}
	values := []any{Lit("p"), "active", 42}

	outStrs, outValues := Preprocess(strs, values)

	assert.Equal(t, []string{"<p class=\"", "\">", "</p>"}, outStrs)
	assert.Equal(t, []any{"active", 42}, outValues)
}

func TestPreprocessAdjacentLiterals(t *testing.T) {
	strs := []string{"<", "", ">x</div>"}
	values := []any{Lit("div"), Lit(" hidden")}

	outStrs, outValues := Preprocess(strs, values)

	assert.Equal(t, []string{"<div hidden>x</div>"}, outStrs)
	assert.Empty(t, outValues)
}

func TestPreprocessCachesBySignature(t *testing.T) {
	strs := []string{"<", ">", "</x>"}

	out1, _ := Preprocess(strs, []any{Lit("a"), 1})
	out2, _ := Preprocess(strs, []any{Lit("a"), 2})
	out3, _ := Preprocess(strs, []any{Lit("b"), 1})

	require.Equal(t, out1, out2)
	assert.Same(t, &out1[0], &out2[0], "same literal signature reuses the same expanded array")
	assert.NotEqual(t, out1, out3, "a different literal content expands differently")
}
