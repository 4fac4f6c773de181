package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlainString(t *testing.T) {
	tok, significant, err := Parse("no references here")
	require.NoError(t, err)
	assert.False(t, significant)
	assert.Equal(t, literalToken("no references here"), tok)
}

func TestParseBareRef(t *testing.T) {
	tok, significant, err := Parse("${a.b.c}")
	require.NoError(t, err)
	assert.True(t, significant)
	assert.True(t, tok.isBareRef())
	assert.Equal(t, "${a.b.c}", tok.describe())
}

func TestParseEmbeddedRef(t *testing.T) {
	tok, significant, err := Parse("host is ${net.host}!")
	require.NoError(t, err)
	assert.True(t, significant)
	assert.False(t, tok.isBareRef())
	assert.Equal(t, "host is ${net.host}!", tok.describe())
}

func TestParseNestedRef(t *testing.T) {
	tok, _, err := Parse("${${env}.host}")
	require.NoError(t, err)
	assert.True(t, tok.isBareRef())
	assert.Equal(t, "${${env}.host}", tok.describe())
}

func TestParseEscapedRefIsLiteral(t *testing.T) {
	tok, significant, err := Parse(`\${not.a.ref}`)
	require.NoError(t, err)
	assert.True(t, significant, "the escape must be consumed")
	assert.Equal(t, literalToken("${not.a.ref}"), tok)
}

func TestParseDoubleEscapeKeepsRefLive(t *testing.T) {
	tok, significant, err := Parse(`\\${a}`)
	require.NoError(t, err)
	assert.True(t, significant)
	require.Equal(t, tokenCombined, tok.kind)
	require.Len(t, tok.parts, 2)
	assert.Equal(t, literalToken(`\`), tok.parts[0])
	assert.True(t, tok.parts[1].isBareRef())
}

func TestParseLoneBackslashKept(t *testing.T) {
	tok, significant, err := Parse(`C:\path\to`)
	require.NoError(t, err)
	assert.False(t, significant)
	assert.Equal(t, literalToken(`C:\path\to`), tok)
}

func TestParseFallback(t *testing.T) {
	tok, _, err := Parse("${a.b|default-value}")
	require.NoError(t, err)
	require.True(t, tok.isBareRef())
	assert.True(t, tok.hasFall)
	assert.Equal(t, "${a.b|default-value}", tok.describe())
}

func TestParseEmptyFallback(t *testing.T) {
	tok, _, err := Parse("${a.b|}")
	require.NoError(t, err)
	assert.True(t, tok.hasFall)
	assert.Empty(t, tok.fallback)
}

func TestParseUnclosedRef(t *testing.T) {
	_, _, err := Parse("prefix ${a.b")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "unclosed reference")
}

func TestParseUnclosedNestedRef(t *testing.T) {
	_, _, err := Parse("${a.${b}")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
