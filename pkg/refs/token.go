package refs

import "strings"

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenRef
	tokenCombined
)

// Token is one parsed fragment of an interpolatable string. A literal
// token carries plain text, a reference token carries the fragments that
// form its path plus an optional fallback, and a combined token strings
// several fragments together.
type Token struct {
	kind     tokenKind
	text     string
	parts    []Token
	fallback []Token
	hasFall  bool
}

func literalToken(s string) Token {
	return Token{kind: tokenLiteral, text: s}
}

func refToken(parts []Token, fallback []Token, hasFallback bool) Token {
	return Token{kind: tokenRef, parts: parts, fallback: fallback, hasFall: hasFallback}
}

func combinedToken(parts []Token) Token {
	return Token{kind: tokenCombined, parts: parts}
}

// isBareRef reports whether the token is a single reference covering the
// whole input, which is the case where the referenced value keeps its type.
func (t Token) isBareRef() bool { return t.kind == tokenRef }

// describe renders the token back into reference syntax for error
// messages.
func (t Token) describe() string {
	var b strings.Builder
	t.writeDescription(&b)
	return b.String()
}

func (t Token) writeDescription(b *strings.Builder) {
	switch t.kind {
	case tokenLiteral:
		b.WriteString(t.text)
	case tokenRef:
		b.WriteString("${")
		for _, p := range t.parts {
			p.writeDescription(b)
		}
		if t.hasFall {
			b.WriteByte('|')
			for _, p := range t.fallback {
				p.writeDescription(b)
			}
		}
		b.WriteByte('}')
	case tokenCombined:
		for _, p := range t.parts {
			p.writeDescription(b)
		}
	}
}
