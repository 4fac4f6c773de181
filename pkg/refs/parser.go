package refs

import (
	"fmt"
	"strings"
)

const (
	refOpen  = "${"
	refClose = '}'
	refAlt   = '|'
	escape   = '\\'
)

// ParseError reports a malformed reference expression.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing reference in %q at offset %d: %s", e.Input, e.Pos, e.Msg)
}

// HasRef is a cheap pre-filter: strings without the opening delimiter
// never need parsing.
func HasRef(s string) bool { return strings.Contains(s, refOpen) }

// Parse splits s into literal and reference fragments. The boolean result
// reports whether interpolation would change the string at all: it is true
// when s contains at least one live reference or escape sequence.
func Parse(s string) (Token, bool, error) {
	p := &parser{in: s}
	parts, stop, err := p.parseFragments(false)
	if err != nil {
		return Token{}, false, err
	}
	if stop != 0 {
		return Token{}, false, &ParseError{Input: s, Pos: p.pos, Msg: fmt.Sprintf("unexpected %q", stop)}
	}
	return assemble(parts), p.significant, nil
}

type parser struct {
	in          string
	pos         int
	significant bool
}

// parseFragments consumes fragments until the end of input or, when
// inRef is set, until an unescaped '}' or '|'. The stop byte consumed is
// returned so the caller can distinguish the two.
func (p *parser) parseFragments(inRef bool) ([]Token, byte, error) {
	var (
		parts []Token
		lit   strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, literalToken(lit.String()))
			lit.Reset()
		}
	}

	for p.pos < len(p.in) {
		c := p.in[p.pos]
		switch {
		case c == escape:
			rest := p.in[p.pos+1:]
			switch {
			case strings.HasPrefix(rest, refOpen):
				// "\${" is a literal opening delimiter.
				lit.WriteString(refOpen)
				p.pos += 1 + len(refOpen)
				p.significant = true
			case strings.HasPrefix(rest, string(escape)+refOpen):
				// "\\${" keeps one backslash and leaves the
				// reference live.
				lit.WriteByte(escape)
				p.pos += 2
				p.significant = true
			default:
				lit.WriteByte(c)
				p.pos++
			}
		case strings.HasPrefix(p.in[p.pos:], refOpen):
			flush()
			ref, err := p.parseRef()
			if err != nil {
				return nil, 0, err
			}
			parts = append(parts, ref)
			p.significant = true
		case inRef && (c == refClose || c == refAlt):
			flush()
			p.pos++
			return parts, c, nil
		default:
			lit.WriteByte(c)
			p.pos++
		}
	}

	if inRef {
		return nil, 0, &ParseError{Input: p.in, Pos: p.pos, Msg: "unclosed reference"}
	}
	flush()
	return parts, 0, nil
}

// parseRef consumes "${...}" starting at the opening delimiter. A '|' at
// the top level of the reference separates the path from a fallback used
// when the path does not exist.
func (p *parser) parseRef() (Token, error) {
	p.pos += len(refOpen)
	path, stop, err := p.parseFragments(true)
	if err != nil {
		return Token{}, err
	}
	if stop != refAlt {
		return refToken(path, nil, false), nil
	}
	fallback, err := p.parseFallback()
	if err != nil {
		return Token{}, err
	}
	return refToken(path, fallback, true), nil
}

// parseFallback consumes the fallback text up to the closing brace. A '|'
// inside a fallback is plain text.
func (p *parser) parseFallback() ([]Token, error) {
	var (
		parts []Token
		lit   strings.Builder
	)
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		switch {
		case c == escape && strings.HasPrefix(p.in[p.pos+1:], refOpen):
			lit.WriteString(refOpen)
			p.pos += 1 + len(refOpen)
		case strings.HasPrefix(p.in[p.pos:], refOpen):
			if lit.Len() > 0 {
				parts = append(parts, literalToken(lit.String()))
				lit.Reset()
			}
			ref, err := p.parseRef()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ref)
		case c == refClose:
			p.pos++
			if lit.Len() > 0 {
				parts = append(parts, literalToken(lit.String()))
			}
			return parts, nil
		default:
			lit.WriteByte(c)
			p.pos++
		}
	}
	return nil, &ParseError{Input: p.in, Pos: p.pos, Msg: "unclosed reference"}
}

// assemble collapses a fragment list into a single token.
func assemble(parts []Token) Token {
	switch len(parts) {
	case 0:
		return literalToken("")
	case 1:
		return parts[0]
	default:
		return combinedToken(parts)
	}
}
