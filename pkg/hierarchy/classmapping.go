package hierarchy

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one compiled class-mapping entry: a pattern matched against a
// node's name (or path) and the classes injected on a match.
//
// The textual form is "<pattern> <class> [<class>...]". A pattern wrapped
// in slashes is a regular expression whose capture groups may be
// referenced in the target classes as \1, \2, ...; anything else is a
// shell-style glob where "*" and "?" match any text, "[...]" matches a
// character set, and "\*" is a literal asterisk.
type Rule struct {
	pattern string
	re      *regexp.Regexp
	regex   bool
	targets []string
}

// ParseRule compiles one class-mapping line.
func ParseRule(line string) (*Rule, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("class mapping %q needs a pattern and at least one class", line)
	}
	r := &Rule{pattern: fields[0], targets: fields[1:]}

	var err error
	if p := r.pattern; len(p) > 1 && p[0] == '/' && p[len(p)-1] == '/' {
		r.regex = true
		r.re, err = regexp.Compile(p[1 : len(p)-1])
	} else {
		r.re, err = globRegexp(p)
	}
	if err != nil {
		return nil, fmt.Errorf("class mapping %q: %w", line, err)
	}
	return r, nil
}

// Pattern returns the rule's original pattern text.
func (r *Rule) Pattern() string { return r.pattern }

// Apply matches subject against the rule. On a match it returns the
// target classes, with regex capture backreferences expanded.
func (r *Rule) Apply(subject string) ([]string, bool) {
	if !r.regex {
		if !r.re.MatchString(subject) {
			return nil, false
		}
		return append([]string(nil), r.targets...), true
	}

	m := r.re.FindStringSubmatchIndex(subject)
	if m == nil {
		return nil, false
	}
	out := make([]string, len(r.targets))
	for i, tgt := range r.targets {
		out[i] = string(r.re.ExpandString(nil, backrefTemplate(tgt), subject, m))
	}
	return out, true
}

// RuleSet is an ordered list of class-mapping rules.
type RuleSet []*Rule

// ParseRules compiles a list of class-mapping lines, keeping their order.
func ParseRules(lines []string) (RuleSet, error) {
	rs := make(RuleSet, 0, len(lines))
	for _, line := range lines {
		r, err := ParseRule(line)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// Classes returns every class injected for subject, in rule order. All
// matching rules contribute; each class is injected at most once.
func (rs RuleSet) Classes(subject string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range rs {
		classes, ok := r.Apply(subject)
		if !ok {
			continue
		}
		for _, c := range classes {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// globRegexp translates a shell-style glob into an anchored regexp.
// Unlike path matching, "*" spans every character including separators.
func globRegexp(pat string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '\\':
			if i+1 < len(pat) {
				i++
				b.WriteString(regexp.QuoteMeta(string(pat[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteByte('.')
		case '[':
			end := strings.IndexByte(pat[i:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				break
			}
			b.WriteString(pat[i : i+end+1])
			i += end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// backrefTemplate rewrites "\N" backreferences into the ${N} form used by
// regexp.Expand, protecting any literal "$" in the target.
func backrefTemplate(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			b.WriteString("$$")
		case c == '\\' && i+1 < len(s) && s[i+1] == '\\':
			b.WriteByte('\\')
			i++
		case c == '\\' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${")
			b.WriteString(s[i+1 : j])
			b.WriteByte('}')
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
