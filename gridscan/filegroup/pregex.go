package filegroup

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/batchatco/go-thrower"
	pkgerrors "github.com/pkg/errors"
)

// elementRegex holds the default regex of every filename element.
var elementRegex = map[string]string{
	"idx":   `\d*`,
	"value": `[-+]?[0-9]*\.?[0-9]+`,
	"x":     `\d{8}`,
	"X":     `\d{4}(?:\d\d)?`,
	"Y":     `\d{4}`,
	"yy":    `\d\d`,
	"M":     `[a-zA-Z]*`,
	"B":     `[a-zA-Z]*`,
	"m":     `\d?\d`,
	"mm":    `\d?\d`,
	"d":     `\d?\d`,
	"dd":    `\d?\d`,
	"doy":   `\d?\d?\d`,
	"j":     `\d?\d?\d`,
	"H":     `\d\d`,
	"min":   `\d\d`,
	"S":     `\d\d`,
	"text":  `[a-zA-Z]*`,
	"char":  `\S*`,
}

// Matcher is a placeholder of a pre-regex: an element of a coordinate
// found in filenames.
type Matcher struct {
	Coord string
	Elt   string
	Rgx   string
	// Idx is the position of the matcher in the pre-regex.
	Idx int
	// Dummy matchers take part in matching only, not in finding values.
	Dummy bool
}

func (m *Matcher) group() string {
	return fmt.Sprintf("m%d", m.Idx)
}

func (m *Matcher) String() string {
	s := fmt.Sprintf("%d: %s:%s (%s)", m.Idx, m.Coord, m.Elt, m.Rgx)
	if m.Dummy {
		s += " dummy"
	}
	return s
}

// Pattern is a parsed pre-regex.
type Pattern struct {
	Pregex   string
	Regex    *regexp.Regexp
	Matchers []*Matcher
}

type pregexParser struct {
	s   string
	pos int
}

func (p *pregexParser) fail(format string, args ...any) {
	thrower.Throw(pkgerrors.Wrapf(ErrBadPregex, "%s at %d in %q", fmt.Sprintf(format, args...), p.pos, p.s))
}

func (p *pregexParser) startsWith(prefix string) bool {
	return strings.HasPrefix(p.s[p.pos:], prefix)
}

func (p *pregexParser) expect(prefix string) {
	if !p.startsWith(prefix) {
		p.fail("expected %q", prefix)
	}
	p.pos += len(prefix)
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (p *pregexParser) ident() string {
	start := p.pos
	for p.pos < len(p.s) && isIdentByte(p.s[p.pos]) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *pregexParser) until(c byte) string {
	i := strings.IndexByte(p.s[p.pos:], c)
	if i < 0 {
		p.fail("missing %q", c)
	}
	out := p.s[p.pos : p.pos+i]
	p.pos += i + 1
	return out
}

// matcher parses a placeholder after its "%(".
func (p *pregexParser) matcher(idx int) *Matcher {
	m := &Matcher{Idx: idx}
	m.Coord = p.ident()
	if p.startsWith(")") {
		p.fail("no replacement for %q", m.Coord)
	}
	p.expect(":")
	m.Elt = p.ident()
	rgx, known := elementRegex[m.Elt]
	if p.startsWith(":custom=") {
		p.pos += len(":custom=")
		rgx = p.until(':')
		if rgx == "" {
			p.fail("empty custom regex")
		}
		known = true
		if p.startsWith("dummy") {
			p.pos += len("dummy")
			m.Dummy = true
		}
	}
	if p.startsWith(":dummy") {
		p.pos += len(":dummy")
		m.Dummy = true
	}
	p.expect(")")
	if !known {
		thrower.Throw(pkgerrors.Wrapf(ErrUnknownElement, "%q in %q", m.Elt, p.s))
	}
	m.Rgx = rgx
	return m
}

// ParsePregex compiles a pre-regex. Placeholders %(name) are first
// substituted from replacements, in the order of their names; placeholders
// %(coord:elt) become matchers.
// The resulting regex must match whole filenames.
func ParsePregex(pregex string, replacements map[string]string) (pat *Pattern, err error) {
	defer thrower.RecoverError(&err)
	pregex = strings.TrimSpace(pregex)
	names := make([]string, 0, len(replacements))
	for k := range replacements {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		pregex = strings.ReplaceAll(pregex, "%("+k+")", replacements[k])
	}
	p := &pregexParser{s: pregex}
	pat = &Pattern{Pregex: pregex}
	var b strings.Builder
	b.WriteString("^(?:")
	for p.pos < len(p.s) {
		i := strings.Index(p.s[p.pos:], "%(")
		if i < 0 {
			b.WriteString(p.s[p.pos:])
			break
		}
		b.WriteString(p.s[p.pos : p.pos+i])
		p.pos += i + 2
		m := p.matcher(len(pat.Matchers))
		pat.Matchers = append(pat.Matchers, m)
		fmt.Fprintf(&b, "(?P<%s>%s)", m.group(), m.Rgx)
	}
	b.WriteString(")$")
	rgx, err := regexp.Compile(b.String())
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrBadPregex, "%v", err)
	}
	pat.Regex = rgx
	return pat, nil
}

// Match matches a filename and returns the text of every matcher, or nil.
func (pat *Pattern) Match(filename string) []string {
	sub := pat.Regex.FindStringSubmatch(filename)
	if sub == nil {
		return nil
	}
	out := make([]string, len(pat.Matchers))
	for i, m := range pat.Matchers {
		out[i] = sub[pat.Regex.SubexpIndex(m.group())]
	}
	return out
}

// Segments splits a matching filename into literal parts and matches:
// even indices are literal, odd index 2i+1 is the text of matcher i.
func (pat *Pattern) Segments(filename string) ([]string, error) {
	loc := pat.Regex.FindStringSubmatchIndex(filename)
	if loc == nil {
		return nil, pkgerrors.Wrapf(ErrNoFileMatched, "%s", filename)
	}
	segments := make([]string, 0, 2*len(pat.Matchers)+1)
	prev := 0
	for _, m := range pat.Matchers {
		g := pat.Regex.SubexpIndex(m.group())
		start, end := loc[2*g], loc[2*g+1]
		segments = append(segments, filename[prev:start], filename[start:end])
		prev = end
	}
	segments = append(segments, filename[prev:])
	return segments, nil
}

// Reconstruct replaces matches in segments. texts maps matcher indices to
// their new text; other matchers keep the text of segments.
func Reconstruct(segments []string, texts map[int]string) string {
	var b strings.Builder
	for i, s := range segments {
		if i%2 == 1 {
			if t, ok := texts[i/2]; ok {
				s = t
			}
		}
		b.WriteString(s)
	}
	return b.String()
}
