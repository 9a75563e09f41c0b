package tdenginetest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// scanner walks a statement token by token. It understands exactly the SQL
// subset the catalog emits.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: strings.TrimRight(strings.TrimSpace(src), "; \t\r\n")}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

func (s *scanner) done() bool {
	s.skipSpace()
	return s.pos >= len(s.src)
}

func (s *scanner) rest() string {
	s.skipSpace()
	return s.src[s.pos:]
}

// keyword consumes kw (case-insensitive) when it is next.
func (s *scanner) keyword(kw string) bool {
	s.skipSpace()
	end := s.pos + len(kw)
	if end > len(s.src) || !strings.EqualFold(s.src[s.pos:end], kw) {
		return false
	}
	if end < len(s.src) && isIdentChar(s.src[end]) {
		return false
	}
	s.pos = end
	return true
}

func (s *scanner) keywords(kws ...string) bool {
	start := s.pos
	for _, kw := range kws {
		if !s.keyword(kw) {
			s.pos = start
			return false
		}
	}
	return true
}

func (s *scanner) expectKeyword(kws ...string) error {
	if !s.keywords(kws...) {
		return fmt.Errorf("syntax error near %q: expected %s", s.rest(), strings.Join(kws, " "))
	}
	return nil
}

func (s *scanner) punct(p byte) bool {
	s.skipSpace()
	if s.pos < len(s.src) && s.src[s.pos] == p {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) expectPunct(p byte) error {
	if !s.punct(p) {
		return fmt.Errorf("syntax error near %q: expected %q", s.rest(), p)
	}
	return nil
}

func isIdentChar(b byte) bool {
	return b == '_' || b == '.' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ident reads a bare or backquoted identifier.
func (s *scanner) ident() (string, error) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return "", fmt.Errorf("syntax error: identifier expected at end of statement")
	}
	if s.src[s.pos] == '`' {
		end := strings.IndexByte(s.src[s.pos+1:], '`')
		if end < 0 {
			return "", fmt.Errorf("unterminated quoted identifier")
		}
		name := s.src[s.pos+1 : s.pos+1+end]
		s.pos += end + 2
		return name, nil
	}
	start := s.pos
	for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
		s.pos++
	}
	if start == s.pos {
		return "", fmt.Errorf("syntax error near %q: identifier expected", s.rest())
	}
	return s.src[start:s.pos], nil
}

// identList reads "(a, `b`, c)".
func (s *scanner) identList() ([]string, error) {
	if err := s.expectPunct('('); err != nil {
		return nil, err
	}
	var out []string
	for {
		id, err := s.ident()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
		if s.punct(')') {
			return out, nil
		}
		if err := s.expectPunct(','); err != nil {
			return nil, err
		}
	}
}

type nowLiteral struct{}

// literal reads a quoted string, number, NULL or NOW.
func (s *scanner) literal() (any, error) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return nil, fmt.Errorf("syntax error: value expected at end of statement")
	}
	switch c := s.src[s.pos]; {
	case c == '\'' || c == '"':
		return s.quoted(c)
	case s.keyword("NULL"):
		return nil, nil
	case s.keyword("NOW"):
		return nowLiteral{}, nil
	case s.keyword("TRUE"):
		return true, nil
	case s.keyword("FALSE"):
		return false, nil
	}
	start := s.pos
	for s.pos < len(s.src) && strings.IndexByte("+-.0123456789eE", s.src[s.pos]) >= 0 {
		s.pos++
	}
	text := s.src[start:s.pos]
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("syntax error near %q: value expected", s.src[start:])
}

func (s *scanner) quoted(q byte) (string, error) {
	var b strings.Builder
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\' && s.pos+1 < len(s.src):
			b.WriteByte(s.src[s.pos+1])
			s.pos += 2
		case c == q:
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", fmt.Errorf("unterminated string literal")
}

// literalList reads "(v1, 'v2', NULL)".
func (s *scanner) literalList() ([]any, error) {
	if err := s.expectPunct('('); err != nil {
		return nil, err
	}
	var out []any
	for {
		v, err := s.literal()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if s.punct(')') {
			return out, nil
		}
		if err := s.expectPunct(','); err != nil {
			return nil, err
		}
	}
}

// int reads an unsigned integer.
func (s *scanner) int() (int, error) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
		s.pos++
	}
	if start == s.pos {
		return 0, fmt.Errorf("syntax error near %q: number expected", s.rest())
	}
	return strconv.Atoi(s.src[start:s.pos])
}

// likeMatch implements SQL LIKE with % and _ wildcards. A backslash makes
// the next rune literal.
func likeMatch(pattern, value string) bool {
	p, v := []rune(pattern), []rune(value)
	var match func(i, j int) bool
	match = func(i, j int) bool {
		for i < len(p) {
			switch p[i] {
			case '%':
				for k := j; k <= len(v); k++ {
					if match(i+1, k) {
						return true
					}
				}
				return false
			case '_':
				if j >= len(v) {
					return false
				}
			case '\\':
				if i+1 < len(p) {
					i++
				}
				if j >= len(v) || p[i] != v[j] {
					return false
				}
			default:
				if j >= len(v) || p[i] != v[j] {
					return false
				}
			}
			i++
			j++
		}
		return j == len(v)
	}
	return match(0, 0)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
