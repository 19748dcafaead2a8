package sexp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// SyntaxError reports malformed input together with the unparsed remainder.
type SyntaxError struct {
	Expected  string // description of the token that was required
	Remaining string // input left at the point of failure
}

func (e *SyntaxError) Error() string {
	rest := e.Remaining
	if len(rest) > 40 {
		rest = rest[:40] + "..."
	}
	if rest == "" {
		return fmt.Sprintf("syntax error: expected %s, reached end of input", e.Expected)
	}
	return fmt.Sprintf("syntax error: expected %s, was %q", e.Expected, rest)
}

var numberPattern = regexp.MustCompile(`^(?:[0-9]*\.[0-9]+|[0-9]+)`)

// symbol characters exclude these in addition to whitespace
const symbolStops = "#\"'()[]\\"

// Parser is a cursor over s-expression text. Each call to Next consumes one
// expression; whatever follows it is left untouched.
type Parser struct {
	src string
	pos int
}

// NewParser returns a parser positioned at the start of text.
func NewParser(text string) *Parser {
	return &Parser{src: text}
}

// Parse reads the first expression of text. Trailing input is ignored.
func Parse(text string) (Value, error) {
	return NewParser(text).Next()
}

// ParseOne reads text as exactly one expression; anything but whitespace and
// comments after it is an error.
func ParseOne(text string) (Value, error) {
	p := NewParser(text)
	v, err := p.Next()
	if err != nil {
		return Value{}, err
	}
	if !p.AtEnd() {
		return Value{}, p.fail("end of input")
	}
	return v, nil
}

// Rest returns the unconsumed input.
func (p *Parser) Rest() string { return p.src[p.pos:] }

// AtEnd skips whitespace and comments and reports whether input is exhausted.
func (p *Parser) AtEnd() bool {
	p.skip()
	return p.pos >= len(p.src)
}

// Next parses one expression.
func (p *Parser) Next() (Value, error) {
	p.skip()
	if p.pos >= len(p.src) {
		return Value{}, p.fail("expression")
	}

	switch c := p.src[p.pos]; {
	case c == '(':
		return p.list('(', ')')
	case c == '[':
		v, err := p.list('[', ']')
		if err != nil {
			return Value{}, err
		}
		return Vector(v.items...), nil
	case c == '"':
		return p.str()
	case c == '\'':
		p.pos++
		quoted, err := p.Next()
		if err != nil {
			return Value{}, err
		}
		return Quote(quoted), nil
	}

	if m := numberPattern.FindString(p.src[p.pos:]); m != "" {
		end := p.pos + len(m)
		if end < len(p.src) && !isDelimiter(rune(p.src[end])) {
			return Value{}, &SyntaxError{Expected: "delimiter after number", Remaining: p.src[end:]}
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return Value{}, p.fail("number")
		}
		p.pos = end
		return Number(f), nil
	}

	return p.symbol()
}

func (p *Parser) fail(expected string) *SyntaxError {
	return &SyntaxError{Expected: expected, Remaining: p.src[p.pos:]}
}

// skip consumes whitespace and ';' comments.
func (p *Parser) skip() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ';':
			if nl := strings.IndexByte(p.src[p.pos:], '\n'); nl >= 0 {
				p.pos += nl + 1
			} else {
				p.pos = len(p.src)
			}
		case unicode.IsSpace(rune(c)):
			p.pos++
		default:
			return
		}
	}
}

func (p *Parser) list(open, close byte) (Value, error) {
	p.pos++ // open
	var items []Value
	for {
		p.skip()
		if p.pos >= len(p.src) {
			return Value{}, p.fail(fmt.Sprintf("%q", close))
		}
		if p.src[p.pos] == close {
			p.pos++
			break
		}
		item, err := p.Next()
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}

	// (a . b) is a dotted pair
	if open == '(' && len(items) == 3 && items[1].IsSymbol(".") {
		return Cons(items[0], items[2]), nil
	}
	return List(items...), nil
}

func (p *Parser) str() (Value, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return String(b.String()), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				p.pos++
				return Value{}, p.fail(`'"'`)
			}
			next := p.src[p.pos+1]
			p.pos += 2
			// backslash-newline and backslash-space are line continuations
			if next != '\n' && next != ' ' {
				b.WriteByte(next)
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return Value{}, p.fail(`'"'`)
}

func (p *Parser) symbol() (Value, error) {
	start := p.pos
	if c := rune(p.src[p.pos]); unicode.IsDigit(c) || strings.ContainsRune(symbolStops[:len(symbolStops)-1], c) {
		return Value{}, p.fail("symbol")
	}

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return Value{}, p.fail("escaped character")
			}
			b.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if unicode.IsSpace(rune(c)) || strings.IndexByte(symbolStops, c) >= 0 {
			break
		}
		b.WriteByte(c)
		p.pos++
	}

	if p.pos == start {
		return Value{}, p.fail("symbol")
	}
	name := b.String()
	if len(name) > 1 && name[0] == ':' && p.src[start] == ':' {
		return Keyword(name[1:]), nil
	}
	return Symbol(name), nil
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '[' || r == ']' || r == '"' || r == ';'
}
