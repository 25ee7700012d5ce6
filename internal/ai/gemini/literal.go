package gemini

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotStringList = errors.New("not a list of string literals")

// parseStringList parses a bracketed list of single or double quoted
// string literals, e.g. ['a', "b's"]. A trailing comma is allowed.
func parseStringList(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, errNotStringList
	}

	p := &listParser{src: s[1 : len(s)-1]}
	items := []string{}

	for {
		p.skipSpace()
		if p.done() {
			return items, nil
		}

		item, err := p.quoted()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if p.done() {
			return items, nil
		}
		if p.src[p.pos] != ',' {
			return nil, fmt.Errorf("%w: unexpected %q at %d", errNotStringList, p.src[p.pos], p.pos)
		}
		p.pos++
	}
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) done() bool { return p.pos >= len(p.src) }

func (p *listParser) skipSpace() {
	for !p.done() && strings.ContainsRune(" \t\n\r", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *listParser) quoted() (string, error) {
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("%w: expected quote at %d", errNotStringList, p.pos)
	}
	p.pos++

	var b strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		p.pos++

		switch {
		case c == quote:
			return b.String(), nil
		case c == '\\' && !p.done():
			next := p.src[p.pos]
			p.pos++
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(next)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
		default:
			b.WriteByte(c)
		}
	}

	return "", fmt.Errorf("%w: unterminated string", errNotStringList)
}

// isScalarLiteral reports whether raw is a well-formed literal other than a list:
// a quoted string, a number, True, False, None or a tuple of strings.
func isScalarLiteral(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}

	switch s {
	case "True", "False", "None":
		return true
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}

	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		_, err := parseStringList("[" + s[1:len(s)-1] + "]")
		return err == nil
	}

	if s[0] != '\'' && s[0] != '"' {
		return false
	}

	p := &listParser{src: s}
	if _, err := p.quoted(); err != nil {
		return false
	}
	p.skipSpace()

	return p.done()
}
