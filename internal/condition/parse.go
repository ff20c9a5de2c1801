package condition

import (
	"fmt"
	"unicode"
)

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tString
	tLParen
	tRParen
	tNot
	tAnd
	tOr
	tEq
	tNe
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src  string
	idx  map[string]int
	toks []token
	i    int
}

func (p *parser) tokenize() error {
	s := p.src
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			p.toks = append(p.toks, token{tLParen, "(", i})
			i++
		case c == ')':
			p.toks = append(p.toks, token{tRParen, ")", i})
			i++
		case c == '&' && i+1 < len(s) && s[i+1] == '&':
			p.toks = append(p.toks, token{tAnd, "&&", i})
			i += 2
		case c == '|' && i+1 < len(s) && s[i+1] == '|':
			p.toks = append(p.toks, token{tOr, "||", i})
			i += 2
		case c == '=' && i+1 < len(s) && s[i+1] == '=':
			p.toks = append(p.toks, token{tEq, "==", i})
			i += 2
		case c == '!' && i+1 < len(s) && s[i+1] == '=':
			p.toks = append(p.toks, token{tNe, "!=", i})
			i += 2
		case c == '!':
			p.toks = append(p.toks, token{tNot, "!", i})
			i++
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != s[i] {
				j++
			}
			if j >= len(s) {
				return fmt.Errorf("condition: unterminated string at offset %d in %q", i, s)
			}
			p.toks = append(p.toks, token{tString, s[i+1 : j], i})
			i = j + 1
		case c == '_' || unicode.IsLetter(c):
			j := i
			for j < len(s) && (s[j] == '_' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			p.toks = append(p.toks, token{tIdent, s[i:j], i})
			i = j
		default:
			return fmt.Errorf("condition: unexpected character %q at offset %d in %q", c, i, s)
		}
	}
	p.toks = append(p.toks, token{tEOF, "", len(s)})
	return nil
}

func (p *parser) peek() token { return p.toks[p.i] }
func (p *parser) next() token { t := p.toks[p.i]; p.i++; return t }
func (p *parser) done() bool  { return p.peek().kind == tEOF }

func (p *parser) expect(k tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("condition: expected %s at offset %d in %q", what, t.pos, p.src)
	}
	return t, nil
}

func (p *parser) parseOr() (Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	ps := []Predicate{first}
	for p.peek().kind == tOr {
		p.next()
		q, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		ps = append(ps, q)
	}
	if len(ps) == 1 {
		return first, nil
	}
	return orPred(ps), nil
}

func (p *parser) parseAnd() (Predicate, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	ps := []Predicate{first}
	for p.peek().kind == tAnd {
		p.next()
		q, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ps = append(ps, q)
	}
	if len(ps) == 1 {
		return first, nil
	}
	return andPred(ps), nil
}

func (p *parser) parseUnary() (Predicate, error) {
	if p.peek().kind == tNot {
		p.next()
		q, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notPred{q}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Predicate, error) {
	t := p.next()
	switch t.kind {
	case tLParen:
		q, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return q, nil
	case tIdent:
		if (t.text == "nonempty" || t.text == "empty") && p.peek().kind == tLParen {
			p.next()
			name, err := p.expect(tIdent, "field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tRParen, "')'"); err != nil {
				return nil, err
			}
			ix, err := resolve(p.idx, name.text)
			if err != nil {
				return nil, err
			}
			return emptyPred{name: name.text, ix: ix, negate: t.text == "nonempty"}, nil
		}
		ix, err := resolve(p.idx, t.text)
		if err != nil {
			return nil, err
		}
		op := p.next()
		if op.kind != tEq && op.kind != tNe {
			return nil, fmt.Errorf("condition: expected '==' or '!=' after %s at offset %d in %q", t.text, op.pos, p.src)
		}
		lit, err := p.expect(tString, "quoted literal")
		if err != nil {
			return nil, err
		}
		return eqPred{name: t.text, ix: ix, value: lit.text, negate: op.kind == tNe}, nil
	}
	return nil, fmt.Errorf("condition: unexpected %q at offset %d in %q", t.text, t.pos, p.src)
}
