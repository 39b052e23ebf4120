package model

import (
	"fmt"
	"strings"
)

// stepExpr is a compiled KEGG step. In the DEFINITION grammar a comma is an
// alternative, a space or '+' joins required parts, and a '-' part is optional.
type stepExpr interface {
	eval(KOSet) bool
}

type koExpr string

func (k koExpr) eval(s KOSet) bool { return s.Has(string(k)) }

type allExpr []stepExpr

func (a allExpr) eval(s KOSet) bool {
	for _, e := range a {
		if !e.eval(s) {
			return false
		}
	}
	return true
}

type anyExpr []stepExpr

func (a anyExpr) eval(s KOSet) bool {
	for _, e := range a {
		if e.eval(s) {
			return true
		}
	}
	return false
}

type tokKind int

const (
	tokKO tokKind = iota
	tokOpen
	tokClose
	tokComma
	tokPlus
	tokMinus
	tokSpace
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == 'K' && i+6 <= len(s) && allDigits(s[i+1:i+6]):
			toks = append(toks, token{tokKO, s[i : i+6]})
			i += 6
			continue
		case c == '(':
			toks = append(toks, token{kind: tokOpen})
		case c == ')':
			toks = append(toks, token{kind: tokClose})
		case c == ',':
			toks = append(toks, token{kind: tokComma})
		case c == '+':
			toks = append(toks, token{kind: tokPlus})
		case c == '-':
			toks = append(toks, token{kind: tokMinus})
		case c == ' ' || c == '\t':
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			toks = append(toks, token{kind: tokSpace})
			continue
		default:
			return nil, fmt.Errorf("unexpected character %q at %d", c, i)
		}
		i++
	}
	return append(toks, token{kind: tokEOF}), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type exprParser struct {
	toks []token
	pos  int
}

func compileStep(raw string) (stepExpr, error) {
	toks, err := tokenize(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	e, err := p.alternatives()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peek() != tokEOF {
		return nil, fmt.Errorf("trailing input at token %d", p.pos)
	}
	return e, nil
}

func (p *exprParser) peek() tokKind { return p.toks[p.pos].kind }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) skipSpace() {
	for p.peek() == tokSpace {
		p.pos++
	}
}

// kindAfterSpace looks past whitespace without consuming it.
func (p *exprParser) kindAfterSpace() tokKind {
	i := p.pos
	for p.toks[i].kind == tokSpace {
		i++
	}
	return p.toks[i].kind
}

// alternatives := sequence (',' sequence)*
func (p *exprParser) alternatives() (stepExpr, error) {
	var alts anyExpr
	for {
		p.skipSpace()
		e, err := p.sequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, e)
		if p.kindAfterSpace() != tokComma {
			break
		}
		p.skipSpace()
		p.next()
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return alts, nil
}

// sequence := complex (' ' complex)*
func (p *exprParser) sequence() (stepExpr, error) {
	var parts allExpr
	for {
		e, err := p.complex()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		if p.peek() != tokSpace {
			break
		}
		if k := p.kindAfterSpace(); k == tokComma || k == tokClose || k == tokEOF {
			break
		}
		p.skipSpace()
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts, nil
}

// complex := unit (('+' | '-') unit)*; '-' parts are optional and dropped.
func (p *exprParser) complex() (stepExpr, error) {
	var required, optional allExpr
	leading := false
	if p.peek() == tokMinus {
		p.next()
		leading = true
	}
	first, err := p.unit()
	if err != nil {
		return nil, err
	}
	if leading {
		optional = append(optional, first)
	} else {
		required = append(required, first)
	}

	for p.peek() == tokPlus || p.peek() == tokMinus {
		op := p.next()
		u, err := p.unit()
		if err != nil {
			return nil, err
		}
		if op.kind == tokMinus {
			optional = append(optional, u)
		} else {
			required = append(required, u)
		}
	}

	// A part that is only optional components ("-K00001") stands for itself.
	if len(required) == 0 {
		required = optional
	}
	if len(required) == 1 {
		return required[0], nil
	}
	return required, nil
}

// unit := KO | '(' alternatives ')'
func (p *exprParser) unit() (stepExpr, error) {
	t := p.next()
	switch t.kind {
	case tokKO:
		return koExpr(t.text), nil
	case tokOpen:
		e, err := p.alternatives()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.next().kind != tokClose {
			return nil, fmt.Errorf("missing ')'")
		}
		return e, nil
	}
	return nil, fmt.Errorf("expected a KO or '(' at token %d", p.pos)
}
