package expr

import (
	"errors"
	"fmt"
)

// Grammar:
//
//	or      := and ("||" and)*
//	and     := unary ("&&" unary)*
//	unary   := "!" unary | primary
//	primary := "(" or ")" | operand [compare operand]
//	operand := identifier | string | number | bool | null
type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, fmt.Errorf("visibility/expr: unexpected %q at %d", tok.text, tok.pos)
	}
	return root, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kinds ...tokenKind) (token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token{}, false
	}
	for _, kind := range kinds {
		if tok.kind == kind {
			p.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokenOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokenAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(tokenNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if _, ok := p.accept(tokenLParen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokenRParen); !ok {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	op, ok := p.accept(tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte)
	if !ok {
		return truthyNode{operand: left}, nil
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}
	return compareNode{left: left, op: op.kind, right: right}, nil
}

func (p *parser) operand() (operand, error) {
	tok, ok := p.peek()
	if !ok {
		return operand{}, errors.New("visibility/expr: unexpected end of expression")
	}
	p.pos++
	switch tok.kind {
	case tokenIdent:
		return operand{ref: tok.text}, nil
	case tokenString:
		return operand{literal: tok.text, constant: true}, nil
	case tokenNumber:
		return operand{literal: parseNumber(tok.text), constant: true}, nil
	case tokenBool:
		return operand{literal: tok.text == "true", constant: true}, nil
	case tokenNull:
		return operand{constant: true}, nil
	default:
		return operand{}, fmt.Errorf("visibility/expr: expected operand, got %q at %d", tok.text, tok.pos)
	}
}
