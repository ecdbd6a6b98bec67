package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	return isSpace(ch) || strings.IndexByte("()!=<>&|", ch) >= 0
}

// lex splits a rule into tokens. Identifiers may contain dots and brackets so
// full keys such as items[0].name are read as a single token.
func lex(input string) ([]token, error) {
	var out []token
	i := 0
	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}
		start := i

		two := ""
		if i+1 < len(input) {
			two = input[i : i+2]
		}
		switch two {
		case "==":
			out = append(out, token{kind: tokenEq, text: two, pos: start})
			i += 2
			continue
		case "!=":
			out = append(out, token{kind: tokenNeq, text: two, pos: start})
			i += 2
			continue
		case "<=":
			out = append(out, token{kind: tokenLte, text: two, pos: start})
			i += 2
			continue
		case ">=":
			out = append(out, token{kind: tokenGte, text: two, pos: start})
			i += 2
			continue
		case "&&":
			out = append(out, token{kind: tokenAnd, text: two, pos: start})
			i += 2
			continue
		case "||":
			out = append(out, token{kind: tokenOr, text: two, pos: start})
			i += 2
			continue
		}

		switch ch {
		case '(':
			out = append(out, token{kind: tokenLParen, text: "(", pos: start})
			i++
		case ')':
			out = append(out, token{kind: tokenRParen, text: ")", pos: start})
			i++
		case '!':
			out = append(out, token{kind: tokenNot, text: "!", pos: start})
			i++
		case '<':
			out = append(out, token{kind: tokenLt, text: "<", pos: start})
			i++
		case '>':
			out = append(out, token{kind: tokenGt, text: ">", pos: start})
			i++
		case '=', '&', '|':
			return nil, fmt.Errorf("visibility/expr: unexpected %q at %d", ch, start)
		case '"', '\'':
			text, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokenString, text: text, pos: start})
			i = next
		default:
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			out = append(out, classifyWord(input[start:i], start))
		}
	}
	return out, nil
}

func lexString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			body := input[start+1 : i]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
			}
			return value, i + 1, nil
		}
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func classifyWord(word string, pos int) token {
	switch strings.ToLower(word) {
	case "true", "false":
		return token{kind: tokenBool, text: strings.ToLower(word), pos: pos}
	case "null", "nil", "undefined":
		return token{kind: tokenNull, text: "null", pos: pos}
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokenNumber, text: word, pos: pos}
	}
	return token{kind: tokenIdent, text: word, pos: pos}
}
