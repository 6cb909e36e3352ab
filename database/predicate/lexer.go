package predicate

import (
	"fmt"
	"strings"
)

type tokenKind uint8

const (
	tokIdent tokenKind = iota + 1
	tokOperator
	tokParam
	tokNumber
	tokString
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func tokenize(s string) ([]token, error) {
	var tokens []token

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '?':
			tokens = append(tokens, token{kind: tokParam, text: "?", pos: i})
			i++

		case c == '\'':
			// single quoted string, '' escapes a quote
			var b strings.Builder
			j := i + 1
			for {
				if j >= len(s) {
					return nil, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, i)
				}
				if s[j] == '\'' {
					if j+1 < len(s) && s[j+1] == '\'' {
						b.WriteByte('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteByte(s[j])
				j++
			}
			tokens = append(tokens, token{kind: tokString, text: b.String(), pos: i})
			i = j + 1

		case c == '=' || c == '!' || c == '<' || c == '>':
			j := i + 1
			if j < len(s) && (s[j] == '=' || (c == '<' && s[j] == '>')) {
				j++
			}
			op := s[i:j]
			if op == "!" {
				return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, op, i)
			}
			tokens = append(tokens, token{kind: tokOperator, text: op, pos: i})
			i = j

		case c == '-' || isDigit(c):
			j := i + 1
			for j < len(s) {
				d := s[j]
				if isDigit(d) || d == '.' || d == 'e' || d == 'E' ||
					((d == '+' || d == '-') && (s[j-1] == 'e' || s[j-1] == 'E')) {
					j++
					continue
				}
				break
			}
			tokens = append(tokens, token{kind: tokNumber, text: s[i:j], pos: i})
			i = j

		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: s[i:j], pos: i})
			i = j

		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, c, i)
		}
	}

	return tokens, nil
}
