package actionparser

import (
	"fmt"
	"regexp"
)

type call struct {
	name string
	args []kwarg
}

var callStart = regexp.MustCompile(`\b(do|finish)\s*\(`)

// extractCall locates the first `do(...)` or `finish(...)` call in text,
// ignoring any surrounding prose, and parses its argument list. Only one
// call is expected per actionText; anything before or after it is discarded.
func extractCall(text string) (call, error) {
	loc := callStart.FindStringSubmatchIndex(text)
	if loc == nil {
		return call{}, fmt.Errorf("no do()/finish() call found")
	}
	name := text[loc[2]:loc[3]]
	openParen := loc[1] - 1

	closeParen, err := matchingParen(text, openParen)
	if err != nil {
		return call{}, err
	}

	args, err := parseArgs(text[openParen+1 : closeParen])
	if err != nil {
		return call{}, err
	}
	return call{name: name, args: args}, nil
}

// matchingParen returns the index of the ')' matching the '(' at open,
// skipping over parens embedded inside double-quoted strings.
func matchingParen(text string, open int) (int, error) {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			if c == '\\' {
				i++
				continue
			}
			if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced parentheses in call")
}

// parseArgs parses a comma-separated `name=value` list where value is a
// quoted string or a two-integer bracketed list; a bare integer value is
// rejected.
func parseArgs(src string) ([]kwarg, error) {
	l := newLexer(src)
	var args []kwarg

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return args, nil
		}
		if tok.kind != tokIdent {
			return nil, fmt.Errorf("expected argument name, got token kind %d", tok.kind)
		}
		name := tok.text

		eq, err := l.next()
		if err != nil {
			return nil, err
		}
		if eq.kind != tokEquals {
			return nil, fmt.Errorf("expected '=' after argument %q", name)
		}

		kw, err := parseValue(l, name)
		if err != nil {
			return nil, err
		}
		args = append(args, kw)

		sep, err := l.next()
		if err != nil {
			return nil, err
		}
		switch sep.kind {
		case tokEOF:
			return args, nil
		case tokComma:
			continue
		default:
			return nil, fmt.Errorf("expected ',' or end of arguments after %q", name)
		}
	}
}

func parseValue(l *lexer, name string) (kwarg, error) {
	tok, err := l.next()
	if err != nil {
		return kwarg{}, err
	}
	switch tok.kind {
	case tokString:
		return kwarg{name: name, str: tok.text, hasStr: true}, nil
	case tokLBracket:
		return parsePointValue(l, name)
	default:
		return kwarg{}, fmt.Errorf("unsupported value for argument %q", name)
	}
}

func parsePointValue(l *lexer, name string) (kwarg, error) {
	x, err := expectInt(l)
	if err != nil {
		return kwarg{}, fmt.Errorf("argument %q: %w", name, err)
	}
	comma, err := l.next()
	if err != nil {
		return kwarg{}, err
	}
	if comma.kind != tokComma {
		return kwarg{}, fmt.Errorf("argument %q: expected ',' between coordinates", name)
	}
	y, err := expectInt(l)
	if err != nil {
		return kwarg{}, fmt.Errorf("argument %q: %w", name, err)
	}
	closeB, err := l.next()
	if err != nil {
		return kwarg{}, err
	}
	if closeB.kind != tokRBracket {
		return kwarg{}, fmt.Errorf("argument %q: expected ']'", name)
	}
	return kwarg{name: name, point: [2]int{x, y}, hasPt: true}, nil
}

func expectInt(l *lexer) (int, error) {
	tok, err := l.next()
	if err != nil {
		return 0, err
	}
	if tok.kind != tokInt {
		return 0, fmt.Errorf("expected integer")
	}
	return tok.num, nil
}
