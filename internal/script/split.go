package script

import (
	"fmt"
	"regexp"
	"strings"
)

// statement is one logical statement of a script.
type statement struct {
	line int    // 1-based line the statement starts on
	text string // comments removed, continuation lines joined with '\n'
}

// continuation lists line endings that carry a statement onto the next line.
const continuation = "|,+-*/%=&<>!?:"

// split cuts src into statements. A statement ends at a newline unless a
// bracket or string is still open or the line ends in an operator.
func split(src string) ([]statement, error) {
	var (
		out   []statement
		buf   strings.Builder
		start int
		depth int
		quote rune
	)
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		var line strings.Builder
		escaped := false
	scan:
		for _, r := range raw {
			switch {
			case quote != 0:
				line.WriteRune(r)
				switch {
				case escaped:
					escaped = false
				case r == '\\' && quote != '`':
					escaped = true
				case r == quote:
					quote = 0
				}
				continue
			case r == '#':
				break scan
			case r == '"' || r == '\'' || r == '`':
				quote = r
			case r == '(' || r == '[' || r == '{':
				depth++
			case r == ')' || r == ']' || r == '}':
				depth--
				if depth < 0 {
					return nil, &Error{Line: i + 1, Err: fmt.Errorf("unbalanced %q", r)}
				}
			}
			line.WriteRune(r)
		}
		if quote == '"' || quote == '\'' {
			return nil, &Error{Line: i + 1, Err: fmt.Errorf("unterminated string")}
		}
		text := strings.TrimSpace(line.String())
		if text == "" && buf.Len() == 0 {
			continue
		}
		if buf.Len() == 0 {
			start = i + 1
		} else {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
		if depth > 0 || quote != 0 || (text != "" && strings.ContainsRune(continuation, rune(text[len(text)-1]))) {
			continue
		}
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, statement{line: start, text: s})
		}
		buf.Reset()
	}
	if buf.Len() > 0 {
		if depth > 0 || quote != 0 {
			return nil, &Error{Line: start, Err: fmt.Errorf("statement is not closed at end of file")}
		}
		out = append(out, statement{line: start, text: strings.TrimSpace(buf.String())})
	}
	return out, nil
}

var (
	bindingRe   = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)\s*=(.*)$`)
	decoratorRe = regexp.MustCompile(`(?s)^@add\s*(?:\((.*)\))?$`)
)

// binding splits "name = expr". Comparisons such as "a == b" are not bindings.
func binding(text string) (name, expr string, ok bool) {
	m := bindingRe.FindStringSubmatch(text)
	if m == nil || strings.HasPrefix(m[2], "=") {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// decorator returns the argument list of an "@add(...)" line.
func decorator(text string) (args string, ok bool) {
	m := decoratorRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
