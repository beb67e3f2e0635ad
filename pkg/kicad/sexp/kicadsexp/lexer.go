package kicadsexp

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// SexpLexer defines the lexical structure of KiCad S-expression files.
var SexpLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Whitespace (spaces, tabs, newlines)
	{Name: "Whitespace", Pattern: `\s+`},

	// Parentheses
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	// Quoted strings with backslash escapes
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Bare atoms: keywords, numbers, unquoted identifiers and UUIDs
	{Name: "Atom", Pattern: `[^\s()"]+`},
})

// unquote strips the surrounding quotes of a String token and resolves escapes.
func unquote(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", fmt.Errorf("malformed string token %q", tok)
	}
	body := tok[1 : len(tok)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unexpected end of string after backslash")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			// \\, \" and unknown escapes keep the escaped character
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

// quote is the inverse of unquote.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
