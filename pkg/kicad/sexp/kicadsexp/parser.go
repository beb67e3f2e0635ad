package kicadsexp

import (
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
)

// sexpFile is the grammar root: any number of top-level expressions.
type sexpFile struct {
	Exprs []*sexpNode `@@*`
}

// sexpNode is one expression: a list or an atom.
type sexpNode struct {
	List   *sexpList `  @@`
	String *string   `| @String`
	Atom   *string   `| @Atom`
}

// sexpList is a parenthesised list of expressions.
type sexpList struct {
	Open  bool        `@LParen`
	Items []*sexpNode `@@* RParen`
}

var grammar = participle.MustBuild[sexpFile](
	participle.Lexer(SexpLexer),
	participle.Elide("Whitespace"),
)

// Parser parses S-expressions from a reader
type Parser struct {
	reader io.Reader
	name   string
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: r}
}

// Named sets the file name used in error positions.
func (p *Parser) Named(name string) *Parser {
	p.name = name
	return p
}

// ParseAll parses all top-level S-expressions from the input
func (p *Parser) ParseAll() ([]Sexp, error) {
	file, err := grammar.Parse(p.name, p.reader)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	result := make([]Sexp, 0, len(file.Exprs))
	for _, node := range file.Exprs {
		expr, err := convert(node)
		if err != nil {
			return nil, err
		}
		result = append(result, expr)
	}

	return result, nil
}

// convert turns a grammar node into a tree node
func convert(node *sexpNode) (Sexp, error) {
	switch {
	case node.List != nil:
		list := &List{elements: make([]Sexp, 0, len(node.List.Items))}
		for _, item := range node.List.Items {
			elem, err := convert(item)
			if err != nil {
				return nil, err
			}
			list.elements = append(list.elements, elem)
		}
		return list, nil

	case node.String != nil:
		s, err := unquote(*node.String)
		if err != nil {
			return nil, err
		}
		return String(s), nil

	case node.Atom != nil:
		return Symbol(*node.Atom), nil

	default:
		return nil, fmt.Errorf("empty expression")
	}
}
