// Package kicadsexp provides the S-expression tree used for KiCad schematic
// files. Unlike general-purpose sexp libraries, nodes remember whether an atom
// was quoted so a document can be edited and written back without changing
// the parts that were not touched.
package kicadsexp

import (
	"io"
	"strings"
)

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Sexp

	// String returns the string representation
	String() string
}

// Atom is implemented by Symbol and String.
type Atom interface {
	Sexp
	Value() string
}

// Symbol represents an unquoted atom (keyword, number, identifier)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp     { return s }
func (s Symbol) Tail() Sexp     { return nil }
func (s Symbol) String() string { return string(s) }
func (s Symbol) Value() string  { return string(s) }

// String represents a quoted atom. String() returns the quoted form.
type String string

func (s String) IsLeaf() bool   { return true }
func (s String) LeafCount() int { return 1 }
func (s String) Head() Sexp     { return s }
func (s String) Tail() Sexp     { return nil }
func (s String) String() string { return quote(string(s)) }
func (s String) Value() string  { return string(s) }

// List represents a list of S-expressions
type List struct {
	elements []Sexp
}

// NewList builds a list from the given elements.
func NewList(elems ...Sexp) *List {
	return &List{elements: elems}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) LeafCount() int {
	return len(l.elements)
}

func (l *List) Head() Sexp {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Sexp {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:]}
}

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, elem := range l.elements {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(elem.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.elements)
}

// Items returns the elements of the list. The slice must not be modified.
func (l *List) Items() []Sexp {
	return l.elements
}

// Set replaces the element at index. Out of range indexes are ignored.
func (l *List) Set(index int, s Sexp) {
	if index < 0 || index >= len(l.elements) {
		return
	}
	l.elements[index] = s
}

// Append adds elements to the end of the list.
func (l *List) Append(elems ...Sexp) {
	l.elements = append(l.elements, elems...)
}

// Insert places s at index, shifting later elements. An index past the end appends.
func (l *List) Insert(index int, s Sexp) {
	if index < 0 {
		index = 0
	}
	if index >= len(l.elements) {
		l.elements = append(l.elements, s)
		return
	}
	l.elements = append(l.elements, nil)
	copy(l.elements[index+1:], l.elements[index:])
	l.elements[index] = s
}

// IndexOf returns the position of s (compared by identity), or -1.
func (l *List) IndexOf(s Sexp) int {
	for i, elem := range l.elements {
		if elem == s {
			return i
		}
	}
	return -1
}

// Remove deletes s (compared by identity) and reports whether it was present.
func (l *List) Remove(s Sexp) bool {
	i := l.IndexOf(s)
	if i < 0 {
		return false
	}
	l.elements = append(l.elements[:i], l.elements[i+1:]...)
	return true
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	out := &List{elements: make([]Sexp, len(l.elements))}
	for i, elem := range l.elements {
		if sub, ok := elem.(*List); ok {
			out.elements[i] = sub.Clone()
			continue
		}
		out.elements[i] = elem
	}
	return out
}

// Keyword returns the leading symbol of the list, or "" if there is none.
func (l *List) Keyword() string {
	if len(l.elements) == 0 {
		return ""
	}
	if a, ok := l.elements[0].(Atom); ok {
		return a.Value()
	}
	return ""
}

// Parse parses S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Sexp, error) {
	parser := NewParser(r)
	return parser.ParseAll()
}

// ParseString parses S-expressions from a string (convenience function)
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
