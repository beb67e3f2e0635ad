package kicadsexp

import (
	"bufio"
	"io"
	"strings"
)

// Write serialises s in the layout KiCad uses for its own files: one list per
// line, children indented with tabs, lists made only of atoms kept inline.
func Write(w io.Writer, s Sexp) error {
	bw := bufio.NewWriter(w)
	writeNode(bw, s, 0)
	bw.WriteByte('\n')
	return bw.Flush()
}

// Format returns the Write layout of s as a string.
func Format(s Sexp) string {
	var b strings.Builder
	_ = Write(&b, s)
	return b.String()
}

func writeNode(w *bufio.Writer, s Sexp, depth int) {
	list, ok := s.(*List)
	if !ok {
		w.WriteString(s.String())
		return
	}

	if isFlat(list) {
		w.WriteString(list.String())
		return
	}

	w.WriteByte('(')
	// Leading atoms stay on the opening line: (symbol "Device:R"
	i := 0
	for ; i < len(list.elements); i++ {
		if !list.elements[i].IsLeaf() {
			break
		}
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(list.elements[i].String())
	}

	for ; i < len(list.elements); i++ {
		w.WriteByte('\n')
		indent(w, depth+1)
		writeNode(w, list.elements[i], depth+1)
	}

	w.WriteByte('\n')
	indent(w, depth)
	w.WriteByte(')')
}

// isFlat reports whether every element of list is an atom.
func isFlat(list *List) bool {
	for _, elem := range list.elements {
		if !elem.IsLeaf() {
			return false
		}
	}
	return true
}

func indent(w *bufio.Writer, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteByte('\t')
	}
}
