package schematic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// trailerKeywords are root sections KiCad writes after all placed items.
// New items are inserted before the first of them.
var trailerKeywords = map[string]bool{
	"sheet_instances":  true,
	"symbol_instances": true,
	"embedded_fonts":   true,
}

// Document is an editable schematic backed by its S-expression tree.
// Handles returned by a Document stay valid until the element is deleted.
type Document struct {
	root      *kicadsexp.List
	ids       IDSource
	version   int
	quotedIDs bool
}

// Option configures a Document at load time.
type Option func(*Document)

// WithIDs sets the UUID source for new elements (default RandomIDs).
func WithIDs(ids IDSource) Option {
	return func(d *Document) {
		d.ids = ids
	}
}

// LoadFile reads an editable schematic from disk
func LoadFile(filename string, opts ...Option) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Load(file, opts...)
}

// Load reads an editable schematic from an io.Reader
func Load(r io.Reader, opts ...Option) (*Document, error) {
	root, err := parseRoot(r)
	if err != nil {
		return nil, err
	}

	var header Schematic
	if err := parseHeader(root, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	d := &Document{
		root:    root,
		ids:     RandomIDs(),
		version: header.Version,
	}
	for _, opt := range opts {
		opt(d)
	}

	// KiCad 8 quotes UUIDs, older versions write them bare; follow the file
	if uuidNode, found := sexp.FindList(root, "uuid"); found {
		_, d.quotedIDs = uuidNode.Get(1).(kicadsexp.String)
	}

	return d, nil
}

// Version returns the file format version of the document.
func (d *Document) Version() int {
	return d.version
}

// Root exposes the underlying tree.
func (d *Document) Root() *kicadsexp.List {
	return d.root
}

// Model returns a read-only snapshot of the document in its current state.
func (d *Document) Model() (*Schematic, error) {
	return fromTree(d.root)
}

// Write serialises the document.
func (d *Document) Write(w io.Writer) error {
	return kicadsexp.Write(w, d.root)
}

// WriteFile serialises the document to filename. The file is written to a
// temporary sibling first and renamed into place.
func (d *Document) WriteFile(filename string) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := d.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	return nil
}

// newID returns a (uuid ...) atom in the quoting style of the file.
func (d *Document) newID() kicadsexp.Sexp {
	id := d.ids.NewID()
	if d.quotedIDs {
		return kicadsexp.String(id)
	}
	return kicadsexp.Symbol(id)
}

// refreshIDs gives every (uuid ...) node in the tree a fresh value.
func (d *Document) refreshIDs(node *kicadsexp.List) {
	sexp.Walk(node, func(l *kicadsexp.List) {
		if l.Keyword() == "uuid" && l.Len() >= 2 {
			l.Set(1, d.newID())
		}
	})
}

// insert adds a top-level item before the trailing instance sections.
func (d *Document) insert(node *kicadsexp.List) {
	for i, item := range d.root.Items() {
		if l, ok := item.(*kicadsexp.List); ok && trailerKeywords[l.Keyword()] {
			d.root.Insert(i, node)
			return
		}
	}
	d.root.Append(node)
}

// contains reports whether node is a top-level item of the document.
func (d *Document) contains(node *kicadsexp.List) bool {
	return d.root.IndexOf(node) >= 0
}

// libSymbol finds the embedded library definition named name.
func (d *Document) libSymbol(name string) (*kicadsexp.List, bool) {
	libs, found := sexp.FindList(d.root, "lib_symbols")
	if !found {
		return nil, false
	}
	for _, node := range sexp.FindAllNodes(libs, "symbol") {
		list := node.(*kicadsexp.List)
		if n, _ := sexp.GetString(list, 1); n == name {
			return list, true
		}
	}
	return nil, false
}
