package schematic

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// SymbolHandle is a placed symbol instance inside a Document.
type SymbolHandle struct {
	doc  *Document
	node *kicadsexp.List
}

// Symbol returns the placed symbol whose Reference property is ref.
func (d *Document) Symbol(ref string) (*SymbolHandle, error) {
	for _, node := range sexp.FindAllNodes(d.root, "symbol") {
		h := &SymbolHandle{doc: d, node: node.(*kicadsexp.List)}
		if h.Reference() == ref {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, ref)
}

// Symbols returns every placed symbol in document order.
func (d *Document) Symbols() []*SymbolHandle {
	nodes := sexp.FindAllNodes(d.root, "symbol")
	out := make([]*SymbolHandle, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, &SymbolHandle{doc: d, node: node.(*kicadsexp.List)})
	}
	return out
}

// Reference returns the Reference property value.
func (s *SymbolHandle) Reference() string {
	if prop, ok := s.property("Reference"); ok {
		v, _ := sexp.GetString(prop, 2)
		return v
	}
	return ""
}

// LibID returns the library identifier, e.g. "Switch:SW_Push".
func (s *SymbolHandle) LibID() string {
	if node, ok := sexp.FindList(s.node, "lib_id"); ok {
		v, _ := sexp.GetString(node, 1)
		return v
	}
	return ""
}

// libName is the name of the embedded definition used by the instance.
func (s *SymbolHandle) libName() string {
	if node, ok := sexp.FindList(s.node, "lib_name"); ok {
		if v, err := sexp.GetString(node, 1); err == nil {
			return v
		}
	}
	return s.LibID()
}

// UUID returns the instance UUID.
func (s *SymbolHandle) UUID() UUID {
	if node, ok := sexp.FindList(s.node, "uuid"); ok {
		id, _ := sexp.GetUUID(node)
		return id
	}
	return ""
}

// At returns the placement position and rotation.
func (s *SymbolHandle) At() PositionAngle {
	if node, ok := sexp.FindList(s.node, "at"); ok {
		pos, _ := sexp.GetPosition(node)
		return pos
	}
	return PositionAngle{}
}

// Mirror returns "x", "y" or "".
func (s *SymbolHandle) Mirror() string {
	if node, ok := sexp.FindList(s.node, "mirror"); ok {
		v, _ := sexp.GetString(node, 1)
		return v
	}
	return ""
}

// Unit returns the unit number of a multi-unit symbol (1 when absent).
func (s *SymbolHandle) Unit() int {
	if node, ok := sexp.FindList(s.node, "unit"); ok {
		if v, err := sexp.GetInt(node, 1); err == nil {
			return v
		}
	}
	return 1
}

// IsPower reports whether the symbol is a power port. Its Value property
// names a global net.
func (s *SymbolHandle) IsPower() bool {
	lib, ok := s.doc.libSymbol(s.libName())
	if !ok {
		return false
	}
	_, found := sexp.FindList(lib, "power")
	return found
}

// Attached reports whether the symbol is still part of its document.
func (s *SymbolHandle) Attached() bool {
	return s.doc.contains(s.node)
}

// Clone copies the symbol into the document with fresh UUIDs and returns
// the copy. The copy keeps the position and reference of the original.
func (s *SymbolHandle) Clone() (*SymbolHandle, error) {
	if !s.Attached() {
		return nil, fmt.Errorf("clone %s: %w", s.Reference(), ErrDetached)
	}

	node := s.node.Clone()
	s.doc.refreshIDs(node)
	s.doc.insert(node)

	clone := &SymbolHandle{doc: s.doc, node: node}
	s.doc.copyLegacyInstance(s, clone)
	return clone, nil
}

// Move places the symbol at pos. Property fields travel with the symbol so
// their placement relative to the body is preserved.
func (s *SymbolHandle) Move(pos Position) error {
	at, ok := sexp.FindList(s.node, "at")
	if !ok {
		return fmt.Errorf("move %s: symbol has no position", s.Reference())
	}

	old, err := sexp.GetPositionXY(at)
	if err != nil {
		return fmt.Errorf("move %s: %w", s.Reference(), err)
	}
	delta := pos.Sub(old)

	if err := sexp.SetXY(at, pos); err != nil {
		return fmt.Errorf("move %s: %w", s.Reference(), err)
	}

	for _, prop := range sexp.FindAllNodes(s.node, "property") {
		if propAt, ok := sexp.FindList(prop, "at"); ok {
			if err := sexp.Translate(propAt, delta); err != nil {
				return fmt.Errorf("move %s: property: %w", s.Reference(), err)
			}
		}
	}

	return nil
}

// SetAllReferences sets the Reference property and every instance path
// reference of the symbol to ref.
func (s *SymbolHandle) SetAllReferences(ref string) error {
	prop, ok := s.property("Reference")
	if !ok {
		return fmt.Errorf("set reference %s: symbol has no Reference property", ref)
	}
	if err := sexp.SetString(prop, 2, ref); err != nil {
		return fmt.Errorf("set reference %s: %w", ref, err)
	}

	// KiCad 7+: (instances (project "x" (path "/..." (reference "R1") (unit 1))))
	if instances, ok := sexp.FindList(s.node, "instances"); ok {
		sexp.Walk(instances, func(l *kicadsexp.List) {
			if l.Keyword() == "reference" && l.Len() >= 2 {
				l.Set(1, kicadsexp.String(ref))
			}
		})
	}

	// KiCad 6: root level (symbol_instances (path "/<uuid>" (reference ...)))
	if path, ok := s.doc.legacyInstance(s.UUID()); ok {
		if node, ok := sexp.FindList(path, "reference"); ok {
			node.Set(1, kicadsexp.String(ref))
		}
	}

	return nil
}

// Delete removes the symbol from the document.
func (s *SymbolHandle) Delete() error {
	if !s.doc.root.Remove(s.node) {
		return fmt.Errorf("delete %s: %w", s.Reference(), ErrDetached)
	}
	if path, ok := s.doc.legacyInstance(s.UUID()); ok {
		if instances, found := sexp.FindList(s.doc.root, "symbol_instances"); found {
			instances.Remove(path)
		}
	}
	return nil
}

func (s *SymbolHandle) property(key string) (*kicadsexp.List, bool) {
	for _, node := range sexp.FindAllNodes(s.node, "property") {
		if k, _ := sexp.GetString(node, 1); k == key {
			return node.(*kicadsexp.List), true
		}
	}
	return nil, false
}

// Property returns the value of the named property.
func (s *SymbolHandle) Property(key string) (string, bool) {
	node, ok := s.property(key)
	if !ok {
		return "", false
	}
	v, _ := sexp.GetString(node, 2)
	return v, true
}

// legacyInstance finds the KiCad 6 symbol_instances path for id.
func (d *Document) legacyInstance(id UUID) (*kicadsexp.List, bool) {
	if id == "" {
		return nil, false
	}
	instances, found := sexp.FindList(d.root, "symbol_instances")
	if !found {
		return nil, false
	}
	for _, node := range sexp.FindAllNodes(instances, "path") {
		p, _ := sexp.GetString(node, 1)
		if strings.HasSuffix(p, "/"+string(id)) {
			return node.(*kicadsexp.List), true
		}
	}
	return nil, false
}

// copyLegacyInstance duplicates the symbol_instances entry of src for dst.
func (d *Document) copyLegacyInstance(src, dst *SymbolHandle) {
	path, ok := d.legacyInstance(src.UUID())
	if !ok {
		return
	}
	instances, _ := sexp.FindList(d.root, "symbol_instances")

	p, _ := sexp.GetString(path, 1)
	prefix := strings.TrimSuffix(p, string(src.UUID()))

	entry := path.Clone()
	entry.Set(1, kicadsexp.String(prefix+string(dst.UUID())))
	instances.Append(entry)
}
