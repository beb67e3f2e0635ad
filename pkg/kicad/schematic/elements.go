package schematic

import (
	"fmt"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// DefaultFontSize is the text size KiCad uses for net labels.
const DefaultFontSize = 1.27

func sym(s string) kicadsexp.Symbol { return kicadsexp.Symbol(s) }

func fontSize() *kicadsexp.List {
	return kicadsexp.NewList(sym("font"),
		kicadsexp.NewList(sym("size"), sexp.Num(DefaultFontSize), sexp.Num(DefaultFontSize)))
}

// WireHandle is a two-point wire inside a Document.
type WireHandle struct {
	doc  *Document
	node *kicadsexp.List
}

// NewWire adds a zero-length wire at the origin; place it with StartAt/EndAt.
func (d *Document) NewWire() *WireHandle {
	node := kicadsexp.NewList(sym("wire"),
		kicadsexp.NewList(sym("pts"), sexp.NewXY(Position{}), sexp.NewXY(Position{})),
		kicadsexp.NewList(sym("stroke"),
			kicadsexp.NewList(sym("width"), sexp.Num(0)),
			kicadsexp.NewList(sym("type"), sym("default"))),
		kicadsexp.NewList(sym("uuid"), d.newID()),
	)
	d.insert(node)
	return &WireHandle{doc: d, node: node}
}

// Wires returns every wire in document order.
func (d *Document) Wires() []*WireHandle {
	nodes := sexp.FindAllNodes(d.root, "wire")
	out := make([]*WireHandle, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, &WireHandle{doc: d, node: node.(*kicadsexp.List)})
	}
	return out
}

func (w *WireHandle) point(index int) (*kicadsexp.List, error) {
	pts, ok := sexp.FindList(w.node, "pts")
	if !ok {
		return nil, fmt.Errorf("wire has no points")
	}
	xys := sexp.FindAllNodes(pts, "xy")
	if index >= len(xys) {
		return nil, fmt.Errorf("wire has %d points, no index %d", len(xys), index)
	}
	if index < 0 {
		index = len(xys) - 1
	}
	return xys[index].(*kicadsexp.List), nil
}

// StartAt moves the first point of the wire.
func (w *WireHandle) StartAt(pos Position) error {
	xy, err := w.point(0)
	if err != nil {
		return err
	}
	return sexp.SetXY(xy, pos)
}

// EndAt moves the last point of the wire.
func (w *WireHandle) EndAt(pos Position) error {
	xy, err := w.point(-1)
	if err != nil {
		return err
	}
	return sexp.SetXY(xy, pos)
}

// Start returns the first point of the wire.
func (w *WireHandle) Start() Position {
	xy, err := w.point(0)
	if err != nil {
		return Position{}
	}
	pos, _ := sexp.GetPositionXY(xy)
	return pos
}

// End returns the last point of the wire.
func (w *WireHandle) End() Position {
	xy, err := w.point(-1)
	if err != nil {
		return Position{}
	}
	pos, _ := sexp.GetPositionXY(xy)
	return pos
}

// Connect is StartAt(from) followed by EndAt(to).
func (w *WireHandle) Connect(from, to Position) error {
	if err := w.StartAt(from); err != nil {
		return err
	}
	return w.EndAt(to)
}

// Delete removes the wire.
func (w *WireHandle) Delete() error {
	if !w.doc.root.Remove(w.node) {
		return fmt.Errorf("delete wire: %w", ErrDetached)
	}
	return nil
}

// LabelKind selects the KiCad label flavour.
type LabelKind string

const (
	LabelLocal  LabelKind = "label"
	LabelGlobal LabelKind = "global_label"
)

// LabelHandle is a local or global net label inside a Document.
type LabelHandle struct {
	doc  *Document
	node *kicadsexp.List
}

// NewLabel adds a local label with text at the origin.
func (d *Document) NewLabel(text string) *LabelHandle {
	node := kicadsexp.NewList(sym(string(LabelLocal)), kicadsexp.String(text),
		sexp.NewAt(Position{}, 0),
		kicadsexp.NewList(sym("effects"), fontSize(),
			kicadsexp.NewList(sym("justify"), sym("left"), sym("bottom"))),
		kicadsexp.NewList(sym("uuid"), d.newID()),
	)
	d.insert(node)
	return &LabelHandle{doc: d, node: node}
}

// NewGlobalLabel adds a global label with text and shape (input, output,
// bidirectional, tri_state, passive) at the origin.
func (d *Document) NewGlobalLabel(text, shape string) *LabelHandle {
	node := kicadsexp.NewList(sym(string(LabelGlobal)), kicadsexp.String(text),
		kicadsexp.NewList(sym("shape"), sym(shape)),
		sexp.NewAt(Position{}, 0),
		kicadsexp.NewList(sym("effects"), fontSize(),
			kicadsexp.NewList(sym("justify"), sym("left"))),
		kicadsexp.NewList(sym("uuid"), d.newID()),
		kicadsexp.NewList(sym("property"), kicadsexp.String("Intersheetrefs"), kicadsexp.String("${INTERSHEET_REFS}"),
			sexp.NewAt(Position{}, 0),
			kicadsexp.NewList(sym("effects"), fontSize(),
				kicadsexp.NewList(sym("justify"), sym("left")),
				sym("hide"))),
	)
	d.insert(node)
	return &LabelHandle{doc: d, node: node}
}

// Labels returns every label of the given kind in document order.
func (d *Document) Labels(kind LabelKind) []*LabelHandle {
	nodes := sexp.FindAllNodes(d.root, string(kind))
	out := make([]*LabelHandle, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, &LabelHandle{doc: d, node: node.(*kicadsexp.List)})
	}
	return out
}

// Kind reports whether the label is local or global.
func (l *LabelHandle) Kind() LabelKind {
	return LabelKind(l.node.Keyword())
}

// Text returns the net name carried by the label.
func (l *LabelHandle) Text() string {
	v, _ := sexp.GetString(l.node, 1)
	return v
}

// SetText changes the net name carried by the label.
func (l *LabelHandle) SetText(text string) error {
	return sexp.SetString(l.node, 1, text)
}

// At returns the label anchor and rotation.
func (l *LabelHandle) At() PositionAngle {
	if node, ok := sexp.FindList(l.node, "at"); ok {
		pos, _ := sexp.GetPosition(node)
		return pos
	}
	return PositionAngle{}
}

// Move places the label anchor at pos rotated by angle. Text is justified
// away from the anchor: labels at 180 or 270 degrees read right to left.
func (l *LabelHandle) Move(pos Position, angle Angle) error {
	at, ok := sexp.FindList(l.node, "at")
	if !ok {
		return fmt.Errorf("label %s has no position", l.Text())
	}
	if err := sexp.SetAt(at, pos, angle); err != nil {
		return fmt.Errorf("move label %s: %w", l.Text(), err)
	}

	horizontal := "left"
	if a := angle.Normalize(); a == 180 || a == 270 {
		horizontal = "right"
	}
	vertical := "bottom"
	if l.Kind() == LabelGlobal {
		vertical = ""
	}
	if effects, ok := sexp.FindList(l.node, "effects"); ok {
		sexp.SetJustify(effects, horizontal, vertical)
	}

	// Field positions follow the anchor
	for _, prop := range sexp.FindAllNodes(l.node, "property") {
		if propAt, ok := sexp.FindList(prop, "at"); ok {
			if err := sexp.SetAt(propAt, pos, 0); err != nil {
				return fmt.Errorf("move label %s: property: %w", l.Text(), err)
			}
		}
	}

	return nil
}

// Clone copies the label into the document with a fresh UUID.
func (l *LabelHandle) Clone() (*LabelHandle, error) {
	if !l.doc.contains(l.node) {
		return nil, fmt.Errorf("clone label %s: %w", l.Text(), ErrDetached)
	}
	node := l.node.Clone()
	l.doc.refreshIDs(node)
	l.doc.insert(node)
	return &LabelHandle{doc: l.doc, node: node}, nil
}

// Delete removes the label.
func (l *LabelHandle) Delete() error {
	if !l.doc.root.Remove(l.node) {
		return fmt.Errorf("delete label %s: %w", l.Text(), ErrDetached)
	}
	return nil
}

// NewJunction adds a junction dot at pos.
func (d *Document) NewJunction(pos Position) {
	d.insert(kicadsexp.NewList(sym("junction"),
		kicadsexp.NewList(sym("at"), sexp.Num(pos.X), sexp.Num(pos.Y)),
		kicadsexp.NewList(sym("diameter"), sexp.Num(0)),
		kicadsexp.NewList(sym("color"), sexp.Num(0), sexp.Num(0), sexp.Num(0), sexp.Num(0)),
		kicadsexp.NewList(sym("uuid"), d.newID()),
	))
}
