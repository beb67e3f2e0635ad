package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// S-expression mutation helpers

// FormatFloat renders a number the way KiCad writes it: at most four
// decimals, no trailing zeros, no negative zero.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(round4(v), 'f', -1, 64)
}

// Num is a bare numeric atom.
func Num(v float64) kicadsexp.Symbol {
	return kicadsexp.Symbol(FormatFloat(v))
}

// NewAt builds (at X Y ANGLE).
func NewAt(pos Position, angle Angle) *kicadsexp.List {
	return kicadsexp.NewList(kicadsexp.Symbol("at"), Num(pos.X), Num(pos.Y), Num(float64(angle.Normalize())))
}

// NewXY builds (xy X Y).
func NewXY(pos Position) *kicadsexp.List {
	return kicadsexp.NewList(kicadsexp.Symbol("xy"), Num(pos.X), Num(pos.Y))
}

// SetXY overwrites the X and Y values of an (at ...), (xy ...) or similar node
// in place, keeping any trailing values such as the angle.
func SetXY(node *kicadsexp.List, pos Position) error {
	if node.Len() < 3 {
		return fmt.Errorf("%s: expected at least two coordinates", node.Keyword())
	}
	node.Set(1, Num(pos.X))
	node.Set(2, Num(pos.Y))
	return nil
}

// SetAt overwrites an (at X Y [ANGLE]) node. The angle is written when the
// node already carries one or when it is non-zero.
func SetAt(node *kicadsexp.List, pos Position, angle Angle) error {
	if err := SetXY(node, pos); err != nil {
		return err
	}
	switch {
	case node.Len() > 3:
		node.Set(3, Num(float64(angle.Normalize())))
	case angle != 0:
		node.Append(Num(float64(angle.Normalize())))
	}
	return nil
}

// Translate shifts the X/Y values of an (at ...) or (xy ...) node by d.
func Translate(node *kicadsexp.List, d Position) error {
	pos, err := GetPositionXY(node)
	if err != nil {
		return err
	}
	return SetXY(node, pos.Add(d))
}

// SetString replaces the atom at index with a quoted string.
func SetString(node *kicadsexp.List, index int, value string) error {
	if index < 0 || index >= node.Len() {
		return fmt.Errorf("%s: index %d out of bounds (length %d)", node.Keyword(), index, node.Len())
	}
	node.Set(index, kicadsexp.String(value))
	return nil
}

// SetJustify replaces the horizontal part of a (justify ...) node inside an
// (effects ...) list, creating the node when needed.
func SetJustify(effects *kicadsexp.List, horizontal, vertical string) {
	node := kicadsexp.NewList(kicadsexp.Symbol("justify"), kicadsexp.Symbol(horizontal))
	if vertical != "" {
		node.Append(kicadsexp.Symbol(vertical))
	}
	if old, ok := FindList(effects, "justify"); ok {
		effects.Set(effects.IndexOf(old), node)
		return
	}
	effects.Append(node)
}

// RemoveNodes deletes every child list of parent with the given key and
// returns how many were removed.
func RemoveNodes(parent *kicadsexp.List, key string) int {
	removed := 0
	for _, node := range FindAllNodes(parent, key) {
		if parent.Remove(node) {
			removed++
		}
	}
	return removed
}

// Walk visits every list in the tree rooted at s, depth first.
func Walk(s kicadsexp.Sexp, fn func(*kicadsexp.List)) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return
	}
	fn(list)
	for _, item := range list.Items() {
		Walk(item, fn)
	}
}
