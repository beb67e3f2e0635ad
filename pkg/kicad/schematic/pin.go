package schematic

import (
	"fmt"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
)

// PinHandle is one pin of a placed symbol.
type PinHandle struct {
	symbol *SymbolHandle
	def    Pin
}

// Number returns the pin number, e.g. "1".
func (p *PinHandle) Number() string {
	return p.def.Number
}

// Name returns the pin name, e.g. "K".
func (p *PinHandle) Name() string {
	return p.def.Name
}

// Symbol returns the symbol the pin belongs to.
func (p *PinHandle) Symbol() *SymbolHandle {
	return p.symbol
}

// Location returns the connection point of the pin in sheet coordinates.
func (p *PinHandle) Location() Position {
	at := p.symbol.At()
	offset := transformPin(p.def.Position, at.Angle, p.symbol.Mirror())
	return at.Position.Add(offset).Round()
}

// transformPin maps a library pin position (Y up) to a sheet offset (Y down)
// for a symbol rotated by angle and mirrored about mirror.
func transformPin(pos Position, angle Angle, mirror string) Position {
	x, y := pos.X, pos.Y

	// Counter-clockwise rotation in library space
	switch angle.Normalize() {
	case 90:
		x, y = -y, x
	case 180:
		x, y = -x, -y
	case 270:
		x, y = y, -x
	}

	// Library Y grows upward, the sheet grows downward
	y = -y

	switch mirror {
	case "x":
		y = -y
	case "y":
		x = -x
	}

	return Position{X: x, Y: y}
}

// Pins returns the pins of the symbol in instance order: the order of the
// (pin "N" ...) entries of the placed symbol, falling back to library order.
func (s *SymbolHandle) Pins() ([]*PinHandle, error) {
	defs, err := s.pinDefs()
	if err != nil {
		return nil, err
	}

	byNumber := make(map[string]Pin, len(defs))
	for _, def := range defs {
		if _, dup := byNumber[def.Number]; !dup {
			byNumber[def.Number] = def
		}
	}

	var pins []*PinHandle
	for _, node := range sexp.FindAllNodes(s.node, "pin") {
		num, _ := sexp.GetString(node, 1)
		if def, ok := byNumber[num]; ok {
			pins = append(pins, &PinHandle{symbol: s, def: def})
		}
	}
	if len(pins) > 0 {
		return pins, nil
	}

	for _, def := range defs {
		pins = append(pins, &PinHandle{symbol: s, def: def})
	}
	return pins, nil
}

// Pin returns the pin with the given name, or failing that, number.
func (s *SymbolHandle) Pin(key string) (*PinHandle, error) {
	pins, err := s.Pins()
	if err != nil {
		return nil, err
	}

	for _, p := range pins {
		if p.def.Name == key {
			return p, nil
		}
	}
	for _, p := range pins {
		if p.def.Number == key {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s has no pin %q", ErrPinNotFound, s.Reference(), key)
}

// PinAt returns the pin at index in instance order.
func (s *SymbolHandle) PinAt(index int) (*PinHandle, error) {
	pins, err := s.Pins()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pins) {
		return nil, fmt.Errorf("%w: %s has %d pins, no index %d", ErrPinNotFound, s.Reference(), len(pins), index)
	}
	return pins[index], nil
}

// pinDefs collects the library pins that belong to the instance's unit.
func (s *SymbolHandle) pinDefs() ([]Pin, error) {
	lib, ok := s.doc.libSymbol(s.libName())
	if !ok {
		return nil, fmt.Errorf("%w: %s (used by %s)", ErrLibSymbolNotFound, s.libName(), s.Reference())
	}

	def := parseLibSymbol(lib)
	unit := s.Unit()

	var pins []Pin
	for _, pn := range sexp.FindAllNodes(lib, "pin") {
		pins = append(pins, parsePin(pn))
	}
	for _, u := range def.Units {
		if u.Unit != 0 && u.Unit != unit {
			continue
		}
		if u.Style > 1 {
			continue
		}
		pins = append(pins, u.Pins...)
	}

	return pins, nil
}
