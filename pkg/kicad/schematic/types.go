// Package schematic reads and edits KiCad schematic files (.kicad_sch).
//
// Parse and ParseFile produce a read-only Schematic snapshot. Load and
// LoadFile produce an editable Document whose symbols, wires, labels and
// junctions can be cloned, moved, created and deleted before the document
// is written back.
package schematic

import (
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
)

// Re-export shared types from sexp package for convenience
type Position = sexp.Position
type Angle = sexp.Angle
type PositionAngle = sexp.PositionAngle
type Size = sexp.Size
type Color = sexp.Color
type Stroke = sexp.Stroke
type UUID = sexp.UUID
type Effects = sexp.Effects
type Property = sexp.Property

// Schematic represents a complete KiCad schematic file
type Schematic struct {
	Version      int           // File format version
	Generator    string        // Generator info (e.g., "eeschema")
	GeneratorVer string        // Generator version
	UUID         UUID          // Schematic UUID
	Paper        string        // Paper size (e.g., "A4")
	TitleBlock   TitleBlock    // Title block information
	LibSymbols   []LibSymbol   // Embedded library symbols
	Symbols      []Symbol      // Symbol instances on the schematic
	Wires        []Wire        // Wire connections
	Junctions    []Junction    // Wire junctions
	NoConnects   []NoConnect   // No-connect markers
	Labels       []Label       // Local labels
	GlobalLabels []GlobalLabel // Global labels
	HierLabels   []HierLabel   // Hierarchical labels
}

// TitleBlock contains schematic title block information
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
}

// LibSymbol represents an embedded library symbol definition
type LibSymbol struct {
	Name       string       // Symbol name (e.g., "Device:R")
	Properties []Property   // Symbol properties
	Pins       []Pin        // Pin definitions of all units
	Units      []SymbolUnit // Symbol units (for multi-unit symbols)
}

// SymbolUnit represents a unit of a multi-unit symbol
type SymbolUnit struct {
	Name  string // Unit name, e.g. "D_1_1"
	Unit  int    // Unit number (0 = common to all units)
	Style int    // Body style (0 = common, 1 = normal, 2 = De Morgan)
	Pins  []Pin  // Unit pins
}

// Pin represents a symbol pin
type Pin struct {
	Type     string   // Pin type (input, output, passive, etc.)
	Style    string   // Pin style (line, inverted, clock, etc.)
	Position Position // Pin connection point in symbol coordinates (Y up)
	Angle    Angle    // Pin angle (0, 90, 180, 270)
	Length   float64  // Pin length
	Name     string   // Pin name
	Number   string   // Pin number
	Hide     bool     // Hidden pin
}

// Symbol represents a symbol instance placed on the schematic
type Symbol struct {
	LibID      string     // Library identifier (e.g., "Device:R")
	LibName    string     // Embedded symbol name when it differs from LibID
	Position   Position   // Position on schematic
	Angle      Angle      // Rotation angle
	Mirror     string     // Mirror mode (x, y, or empty)
	Unit       int        // Unit number (for multi-unit symbols)
	UUID       UUID       // Instance UUID
	Properties []Property // Instance properties (Reference, Value, etc.)
	Pins       []PinRef   // Pin references
}

// PinRef represents a pin reference in a symbol instance
type PinRef struct {
	Number string // Pin number
	UUID   UUID   // Pin UUID
}

// Wire represents a wire connection
type Wire struct {
	Points []Position // Wire points (at least 2)
	Stroke Stroke     // Wire stroke style
	UUID   UUID       // Wire UUID
}

// Junction represents a wire junction
type Junction struct {
	Position Position // Junction position
	Diameter float64  // Junction diameter
	Color    Color    // Junction color
	UUID     UUID     // Junction UUID
}

// NoConnect represents a no-connect marker
type NoConnect struct {
	Position Position // Marker position
	UUID     UUID     // Marker UUID
}

// Label represents a local wire label
type Label struct {
	Text     string   // Label text
	Position Position // Label position
	Angle    Angle    // Label rotation
	Effects  Effects  // Text effects
	UUID     UUID     // Label UUID
}

// GlobalLabel represents a global label (visible across sheets)
type GlobalLabel struct {
	Text       string     // Label text
	Shape      string     // Label shape (input, output, bidirectional, etc.)
	Position   Position   // Label position
	Angle      Angle      // Label rotation
	Effects    Effects    // Text effects
	UUID       UUID       // Label UUID
	Properties []Property // Label properties
}

// HierLabel represents a hierarchical label (connects to sheet pins)
type HierLabel struct {
	Text     string   // Label text
	Shape    string   // Label shape
	Position Position // Label position
	Angle    Angle    // Label rotation
	UUID     UUID     // Label UUID
}

// Reference returns the Reference property of the symbol.
func (s Symbol) Reference() string {
	return s.Property("Reference")
}

// Property returns the value of the named property, or "".
func (s Symbol) Property(key string) string {
	for _, prop := range s.Properties {
		if prop.Key == key {
			return prop.Value
		}
	}
	return ""
}

// GetSymbol returns a symbol by reference designator
func (s *Schematic) GetSymbol(ref string) *Symbol {
	for i := range s.Symbols {
		if s.Symbols[i].Reference() == ref {
			return &s.Symbols[i]
		}
	}
	return nil
}

// GetLibSymbol returns the embedded library symbol used by sym.
func (s *Schematic) GetLibSymbol(sym *Symbol) *LibSymbol {
	name := sym.LibID
	if sym.LibName != "" {
		name = sym.LibName
	}
	for i := range s.LibSymbols {
		if s.LibSymbols[i].Name == name {
			return &s.LibSymbols[i]
		}
	}
	return nil
}

// GetAllReferences returns all reference designators
func (s *Schematic) GetAllReferences() []string {
	var refs []string
	for _, sym := range s.Symbols {
		if ref := sym.Reference(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// GetLabels returns all label names (local + global + hierarchical)
func (s *Schematic) GetLabels() []string {
	seen := make(map[string]bool)
	var labels []string

	add := func(text string) {
		if !seen[text] {
			seen[text] = true
			labels = append(labels, text)
		}
	}

	for _, l := range s.Labels {
		add(l.Text)
	}
	for _, l := range s.GlobalLabels {
		add(l.Text)
	}
	for _, l := range s.HierLabels {
		add(l.Text)
	}

	return labels
}

// GetBoundingBox calculates the bounding box of all placed elements
func (s *Schematic) GetBoundingBox() sexp.BoundingBox {
	bbox := sexp.NewBoundingBox()

	for _, wire := range s.Wires {
		for _, pt := range wire.Points {
			bbox.Expand(pt)
		}
	}
	for _, sym := range s.Symbols {
		bbox.Expand(sym.Position)
	}
	for _, label := range s.Labels {
		bbox.Expand(label.Position)
	}
	for _, label := range s.GlobalLabels {
		bbox.Expand(label.Position)
	}
	for _, label := range s.HierLabels {
		bbox.Expand(label.Position)
	}
	for _, junc := range s.Junctions {
		bbox.Expand(junc.Position)
	}
	for _, nc := range s.NoConnects {
		bbox.Expand(nc.Position)
	}

	return bbox
}
