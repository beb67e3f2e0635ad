package charlieplex

import (
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/schematic"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
)

// CellSize is the footprint of one matrix cell on the sheet, in grid units.
type CellSize struct {
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
}

// Layout maps matrix cells to sheet coordinates.
type Layout struct {
	Rows       int
	Cols       int
	CellWidth  float64 // grid units per row step, along X
	CellHeight float64 // grid units per column step, along Y
}

// ToSheet returns the sheet position of cell c for an element whose template
// sits at origin. Rows advance along X and columns along Y.
func (l Layout) ToSheet(origin schematic.Position, c Cell) schematic.Position {
	return schematic.Position{
		X: origin.X + float64(c.Row)*l.CellWidth*sexp.Grid,
		Y: origin.Y + float64(c.Col)*l.CellHeight*sexp.Grid,
	}.Round()
}

// Cells lists the cells of the layout selected by mode, row-major.
func (l Layout) Cells(mode DiagonalMode) []Cell {
	return Cells(l.Rows, l.Cols, mode)
}
