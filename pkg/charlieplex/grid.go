package charlieplex

import (
	"errors"
	"fmt"
)

var (
	// ErrCellOccupied is returned when a grid cell is written twice.
	ErrCellOccupied = errors.New("cell already occupied")
	// ErrOutOfRange is returned for a cell outside the grid.
	ErrOutOfRange = errors.New("cell outside grid")
)

// Cell is a (row, column) position in the matrix.
type Cell struct {
	Row int
	Col int
}

// Diagonal reports whether the cell sits on the diagonal (row == col).
func (c Cell) Diagonal() bool {
	return c.Row == c.Col
}

func (c Cell) String() string {
	return fmt.Sprintf("%d_%d", c.Row, c.Col)
}

// DiagonalMode selects which cells of a grid receive an element.
type DiagonalMode int

const (
	// AllCells fills every cell.
	AllCells DiagonalMode = iota
	// DiagonalOnly fills only row == col.
	DiagonalOnly
	// OffDiagonal fills everything but row == col. In a charlieplexed
	// matrix the diagonal would short a line with itself.
	OffDiagonal
)

// Includes reports whether cell c is selected by the mode.
func (m DiagonalMode) Includes(c Cell) bool {
	switch m {
	case DiagonalOnly:
		return c.Diagonal()
	case OffDiagonal:
		return !c.Diagonal()
	default:
		return true
	}
}

func (m DiagonalMode) String() string {
	switch m {
	case AllCells:
		return "all"
	case DiagonalOnly:
		return "diagonal"
	case OffDiagonal:
		return "off-diagonal"
	default:
		return fmt.Sprintf("DiagonalMode(%d)", int(m))
	}
}

// Cells lists the cells of a rows x cols grid selected by mode, row-major.
func Cells(rows, cols int, mode DiagonalMode) []Cell {
	var cells []Cell
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := Cell{Row: r, Col: c}
			if mode.Includes(cell) {
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

// Grid is a sparse rows x cols matrix holding at most one value per cell.
type Grid[T any] struct {
	rows, cols int
	values     []T
	set        []bool
	count      int
}

// NewGrid returns an empty rows x cols grid.
func NewGrid[T any](rows, cols int) *Grid[T] {
	return &Grid[T]{
		rows:   rows,
		cols:   cols,
		values: make([]T, rows*cols),
		set:    make([]bool, rows*cols),
	}
}

// Rows returns the number of rows.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid[T]) Cols() int { return g.cols }

// Len returns the number of occupied cells.
func (g *Grid[T]) Len() int { return g.count }

func (g *Grid[T]) index(c Cell) (int, error) {
	if c.Row < 0 || c.Row >= g.rows || c.Col < 0 || c.Col >= g.cols {
		return 0, fmt.Errorf("%w: %s in %dx%d", ErrOutOfRange, c, g.rows, g.cols)
	}
	return c.Row*g.cols + c.Col, nil
}

// Set stores v at cell c. A cell can only be written once.
func (g *Grid[T]) Set(c Cell, v T) error {
	i, err := g.index(c)
	if err != nil {
		return err
	}
	if g.set[i] {
		return fmt.Errorf("%w: %s", ErrCellOccupied, c)
	}
	g.values[i] = v
	g.set[i] = true
	g.count++
	return nil
}

// Get returns the value at cell c and whether the cell is occupied.
func (g *Grid[T]) Get(c Cell) (T, bool) {
	var zero T
	i, err := g.index(c)
	if err != nil || !g.set[i] {
		return zero, false
	}
	return g.values[i], true
}

// Each calls fn for every occupied cell in row-major order and stops at the
// first error.
func (g *Grid[T]) Each(fn func(Cell, T) error) error {
	for i, ok := range g.set {
		if !ok {
			continue
		}
		cell := Cell{Row: i / g.cols, Col: i % g.cols}
		if err := fn(cell, g.values[i]); err != nil {
			return err
		}
	}
	return nil
}
