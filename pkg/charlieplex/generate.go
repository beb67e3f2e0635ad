package charlieplex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/charliegrid/internal/logging"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/schematic"
)

// SymbolGrid holds the clones of one template.
type SymbolGrid = Grid[*schematic.SymbolHandle]

// CloneGrid clones template into every cell of layout selected by mode. Each
// clone is moved by the cell offset relative to the template and renamed to
// <template reference><row>_<col>. The template itself is left in place.
func CloneGrid(template *schematic.SymbolHandle, layout Layout, mode DiagonalMode) (*SymbolGrid, error) {
	base := template.Reference()
	origin := template.At().Position

	grid := NewGrid[*schematic.SymbolHandle](layout.Rows, layout.Cols)
	for _, cell := range layout.Cells(mode) {
		clone, err := template.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", base, err)
		}
		if err := clone.Move(layout.ToSheet(origin, cell)); err != nil {
			return nil, fmt.Errorf("clone %s: %w", base, err)
		}
		if err := clone.SetAllReferences(base + cell.String()); err != nil {
			return nil, fmt.Errorf("clone %s: %w", base, err)
		}
		if err := grid.Set(cell, clone); err != nil {
			return nil, err
		}
	}

	return grid, nil
}

// GenerateSwitches builds the switch matrix on doc: a switch and a diode
// (and optionally a capacitor) in every off-diagonal cell, and optionally an
// interrupt sensing component on every diagonal cell.
//
// In cell (row, col) the switch sits between ROW_<col> and the diode anode,
// and the diode cathode sits on COL_<row>.
func GenerateSwitches(ctx context.Context, doc *schematic.Document, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := newGenerator(ctx, doc, opts, "switches")
	layout := opts.SwitchLayout()

	switches, err := g.grid(opts.Templates.Switch, layout, OffDiagonal)
	if err != nil {
		return nil, err
	}
	diodes, err := g.grid(opts.Templates.Diode, layout, OffDiagonal)
	if err != nil {
		return nil, err
	}
	var caps *SymbolGrid
	if opts.Caps {
		if caps, err = g.grid(opts.Templates.Cap, layout, OffDiagonal); err != nil {
			return nil, err
		}
	}

	err = switches.Each(func(cell Cell, sw *schematic.SymbolHandle) error {
		diode, _ := diodes.Get(cell)
		members := []*schematic.SymbolHandle{sw, diode}

		var capacitor *schematic.SymbolHandle
		if caps != nil {
			capacitor, _ = caps.Get(cell)
			members = append(members, capacitor)
		}

		if err := g.joinCell(members...); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
		if err := g.wireSwitchCell(cell, sw, diode, capacitor); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Interrupt {
		sensors, err := g.grid(opts.Templates.Interrupt, layout, DiagonalOnly)
		if err != nil {
			return nil, err
		}
		err = sensors.Each(func(cell Cell, sensor *schematic.SymbolHandle) error {
			if err := g.joinCell(sensor); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
			if err := g.wireInterruptCell(cell, sensor); err != nil {
				return fmt.Errorf("cell %s: %w", cell, err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return g.finish()
}

// GenerateLEDs builds the LED sheet on doc: the power templates and the LED
// template are cloned into every off-diagonal cell and the LEDs are daisy
// chained in row-major order. The first input is labeled WS2812_in, every
// output WS2812_<row*cols+col>, and each later input carries the previous
// output's name.
func GenerateLEDs(ctx context.Context, doc *schematic.Document, opts Options) (*Result, error) {
	opts.LEDs = true
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := newGenerator(ctx, doc, opts, "leds")
	layout := opts.LEDLayout()

	var grids []*SymbolGrid
	for _, ref := range opts.Templates.Power {
		grid, err := g.grid(ref, layout, OffDiagonal)
		if err != nil {
			return nil, err
		}
		grids = append(grids, grid)
	}
	leds, err := g.grid(opts.Templates.LED, layout, OffDiagonal)
	if err != nil {
		return nil, err
	}
	grids = append(grids, leds)

	prev := opts.Nets.ChainIn
	err = leds.Each(func(cell Cell, led *schematic.SymbolHandle) error {
		members := make([]*schematic.SymbolHandle, 0, len(grids))
		for _, grid := range grids {
			if sym, ok := grid.Get(cell); ok {
				members = append(members, sym)
			}
		}
		if err := g.joinCell(members...); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}

		pins, err := resolvePins(led, opts.Pins.LEDIn, opts.Pins.LEDOut)
		if err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
		in, out := pins[0], pins[1]

		if err := g.label(prev, in, 0); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
		prev = fmt.Sprintf(opts.Nets.ChainOut, cell.Row*opts.Cols+cell.Col)
		if err := g.label(prev, out, 0); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return g.finish()
}

// generator carries the state of one run over one sheet.
type generator struct {
	doc  *schematic.Document
	opts Options
	log  *slog.Logger
	res  *Result
	used []*schematic.SymbolHandle
}

func newGenerator(ctx context.Context, doc *schematic.Document, opts Options, sheet string) *generator {
	return &generator{
		doc:  doc,
		opts: opts,
		log:  logging.FromContext(ctx).With("sheet", sheet),
		res:  newResult(sheet, opts),
	}
}

// grid looks up the template ref and clones it over the layout.
func (g *generator) grid(ref string, layout Layout, mode DiagonalMode) (*SymbolGrid, error) {
	template, err := g.doc.Symbol(ref)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	g.used = append(g.used, template)

	grid, err := CloneGrid(template, layout, mode)
	if err != nil {
		return nil, err
	}
	g.res.Symbols += grid.Len()

	g.log.Info("cloned template", "template", ref, "cells", mode.String(), "count", grid.Len())
	return grid, nil
}

func (g *generator) wireSwitchCell(cell Cell, sw, diode, capacitor *schematic.SymbolHandle) error {
	p := g.opts.Pins

	swPins, err := resolvePins(sw, p.SwitchRow, p.SwitchDiode)
	if err != nil {
		return err
	}
	diodePins, err := resolvePins(diode, p.DiodeAnode, p.DiodeCathode)
	if err != nil {
		return err
	}
	rowPin, swOut := swPins[0], swPins[1]
	anode, cathode := diodePins[0], diodePins[1]

	if _, err := g.wire(swOut, anode); err != nil {
		return err
	}
	if err := g.label(fmt.Sprintf(g.opts.Nets.Row, cell.Col), rowPin, 180); err != nil {
		return err
	}
	if err := g.label(fmt.Sprintf(g.opts.Nets.Col, cell.Row), cathode, 0); err != nil {
		return err
	}

	if capacitor == nil {
		return nil
	}

	capPins, err := resolvePins(capacitor, p.CapSwitch, p.CapDiode)
	if err != nil {
		return err
	}
	if _, err := g.wire(rowPin, capPins[0]); err != nil {
		return err
	}
	w, err := g.wire(capPins[1], anode)
	if err != nil {
		return err
	}
	g.junction(w.End())

	return nil
}

func (g *generator) wireInterruptCell(cell Cell, sensor *schematic.SymbolHandle) error {
	p := g.opts.Pins

	pins, err := resolvePins(sensor, p.InterruptCol, p.InterruptRow, p.InterruptLine)
	if err != nil {
		return err
	}
	col, row, line := pins[0], pins[1], pins[2]

	if err := g.label(fmt.Sprintf(g.opts.Nets.Row, cell.Row), row, 180); err != nil {
		return err
	}
	if err := g.label(fmt.Sprintf(g.opts.Nets.Col, cell.Row), col, 0); err != nil {
		return err
	}
	return g.globalLabel(g.opts.Nets.Interrupt, g.opts.Nets.InterruptShape, line, 180)
}

// joinCell connects pins of the cell's symbols that share a location, and
// puts the pins of power symbols on the net named by their Value.
func (g *generator) joinCell(members ...*schematic.SymbolHandle) error {
	seen := make(map[schematic.Position]PinRef)
	for _, sym := range members {
		pins, err := sym.Pins()
		if err != nil {
			return err
		}

		var power string
		if sym.IsPower() {
			power, _ = sym.Property("Value")
		}

		for _, pin := range pins {
			ref := pinRef(pin)
			if power != "" {
				g.res.netlist.Label(ref, power)
			}
			loc := pin.Location()
			if other, ok := seen[loc]; ok {
				g.res.netlist.Connect(other, ref)
				continue
			}
			seen[loc] = ref
		}
	}
	return nil
}

func (g *generator) wire(from, to *schematic.PinHandle) (*schematic.WireHandle, error) {
	a, b := pinRef(from), pinRef(to)

	w := g.doc.NewWire()
	if err := w.Connect(from.Location(), to.Location()); err != nil {
		return nil, fmt.Errorf("wire %s to %s: %w", a, b, err)
	}
	g.res.Wires++
	g.res.netlist.Connect(a, b)

	g.log.Debug("wire", "from", a.String(), "to", b.String())
	return w, nil
}

func (g *generator) label(text string, at *schematic.PinHandle, angle schematic.Angle) error {
	l := g.doc.NewLabel(text)
	if err := l.Move(at.Location(), angle); err != nil {
		return err
	}
	g.res.Labels++
	g.res.netlist.Label(pinRef(at), text)

	g.log.Debug("label", "net", text, "pin", pinRef(at).String())
	return nil
}

func (g *generator) globalLabel(text, shape string, at *schematic.PinHandle, angle schematic.Angle) error {
	l := g.doc.NewGlobalLabel(text, shape)
	if err := l.Move(at.Location(), angle); err != nil {
		return err
	}
	g.res.GlobalLabels++
	g.res.netlist.Label(pinRef(at), text)

	g.log.Debug("global label", "net", text, "pin", pinRef(at).String())
	return nil
}

func (g *generator) junction(pos schematic.Position) {
	g.doc.NewJunction(pos)
	g.res.Junctions++
}

// finish deletes the templates that were cloned and finalizes the result.
func (g *generator) finish() (*Result, error) {
	if g.opts.DeleteTemplates {
		for _, template := range g.used {
			ref := template.Reference()
			if err := template.Delete(); err != nil {
				return nil, fmt.Errorf("delete template: %w", err)
			}
			g.res.DeletedTemplates = append(g.res.DeletedTemplates, ref)
		}
	}

	if err := g.res.finish(); err != nil {
		return nil, err
	}

	g.log.Info("sheet generated",
		"symbols", g.res.Symbols,
		"wires", g.res.Wires,
		"labels", g.res.Labels+g.res.GlobalLabels,
		"junctions", g.res.Junctions,
		"nets", len(g.res.Nets))
	return g.res, nil
}

// resolvePin finds a pin by selector: "#n" is the n-th pin of the instance,
// anything else a pin name or number.
func resolvePin(sym *schematic.SymbolHandle, selector string) (*schematic.PinHandle, error) {
	if idx, ok := strings.CutPrefix(selector, "#"); ok {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("pin selector %q: %w", selector, err)
		}
		return sym.PinAt(n)
	}
	return sym.Pin(selector)
}

func resolvePins(sym *schematic.SymbolHandle, selectors ...string) ([]*schematic.PinHandle, error) {
	pins := make([]*schematic.PinHandle, 0, len(selectors))
	for _, sel := range selectors {
		p, err := resolvePin(sym, sel)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return pins, nil
}

func pinRef(p *schematic.PinHandle) PinRef {
	return PinRef{Ref: p.Symbol().Reference(), Pin: p.Number()}
}
