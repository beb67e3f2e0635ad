package schematic

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// ParseFile reads and parses a KiCad schematic file
func ParseFile(filename string) (*Schematic, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader
func Parse(r io.Reader) (*Schematic, error) {
	root, err := parseRoot(r)
	if err != nil {
		return nil, err
	}
	return fromTree(root)
}

// parseRoot reads the input and returns the (kicad_sch ...) list
func parseRoot(r io.Reader) (*kicadsexp.List, error) {
	sexps, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}

	if len(sexps) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root, ok := sexps[0].(*kicadsexp.List)
	if !ok || root.Keyword() != "kicad_sch" {
		name, _ := sexp.GetNodeName(sexps[0])
		return nil, fmt.Errorf("%w: expected 'kicad_sch', got '%s'", ErrNotSchematic, name)
	}

	return root, nil
}

// fromTree builds the read-only model from a (kicad_sch ...) tree
func fromTree(root *kicadsexp.List) (*Schematic, error) {
	sch := &Schematic{}

	if err := parseHeader(root, sch); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if uuidNode, found := sexp.FindList(root, "uuid"); found {
		sch.UUID, _ = sexp.GetUUID(uuidNode)
	}

	if paperNode, found := sexp.FindList(root, "paper"); found {
		sch.Paper, _ = sexp.GetString(paperNode, 1)
	}

	if titleBlockNode, found := sexp.FindList(root, "title_block"); found {
		sch.TitleBlock = parseTitleBlock(titleBlockNode)
	}

	if libSymbolsNode, found := sexp.FindList(root, "lib_symbols"); found {
		sch.LibSymbols = parseLibSymbols(libSymbolsNode)
	}

	sch.Symbols = parseSymbols(root)
	sch.Wires = parseWires(root)
	sch.Junctions = parseJunctions(root)
	sch.NoConnects = parseNoConnects(root)
	sch.Labels = parseLabels(root)
	sch.GlobalLabels = parseGlobalLabels(root)
	sch.HierLabels = parseHierLabels(root)

	return sch, nil
}

// parseHeader extracts version and generator information
func parseHeader(root kicadsexp.Sexp, sch *Schematic) error {
	versionNode, found := sexp.FindList(root, "version")
	if !found {
		return fmt.Errorf("missing required 'version' field")
	}

	ver, err := sexp.GetInt(versionNode, 1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}

	if ver < MinSupportedVersion {
		return fmt.Errorf("%w: %d (minimum required: %d / KiCad 6.0)", ErrUnsupportedVersion, ver, MinSupportedVersion)
	}
	sch.Version = ver

	if genNode, found := sexp.FindList(root, "generator"); found {
		sch.Generator, _ = sexp.GetString(genNode, 1)
	}

	if genVerNode, found := sexp.FindList(root, "generator_version"); found {
		sch.GeneratorVer, _ = sexp.GetString(genVerNode, 1)
	}

	return nil
}

// parseTitleBlock extracts title block information
func parseTitleBlock(node kicadsexp.Sexp) TitleBlock {
	tb := TitleBlock{}

	if titleNode, found := sexp.FindList(node, "title"); found {
		tb.Title, _ = sexp.GetString(titleNode, 1)
	}
	if dateNode, found := sexp.FindList(node, "date"); found {
		tb.Date, _ = sexp.GetString(dateNode, 1)
	}
	if revNode, found := sexp.FindList(node, "rev"); found {
		tb.Revision, _ = sexp.GetString(revNode, 1)
	}
	if companyNode, found := sexp.FindList(node, "company"); found {
		tb.Company, _ = sexp.GetString(companyNode, 1)
	}

	return tb
}

// parseLibSymbols parses embedded library symbols
func parseLibSymbols(node kicadsexp.Sexp) []LibSymbol {
	symbolNodes := sexp.FindAllNodes(node, "symbol")
	symbols := make([]LibSymbol, 0, len(symbolNodes))

	for _, symNode := range symbolNodes {
		symbols = append(symbols, parseLibSymbol(symNode))
	}

	return symbols
}

// parseLibSymbol parses a single library symbol definition
func parseLibSymbol(node kicadsexp.Sexp) LibSymbol {
	sym := LibSymbol{}

	sym.Name, _ = sexp.GetString(node, 1)

	for _, pn := range sexp.FindAllNodes(node, "property") {
		if prop, err := sexp.GetProperty(pn); err == nil {
			sym.Properties = append(sym.Properties, prop)
		}
	}

	// Pins placed directly on the symbol belong to every unit
	for _, pn := range sexp.FindAllNodes(node, "pin") {
		sym.Pins = append(sym.Pins, parsePin(pn))
	}

	// Nested symbol units contain the actual graphics and pins
	for _, unitNode := range sexp.FindAllNodes(node, "symbol") {
		unit := parseSymbolUnit(unitNode)
		sym.Units = append(sym.Units, unit)
		sym.Pins = append(sym.Pins, unit.Pins...)
	}

	return sym
}

// parseSymbolUnit parses a nested symbol unit such as (symbol "D_1_1" ...)
func parseSymbolUnit(node kicadsexp.Sexp) SymbolUnit {
	unit := SymbolUnit{}

	unit.Name, _ = sexp.GetString(node, 1)
	unit.Unit, unit.Style = unitSuffix(unit.Name)

	for _, pn := range sexp.FindAllNodes(node, "pin") {
		unit.Pins = append(unit.Pins, parsePin(pn))
	}

	return unit
}

// unitSuffix decodes the "<name>_<unit>_<style>" naming of symbol units
func unitSuffix(name string) (unit, style int) {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return 0, 0
	}
	style, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, 0
	}
	rest := name[:i]
	j := strings.LastIndexByte(rest, '_')
	if j < 0 {
		return 0, 0
	}
	unit, err = strconv.Atoi(rest[j+1:])
	if err != nil {
		return 0, 0
	}
	return unit, style
}

// parsePin parses a pin definition
func parsePin(node kicadsexp.Sexp) Pin {
	pin := Pin{}

	pin.Type, _ = sexp.GetString(node, 1)
	pin.Style, _ = sexp.GetString(node, 2)

	if atNode, found := sexp.FindList(node, "at"); found {
		pos, _ := sexp.GetPosition(atNode)
		pin.Position = pos.Position
		pin.Angle = pos.Angle
	}

	if lenNode, found := sexp.FindList(node, "length"); found {
		pin.Length, _ = sexp.GetFloat(lenNode, 1)
	}

	if nameNode, found := sexp.FindList(node, "name"); found {
		pin.Name, _ = sexp.GetString(nameNode, 1)
	}

	if numNode, found := sexp.FindList(node, "number"); found {
		pin.Number, _ = sexp.GetString(numNode, 1)
	}

	pin.Hide = sexp.HasSymbol(node, "hide")
	if hideNode, found := sexp.FindList(node, "hide"); found {
		v, _ := sexp.GetString(hideNode, 1)
		pin.Hide = v == "yes"
	}

	return pin
}

// parseSymbols parses symbol instances
func parseSymbols(root kicadsexp.Sexp) []Symbol {
	symbolNodes := sexp.FindAllNodes(root, "symbol")
	symbols := make([]Symbol, 0, len(symbolNodes))

	for _, symNode := range symbolNodes {
		symbols = append(symbols, parseSymbol(symNode))
	}

	return symbols
}

// parseSymbol parses a single symbol instance
func parseSymbol(node kicadsexp.Sexp) Symbol {
	sym := Symbol{Unit: 1}

	if libNode, found := sexp.FindList(node, "lib_id"); found {
		sym.LibID, _ = sexp.GetString(libNode, 1)
	}

	if libNameNode, found := sexp.FindList(node, "lib_name"); found {
		sym.LibName, _ = sexp.GetString(libNameNode, 1)
	}

	if atNode, found := sexp.FindList(node, "at"); found {
		pos, _ := sexp.GetPosition(atNode)
		sym.Position = pos.Position
		sym.Angle = pos.Angle
	}

	if mirrorNode, found := sexp.FindList(node, "mirror"); found {
		sym.Mirror, _ = sexp.GetString(mirrorNode, 1)
	}

	if unitNode, found := sexp.FindList(node, "unit"); found {
		sym.Unit, _ = sexp.GetInt(unitNode, 1)
	}

	if uuidNode, found := sexp.FindList(node, "uuid"); found {
		sym.UUID, _ = sexp.GetUUID(uuidNode)
	}

	for _, pn := range sexp.FindAllNodes(node, "property") {
		if prop, err := sexp.GetProperty(pn); err == nil {
			sym.Properties = append(sym.Properties, prop)
		}
	}

	for _, pn := range sexp.FindAllNodes(node, "pin") {
		ref := PinRef{}
		ref.Number, _ = sexp.GetString(pn, 1)
		if uuidNode, found := sexp.FindList(pn, "uuid"); found {
			ref.UUID, _ = sexp.GetUUID(uuidNode)
		}
		sym.Pins = append(sym.Pins, ref)
	}

	return sym
}

// parseWires parses wire connections
func parseWires(root kicadsexp.Sexp) []Wire {
	wireNodes := sexp.FindAllNodes(root, "wire")
	wires := make([]Wire, 0, len(wireNodes))

	for _, wn := range wireNodes {
		wire := Wire{}

		if ptsNode, found := sexp.FindList(wn, "pts"); found {
			for _, xy := range sexp.FindAllNodes(ptsNode, "xy") {
				pos, _ := sexp.GetPositionXY(xy)
				wire.Points = append(wire.Points, pos)
			}
		}

		if strokeNode, found := sexp.FindList(wn, "stroke"); found {
			wire.Stroke, _ = sexp.GetStroke(strokeNode)
		}

		if uuidNode, found := sexp.FindList(wn, "uuid"); found {
			wire.UUID, _ = sexp.GetUUID(uuidNode)
		}

		wires = append(wires, wire)
	}

	return wires
}

// parseJunctions parses wire junctions
func parseJunctions(root kicadsexp.Sexp) []Junction {
	juncNodes := sexp.FindAllNodes(root, "junction")
	junctions := make([]Junction, 0, len(juncNodes))

	for _, jn := range juncNodes {
		junc := Junction{}

		if atNode, found := sexp.FindList(jn, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			junc.Position = pos.Position
		}

		if diamNode, found := sexp.FindList(jn, "diameter"); found {
			junc.Diameter, _ = sexp.GetFloat(diamNode, 1)
		}

		if colorNode, found := sexp.FindList(jn, "color"); found {
			junc.Color, _ = sexp.GetColor(colorNode)
		}

		if uuidNode, found := sexp.FindList(jn, "uuid"); found {
			junc.UUID, _ = sexp.GetUUID(uuidNode)
		}

		junctions = append(junctions, junc)
	}

	return junctions
}

// parseNoConnects parses no-connect markers
func parseNoConnects(root kicadsexp.Sexp) []NoConnect {
	ncNodes := sexp.FindAllNodes(root, "no_connect")
	ncs := make([]NoConnect, 0, len(ncNodes))

	for _, ncn := range ncNodes {
		nc := NoConnect{}

		if atNode, found := sexp.FindList(ncn, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			nc.Position = pos.Position
		}

		if uuidNode, found := sexp.FindList(ncn, "uuid"); found {
			nc.UUID, _ = sexp.GetUUID(uuidNode)
		}

		ncs = append(ncs, nc)
	}

	return ncs
}

// parseLabels parses local wire labels
func parseLabels(root kicadsexp.Sexp) []Label {
	labelNodes := sexp.FindAllNodes(root, "label")
	labels := make([]Label, 0, len(labelNodes))

	for _, ln := range labelNodes {
		label := Label{}

		label.Text, _ = sexp.GetString(ln, 1)

		if atNode, found := sexp.FindList(ln, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			label.Position = pos.Position
			label.Angle = pos.Angle
		}

		if effectsNode, found := sexp.FindList(ln, "effects"); found {
			label.Effects, _ = sexp.GetEffects(effectsNode)
		}

		if uuidNode, found := sexp.FindList(ln, "uuid"); found {
			label.UUID, _ = sexp.GetUUID(uuidNode)
		}

		labels = append(labels, label)
	}

	return labels
}

// parseGlobalLabels parses global labels
func parseGlobalLabels(root kicadsexp.Sexp) []GlobalLabel {
	labelNodes := sexp.FindAllNodes(root, "global_label")
	labels := make([]GlobalLabel, 0, len(labelNodes))

	for _, ln := range labelNodes {
		label := GlobalLabel{}

		label.Text, _ = sexp.GetString(ln, 1)

		if shapeNode, found := sexp.FindList(ln, "shape"); found {
			label.Shape, _ = sexp.GetString(shapeNode, 1)
		}

		if atNode, found := sexp.FindList(ln, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			label.Position = pos.Position
			label.Angle = pos.Angle
		}

		if effectsNode, found := sexp.FindList(ln, "effects"); found {
			label.Effects, _ = sexp.GetEffects(effectsNode)
		}

		if uuidNode, found := sexp.FindList(ln, "uuid"); found {
			label.UUID, _ = sexp.GetUUID(uuidNode)
		}

		for _, pn := range sexp.FindAllNodes(ln, "property") {
			if prop, err := sexp.GetProperty(pn); err == nil {
				label.Properties = append(label.Properties, prop)
			}
		}

		labels = append(labels, label)
	}

	return labels
}

// parseHierLabels parses hierarchical labels
func parseHierLabels(root kicadsexp.Sexp) []HierLabel {
	labelNodes := sexp.FindAllNodes(root, "hierarchical_label")
	labels := make([]HierLabel, 0, len(labelNodes))

	for _, ln := range labelNodes {
		label := HierLabel{}

		label.Text, _ = sexp.GetString(ln, 1)

		if shapeNode, found := sexp.FindList(ln, "shape"); found {
			label.Shape, _ = sexp.GetString(shapeNode, 1)
		}

		if atNode, found := sexp.FindList(ln, "at"); found {
			pos, _ := sexp.GetPosition(atNode)
			label.Position = pos.Position
			label.Angle = pos.Angle
		}

		if uuidNode, found := sexp.FindList(ln, "uuid"); found {
			label.UUID, _ = sexp.GetUUID(uuidNode)
		}

		labels = append(labels, label)
	}

	return labels
}
