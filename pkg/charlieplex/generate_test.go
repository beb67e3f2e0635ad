package charlieplex

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/charliegrid/internal/logging"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/schematic"
)

const (
	switchesTemplate = "testdata/template-charlieplex_switches.kicad_sch"
	ledsTemplate     = "testdata/template-charlieplex_leds.kicad_sch"
)

func pos(x, y float64) schematic.Position {
	return schematic.Position{X: x, Y: y}
}

func load(t *testing.T, filename string) *schematic.Document {
	t.Helper()
	doc, err := schematic.LoadFile(filename, schematic.WithIDs(schematic.SequentialIDs(t.Name())))
	require.NoError(t, err)
	return doc
}

func testContext() context.Context {
	return logging.WithLogger(context.Background(), logging.Discard())
}

func smallOptions(n int) Options {
	opts := DefaultOptions()
	opts.Rows, opts.Cols = n, n
	return opts
}

func symbolAt(t *testing.T, doc *schematic.Document, ref string) schematic.Position {
	t.Helper()
	sym, err := doc.Symbol(ref)
	require.NoError(t, err)
	return sym.At().Position
}

func TestCloneGrid(t *testing.T) {
	doc := load(t, switchesTemplate)
	sw, err := doc.Symbol("SW_")
	require.NoError(t, err)

	layout := Layout{Rows: 3, Cols: 3, CellWidth: 11, CellHeight: 7}
	grid, err := CloneGrid(sw, layout, OffDiagonal)
	require.NoError(t, err)
	assert.Equal(t, 6, grid.Len())

	_, ok := grid.Get(Cell{1, 1})
	assert.False(t, ok, "diagonal stays empty")

	clone, ok := grid.Get(Cell{2, 1})
	require.True(t, ok)
	assert.Equal(t, "SW_2_1", clone.Reference())
	assert.Equal(t, pos(106.68, 68.58), clone.At().Position)

	assert.True(t, sw.Attached(), "the template is kept")
	assert.Equal(t, pos(50.8, 50.8), sw.At().Position)

	diag, err := CloneGrid(sw, layout, DiagonalOnly)
	require.NoError(t, err)
	assert.Equal(t, 3, diag.Len())
	assert.Equal(t, pos(78.74, 68.58), symbolAt(t, doc, "SW_1_1"))
}

func TestGenerateSwitchesDefaults(t *testing.T) {
	doc := load(t, switchesTemplate)

	res, err := GenerateSwitches(testContext(), doc, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 72*3+9, res.Symbols)
	assert.Equal(t, 72*3, res.Wires)
	assert.Equal(t, 72*2+9*2, res.Labels)
	assert.Equal(t, 9, res.GlobalLabels)
	assert.Equal(t, 72, res.Junctions)
	assert.Equal(t, []string{"SW_", "D_", "C_", "DZD_"}, res.DeletedTemplates)

	model, err := doc.Model()
	require.NoError(t, err)
	assert.Len(t, model.Symbols, res.Symbols)
	assert.Len(t, model.Wires, res.Wires)
	assert.Len(t, model.Labels, res.Labels)
	assert.Len(t, model.GlobalLabels, res.GlobalLabels)
	assert.Len(t, model.Junctions, res.Junctions)

	refs := model.GetAllReferences()
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
		assert.NotContains(t, []string{"SW_", "D_", "C_", "DZD_"}, ref)
	}
	assert.True(t, seen["SW_8_7"])
	assert.True(t, seen["DZD_4_4"])
	assert.False(t, seen["SW_4_4"])
	assert.False(t, seen["DZD_4_5"])

	// 9 rows, 9 columns, one interrupt line and one internal net per switch
	assert.Len(t, res.Nets, 9+9+1+72)
	assert.Len(t, res.Nets["ROW_3"], 8*2+1)
	assert.Len(t, res.Nets["COL_3"], 8+1)
	assert.Len(t, res.Nets["LINTR"], 9)
}

func TestGenerateSwitchesWiring(t *testing.T) {
	doc := load(t, switchesTemplate)

	res, err := GenerateSwitches(testContext(), doc, smallOptions(2))
	require.NoError(t, err)

	want := map[string][]string{
		"ROW_0":         {"C_1_0:1", "DZD_0_0:2", "SW_1_0:1"},
		"ROW_1":         {"C_0_1:1", "DZD_1_1:2", "SW_0_1:1"},
		"COL_0":         {"DZD_0_0:1", "D_0_1:1"},
		"COL_1":         {"DZD_1_1:1", "D_1_0:1"},
		"LINTR":         {"DZD_0_0:3", "DZD_1_1:3"},
		"Net-(C_0_1-2)": {"C_0_1:2", "D_0_1:2", "SW_0_1:2"},
		"Net-(C_1_0-2)": {"C_1_0:2", "D_1_0:2", "SW_1_0:2"},
	}
	if diff := cmp.Diff(want, res.Nets); diff != "" {
		t.Errorf("nets mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, pos(50.8, 68.58), symbolAt(t, doc, "SW_0_1"))
	assert.Equal(t, pos(78.74, 50.8), symbolAt(t, doc, "SW_1_0"))
	assert.Equal(t, pos(63.5, 68.58), symbolAt(t, doc, "D_0_1"))
	assert.Equal(t, pos(78.74, 93.98), symbolAt(t, doc, "DZD_1_1"))

	model, err := doc.Model()
	require.NoError(t, err)

	labels := make(map[string][]schematic.Label)
	for _, l := range model.Labels {
		labels[l.Text] = append(labels[l.Text], l)
	}

	// Row labels sit on the switch and read leftwards
	var rowAtSwitch *schematic.Label
	for i, l := range labels["ROW_1"] {
		if l.Position == pos(45.72, 68.58) {
			rowAtSwitch = &labels["ROW_1"][i]
		}
	}
	require.NotNil(t, rowAtSwitch, "ROW_1 label at SW_0_1 pin A")
	assert.Equal(t, schematic.Angle(180), rowAtSwitch.Angle)
	assert.Equal(t, "right", rowAtSwitch.Effects.Justify.Horizontal)

	require.Len(t, labels["COL_0"], 2)
	assert.Equal(t, schematic.Angle(0), labels["COL_0"][0].Angle)

	// The capacitor's second wire ends on the diode anode, under a junction
	assert.Contains(t, junctionPositions(model), pos(67.31, 68.58))

	require.Len(t, model.GlobalLabels, 2)
	assert.Equal(t, "LINTR", model.GlobalLabels[0].Text)
	assert.Equal(t, "input", model.GlobalLabels[0].Shape)
	assert.Equal(t, pos(50.8, 81.28), model.GlobalLabels[0].Position)
}

func junctionPositions(model *schematic.Schematic) []schematic.Position {
	var out []schematic.Position
	for _, j := range model.Junctions {
		out = append(out, j.Position)
	}
	return out
}

func TestGenerateSwitchesOptionalParts(t *testing.T) {
	doc := load(t, switchesTemplate)

	opts := smallOptions(3)
	opts.Caps = false
	opts.Interrupt = false
	opts.DeleteTemplates = false

	res, err := GenerateSwitches(testContext(), doc, opts)
	require.NoError(t, err)

	assert.Equal(t, 12, res.Symbols)
	assert.Equal(t, 6, res.Wires)
	assert.Equal(t, 0, res.Junctions)
	assert.Equal(t, 0, res.GlobalLabels)
	assert.Empty(t, res.DeletedTemplates)

	// Unused templates are never touched, used ones are kept on request
	for _, ref := range []string{"SW_", "D_", "C_", "DZD_"} {
		_, err := doc.Symbol(ref)
		assert.NoError(t, err, ref)
	}
	_, err = doc.Symbol("C_0_1")
	assert.ErrorIs(t, err, schematic.ErrSymbolNotFound)

	assert.Equal(t, []string{"D_0_1:2", "SW_0_1:2"}, res.Nets["Net-(D_0_1-2)"])
}

func TestGenerateSwitchesRectangular(t *testing.T) {
	doc := load(t, switchesTemplate)

	opts := DefaultOptions()
	opts.Rows, opts.Cols = 2, 4

	res, err := GenerateSwitches(testContext(), doc, opts)
	require.NoError(t, err)

	assert.Equal(t, (8-2)*3+2, res.Symbols)
	assert.Contains(t, res.Nets, "ROW_3")
	assert.Contains(t, res.Nets, "COL_1")
	assert.NotContains(t, res.Nets, "COL_2")
}

func TestGenerateSwitchesErrors(t *testing.T) {
	t.Run("invalid options", func(t *testing.T) {
		doc := load(t, switchesTemplate)
		opts := DefaultOptions()
		opts.Rows = 0
		_, err := GenerateSwitches(testContext(), doc, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})

	t.Run("template used twice", func(t *testing.T) {
		doc := load(t, switchesTemplate)
		opts := smallOptions(2)
		opts.Templates.Diode = opts.Templates.Switch
		_, err := GenerateSwitches(testContext(), doc, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions)

		sym, err := doc.Symbol("SW_")
		require.NoError(t, err)
		assert.True(t, sym.Attached(), "nothing is generated")
		_, err = doc.Symbol("SW_0_1")
		assert.ErrorIs(t, err, schematic.ErrSymbolNotFound)
	})

	t.Run("missing template", func(t *testing.T) {
		doc := load(t, switchesTemplate)
		opts := smallOptions(2)
		opts.Templates.Diode = "DX_"
		_, err := GenerateSwitches(testContext(), doc, opts)
		assert.ErrorIs(t, err, schematic.ErrSymbolNotFound)
		assert.ErrorContains(t, err, "DX_")
	})

	t.Run("missing pin", func(t *testing.T) {
		doc := load(t, switchesTemplate)
		opts := smallOptions(2)
		opts.Pins.DiodeCathode = "Q"
		_, err := GenerateSwitches(testContext(), doc, opts)
		assert.ErrorIs(t, err, schematic.ErrPinNotFound)
		assert.ErrorContains(t, err, "cell 0_1")
	})

	t.Run("bad selector", func(t *testing.T) {
		doc := load(t, switchesTemplate)
		opts := smallOptions(2)
		opts.Pins.CapSwitch = "#first"
		_, err := GenerateSwitches(testContext(), doc, opts)
		assert.ErrorContains(t, err, `pin selector "#first"`)
	})
}

func TestGenerateLEDs(t *testing.T) {
	doc := load(t, ledsTemplate)

	res, err := GenerateLEDs(testContext(), doc, smallOptions(2))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Symbols)
	assert.Equal(t, 4, res.Labels)
	assert.Equal(t, 0, res.Wires)
	assert.Equal(t, []string{"PWR01", "PWR02", "WS_"}, res.DeletedTemplates)

	want := map[string][]string{
		"+5V":       {"PWR010_1:1", "PWR011_0:1", "WS_0_1:3", "WS_1_0:3"},
		"GND":       {"PWR020_1:1", "PWR021_0:1", "WS_0_1:4", "WS_1_0:4"},
		"WS2812_in": {"WS_0_1:1"},
		"WS2812_1":  {"WS_0_1:2", "WS_1_0:1"},
		"WS2812_2":  {"WS_1_0:2"},
	}
	if diff := cmp.Diff(want, res.Nets); diff != "" {
		t.Errorf("nets mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, pos(60.96, 71.12), symbolAt(t, doc, "WS_0_1"))
	assert.Equal(t, pos(88.9, 48.26), symbolAt(t, doc, "WS_1_0"))

	model, err := doc.Model()
	require.NoError(t, err)
	require.Len(t, model.Labels, 4)
	assert.Equal(t, "WS2812_in", model.Labels[0].Text)
	assert.Equal(t, pos(53.34, 71.12), model.Labels[0].Position)
	assert.Equal(t, "WS2812_1", model.Labels[2].Text)
	assert.Equal(t, pos(81.28, 48.26), model.Labels[2].Position)
}

func TestGenerateLEDsChainNumbering(t *testing.T) {
	doc := load(t, ledsTemplate)

	opts := DefaultOptions()
	opts.Rows, opts.Cols = 2, 3
	opts.LEDs = false

	res, err := GenerateLEDs(testContext(), doc, opts)
	require.NoError(t, err)

	// Cells (0,1) (0,2) (1,0) (1,2): outputs are numbered row*cols+col
	for _, name := range []string{"WS2812_in", "WS2812_1", "WS2812_2", "WS2812_3", "WS2812_5"} {
		assert.Contains(t, res.Nets, name)
	}
	assert.Equal(t, []string{"WS_0_2:2", "WS_1_0:1"}, res.Nets["WS2812_2"])
	assert.Equal(t, []string{"WS_1_2:2"}, res.Nets["WS2812_5"])
}

func TestGenerateDeterministic(t *testing.T) {
	render := func() string {
		doc, err := schematic.LoadFile(switchesTemplate, schematic.WithIDs(schematic.SequentialIDs("fixed")))
		require.NoError(t, err)
		_, err = GenerateSwitches(testContext(), doc, smallOptions(3))
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, doc.Write(&buf))
		return buf.String()
	}

	first := render()
	assert.Equal(t, first, render())

	reloaded, err := schematic.Parse(strings.NewReader(first))
	require.NoError(t, err)
	assert.Len(t, reloaded.Symbols, 6*3+3)
}

func TestWriteReport(t *testing.T) {
	doc := load(t, switchesTemplate)
	res, err := GenerateSwitches(testContext(), doc, smallOptions(2))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.WriteReport(&buf))
	require.NoError(t, res.WriteReport(&buf))

	dec := yaml.NewDecoder(&buf)
	for i := 0; i < 2; i++ {
		var got struct {
			Sheet   string              `yaml:"sheet"`
			Symbols int                 `yaml:"symbols"`
			Deleted []string            `yaml:"deleted_templates"`
			Nets    map[string][]string `yaml:"nets"`
		}
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, "switches", got.Sheet)
		assert.Equal(t, res.Symbols, got.Symbols)
		assert.Equal(t, res.DeletedTemplates, got.Deleted)
		assert.Equal(t, res.Nets, got.Nets)
	}
}
