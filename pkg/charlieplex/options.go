package charlieplex

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid options")

// Templates names the reference designators of the template symbols.
type Templates struct {
	Switch    string   `mapstructure:"switch" yaml:"switch"`
	Diode     string   `mapstructure:"diode" yaml:"diode"`
	Cap       string   `mapstructure:"cap" yaml:"cap"`
	Interrupt string   `mapstructure:"interrupt" yaml:"interrupt"`
	Power     []string `mapstructure:"power" yaml:"power"`
	LED       string   `mapstructure:"led" yaml:"led"`
}

// Pins selects the template pins that get wired or labeled. A selector is a
// pin name or number ("A", "2"), or "#n" for the n-th pin of the instance.
type Pins struct {
	SwitchRow     string `mapstructure:"switch_row" yaml:"switch_row"`
	SwitchDiode   string `mapstructure:"switch_diode" yaml:"switch_diode"`
	DiodeAnode    string `mapstructure:"diode_anode" yaml:"diode_anode"`
	DiodeCathode  string `mapstructure:"diode_cathode" yaml:"diode_cathode"`
	CapSwitch     string `mapstructure:"cap_switch" yaml:"cap_switch"`
	CapDiode      string `mapstructure:"cap_diode" yaml:"cap_diode"`
	InterruptCol  string `mapstructure:"interrupt_col" yaml:"interrupt_col"`
	InterruptRow  string `mapstructure:"interrupt_row" yaml:"interrupt_row"`
	InterruptLine string `mapstructure:"interrupt_line" yaml:"interrupt_line"`
	LEDIn         string `mapstructure:"led_in" yaml:"led_in"`
	LEDOut        string `mapstructure:"led_out" yaml:"led_out"`
}

// Nets holds the net names written on labels. Row, Col and ChainOut are
// format strings taking one integer.
type Nets struct {
	Row            string `mapstructure:"row" yaml:"row"`
	Col            string `mapstructure:"col" yaml:"col"`
	Interrupt      string `mapstructure:"interrupt" yaml:"interrupt"`
	InterruptShape string `mapstructure:"interrupt_shape" yaml:"interrupt_shape"`
	ChainIn        string `mapstructure:"chain_in" yaml:"chain_in"`
	ChainOut       string `mapstructure:"chain_out" yaml:"chain_out"`
}

// Options controls matrix generation.
type Options struct {
	Rows            int       `mapstructure:"rows" yaml:"rows"`
	Cols            int       `mapstructure:"cols" yaml:"cols"`
	SwitchCell      CellSize  `mapstructure:"switch_cell" yaml:"switch_cell"`
	LEDCell         CellSize  `mapstructure:"led_cell" yaml:"led_cell"`
	Caps            bool      `mapstructure:"caps" yaml:"caps"`
	Interrupt       bool      `mapstructure:"interrupt" yaml:"interrupt"`
	LEDs            bool      `mapstructure:"leds" yaml:"leds"`
	DeleteTemplates bool      `mapstructure:"delete_templates" yaml:"delete_templates"`
	Templates       Templates `mapstructure:"templates" yaml:"templates"`
	Pins            Pins      `mapstructure:"pins" yaml:"pins"`
	Nets            Nets      `mapstructure:"nets" yaml:"nets"`
}

// DefaultOptions returns a 9x9 matrix with capacitors, the interrupt line and
// an LED sheet, using the reference designators of the stock templates.
func DefaultOptions() Options {
	return Options{
		Rows:            9,
		Cols:            9,
		SwitchCell:      CellSize{Width: 11, Height: 7},
		LEDCell:         CellSize{Width: 11, Height: 9},
		Caps:            true,
		Interrupt:       true,
		LEDs:            true,
		DeleteTemplates: true,
		Templates: Templates{
			Switch:    "SW_",
			Diode:     "D_",
			Cap:       "C_",
			Interrupt: "DZD_",
			Power:     []string{"PWR01", "PWR02"},
			LED:       "WS_",
		},
		Pins: Pins{
			SwitchRow:     "A",
			SwitchDiode:   "B",
			DiodeAnode:    "A",
			DiodeCathode:  "K",
			CapSwitch:     "#0",
			CapDiode:      "#1",
			InterruptCol:  "#0",
			InterruptRow:  "#1",
			InterruptLine: "#2",
			LEDIn:         "#0",
			LEDOut:        "#1",
		},
		Nets: Nets{
			Row:            "ROW_%d",
			Col:            "COL_%d",
			Interrupt:      "LINTR",
			InterruptShape: "input",
			ChainIn:        "WS2812_in",
			ChainOut:       "WS2812_%d",
		},
	}
}

// SwitchLayout is the layout of the switch sheet.
func (o Options) SwitchLayout() Layout {
	return Layout{Rows: o.Rows, Cols: o.Cols, CellWidth: o.SwitchCell.Width, CellHeight: o.SwitchCell.Height}
}

// LEDLayout is the layout of the LED sheet.
func (o Options) LEDLayout() Layout {
	return Layout{Rows: o.Rows, Cols: o.Cols, CellWidth: o.LEDCell.Width, CellHeight: o.LEDCell.Height}
}

// Validate checks the options for errors.
func (o Options) Validate() error {
	var problems []string

	if o.Rows < 2 || o.Cols < 2 {
		problems = append(problems, fmt.Sprintf("grid must be at least 2x2, got %dx%d", o.Rows, o.Cols))
	}
	if o.SwitchCell.Width <= 0 || o.SwitchCell.Height <= 0 {
		problems = append(problems, "switch cell size must be positive")
	}
	if o.LEDs && (o.LEDCell.Width <= 0 || o.LEDCell.Height <= 0) {
		problems = append(problems, "LED cell size must be positive")
	}

	required := map[string]string{
		"templates.switch":   o.Templates.Switch,
		"templates.diode":    o.Templates.Diode,
		"pins.switch_row":    o.Pins.SwitchRow,
		"pins.switch_diode":  o.Pins.SwitchDiode,
		"pins.diode_anode":   o.Pins.DiodeAnode,
		"pins.diode_cathode": o.Pins.DiodeCathode,
		"nets.row":           o.Nets.Row,
		"nets.col":           o.Nets.Col,
	}
	if o.Caps {
		required["templates.cap"] = o.Templates.Cap
		required["pins.cap_switch"] = o.Pins.CapSwitch
		required["pins.cap_diode"] = o.Pins.CapDiode
	}
	if o.Interrupt {
		required["templates.interrupt"] = o.Templates.Interrupt
		required["pins.interrupt_col"] = o.Pins.InterruptCol
		required["pins.interrupt_row"] = o.Pins.InterruptRow
		required["pins.interrupt_line"] = o.Pins.InterruptLine
		required["nets.interrupt"] = o.Nets.Interrupt
		required["nets.interrupt_shape"] = o.Nets.InterruptShape
	}
	if o.LEDs {
		required["templates.led"] = o.Templates.LED
		required["pins.led_in"] = o.Pins.LEDIn
		required["pins.led_out"] = o.Pins.LEDOut
		required["nets.chain_in"] = o.Nets.ChainIn
		required["nets.chain_out"] = o.Nets.ChainOut
	}
	for _, key := range slices.Sorted(maps.Keys(required)) {
		if required[key] == "" {
			problems = append(problems, key+" must not be empty")
		}
	}

	formats := map[string]string{"nets.row": o.Nets.Row, "nets.col": o.Nets.Col}
	if o.LEDs {
		formats["nets.chain_out"] = o.Nets.ChainOut
	}
	for _, key := range slices.Sorted(maps.Keys(formats)) {
		f := formats[key]
		switch {
		case f == "":
		case strings.Count(f, "%d") != 1:
			problems = append(problems, fmt.Sprintf("%s must contain exactly one %%d, got %q", key, f))
		case strings.Contains(fmt.Sprintf(f, 0), "%!"):
			problems = append(problems, fmt.Sprintf("%s must not contain verbs other than %%d, got %q", key, f))
		}
	}

	problems = append(problems, o.duplicateTemplates()...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, "; "))
	}
	return nil
}

// duplicateTemplates reports template references used twice on one sheet.
// Each template is cloned once and deleted once.
func (o Options) duplicateTemplates() []string {
	type entry struct{ key, ref string }

	switches := []entry{
		{"templates.switch", o.Templates.Switch},
		{"templates.diode", o.Templates.Diode},
	}
	if o.Caps {
		switches = append(switches, entry{"templates.cap", o.Templates.Cap})
	}
	if o.Interrupt {
		switches = append(switches, entry{"templates.interrupt", o.Templates.Interrupt})
	}
	sheets := [][]entry{switches}

	if o.LEDs {
		var leds []entry
		for i, ref := range o.Templates.Power {
			leds = append(leds, entry{fmt.Sprintf("templates.power[%d]", i), ref})
		}
		leds = append(leds, entry{"templates.led", o.Templates.LED})
		sheets = append(sheets, leds)
	}

	var problems []string
	for _, sheet := range sheets {
		seen := make(map[string]string)
		for _, e := range sheet {
			if e.ref == "" {
				continue
			}
			if first, dup := seen[e.ref]; dup {
				problems = append(problems, fmt.Sprintf("%s duplicates %s (%q)", e.key, first, e.ref))
				continue
			}
			seen[e.ref] = e.key
		}
	}
	return problems
}
