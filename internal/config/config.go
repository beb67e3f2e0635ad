// Package config loads charliegrid settings with viper. Values come from, in
// order of precedence: command line flags, CHARLIEGRID_* environment
// variables, the YAML config file, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OpenTraceLab/charliegrid/pkg/charlieplex"
)

const (
	configFileName = "charliegrid"
	configFileType = "yaml"

	// EnvPrefix prefixes every environment variable, e.g. CHARLIEGRID_MATRIX_ROWS.
	EnvPrefix = "CHARLIEGRID"

	DefaultSwitchTemplate = "template-charlieplex_switches.kicad_sch"
	DefaultLEDTemplate    = "template-charlieplex_leds.kicad_sch"
)

// Config keys shared with flag bindings.
const (
	KeySwitchTemplate = "switch_template"
	KeyLEDTemplate    = "led_template"
	KeyReport         = "report"
	KeyNetlist        = "netlist"
	KeyDeterministic  = "deterministic"
	KeyKeepTemplates  = "keep_templates"
	KeyVerbose        = "verbose"
	KeyRows           = "matrix.rows"
	KeyCols           = "matrix.cols"
	KeyCaps           = "matrix.caps"
	KeyInterrupt      = "matrix.interrupt"
	KeyLEDs           = "matrix.leds"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	SwitchTemplate string              `mapstructure:"switch_template"`
	LEDTemplate    string              `mapstructure:"led_template"`
	Report         string              `mapstructure:"report"`
	Netlist        string              `mapstructure:"netlist"`
	Deterministic  bool                `mapstructure:"deterministic"`
	KeepTemplates  bool                `mapstructure:"keep_templates"`
	Verbose        bool                `mapstructure:"verbose"`
	Matrix         charlieplex.Options `mapstructure:"matrix"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

func setDefaults(v *viper.Viper) {
	d := charlieplex.DefaultOptions()

	v.SetDefault(KeySwitchTemplate, DefaultSwitchTemplate)
	v.SetDefault(KeyLEDTemplate, DefaultLEDTemplate)
	v.SetDefault(KeyReport, "")
	v.SetDefault(KeyNetlist, "")
	v.SetDefault(KeyDeterministic, false)
	v.SetDefault(KeyKeepTemplates, false)
	v.SetDefault(KeyVerbose, false)

	v.SetDefault(KeyRows, d.Rows)
	v.SetDefault(KeyCols, d.Cols)
	v.SetDefault("matrix.switch_cell.width", d.SwitchCell.Width)
	v.SetDefault("matrix.switch_cell.height", d.SwitchCell.Height)
	v.SetDefault("matrix.led_cell.width", d.LEDCell.Width)
	v.SetDefault("matrix.led_cell.height", d.LEDCell.Height)
	v.SetDefault(KeyCaps, d.Caps)
	v.SetDefault(KeyInterrupt, d.Interrupt)
	v.SetDefault(KeyLEDs, d.LEDs)
	v.SetDefault("matrix.delete_templates", d.DeleteTemplates)

	v.SetDefault("matrix.templates.switch", d.Templates.Switch)
	v.SetDefault("matrix.templates.diode", d.Templates.Diode)
	v.SetDefault("matrix.templates.cap", d.Templates.Cap)
	v.SetDefault("matrix.templates.interrupt", d.Templates.Interrupt)
	v.SetDefault("matrix.templates.power", d.Templates.Power)
	v.SetDefault("matrix.templates.led", d.Templates.LED)

	v.SetDefault("matrix.pins.switch_row", d.Pins.SwitchRow)
	v.SetDefault("matrix.pins.switch_diode", d.Pins.SwitchDiode)
	v.SetDefault("matrix.pins.diode_anode", d.Pins.DiodeAnode)
	v.SetDefault("matrix.pins.diode_cathode", d.Pins.DiodeCathode)
	v.SetDefault("matrix.pins.cap_switch", d.Pins.CapSwitch)
	v.SetDefault("matrix.pins.cap_diode", d.Pins.CapDiode)
	v.SetDefault("matrix.pins.interrupt_col", d.Pins.InterruptCol)
	v.SetDefault("matrix.pins.interrupt_row", d.Pins.InterruptRow)
	v.SetDefault("matrix.pins.interrupt_line", d.Pins.InterruptLine)
	v.SetDefault("matrix.pins.led_in", d.Pins.LEDIn)
	v.SetDefault("matrix.pins.led_out", d.Pins.LEDOut)

	v.SetDefault("matrix.nets.row", d.Nets.Row)
	v.SetDefault("matrix.nets.col", d.Nets.Col)
	v.SetDefault("matrix.nets.interrupt", d.Nets.Interrupt)
	v.SetDefault("matrix.nets.interrupt_shape", d.Nets.InterruptShape)
	v.SetDefault("matrix.nets.chain_in", d.Nets.ChainIn)
	v.SetDefault("matrix.nets.chain_out", d.Nets.ChainOut)
}

// BindFlags binds config keys to command line flags. A flag only overrides
// the config file and environment when it is set explicitly.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("bind %s: no flag --%s", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the config file and resolves the configuration. With an empty
// file name, charliegrid.yaml is looked up in the working directory and a
// missing file is not an error. An explicitly named file must exist.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{Matrix: charlieplex.DefaultOptions()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.KeepTemplates {
		cfg.Matrix.DeleteTemplates = false
	}

	return cfg, nil
}

// Used reports the config file that was read, if any.
func Used(v *viper.Viper) string {
	return v.ConfigFileUsed()
}
