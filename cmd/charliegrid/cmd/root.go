package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OpenTraceLab/charliegrid/internal/config"
	"github.com/OpenTraceLab/charliegrid/internal/logging"
)

// Version of the charliegrid tool
const Version = "0.1.0"

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	config.KeyVerbose:        "verbose",
	config.KeyRows:           "rows",
	config.KeyCols:           "cols",
	config.KeyCaps:           "caps",
	config.KeyInterrupt:      "interrupt",
	config.KeyLEDs:           "leds",
	config.KeyKeepTemplates:  "keep-templates",
	config.KeySwitchTemplate: "switch-template",
	config.KeyLEDTemplate:    "led-template",
	config.KeyReport:         "report",
	config.KeyNetlist:        "netlist",
	config.KeyDeterministic:  "deterministic",
}

// app holds the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes the charliegrid command line with args.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if args == nil {
		// cobra reads os.Args for a nil slice
		args = []string{}
	}
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      config.New(),
		stdout: stdout,
		stderr: stderr,
	}

	rootCmd := &cobra.Command{
		Use:   "charliegrid",
		Short: "charliegrid - charlieplexed key matrix generator for KiCad",
		Long: `charliegrid clones template symbols of a KiCad schematic into a
charlieplexed keyboard matrix and wires the copies with labeled nets.

Examples:
  charliegrid generate switches.kicad_sch leds.kicad_sch
  charliegrid generate --leds=false --rows 6 --cols 6 switches.kicad_sch
  charliegrid inspect switches.kicad_sch SW_0_1`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError("unknown command %q for %q\n%s", args[0], cmd.CommandPath(), cmd.UsageString())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError("a command is required\n%s", cmd.UsageString())
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v\n%s", err, cmd.UsageString())
	})

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./charliegrid.yaml)")

	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))

	return rootCmd
}

// setup resolves the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	bindings := make(map[string]string)
	for key, name := range flagBindings {
		if cmd.Flags().Lookup(name) != nil {
			bindings[key] = name
		}
	}
	if err := config.BindFlags(a.v, cmd.Flags(), bindings); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}
	a.cfg = cfg
	a.logger = logging.New(a.stderr, cfg.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, a.logger))

	if used := config.Used(a.v); used != "" {
		a.logger.Debug("config loaded", "file", used)
	}
	return nil
}
