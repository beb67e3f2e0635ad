package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/charliegrid/internal/config"
	"github.com/OpenTraceLab/charliegrid/internal/logging"
	"github.com/OpenTraceLab/charliegrid/pkg/charlieplex"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/schematic"
)

func newGenerateCmd(a *app) *cobra.Command {
	defaults := charlieplex.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "generate <switches.kicad_sch> [leds.kicad_sch]",
		Short: "Generate the charlieplexed switch (and LED) sheets",
		Long: `Clone the template symbols of the switch template into a rows x cols
matrix, wire every cell and write the result to <switches.kicad_sch>.

When LED generation is enabled (the default) a second output path is
required, and the LED template is cloned into a daisy chain written there.
The template files are never modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd.Context(), cmd, args)
		},
	}

	f := cmd.Flags()
	f.Int("rows", defaults.Rows, "number of matrix rows (GPIO lines)")
	f.Int("cols", defaults.Cols, "number of matrix columns")
	f.Bool("caps", defaults.Caps, "place a capacitor in every switch cell")
	f.Bool("interrupt", defaults.Interrupt, "place an interrupt sensor on the diagonal")
	f.Bool("leds", defaults.LEDs, "also generate the LED sheet")
	f.Bool("keep-templates", false, "leave the template symbols in the output")
	f.String("switch-template", config.DefaultSwitchTemplate, "switch template schematic")
	f.String("led-template", config.DefaultLEDTemplate, "LED template schematic")
	f.String("report", "", "write a YAML report of the generated nets (- for stdout)")
	f.String("netlist", "", "write a KiCad netlist of the switch sheet")
	f.Bool("deterministic", false, "derive UUIDs from the output file name")

	return cmd
}

type generateFunc func(context.Context, *schematic.Document, charlieplex.Options) (*charlieplex.Result, error)

type sheetJob struct {
	template string
	output   string
	generate generateFunc
}

func (a *app) runGenerate(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := a.cfg

	want := 1
	if cfg.Matrix.LEDs {
		want = 2
	}
	if len(args) != want {
		return usageError("expected %d output schematic(s), got %d\n%s", want, len(args), cmd.UsageString())
	}

	jobs := []sheetJob{{cfg.SwitchTemplate, args[0], charlieplex.GenerateSwitches}}
	if cfg.Matrix.LEDs {
		jobs = append(jobs, sheetJob{cfg.LEDTemplate, args[1], charlieplex.GenerateLEDs})
	}

	// Check every template before writing anything.
	for _, job := range jobs {
		if err := checkTemplate(job.template); err != nil {
			return err
		}
	}

	results := make([]*charlieplex.Result, 0, len(jobs))
	for _, job := range jobs {
		res, err := a.generateSheet(ctx, job)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if cfg.Netlist != "" {
		err := writeOutput(cfg.Netlist, a.stdout, func(w io.Writer) error {
			return results[0].Netlist().ExportKiCad(w, args[0])
		})
		if err != nil {
			return fmt.Errorf("write netlist: %w", err)
		}
		logging.FromContext(ctx).Info("wrote netlist", "file", cfg.Netlist, "nets", results[0].Netlist().NetCount())
	}

	if cfg.Report != "" {
		err := writeOutput(cfg.Report, a.stdout, func(w io.Writer) error {
			for _, res := range results {
				if err := res.WriteReport(w); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func checkTemplate(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return &ExitError{
			Code:    ExitFailure,
			Message: fmt.Sprintf("%v: %s", ErrTemplateMissing, path),
			Err:     ErrTemplateMissing,
		}
	default:
		return err
	}
}

func (a *app) generateSheet(ctx context.Context, job sheetJob) (*charlieplex.Result, error) {
	log := logging.FromContext(ctx)

	var opts []schematic.Option
	if a.cfg.Deterministic {
		opts = append(opts, schematic.WithIDs(schematic.SequentialIDs(filepath.Base(job.output))))
	}

	doc, err := schematic.LoadFile(job.template, opts...)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", job.template, err)
	}
	log.Debug("loaded template", "file", job.template, "version", doc.Version())

	res, err := job.generate(ctx, doc, a.cfg.Matrix)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", job.output, err)
	}

	if err := doc.WriteFile(job.output); err != nil {
		return nil, fmt.Errorf("write %s: %w", job.output, err)
	}
	log.Info("wrote schematic", "file", job.output, "symbols", res.Symbols, "nets", len(res.Nets))

	return res, nil
}

// writeOutput runs write against the named file, or stdout for "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
