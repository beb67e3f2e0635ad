package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/schematic"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <schematic_file> [component]",
		Short: "Show schematic information",
		Long: `Display information about a KiCad schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component,
including the sheet location of every pin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd.OutOrStdout(), args)
		},
	}
}

func (a *app) runInspect(out io.Writer, args []string) error {
	filename := args[0]
	doc, err := schematic.LoadFile(filename)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}
	sch, err := doc.Model()
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	if len(args) >= 2 {
		return showComponentDetails(out, doc, sch, args[1])
	}

	showSchemSummary(out, sch, filename)
	return nil
}

func showSchemSummary(out io.Writer, sch *schematic.Schematic, filename string) {
	fmt.Fprintf(out, "Schematic: %s\n", filename)
	fmt.Fprintf(out, "Version: %d\n", sch.Version)
	fmt.Fprintf(out, "Generator: %s", sch.Generator)
	if sch.GeneratorVer != "" {
		fmt.Fprintf(out, " v%s", sch.GeneratorVer)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Paper: %s\n", sch.Paper)
	fmt.Fprintln(out)

	if sch.TitleBlock.Title != "" || sch.TitleBlock.Revision != "" {
		fmt.Fprintln(out, "Title Block:")
		if sch.TitleBlock.Title != "" {
			fmt.Fprintf(out, "  Title: %s\n", sch.TitleBlock.Title)
		}
		if sch.TitleBlock.Revision != "" {
			fmt.Fprintf(out, "  Revision: %s\n", sch.TitleBlock.Revision)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Statistics:")
	fmt.Fprintf(out, "  Components: %d\n", len(sch.Symbols))
	fmt.Fprintf(out, "  Library symbols: %d\n", len(sch.LibSymbols))
	fmt.Fprintf(out, "  Wires: %d\n", len(sch.Wires))
	fmt.Fprintf(out, "  Junctions: %d\n", len(sch.Junctions))
	fmt.Fprintf(out, "  Labels: %d\n", len(sch.Labels))
	fmt.Fprintf(out, "  Global labels: %d\n", len(sch.GlobalLabels))
	fmt.Fprintf(out, "  Hierarchical labels: %d\n", len(sch.HierLabels))
	fmt.Fprintf(out, "  No-connects: %d\n", len(sch.NoConnects))
	fmt.Fprintln(out)

	refs := sch.GetAllReferences()
	if len(refs) > 0 {
		fmt.Fprintln(out, "Components:")

		// Group by reference prefix
		byPrefix := make(map[string][]string)
		for _, ref := range refs {
			prefix := refPrefix(ref)
			byPrefix[prefix] = append(byPrefix[prefix], ref)
		}

		prefixes := make([]string, 0, len(byPrefix))
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			group := byPrefix[prefix]
			sort.Strings(group)
			fmt.Fprintf(out, "  %s: %s\n", prefix, strings.Join(group, ", "))
		}
		fmt.Fprintln(out)
	}

	labels := sch.GetLabels()
	if len(labels) > 0 {
		fmt.Fprintln(out, "Net Labels:")
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(out, "  %s\n", l)
		}
	}
}

func showComponentDetails(out io.Writer, doc *schematic.Document, sch *schematic.Schematic, ref string) error {
	sym := sch.GetSymbol(ref)
	if sym == nil {
		return fmt.Errorf("component '%s' not found", ref)
	}

	fmt.Fprintf(out, "Component: %s\n", ref)
	fmt.Fprintf(out, "Library: %s\n", sym.LibID)
	fmt.Fprintf(out, "Position: (%.2f, %.2f)\n", sym.Position.X, sym.Position.Y)
	if sym.Angle != 0 {
		fmt.Fprintf(out, "Rotation: %.1f°\n", float64(sym.Angle))
	}
	if sym.Mirror != "" {
		fmt.Fprintf(out, "Mirror: %s\n", sym.Mirror)
	}
	fmt.Fprintf(out, "Unit: %d\n", sym.Unit)
	fmt.Fprintln(out)

	if len(sym.Properties) > 0 {
		fmt.Fprintln(out, "Properties:")
		for _, prop := range sym.Properties {
			fmt.Fprintf(out, "  %s: %s\n", prop.Key, prop.Value)
		}
		fmt.Fprintln(out)
	}

	handle, err := doc.Symbol(ref)
	if err != nil {
		return err
	}
	pins, err := handle.Pins()
	if err != nil {
		return err
	}

	types := make(map[string]schematic.Pin)
	if lib := sch.GetLibSymbol(sym); lib != nil {
		for _, p := range lib.Pins {
			types[p.Number] = p
		}
	}

	if len(pins) > 0 {
		fmt.Fprintln(out, "Pins:")
		for i, pin := range pins {
			loc := pin.Location()
			def := types[pin.Number()]
			fmt.Fprintf(out, "  #%d %s (%s): %s %s at (%.4g, %.4g)\n",
				i, pin.Number(), pin.Name(), def.Type, def.Style, loc.X, loc.Y)
		}
	}

	return nil
}

func refPrefix(ref string) string {
	// Letters before the first digit, without the separator of
	// generated references (SW_0_1)
	prefix := ref
	for i, c := range ref {
		if c >= '0' && c <= '9' {
			prefix = ref[:i]
			break
		}
	}
	return strings.TrimRight(prefix, "_")
}
