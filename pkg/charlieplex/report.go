package charlieplex

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Result summarises what a generator run added to a sheet.
type Result struct {
	Sheet            string              `yaml:"sheet"`
	Rows             int                 `yaml:"rows"`
	Cols             int                 `yaml:"cols"`
	Symbols          int                 `yaml:"symbols"`
	Wires            int                 `yaml:"wires"`
	Labels           int                 `yaml:"labels"`
	GlobalLabels     int                 `yaml:"global_labels"`
	Junctions        int                 `yaml:"junctions"`
	DeletedTemplates []string            `yaml:"deleted_templates,omitempty"`
	Nets             map[string][]string `yaml:"nets"`

	netlist *Netlist
}

func newResult(sheet string, opts Options) *Result {
	return &Result{
		Sheet:   sheet,
		Rows:    opts.Rows,
		Cols:    opts.Cols,
		netlist: NewNetlist(),
	}
}

// Netlist returns the connectivity of the generated sheet.
func (r *Result) Netlist() *Netlist {
	return r.netlist
}

// finish finalizes the netlist and fills the Nets map.
func (r *Result) finish() error {
	if err := r.netlist.Finalize(); err != nil {
		return fmt.Errorf("%s sheet: %w", r.Sheet, err)
	}
	r.Nets = make(map[string][]string, r.netlist.NetCount())
	for _, net := range r.netlist.Nets {
		pins := make([]string, 0, len(net.Pins))
		for _, p := range net.Pins {
			pins = append(pins, p.String())
		}
		r.Nets[net.Name] = pins
	}
	return nil
}

// WriteReport writes the result as one YAML document.
func (r *Result) WriteReport(w io.Writer) error {
	if _, err := io.WriteString(w, "---\n"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode %s report: %w", r.Sheet, err)
	}
	return enc.Close()
}
