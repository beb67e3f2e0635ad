package charlieplex

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

// ErrNetConflict is returned by Finalize when two different net names end up
// on the same connected set of pins.
var ErrNetConflict = errors.New("net name conflict")

// PinRef identifies one pin of a placed symbol.
type PinRef struct {
	Ref string `yaml:"ref"`
	Pin string `yaml:"pin"`
}

func (p PinRef) String() string {
	return p.Ref + ":" + p.Pin
}

// Net is a named set of connected pins.
type Net struct {
	Code int      `yaml:"code"`
	Name string   `yaml:"name"`
	Pins []PinRef `yaml:"pins"`
}

// Netlist tracks connectivity between the pins the generator wires and
// labels, using union-find. Net names are modelled as extra members of the
// set so that every pin labeled with the same name lands in one net.
type Netlist struct {
	parent map[string]string
	rank   map[string]int
	pins   map[string]PinRef

	// Final nets after calling Finalize(), sorted by name
	Nets []*Net
}

const nameKeyPrefix = "\x00net:"

// NewNetlist creates an empty netlist.
func NewNetlist() *Netlist {
	return &Netlist{
		parent: make(map[string]string),
		rank:   make(map[string]int),
		pins:   make(map[string]PinRef),
	}
}

func (nl *Netlist) add(key string) {
	if _, ok := nl.parent[key]; !ok {
		nl.parent[key] = key
	}
}

func (nl *Netlist) addPin(pin PinRef) string {
	key := pin.String()
	nl.add(key)
	nl.pins[key] = pin
	return key
}

// Connect marks two pins as electrically connected.
func (nl *Netlist) Connect(a, b PinRef) {
	nl.union(nl.addPin(a), nl.addPin(b))
}

// Label attaches the net name to the pin.
func (nl *Netlist) Label(pin PinRef, name string) {
	nameKey := nameKeyPrefix + name
	nl.add(nameKey)
	nl.union(nl.addPin(pin), nameKey)
}

func (nl *Netlist) union(a, b string) {
	rootA := nl.find(a)
	rootB := nl.find(b)
	if rootA == rootB {
		return
	}

	// Union by rank
	switch {
	case nl.rank[rootA] < nl.rank[rootB]:
		nl.parent[rootA] = rootB
	case nl.rank[rootA] > nl.rank[rootB]:
		nl.parent[rootB] = rootA
	default:
		nl.parent[rootB] = rootA
		nl.rank[rootA]++
	}
}

// find returns the root key with path compression.
func (nl *Netlist) find(key string) string {
	root := key
	for nl.parent[root] != root {
		root = nl.parent[root]
	}
	for key != root {
		next := nl.parent[key]
		nl.parent[key] = root
		key = next
	}
	return root
}

// Connected reports whether two pins are in the same net.
func (nl *Netlist) Connected(a, b PinRef) bool {
	ka, kb := a.String(), b.String()
	if _, ok := nl.parent[ka]; !ok {
		return false
	}
	if _, ok := nl.parent[kb]; !ok {
		return false
	}
	return nl.find(ka) == nl.find(kb)
}

// Finalize builds Nets from the union-find structure. Unlabeled nets are
// named after their first pin the way KiCad does, "Net-(REF-PIN)".
// Unlabeled single pins are skipped.
func (nl *Netlist) Finalize() error {
	type group struct {
		names []string
		pins  []PinRef
	}
	groups := make(map[string]*group)
	get := func(root string) *group {
		g, ok := groups[root]
		if !ok {
			g = &group{}
			groups[root] = g
		}
		return g
	}

	for key := range nl.parent {
		g := get(nl.find(key))
		if name, ok := strings.CutPrefix(key, nameKeyPrefix); ok {
			g.names = append(g.names, name)
			continue
		}
		g.pins = append(g.pins, nl.pins[key])
	}

	nl.Nets = make([]*Net, 0, len(groups))
	for _, g := range groups {
		sort.Strings(g.names)
		sort.Slice(g.pins, func(i, j int) bool {
			return lessPin(g.pins[i], g.pins[j])
		})

		var name string
		switch {
		case len(g.names) > 1:
			return fmt.Errorf("%w: %s joined", ErrNetConflict, strings.Join(g.names, ", "))
		case len(g.names) == 1:
			name = g.names[0]
		case len(g.pins) < 2:
			continue
		default:
			name = fmt.Sprintf("Net-(%s-%s)", g.pins[0].Ref, g.pins[0].Pin)
		}

		nl.Nets = append(nl.Nets, &Net{Name: name, Pins: g.pins})
	}

	sort.Slice(nl.Nets, func(i, j int) bool {
		return naturalLess(nl.Nets[i].Name, nl.Nets[j].Name)
	})
	for i, net := range nl.Nets {
		net.Code = i + 1
	}

	return nil
}

// Net returns the finalized net with the given name.
func (nl *Netlist) Net(name string) (*Net, bool) {
	for _, net := range nl.Nets {
		if net.Name == name {
			return net, true
		}
	}
	return nil, false
}

// NetCount returns the number of nets. Only valid after calling Finalize().
func (nl *Netlist) NetCount() int {
	return len(nl.Nets)
}

// ExportKiCad writes the nets in the KiCad netlist S-expression format.
func (nl *Netlist) ExportKiCad(w io.Writer, source string) error {
	if nl.Nets == nil {
		return fmt.Errorf("netlist not finalized")
	}

	sym := func(s string) kicadsexp.Symbol { return kicadsexp.Symbol(s) }
	str := func(s string) kicadsexp.String { return kicadsexp.String(s) }

	refs := make(map[string]bool)
	nets := kicadsexp.NewList(sym("nets"))
	for _, net := range nl.Nets {
		node := kicadsexp.NewList(sym("net"),
			kicadsexp.NewList(sym("code"), str(strconv.Itoa(net.Code))),
			kicadsexp.NewList(sym("name"), str(net.Name)))
		for _, pin := range net.Pins {
			refs[pin.Ref] = true
			node.Append(kicadsexp.NewList(sym("node"),
				kicadsexp.NewList(sym("ref"), str(pin.Ref)),
				kicadsexp.NewList(sym("pin"), str(pin.Pin))))
		}
		nets.Append(node)
	}

	sorted := make([]string, 0, len(refs))
	for ref := range refs {
		sorted = append(sorted, ref)
	}
	sort.Slice(sorted, func(i, j int) bool { return naturalLess(sorted[i], sorted[j]) })

	components := kicadsexp.NewList(sym("components"))
	for _, ref := range sorted {
		components.Append(kicadsexp.NewList(sym("comp"), kicadsexp.NewList(sym("ref"), str(ref))))
	}

	root := kicadsexp.NewList(sym("export"),
		kicadsexp.NewList(sym("version"), str("E")),
		kicadsexp.NewList(sym("design"),
			kicadsexp.NewList(sym("source"), str(source)),
			kicadsexp.NewList(sym("tool"), str("charliegrid"))),
		components,
		nets,
	)
	return kicadsexp.Write(w, root)
}

func lessPin(a, b PinRef) bool {
	if a.Ref != b.Ref {
		return naturalLess(a.Ref, b.Ref)
	}
	return naturalLess(a.Pin, b.Pin)
}

// naturalLess orders strings with embedded numbers numerically, so that
// ROW_2 sorts before ROW_10. Strings that only differ in leading zeros fall
// back to byte order.
func naturalLess(a, b string) bool {
	x, y := a, b
	for x != "" && y != "" {
		dx, dy := digitPrefix(x), digitPrefix(y)
		if dx > 0 && dy > 0 {
			if c := compareDigits(x[:dx], y[:dy]); c != 0 {
				return c < 0
			}
			x, y = x[dx:], y[dy:]
			continue
		}
		if x[0] != y[0] {
			return x[0] < y[0]
		}
		x, y = x[1:], y[1:]
	}
	if len(x) != len(y) {
		return len(x) < len(y)
	}
	return a < b
}

// compareDigits compares two runs of decimal digits by value, for any length.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func digitPrefix(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
