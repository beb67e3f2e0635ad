package charlieplex

import (
	"bytes"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp"
	"github.com/OpenTraceLab/charliegrid/pkg/kicad/sexp/kicadsexp"
)

func TestNetlistConnect(t *testing.T) {
	a := PinRef{Ref: "SW1", Pin: "1"}
	b := PinRef{Ref: "D1", Pin: "2"}
	c := PinRef{Ref: "C1", Pin: "2"}

	nl := NewNetlist()
	nl.Connect(a, b)
	assert.True(t, nl.Connected(a, b))
	assert.False(t, nl.Connected(a, c))

	nl.Connect(c, b)
	assert.True(t, nl.Connected(a, c), "connections are transitive")
}

func TestNetlistFinalize(t *testing.T) {
	nl := NewNetlist()
	nl.Connect(PinRef{"SW1", "2"}, PinRef{"D1", "2"})
	nl.Label(PinRef{"SW1", "1"}, "ROW_10")
	nl.Label(PinRef{"SW2", "1"}, "ROW_10")
	nl.Label(PinRef{"SW3", "1"}, "ROW_2")
	nl.Label(PinRef{"X1", "1"}, "SOLO")

	require.NoError(t, nl.Finalize())

	var names []string
	for _, net := range nl.Nets {
		names = append(names, net.Name)
	}
	assert.Equal(t, []string{"Net-(D1-2)", "ROW_2", "ROW_10", "SOLO"}, names)
	assert.Equal(t, 4, nl.NetCount())

	row, ok := nl.Net("ROW_10")
	require.True(t, ok)
	assert.Equal(t, 3, row.Code)
	if diff := cmp.Diff([]PinRef{{"SW1", "1"}, {"SW2", "1"}}, row.Pins); diff != "" {
		t.Errorf("ROW_10 pins mismatch (-want +got):\n%s", diff)
	}

	_, ok = nl.Net("COL_0")
	assert.False(t, ok)
}

func TestNetlistConflict(t *testing.T) {
	nl := NewNetlist()
	nl.Label(PinRef{"SW1", "1"}, "ROW_0")
	nl.Label(PinRef{"SW1", "2"}, "COL_0")
	nl.Connect(PinRef{"SW1", "1"}, PinRef{"SW1", "2"})

	err := nl.Finalize()
	assert.ErrorIs(t, err, ErrNetConflict)
	assert.ErrorContains(t, err, "COL_0, ROW_0")
}

func TestNetlistExportKiCad(t *testing.T) {
	nl := NewNetlist()
	assert.Error(t, nl.ExportKiCad(&bytes.Buffer{}, "x"))

	nl.Connect(PinRef{"SW_0_1", "2"}, PinRef{"D_0_1", "2"})
	nl.Label(PinRef{"SW_0_1", "1"}, "ROW_1")
	require.NoError(t, nl.Finalize())

	var buf bytes.Buffer
	require.NoError(t, nl.ExportKiCad(&buf, "matrix.kicad_sch"))

	exprs, err := kicadsexp.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, exprs, 1)
	root := exprs[0].(*kicadsexp.List)
	assert.Equal(t, "export", root.Keyword())

	comps, ok := sexp.FindList(root, "components")
	require.True(t, ok)
	assert.Len(t, sexp.FindAllNodes(comps, "comp"), 2)

	nets, ok := sexp.FindList(root, "nets")
	require.True(t, ok)
	netNodes := sexp.FindAllNodes(nets, "net")
	require.Len(t, netNodes, 2)

	name, _ := sexp.FindList(netNodes[1], "name")
	v, _ := sexp.GetString(name, 1)
	assert.Equal(t, "ROW_1", v)
	assert.Len(t, sexp.FindAllNodes(netNodes[0], "node"), 2)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("ROW_2", "ROW_10"))
	assert.False(t, naturalLess("ROW_10", "ROW_2"))
	assert.True(t, naturalLess("C_1_0", "D_0_1"))
	assert.True(t, naturalLess("SW_0_9", "SW_1_0"))
	assert.True(t, naturalLess("A", "AB"))
	assert.False(t, naturalLess("A", "A"))

	// Leading zeros still give a strict order
	assert.True(t, naturalLess("R01", "R1"))
	assert.False(t, naturalLess("R1", "R01"))
	assert.True(t, naturalLess("R1", "R02"))

	// Digit runs beyond int range
	assert.True(t, naturalLess("N99999999999999999999", "N100000000000000000000"))
	assert.False(t, naturalLess("N100000000000000000000", "N99999999999999999999"))
	assert.True(t, naturalLess("N100000000000000000000", "N100000000000000000001"))
}

func TestNetlistOrderIsStable(t *testing.T) {
	names := []string{"R1", "R01", "R001", "R10", "R2"}
	want := []string{"R001", "R01", "R1", "R2", "R10"}

	for i := 0; i < len(names); i++ {
		rotated := append(append([]string{}, names[i:]...), names[:i]...)
		sort.Slice(rotated, func(a, b int) bool { return naturalLess(rotated[a], rotated[b]) })
		assert.Equal(t, want, rotated)
	}
}
