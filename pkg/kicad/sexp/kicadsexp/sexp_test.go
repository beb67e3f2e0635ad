package kicadsexp

import (
	"strings"
	"testing"

	chewxy "github.com/chewxy/sexp"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to parse a single s-expression from string
func parseOne(t *testing.T, input string) Sexp {
	t.Helper()
	sexps, err := ParseString(input)
	require.NoError(t, err, "parse %q", input)
	require.Len(t, sexps, 1, "parse %q", input)
	return sexps[0]
}

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Sexp
	}{
		{
			name:  "bare list",
			input: "(at 100 50 90)",
			want:  NewList(Symbol("at"), Symbol("100"), Symbol("50"), Symbol("90")),
		},
		{
			name:  "quoted string keeps spaces",
			input: `(title "Example Board")`,
			want:  NewList(Symbol("title"), String("Example Board")),
		},
		{
			name:  "escaped quote",
			input: `(text "say \"hi\"")`,
			want:  NewList(Symbol("text"), String(`say "hi"`)),
		},
		{
			name:  "newline escape",
			input: `(text "a\nb")`,
			want:  NewList(Symbol("text"), String("a\nb")),
		},
		{
			name:  "empty list",
			input: "(lib_symbols)",
			want:  NewList(Symbol("lib_symbols")),
		},
		{
			name:  "nested",
			input: "(pts (xy 1 2) (xy 3 4))",
			want: NewList(Symbol("pts"),
				NewList(Symbol("xy"), Symbol("1"), Symbol("2")),
				NewList(Symbol("xy"), Symbol("3"), Symbol("4"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOne(t, tt.input)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(List{})); diff != "" {
				t.Errorf("parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed list", input: "(kicad_sch (version 1)"},
		{name: "stray close", input: ")"},
		{name: "unterminated string", input: `(title "abc)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestListMutation(t *testing.T) {
	list := parseOne(t, "(a b c)").(*List)

	list.Append(Symbol("d"))
	assert.Equal(t, "(a b c d)", list.String())

	list.Insert(1, String("x y"))
	assert.Equal(t, `(a "x y" b c d)`, list.String())

	assert.True(t, list.Remove(list.Get(1)))
	assert.Equal(t, "(a b c d)", list.String())

	list.Set(3, Symbol("z"))
	assert.Equal(t, "(a b c z)", list.String())
	assert.Equal(t, "a", list.Keyword())
}

func TestCloneIsDeep(t *testing.T) {
	orig := parseOne(t, "(symbol (at 1 2 0) (uuid abc))").(*List)
	clone := orig.Clone()

	at := clone.Get(1).(*List)
	at.Set(1, Symbol("99"))

	assert.Equal(t, "(symbol (at 1 2 0) (uuid abc))", orig.String())
	assert.Equal(t, "(symbol (at 99 2 0) (uuid abc))", clone.String())
}

func TestWriteRoundTrip(t *testing.T) {
	input := `(kicad_sch (version 20231120) (generator "eeschema")
		(symbol (lib_id "Device:R") (at 100 50 0)
			(property "Reference" "R1" (at 100 45 0)
				(effects (font (size 1.27 1.27)) hide))
			(pin "1" (uuid 7c1d8b52-0000-4000-8000-000000000001)))
		(label "ROW_0" (at 1 2 180)))`

	orig := parseOne(t, input)
	formatted := Format(orig)

	assert.True(t, strings.HasPrefix(formatted, "(kicad_sch\n\t(version 20231120)\n"), formatted)
	assert.Contains(t, formatted, "\t\t(at 100 50 0)\n")

	again := parseOne(t, formatted)
	if diff := cmp.Diff(orig, again, cmp.AllowUnexported(List{})); diff != "" {
		t.Errorf("round trip mismatch (-orig +again):\n%s", diff)
	}
}

func TestWriteLayout(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"atoms only", `(at 1 2 0)`, "(at 1 2 0)\n"},
		{"list children", `(pts (xy 1 2) (xy 3 4))`, "(pts\n\t(xy 1 2)\n\t(xy 3 4)\n)\n"},
		{"leading atoms", `(property "Reference" "R1" (at 0 0))`, "(property \"Reference\" \"R1\"\n\t(at 0 0)\n)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(parseOne(t, tt.input)))
		})
	}
}

func TestWriteReadableByOtherParsers(t *testing.T) {
	doc := NewList(Symbol("kicad_sch"),
		NewList(Symbol("version"), Symbol("20231120")),
		NewList(Symbol("wire"),
			NewList(Symbol("pts"),
				NewList(Symbol("xy"), Symbol("1"), Symbol("2")),
				NewList(Symbol("xy"), Symbol("3"), Symbol("4")))))

	parsed, err := chewxy.ParseString(Format(doc))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.False(t, parsed[0].IsLeaf())
}
