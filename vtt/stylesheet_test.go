package vtt

import (
	"strings"
	"testing"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"scs/ass"
)

func docWithStyles(styles ...*ass.Style) *ass.Document {
	doc := testDoc()
	for _, s := range styles {
		doc.Styles[s.Name] = s
		doc.StyleOrder = append(doc.StyleOrder, s.Name)
	}
	if len(styles) > 0 {
		doc.DefaultStyle = styles[0].Name
	}
	return doc
}

func TestStylesheetRuleOrder(t *testing.T) {
	doc := docWithStyles(
		&ass.Style{Name: "Default", PrimaryColour: "&H00FFFFFF"},
		&ass.Style{Name: "Sign", PrimaryColour: "&H000000FF"},
	)
	g := NewGenerator(doc, nil)

	block := g.stylesheet()
	lines := strings.Split(block, "\n")
	if len(lines) != 3 || lines[0] != "STYLE" {
		t.Fatalf("unexpected block shape:\n%s", block)
	}
	if !strings.HasPrefix(lines[1], "::cue(.Default)") {
		t.Errorf("first rule %q, want Default first", lines[1])
	}
	if !strings.HasPrefix(lines[2], "::cue(.Sign)") {
		t.Errorf("second rule %q, want Sign second", lines[2])
	}
	if !strings.Contains(lines[1], "color: #ffffff;") {
		t.Errorf("Default rule missing color: %q", lines[1])
	}
	if !strings.Contains(lines[2], "color: #ff0000;") {
		t.Errorf("Sign rule missing color: %q", lines[2])
	}
}

func TestStylesheetEmpty(t *testing.T) {
	g := NewGenerator(testDoc(), nil)
	if got := g.stylesheet(); got != "" {
		t.Errorf("no styles: got %q, want empty", got)
	}

	// a style without any convertible property contributes no rule
	g = NewGenerator(docWithStyles(&ass.Style{Name: "Bare"}), nil)
	if got := g.stylesheet(); got != "" {
		t.Errorf("bare style: got %q, want empty", got)
	}
}

func TestStyleDeclarations(t *testing.T) {
	cases := []struct {
		name  string
		style *ass.Style
		want  []string
	}{
		{
			name:  "color only",
			style: &ass.Style{Name: "A", PrimaryColour: "&H000000FF"},
			want:  []string{"color: #ff0000;"},
		},
		{
			name:  "translucent color",
			style: &ass.Style{Name: "A", PrimaryColour: "&H80FF0000"},
			want:  []string{"color: rgba(0,0,255,0.498);"},
		},
		{
			name:  "outline stroke",
			style: &ass.Style{Name: "A", Outline: 2, OutlineColour: "&H00000000"},
			want:  []string{"-webkit-text-stroke-width: 2px;", "-webkit-text-stroke-color: #000000;"},
		},
		{
			name:  "outline width without color suppressed",
			style: &ass.Style{Name: "A", Outline: 2},
			want:  nil,
		},
		{
			name:  "shadow from back color with outline border style",
			style: &ass.Style{Name: "A", BorderStyle: 1, Shadow: 2, BackColour: "&H00000000"},
			want:  []string{"text-shadow: #000000 2px 2px 0px;"},
		},
		{
			name:  "shadow fallback when back color missing",
			style: &ass.Style{Name: "A", BorderStyle: 1, Shadow: 1},
			want:  []string{"text-shadow: rgba(0,0,0,0.5) 1px 1px 0px;"},
		},
		{
			name:  "shadow from outline color for box border style",
			style: &ass.Style{Name: "A", BorderStyle: 0, Shadow: 1, OutlineColour: "&H00101010"},
			want:  []string{"-webkit-text-stroke-color: #101010;", "text-shadow: #101010 1px 1px 0px;"},
		},
		{
			name:  "opaque box background",
			style: &ass.Style{Name: "A", BorderStyle: 3, BackColour: "&H00202020"},
			want:  []string{"background-color: #202020;"},
		},
		{
			name:  "letter spacing",
			style: &ass.Style{Name: "A", Spacing: 1.5},
			want:  []string{"letter-spacing: 1.5px;"},
		},
	}

	g := NewGenerator(testDoc(), nil)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := g.styleDeclarations(c.style)
			if len(got) != len(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("declaration %d: got %q, want %q", i, got[i], c.want[i])
				}
			}
		})
	}
}

// Absent style properties must suppress their declarations entirely, never
// surface as a placeholder value.
func TestStyleDeclarationsNoPlaceholders(t *testing.T) {
	styles := []*ass.Style{
		{Name: "A"},
		{Name: "B", Outline: 3},
		{Name: "C", BorderStyle: 3},
		{Name: "D", PrimaryColour: "garbage"},
	}
	g := NewGenerator(testDoc(), nil)
	for _, s := range styles {
		for _, decl := range g.styleDeclarations(s) {
			lower := strings.ToLower(decl)
			if strings.Contains(lower, "none") || strings.Contains(lower, "undefined") {
				t.Errorf("style %s: placeholder leaked into %q", s.Name, decl)
			}
		}
	}
}

// The emitted STYLE block must re-parse as CSS without errors.
func TestStylesheetParsesAsCSS(t *testing.T) {
	doc := docWithStyles(
		&ass.Style{Name: "Default", PrimaryColour: "&H00FFFFFF", Outline: 2, OutlineColour: "&H00000000", BorderStyle: 1, Shadow: 2, BackColour: "&H80000000", Spacing: 0.5},
		&ass.Style{Name: "Sign", PrimaryColour: "&H0000FF00", BorderStyle: 3, BackColour: "&H00000000"},
	)
	g := NewGenerator(doc, nil)

	block := strings.TrimPrefix(g.stylesheet(), "STYLE\n")
	input := parse.NewInput(strings.NewReader(block))
	parser := css.NewParser(input, false)

	decls := 0
	for {
		gt, _, _ := parser.Next()
		if gt == css.ErrorGrammar {
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				t.Fatalf("stylesheet does not re-parse: %v", err)
			}
			break
		}
		if gt == css.DeclarationGrammar {
			decls++
		}
	}
	if decls == 0 {
		t.Error("expected declarations in re-parsed stylesheet")
	}
}
