package vtt

import (
	"testing"

	"scs/ass"
)

func testDoc() *ass.Document {
	return &ass.Document{
		Info:   map[string]string{},
		Styles: map[string]*ass.Style{},
	}
}

func TestRenderTextFormatting(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "plain", text: "Hello", want: "Hello"},
		{name: "bold toggle", text: `{\b1}Hello{\b0} World`, want: "<b>Hello</b> World"},
		{name: "bold weight argument", text: `{\b700}Heavy{\b0} light`, want: "<b>Heavy</b> light"},
		{name: "italic and underline nest symmetrically", text: `{\i1\u1}both{\i0\u0} none`, want: "<u><i>both</i></u> none"},
		{name: "malformed toggle argument means on", text: `{\b}Hello`, want: "<b>Hello</b>"},
		{name: "empty tag pairs collapse", text: `{\b1}{\b0}Hello`, want: "Hello"},
		{name: "line break escape", text: `one\Ntwo`, want: "one\ntwo"},
		{name: "soft line break escape", text: `one\ntwo`, want: "one\ntwo"},
		{name: "hard space escape", text: `one\htwo`, want: "one two"},
		{name: "ignored color tag", text: `{\c&H0000FF&}Hello`, want: "Hello"},
		{name: "ignored fade and blur", text: `{\fad(200,200)\blur2}Hello`, want: "Hello"},
		{name: "ignored karaoke", text: `{\k20}Hel{\k30}lo`, want: "Hello"},
		{name: "unknown tag", text: `{\xyzzy}Hello`, want: "Hello"},
		{name: "whitespace trimmed", text: `  Hello  `, want: "Hello"},
		{name: "empty after processing", text: `{\b1}{\b0}`, want: ""},
	}

	g := NewGenerator(testDoc(), nil)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ov := g.renderText(c.text, nil, "")
			if got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
			if ov.Any() {
				t.Errorf("unexpected overrides %+v", ov)
			}
		})
	}
}

func TestRenderTextSeedsFromStyle(t *testing.T) {
	style := &ass.Style{Name: "Emph", Bold: -1, Italic: 1}
	g := NewGenerator(testDoc(), nil)

	got, _ := g.renderText("Hello", style, "Emph")
	if want := "<i><b>Hello</b></i>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// an inline toggle can switch a style-seeded flag off mid-line
	got, _ = g.renderText(`Hello{\b0} World`, style, "Emph")
	if want := "<i><b>Hello</b></i><i> World</i>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderTextAlignmentOverride(t *testing.T) {
	g := NewGenerator(testDoc(), nil)

	got, ov := g.renderText(`{\an8}Up high`, nil, "")
	if got != "Up high" {
		t.Errorf("payload = %q, want %q", got, "Up high")
	}
	want := Overrides{Align: "center", Line: "2%", LineAlign: "start", Position: "auto"}
	if ov != want {
		t.Errorf("overrides = %+v, want %+v", ov, want)
	}

	// out of range codes are dropped
	for _, text := range []string{`{\an0}Hello`, `{\an10}Hello`} {
		got, ov = g.renderText(text, nil, "")
		if got != "Hello" || ov.Any() {
			t.Errorf("%q: payload=%q overrides=%+v, want plain text and no overrides", text, got, ov)
		}
	}
}

func TestRenderTextPositionOverride(t *testing.T) {
	doc := testDoc()
	doc.PlayResX = 384
	doc.PlayResY = 216
	g := NewGenerator(doc, nil)

	cases := []struct {
		name string
		text string
		want Overrides
	}{
		{
			name: "centered",
			text: `{\pos(192,108)}Hello`,
			want: Overrides{Align: "center", Line: "50%", LineAlign: "start", Position: "50%", PositionAlign: "center"},
		},
		{
			name: "left third",
			text: `{\pos(96,54)}Hello`,
			want: Overrides{Align: "start", Line: "25%", LineAlign: "start", Position: "25%", PositionAlign: "start"},
		},
		{
			name: "right third",
			text: `{\pos(288,162)}Hello`,
			want: Overrides{Align: "end", Line: "75%", LineAlign: "start", Position: "75%", PositionAlign: "end"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ov := g.renderText(c.text, nil, "")
			if got != "Hello" {
				t.Errorf("payload = %q, want %q", got, "Hello")
			}
			if ov != c.want {
				t.Errorf("overrides = %+v, want %+v", ov, c.want)
			}
		})
	}
}

func TestRenderTextPositionWithoutResolution(t *testing.T) {
	g := NewGenerator(testDoc(), nil)
	got, ov := g.renderText(`{\pos(100,100)}Hello`, nil, "")
	if got != "Hello" || ov.Any() {
		t.Errorf("payload=%q overrides=%+v, want plain text and no overrides", got, ov)
	}
}

func TestRenderTextReset(t *testing.T) {
	doc := testDoc()
	def := &ass.Style{Name: "Default", Italic: 1}
	doc.Styles["Default"] = def
	doc.StyleOrder = []string{"Default"}
	doc.DefaultStyle = "Default"
	g := NewGenerator(doc, nil)

	// reset returns to the style's own formatting and drops accumulated overrides
	got, ov := g.renderText(`{\b1\i0\an8}shout{\r} calm`, def, "Default")
	if want := "<b>shout</b><i> calm</i>"; got != want {
		t.Errorf("payload = %q, want %q", got, want)
	}
	if ov.Any() {
		t.Errorf("overrides = %+v, want none after reset", ov)
	}
}
