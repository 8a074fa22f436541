// Package ass implements a tolerant parser for Advanced SubStation Alpha
// (ASS) and legacy SubStation Alpha (SSA) subtitle scripts. The format is a
// loose INI-like mix of sections with key/value and CSV-like rows, produced
// by many tools with varying fidelity, so everything short of a completely
// unreadable input degrades to warnings and documented defaults.
package ass

import "strings"

// Section names as they appear in script headers.
const (
	SectionScriptInfo   = "Script Info"
	SectionStylesV4Plus = "V4+ Styles"
	SectionStylesV4     = "V4 Styles"
	SectionEvents       = "Events"
)

// Column layouts used when a section carries no explicit "Format:" line.
// V4+ dropped TertiaryColour/AlphaLevel and renamed the leading event column
// from Marked to Layer.
var (
	styleFormatV4Plus = strings.Split("Name,Fontname,Fontsize,PrimaryColour,SecondaryColour,OutlineColour,BackColour,Bold,Italic,Underline,StrikeOut,ScaleX,ScaleY,Spacing,Angle,BorderStyle,Outline,Shadow,Alignment,MarginL,MarginR,MarginV,Encoding", ",")
	styleFormatV4     = strings.Split("Name,Fontname,Fontsize,PrimaryColour,SecondaryColour,TertiaryColour,BackColour,Bold,Italic,Underline,StrikeOut,ScaleX,ScaleY,Spacing,Angle,BorderStyle,Outline,Shadow,Alignment,MarginL,MarginR,MarginV,AlphaLevel,Encoding", ",")
	eventFormatLayer  = strings.Split("Layer,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text", ",")
	eventFormatMarked = strings.Split("Marked,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text", ",")
)

// Style is a single entry of the script style table. Numeric fields that
// fail coercion are left at zero, never rejected. Name has internal spaces
// replaced with underscores so it can double as a CSS class; OriginalName
// keeps the display form for diagnostics.
type Style struct {
	Name         string
	OriginalName string
	Fontname     string
	Fontsize     float64

	PrimaryColour   string
	SecondaryColour string
	TertiaryColour  string
	OutlineColour   string
	BackColour      string

	// tri-state flags: any non-zero value means active
	Bold      int
	Italic    int
	Underline int
	StrikeOut int

	ScaleX      float64
	ScaleY      float64
	Spacing     float64
	Angle       float64
	BorderStyle int
	Outline     float64
	Shadow      float64
	Alignment   string // raw 1-9 numpad code, validated at use
	MarginL     float64
	MarginR     float64
	MarginV     float64
}

// BoldActive reports whether the style requests bold rendering. ASS uses -1
// for "yes" in old scripts and 1 in newer ones.
func (s *Style) BoldActive() bool { return s != nil && s.Bold != 0 }

func (s *Style) ItalicActive() bool { return s != nil && s.Italic != 0 }

func (s *Style) UnderlineActive() bool { return s != nil && s.Underline != 0 }

// DialogueEvent is one timed line of the [Events] section. Start and End
// keep the source H:MM:SS.CC form; conversion to WebVTT timing happens at
// generation time so malformed values can be reported per event.
type DialogueEvent struct {
	Layer   int
	Start   string
	End     string
	Style   string // normalized style name, may be empty
	Name    string // actor, optional
	MarginL int
	MarginR int
	MarginV int
	Effect  string
	Text    string
}

// Document is the parse result: script metadata, the style table in
// insertion order and the event list in input order.
type Document struct {
	Info      map[string]string
	PlayResX  int
	PlayResY  int
	WrapStyle string

	Styles     map[string]*Style
	StyleOrder []string

	// DefaultStyle is the name of the first style inserted into the table,
	// used as fallback when an event references a missing style. Empty when
	// the script has no styles at all.
	DefaultStyle string

	Events []DialogueEvent
}

// Style returns the named style, falling back to the default style when the
// name is unknown or empty. Returns nil only when the script has no styles.
func (d *Document) StyleByName(name string) *Style {
	if s, ok := d.Styles[name]; ok {
		return s
	}
	if d.DefaultStyle != "" {
		return d.Styles[d.DefaultStyle]
	}
	return nil
}

// NormalizeStyleName converts a display style name to its table key.
func NormalizeStyleName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
