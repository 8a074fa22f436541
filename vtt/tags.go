package vtt

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"scs/ass"
)

// Overrides are cue settings set explicitly by inline override tags. An
// empty field means the tag stream never touched that setting; explicitly
// set values are always emitted on the cue line, even when they happen to
// match a WebVTT default.
type Overrides struct {
	Align         string
	Line          string
	LineAlign     string
	Position      string
	PositionAlign string
}

// Any reports whether at least one setting was overridden.
func (o Overrides) Any() bool {
	return o != Overrides{}
}

type directiveKind int

const (
	// directiveUnknown covers tags we do not recognize at all. They are
	// logged differently from directiveIgnored so genuinely new tags can be
	// told apart from known ones without a WebVTT equivalent.
	directiveUnknown directiveKind = iota
	directiveToggle
	directiveAlignment
	directivePosition
	directiveReset
	directiveIgnored
)

// directive is one backslash-delimited item of an override block.
type directive struct {
	kind directiveKind
	raw  string

	flag byte   // toggle: 'b', 'i' or 'u'
	on   bool   // toggle state
	code string // alignment: numpad code digits
	note string // ignored: short class for logging
}

var (
	overrideBlockRe = regexp.MustCompile(`\{[^{}]*\}`)
	positionArgsRe  = regexp.MustCompile(`^pos\s*\(\s*([0-9.]+)\s*,\s*([0-9.]+)\s*\)`)
)

// ignoredPrefixes are tags with no WebVTT rendition: alpha and color
// channels, font tweaks, borders, blur, fades, animations and karaoke
// timing. They are consumed silently so they never leak into cue text.
var ignoredPrefixes = []struct {
	prefix string
	note   string
}{
	{"&H", "color"},
	{"alpha", "alpha"},
	{"1a", "alpha"}, {"2a", "alpha"}, {"3a", "alpha"}, {"4a", "alpha"},
	{"2c", "color"}, {"3c", "color"}, {"4c", "color"},
	{"fscx", "font scale"}, {"fscy", "font scale"},
	{"fs", "font size"}, {"fn", "font name"},
	{"bord", "border"}, {"shad", "shadow"},
	{"be", "blur"}, {"blur", "blur"},
	{"fad", "fade"}, {"fade", "fade"},
	{"move(", "animation"}, {"org(", "animation"},
	{"t", "transform"},
	{"k", "karaoke"}, {"K", "karaoke"}, {"kf", "karaoke"}, {"ko", "karaoke"},
	{"q", "wrap style"},
}

// classifyDirective decides what a single override tag means. Deliberately
// forgiving: nothing here can fail, at worst the tag ends up unknown.
func classifyDirective(raw string) directive {
	d := directive{raw: raw}

	if len(raw) > 0 && (raw[0] == 'b' || raw[0] == 'i' || raw[0] == 'u') {
		arg := raw[1:]
		if arg == "" || allDigits(arg) {
			d.kind = directiveToggle
			d.flag = raw[0]
			// a missing or malformed numeral argument means "on"
			n, err := strconv.Atoi(arg)
			d.on = arg == "" || err != nil || n > 0
			return d
		}
	}

	if arg, ok := strings.CutPrefix(raw, "an"); ok && allDigits(arg) {
		d.kind = directiveAlignment
		d.code = arg
		return d
	}

	if strings.HasPrefix(raw, "pos(") || positionArgsRe.MatchString(raw) {
		d.kind = directivePosition
		return d
	}

	if raw == "r" {
		d.kind = directiveReset
		return d
	}

	// inline primary color: \c&H...& or \1c&H...&
	if strings.HasPrefix(raw, "c") && len(raw) > 1 ||
		strings.HasPrefix(raw, "1c") && len(raw) > 2 {
		rest := strings.TrimPrefix(strings.TrimPrefix(raw, "1"), "c")
		if strings.HasPrefix(rest, "&H") || allDigits(rest) {
			d.kind = directiveIgnored
			d.note = "primary color"
			return d
		}
	}

	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(raw, p.prefix) {
			d.kind = directiveIgnored
			d.note = p.note
			return d
		}
	}

	d.kind = directiveUnknown
	return d
}

// renderState is the running state of the tag interpreter: the character
// formatting set and the accumulated override settings.
type renderState struct {
	bold      bool
	italic    bool
	underline bool
	overrides Overrides
}

func (st *renderState) seedFromStyle(style *ass.Style) {
	st.bold = style.BoldActive()
	st.italic = style.ItalicActive()
	st.underline = style.UnderlineActive()
}

// renderText interprets inline override blocks in event text, producing the
// cue payload with <b>/<i>/<u> markup and the override settings for the
// cue line. It never fails - unusable tags are logged and dropped.
func (g *Generator) renderText(text string, style *ass.Style, styleName string) (string, Overrides) {
	st := renderState{}
	st.seedFromStyle(style)

	var out strings.Builder
	last := 0
	for _, loc := range overrideBlockRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			out.WriteString(wrapFormatting(literalText(text[last:loc[0]]), &st))
		}
		g.applyBlock(text[loc[0]+1:loc[1]-1], &st, styleName)
		last = loc[1]
	}
	if last < len(text) {
		out.WriteString(wrapFormatting(literalText(text[last:]), &st))
	}

	rendered := strings.TrimSpace(collapseEmptyTags(out.String()))
	return rendered, st.overrides
}

// applyBlock runs every directive of one {...} block against the state.
func (g *Generator) applyBlock(block string, st *renderState, styleName string) {
	for tag := range strings.SplitSeq(block, "\\") {
		if tag == "" {
			continue
		}
		d := classifyDirective(tag)
		switch d.kind {
		case directiveToggle:
			switch d.flag {
			case 'b':
				st.bold = d.on
			case 'i':
				st.italic = d.on
			case 'u':
				st.underline = d.on
			}

		case directiveAlignment:
			if len(d.code) != 1 || d.code == "0" {
				g.log.Warn("Ignoring invalid alignment tag", zap.String("tag", tag))
				continue
			}
			pl := MapAlignment(d.code, 0, 0)
			st.overrides.Align = pl.Align
			st.overrides.Line = formatPercent(pl.Line)
			st.overrides.LineAlign = pl.LineAlign
			st.overrides.Position = "auto"
			g.log.Debug("Alignment override",
				zap.String("tag", tag), zap.String("align", pl.Align), zap.String("line", st.overrides.Line))

		case directivePosition:
			g.applyPosition(tag, st)

		case directiveReset:
			// back to the event's base style and no accumulated overrides
			st.seedFromStyle(g.doc.StyleByName(styleName))
			st.overrides = Overrides{}
			g.log.Debug("Applied style reset")

		case directiveIgnored:
			if d.note == "primary color" {
				// no WebVTT rendition for mid-cue color changes, but resolve
				// the value so the loss is visible in logs
				css := ass.ColorToCSS(strings.TrimPrefix(strings.TrimPrefix(tag, "1"), "c"))
				g.log.Debug("Ignoring inline color change", zap.String("tag", tag), zap.String("css", css))
				continue
			}
			g.log.Debug("Ignoring tag unsupported in WebVTT", zap.String("tag", tag), zap.String("class", d.note))

		default:
			g.log.Debug("Ignoring unknown tag", zap.String("tag", tag))
		}
	}
}

// applyPosition handles \pos(x,y): pixel coordinates become percentages of
// the script resolution, with the horizontal alignment bucketed by thirds
// of the width.
func (g *Generator) applyPosition(tag string, st *renderState) {
	m := positionArgsRe.FindStringSubmatch(tag)
	if m == nil || g.doc.PlayResX <= 0 || g.doc.PlayResY <= 0 {
		g.log.Warn("Ignoring position tag, missing play resolution or malformed arguments", zap.String("tag", tag))
		return
	}
	x, errX := strconv.ParseFloat(m[1], 64)
	y, errY := strconv.ParseFloat(m[2], 64)
	if errX != nil || errY != nil {
		g.log.Warn("Ignoring invalid values in position tag", zap.String("tag", tag))
		return
	}

	posPct := x / float64(g.doc.PlayResX) * 100
	linePct := y / float64(g.doc.PlayResY) * 100

	align := "center"
	switch {
	case posPct < 33:
		align = "start"
	case posPct > 66:
		align = "end"
	}

	st.overrides.Position = formatPercent(posPct)
	st.overrides.Line = formatPercent(linePct)
	st.overrides.Align = align
	st.overrides.LineAlign = "start"
	st.overrides.PositionAlign = align
	g.log.Debug("Position override",
		zap.String("tag", tag), zap.String("position", st.overrides.Position), zap.String("line", st.overrides.Line))
}

// literalText converts the two-character escapes of dialogue text: both
// line break forms become real line breaks, the non-breaking space a plain
// space.
func literalText(s string) string {
	s = strings.ReplaceAll(s, `\N`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	return strings.ReplaceAll(s, `\h`, " ")
}

// wrapFormatting wraps a literal run in the tags of the current formatting
// set. Nesting is always symmetric: <u><i><b>...</b></i></u>.
func wrapFormatting(s string, st *renderState) string {
	if s == "" {
		return s
	}
	var prefix, suffix string
	if st.underline {
		prefix += "<u>"
		suffix = "</u>" + suffix
	}
	if st.italic {
		prefix += "<i>"
		suffix = "</i>" + suffix
	}
	if st.bold {
		prefix += "<b>"
		suffix = "</b>" + suffix
	}
	return prefix + s + suffix
}

var emptyTagReplacer = strings.NewReplacer("<b></b>", "", "<i></i>", "", "<u></u>", "")

func collapseEmptyTags(s string) string {
	return emptyTagReplacer.Replace(s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
