package vtt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"scs/ass"
)

// GenerateError reports an unexpected fault while serializing an otherwise
// valid document. Recoverable irregularities (unresolvable styles, broken
// timestamps, unusable tags) never produce it - they only reduce output
// quality.
type GenerateError struct {
	Reason string
	Err    error
}

func (e *GenerateError) Error() string {
	if e.Err != nil {
		return "vtt: " + e.Reason + ": " + e.Err.Error()
	}
	return "vtt: " + e.Reason
}

func (e *GenerateError) Unwrap() error { return e.Err }

// Generator serializes a parsed document as WebVTT.
type Generator struct {
	doc *ass.Document
	log *zap.Logger
}

// NewGenerator creates a generator for one document. A Generator is cheap
// and holds no state beyond the document, one per conversion call.
func NewGenerator(doc *ass.Document, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{doc: doc, log: log.Named("vtt")}
}

// Generate produces the complete WebVTT document: the header line, the
// STYLE block when any style contributes declarations, and the surviving
// cues in start-time order, numbered from 1.
func (g *Generator) Generate() (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &GenerateError{Reason: fmt.Sprintf("unexpected fault while generating WebVTT: %v", r)}
		}
	}()

	if len(g.doc.Events) == 0 {
		g.log.Warn("No events to convert, returning bare WebVTT header")
		return "WEBVTT\n", nil
	}

	events := make([]ass.DialogueEvent, len(g.doc.Events))
	copy(events, g.doc.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return lessTimestamp(g.sortKey(events[i].Start), g.sortKey(events[j].Start))
	})

	parts := []string{"WEBVTT"}
	if block := g.stylesheet(); block != "" {
		parts = append(parts, "", block)
	}

	accepted, skipped := 0, 0
	for _, ev := range events {
		cueText, ok := g.assembleCue(ev, &accepted)
		if !ok {
			skipped++
			continue
		}
		parts = append(parts, "", cueText)
	}

	g.log.Debug("WebVTT generation finished", zap.Int("cues", accepted), zap.Int("skipped", skipped))
	return strings.Join(parts, "\n") + "\n", nil
}

// assembleCue turns one event into a serialized cue block, or reports that
// the event contributes no cue. The accepted counter is advanced only for
// events that survive, so cue numbering has no gaps.
func (g *Generator) assembleCue(ev ass.DialogueEvent, accepted *int) (string, bool) {
	if ev.Layer != 0 {
		g.log.Debug("Skipping non-primary layer event", zap.Int("layer", ev.Layer), zap.String("start", ev.Start))
		return "", false
	}
	if strings.TrimSpace(ev.Text) == "" {
		return "", false
	}

	start := g.convertTimestamp(ev.Start)
	end := g.convertTimestamp(ev.End)
	// fixed-width form makes the lexical compare a temporal one
	if start >= end {
		g.log.Debug("Skipping event with non-positive duration", zap.String("start", start), zap.String("end", end))
		return "", false
	}

	styleName := ev.Style
	if styleName == "" {
		styleName = g.doc.DefaultStyle
	}
	style := g.doc.StyleByName(styleName)
	if style == nil && styleName != "" {
		g.log.Warn("Style not found and no default style", zap.String("style", styleName))
	} else if style != nil && style.Name != styleName {
		g.log.Warn("Style not found, using default", zap.String("style", styleName), zap.String("default", style.Name))
		styleName = style.Name
	}

	payload, overrides := g.renderText(ev.Text, style, styleName)
	if payload == "" {
		return "", false
	}

	settings := g.cueSettings(style, ev, overrides)
	payload = wrapVoice(payload, styleName, ev.Name)

	*accepted++
	return fmt.Sprintf("%d\n%s --> %s%s\n%s", *accepted, start, end, settings, payload), true
}

// cueSettings computes the cue settings line (with leading space) for one
// event: style-derived defaults, the event-margin vertical correction, then
// inline overrides on top. Settings matching WebVTT built-in defaults stay
// off the line unless explicitly overridden, and the plain bottom-center
// placement emits nothing at all since that is exactly what WebVTT renders
// by default.
func (g *Generator) cueSettings(style *ass.Style, ev ass.DialogueEvent, ov Overrides) string {
	code := ""
	marginV := 0.0
	if style != nil {
		code = style.Alignment
		marginV = style.MarginV
	}
	pl := MapAlignment(code, marginV, g.doc.PlayResY)

	align := pl.Align
	line := formatPercent(pl.Line)
	lineAlign := pl.LineAlign
	position := defaultPosition
	positionAlign := pl.Align

	// The event's own MarginV takes precedence over the style margin for
	// vertical placement of top/bottom anchored cues, but never changes the
	// anchor class. Inline alignment overrides ignore margins entirely -
	// that asymmetry matches how ASS renderers prioritize these.
	if ev.MarginV > 0 && g.doc.PlayResY > 0 {
		switch code {
		case "1", "2", "3":
			line = formatPercent(float64(g.doc.PlayResY-ev.MarginV) / float64(g.doc.PlayResY) * 100)
			lineAlign = "end"
		case "7", "8", "9":
			line = formatPercent(float64(ev.MarginV) / float64(g.doc.PlayResY) * 100)
			lineAlign = "start"
		}
	}

	if ov.Align != "" {
		align = ov.Align
	}
	if ov.Line != "" {
		line = ov.Line
	}
	if ov.LineAlign != "" {
		lineAlign = ov.LineAlign
	}
	if ov.Position != "" {
		position = ov.Position
	}
	if ov.PositionAlign != "" {
		positionAlign = ov.PositionAlign
	}

	if !ov.Any() && align == "center" && line == "90%" && lineAlign == "end" &&
		position == defaultPosition && positionAlign == "center" {
		return ""
	}

	var parts []string
	if align != defaultAlign || ov.Align != "" {
		parts = append(parts, "align:"+align)
	}
	if line != defaultLine || ov.Line != "" {
		parts = append(parts, "line:"+line)
	}
	if lineAlign != defaultLineAlign || ov.LineAlign != "" {
		parts = append(parts, "line-align:"+lineAlign)
	}
	if position != defaultPosition || ov.Position != "" {
		parts = append(parts, "position:"+position)
	}
	if positionAlign != defaultPositionAlign || ov.PositionAlign != "" || positionAlign != align {
		parts = append(parts, "position-align:"+positionAlign)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

var actorEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// wrapVoice wraps the payload in a voice span naming the speaker. The span
// carries the style name as its class so the STYLE block applies, and the
// actor as the annotation; angle brackets in the actor are escaped to keep
// the cue markup well formed.
func wrapVoice(payload, styleName, actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return payload
	}
	tag := "v"
	if styleName != "" {
		tag += "." + styleName
	}
	tag += " " + actorEscaper.Replace(actor)
	return "<" + tag + ">" + payload + "</v>"
}

// convertTimestamp converts H:MM:SS.CC (centiseconds) to the WebVTT
// HH:MM:SS.mmm form. A malformed timestamp converts to zero and is logged
// as an error without aborting the conversion.
func (g *Generator) convertTimestamp(t string) string {
	main, csPart, _ := strings.Cut(t, ".")
	hms := strings.Split(main, ":")
	if len(hms) != 3 {
		g.log.Error("Invalid timestamp, using zero", zap.String("timestamp", t))
		return "00:00:00.000"
	}
	h, errH := strconv.Atoi(strings.TrimSpace(hms[0]))
	m, errM := strconv.Atoi(strings.TrimSpace(hms[1]))
	s, errS := strconv.Atoi(strings.TrimSpace(hms[2]))
	if errH != nil || errM != nil || errS != nil {
		g.log.Error("Invalid timestamp, using zero", zap.String("timestamp", t))
		return "00:00:00.000"
	}
	cs := 0
	if csPart != "" {
		var err error
		if cs, err = strconv.Atoi(strings.TrimSpace(csPart)); err != nil {
			g.log.Error("Invalid timestamp fraction, using zero", zap.String("timestamp", t))
			cs = 0
		}
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, cs*10)
}

// sortKey decomposes a start timestamp for ordering. Malformed values sort
// first and are reported, the event itself is still processed.
func (g *Generator) sortKey(t string) [4]int {
	main, csPart, found := strings.Cut(t, ".")
	if !found {
		g.log.Error("Invalid timestamp for sorting, using zero", zap.String("timestamp", t))
		return [4]int{}
	}
	hms := strings.Split(main, ":")
	if len(hms) != 3 {
		g.log.Error("Invalid timestamp for sorting, using zero", zap.String("timestamp", t))
		return [4]int{}
	}
	h, errH := strconv.Atoi(hms[0])
	m, errM := strconv.Atoi(hms[1])
	s, errS := strconv.Atoi(hms[2])
	cs, errC := strconv.Atoi(csPart)
	if errH != nil || errM != nil || errS != nil || errC != nil {
		g.log.Error("Invalid timestamp for sorting, using zero", zap.String("timestamp", t))
		return [4]int{}
	}
	return [4]int{h, m, s, cs}
}

func lessTimestamp(a, b [4]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
