// Package vtt generates WebVTT documents from parsed ASS/SSA scripts: a
// style sheet derived from the script style table and a cue list with
// timing, alignment and positioning settings. The mapping from pixel-space
// ASS concepts to WebVTT's percentage model is best effort - visual effects
// without a WebVTT equivalent are dropped, never errored on.
package vtt

import (
	"math"
	"strconv"
)

// WebVTT built-in cue setting defaults. Settings matching these are left
// off the cue line unless an inline override set them explicitly.
const (
	defaultAlign         = "center"
	defaultLine          = "auto"
	defaultLineAlign     = "start"
	defaultPosition      = "auto"
	defaultPositionAlign = "auto"
)

// alignmentMap decomposes the 1-9 numpad alignment code into a vertical
// anchor and a horizontal text alignment.
var alignmentMap = map[string][2]string{
	"1": {"end", "start"}, "2": {"end", "center"}, "3": {"end", "end"},
	"4": {"middle", "start"}, "5": {"middle", "center"}, "6": {"middle", "end"},
	"7": {"start", "start"}, "8": {"start", "center"}, "9": {"start", "end"},
}

const defaultAlignmentCode = "2"

// Placement is the WebVTT rendition of an ASS alignment code: horizontal
// text alignment plus a line offset and its anchor.
type Placement struct {
	Align     string
	LineAlign string
	Line      float64 // percentage of the viewport height
}

// MapAlignment maps a numpad alignment code and a vertical margin to a cue
// placement. An invalid or missing code defaults to bottom-center. The
// margin contributes proportionally when the script play height is known:
// top anchored cues keep at least 2% offset from the top, bottom anchored
// ones at least 10% from the bottom (90% line offset).
func MapAlignment(code string, marginV float64, playResY int) Placement {
	anchors, ok := alignmentMap[code]
	if !ok {
		anchors = alignmentMap[defaultAlignmentCode]
	}
	vertical, align := anchors[0], anchors[1]

	marginOffset := 0.0
	if marginV > 0 && playResY > 0 {
		marginOffset = marginV / float64(playResY) * 100
	}

	pl := Placement{Align: align}
	switch vertical {
	case "start":
		pl.Line = 2.0
		if marginOffset > 0 {
			pl.Line = math.Max(2.0, marginOffset)
		}
		pl.LineAlign = "start"
	case "middle":
		pl.Line = 50.0
		pl.LineAlign = "center"
	case "end":
		pl.Line = 90.0
		if marginOffset > 0 {
			pl.Line = 100.0 - math.Max(10.0, marginOffset)
		}
		pl.LineAlign = "end"
	}
	return pl
}

// formatPercent renders a line/position percentage: whole numbers without a
// fraction ("2%", "50%"), everything else with two decimals ("14.81%").
func formatPercent(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64) + "%"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
