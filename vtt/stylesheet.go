package vtt

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"scs/ass"
)

// shadowFallbackColor approximates an unspecified shadow as translucent
// black, which is what most renderers show for default ASS shadows.
const shadowFallbackColor = "rgba(0,0,0,0.5)"

// stylesheet derives a WebVTT STYLE block from the script style table. Each
// style contributes one ::cue(.<name>) rule with whatever subset of
// declarations its properties support; styles contributing nothing are
// skipped and an empty block is suppressed entirely.
func (g *Generator) stylesheet() string {
	if len(g.doc.StyleOrder) == 0 {
		return ""
	}

	var rules []string
	for _, name := range g.doc.StyleOrder {
		style := g.doc.Styles[name]
		decls := g.styleDeclarations(style)
		if len(decls) == 0 {
			continue
		}
		rules = append(rules, fmt.Sprintf("::cue(.%s) { %s }", name, strings.Join(decls, " ")))
	}
	if len(rules) == 0 {
		return ""
	}
	return "STYLE\n" + strings.Join(rules, "\n")
}

// styleDeclarations maps one style to CSS declarations. Absent or
// unconvertible properties suppress their declaration, they never produce
// placeholder values.
func (g *Generator) styleDeclarations(style *ass.Style) []string {
	var decls []string

	if c := ass.ColorToCSS(style.PrimaryColour); c != "" {
		decls = append(decls, "color: "+c+";")
	} else if style.PrimaryColour != "" {
		g.log.Warn("Could not parse primary color", zap.String("style", style.Name), zap.String("value", style.PrimaryColour))
	}

	// ASS outlines have no direct equivalent, a text stroke is the closest
	outlineColor := ass.ColorToCSS(style.OutlineColour)
	if style.Outline > 0 && outlineColor != "" {
		decls = append(decls, fmt.Sprintf("-webkit-text-stroke-width: %dpx;", int(style.Outline)))
	}
	if outlineColor != "" {
		decls = append(decls, "-webkit-text-stroke-color: "+outlineColor+";")
	}

	backColor := ass.ColorToCSS(style.BackColour)
	if depth := int(style.Shadow); depth > 0 {
		shadowColor := shadowFallbackColor
		if style.BorderStyle == 1 {
			if backColor != "" {
				shadowColor = backColor
			}
		} else if outlineColor != "" {
			shadowColor = outlineColor
		}
		decls = append(decls, fmt.Sprintf("text-shadow: %s %dpx %dpx 0px;", shadowColor, depth, depth))
	}

	// BorderStyle 3 renders an opaque box behind the text
	if style.BorderStyle == 3 && backColor != "" {
		decls = append(decls, "background-color: "+backColor+";")
	}

	if style.Spacing != 0 {
		decls = append(decls, "letter-spacing: "+strconv.FormatFloat(style.Spacing, 'f', -1, 64)+"px;")
	}

	return decls
}
