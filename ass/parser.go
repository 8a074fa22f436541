package ass

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseError reports input that could not be interpreted as an ASS/SSA
// script at all. Every less severe anomaly is logged and replaced with a
// documented default instead of failing the parse.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "ass: " + e.Reason + ": " + e.Err.Error()
	}
	return "ass: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser parses ASS/SSA scripts into a Document.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new script parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("ass-parser")}
}

// Parse parses script text into a Document.
func (p *Parser) Parse(content string) (*Document, error) {
	return p.ParseWithResolution(content, 0, 0)
}

// ParseWithResolution parses script text with pre-seeded play resolution.
// The seeds apply only when [Script Info] does not carry its own
// PlayResX/PlayResY values; callers use this when the resolution is known
// from another source (the hosting application, a sidecar file).
func (p *Parser) ParseWithResolution(content string, playResX, playResY int) (*Document, error) {
	// BOM may survive decoding when the input came from a string source
	content = strings.TrimPrefix(content, "\ufeff")

	sections := p.splitSections(content)
	if len(sections) == 0 {
		p.log.Warn("No sections found in input")
		return nil, &ParseError{Reason: "missing [Events] section, input has no recognizable sections"}
	}

	doc := &Document{
		Info:      map[string]string{"WrapStyle": "1"},
		PlayResX:  playResX,
		PlayResY:  playResY,
		Styles:    make(map[string]*Style),
		WrapStyle: "1",
	}

	p.parseScriptInfo(doc, sections)
	p.parseStyles(doc, sections)
	p.parseEvents(doc, sections)

	if len(doc.Events) == 0 {
		p.log.Warn("No dialogue events parsed")
	}
	return doc, nil
}

// splitSections groups lines under the most recent [Section] header.
// Content before any header and comment lines (leading ';') are discarded.
// A header always creates its section, even when no content follows - an
// empty [Events] section is a valid script with no subtitles.
func (p *Parser) splitSections(content string) map[string][]string {
	sections := make(map[string][]string)
	current := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "\ufeff"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = line[1 : len(line)-1]
			if _, ok := sections[current]; !ok {
				sections[current] = []string{}
			}
			p.log.Debug("Switched to section", zap.String("section", current))
			continue
		}
		if current != "" && !strings.HasPrefix(line, ";") {
			sections[current] = append(sections[current], line)
		}
	}
	return sections
}

func (p *Parser) parseScriptInfo(doc *Document, sections map[string][]string) {
	lines, ok := sections[SectionScriptInfo]
	if !ok {
		p.log.Warn("Missing [Script Info] section, using default resolution",
			zap.Int("play_res_x", doc.PlayResX), zap.Int("play_res_y", doc.PlayResY))
		return
	}

	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found {
			p.log.Warn("Ignoring unknown line in [Script Info]", zap.String("line", line))
			continue
		}
		doc.Info[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	// Values actually present in the section win over pre-seeded hints, even
	// when they fail to parse.
	if raw, ok := doc.Info["PlayResX"]; ok {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			p.log.Warn("Invalid PlayResX value, using 0", zap.String("value", raw))
			v = 0
		}
		doc.PlayResX = v
	}
	if raw, ok := doc.Info["PlayResY"]; ok {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			p.log.Warn("Invalid PlayResY value, using 0", zap.String("value", raw))
			v = 0
		}
		doc.PlayResY = v
	}
	doc.WrapStyle = doc.Info["WrapStyle"]

	p.log.Debug("Script resolution", zap.Int("x", doc.PlayResX), zap.Int("y", doc.PlayResY))
}

func (p *Parser) parseStyles(doc *Document, sections map[string][]string) {
	var (
		lines         []string
		defaultFormat []string
		sectionName   string
	)
	if l, ok := sections[SectionStylesV4Plus]; ok {
		lines, defaultFormat, sectionName = l, styleFormatV4Plus, SectionStylesV4Plus
	} else if l, ok := sections[SectionStylesV4]; ok {
		lines, defaultFormat, sectionName = l, styleFormatV4, SectionStylesV4
	} else {
		p.log.Warn("Missing styles section")
		return
	}
	p.log.Debug("Parsing styles", zap.String("section", sectionName))

	format := defaultFormat
	formatFound := false

	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "format:"):
			format = splitFormat(line[len("format:"):])
			formatFound = true
			p.log.Debug("Custom style format", zap.Strings("columns", format))

		case strings.HasPrefix(lower, "style:"):
			if !formatFound {
				format = defaultFormat
				formatFound = true
				p.log.Warn("Missing 'Format:' line in styles section, using default layout", zap.String("section", sectionName))
			}
			parts := strings.SplitN(strings.TrimSpace(line[len("style:"):]), ",", len(format))
			if len(parts) != len(format) {
				p.log.Warn("Incorrect field count in style line, ignoring", zap.String("line", line))
				continue
			}
			p.addStyle(doc, format, parts)
		}
	}
}

func (p *Parser) addStyle(doc *Document, format, parts []string) {
	s := &Style{}
	for i, col := range format {
		value := strings.TrimSpace(parts[i])
		switch col {
		case "Name":
			s.OriginalName = value
		case "Fontname":
			s.Fontname = value
		case "PrimaryColour":
			s.PrimaryColour = value
		case "SecondaryColour":
			s.SecondaryColour = value
		case "TertiaryColour":
			s.TertiaryColour = value
		case "OutlineColour":
			s.OutlineColour = value
		case "BackColour":
			s.BackColour = value
		case "Alignment":
			s.Alignment = value
		case "Bold":
			s.Bold = p.styleFlag(col, value, s.OriginalName)
		case "Italic":
			s.Italic = p.styleFlag(col, value, s.OriginalName)
		case "Underline":
			s.Underline = p.styleFlag(col, value, s.OriginalName)
		case "StrikeOut":
			s.StrikeOut = p.styleFlag(col, value, s.OriginalName)
		case "Fontsize":
			s.Fontsize = p.styleNumber(col, value, s.OriginalName)
		case "ScaleX":
			s.ScaleX = p.styleNumber(col, value, s.OriginalName)
		case "ScaleY":
			s.ScaleY = p.styleNumber(col, value, s.OriginalName)
		case "Spacing":
			s.Spacing = p.styleNumber(col, value, s.OriginalName)
		case "Angle":
			s.Angle = p.styleNumber(col, value, s.OriginalName)
		case "BorderStyle":
			s.BorderStyle = int(p.styleNumber(col, value, s.OriginalName))
		case "Outline":
			s.Outline = p.styleNumber(col, value, s.OriginalName)
		case "Shadow":
			s.Shadow = p.styleNumber(col, value, s.OriginalName)
		case "MarginL":
			s.MarginL = p.styleNumber(col, value, s.OriginalName)
		case "MarginR":
			s.MarginR = p.styleNumber(col, value, s.OriginalName)
		case "MarginV":
			s.MarginV = p.styleNumber(col, value, s.OriginalName)
		}
	}

	if s.OriginalName == "" {
		p.log.Warn("Ignoring style without a name")
		return
	}

	s.Name = NormalizeStyleName(s.OriginalName)
	if _, exists := doc.Styles[s.Name]; !exists {
		doc.StyleOrder = append(doc.StyleOrder, s.Name)
		if doc.DefaultStyle == "" {
			doc.DefaultStyle = s.Name
		}
	}
	doc.Styles[s.Name] = s
	p.log.Debug("Parsed style", zap.String("name", s.Name), zap.String("original", s.OriginalName))
}

func (p *Parser) styleFlag(col, value, style string) int {
	v, err := strconv.Atoi(value)
	if err != nil {
		p.log.Warn("Invalid numeric style value, using 0",
			zap.String("field", col), zap.String("value", value), zap.String("style", style))
		return 0
	}
	return v
}

func (p *Parser) styleNumber(col, value, style string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.log.Warn("Invalid numeric style value, using 0",
			zap.String("field", col), zap.String("value", value), zap.String("style", style))
		return 0
	}
	return v
}

func (p *Parser) parseEvents(doc *Document, sections map[string][]string) {
	lines, ok := sections[SectionEvents]
	if !ok {
		p.log.Warn("Missing [Events] section, no subtitles")
		return
	}

	format := eventFormatLayer
	formatFound := false

	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "format:"):
			format = normalizeEventFormat(splitFormat(line[len("format:"):]))
			formatFound = true
			p.log.Debug("Custom event format", zap.Strings("columns", format))

		case strings.HasPrefix(lower, "dialogue:"):
			rest := strings.TrimSpace(line[len("dialogue:"):])
			if !formatFound {
				// No Format: line before the first dialogue - infer the
				// layout from the leading field: modern scripts start with a
				// numeric Layer, legacy ones with a Marked token.
				format = eventFormatLayer
				probe := strings.SplitN(rest, ",", len(format))
				if len(probe) == 0 || !isDigits(probe[0]) {
					format = normalizeEventFormat(eventFormatMarked)
				}
				formatFound = true
				p.log.Warn("Missing 'Format:' line in [Events], using inferred layout")
			}
			parts := strings.SplitN(rest, ",", len(format))
			if len(parts) != len(format) {
				p.log.Warn("Incorrect field count in Dialogue line, ignoring", zap.String("line", line))
				continue
			}
			ev, err := eventFromFields(format, parts)
			if err != nil {
				p.log.Warn("Could not parse numeric values in Dialogue line, ignoring",
					zap.String("line", line), zap.Error(err))
				continue
			}
			doc.Events = append(doc.Events, ev)

		case strings.HasPrefix(lower, "comment:"):
			// skip

		default:
			p.log.Warn("Ignoring unknown line in [Events]", zap.String("line", line))
		}
	}
}

func eventFromFields(format, parts []string) (DialogueEvent, error) {
	ev := DialogueEvent{}
	for i, col := range format {
		value := strings.TrimSpace(parts[i])
		var err error
		switch col {
		case "Layer":
			ev.Layer, err = strconv.Atoi(value)
		case "Start":
			ev.Start = value
		case "End":
			ev.End = value
		case "Style":
			ev.Style = NormalizeStyleName(value)
		case "Name":
			ev.Name = value
		case "MarginL":
			ev.MarginL, err = strconv.Atoi(value)
		case "MarginR":
			ev.MarginR, err = strconv.Atoi(value)
		case "MarginV":
			ev.MarginV, err = strconv.Atoi(value)
		case "Effect":
			ev.Effect = value
		case "Text":
			ev.Text = value
		}
		if err != nil {
			return DialogueEvent{}, err
		}
	}
	return ev, nil
}

// normalizeEventFormat treats the legacy Marked column as Layer so both
// layouts decode through the same field names.
func normalizeEventFormat(format []string) []string {
	hasLayer := false
	for _, col := range format {
		if col == "Layer" {
			hasLayer = true
			break
		}
	}
	if hasLayer {
		return format
	}
	out := make([]string, len(format))
	for i, col := range format {
		if col == "Marked" {
			col = "Layer"
		}
		out[i] = col
	}
	return out
}

func splitFormat(s string) []string {
	fields := strings.Split(strings.TrimSpace(s), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func isDigits(s string) bool {
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
