package ass

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColorToCSS converts an ASS color value (&HAABBGGRR or &HBBGGRR) to a CSS
// color string. ASS stores channels in blue-green-red order and the alpha
// byte inverted (0 means opaque). Fully opaque colors become lowercase
// #rrggbb, everything else rgba(r,g,b,a) with alpha rounded to 3 decimals.
// Returns the empty string for anything that is not a well-formed ASS color.
func ColorToCSS(raw string) string {
	if !strings.HasPrefix(raw, "&H") {
		return ""
	}
	hex := strings.ToUpper(raw[2:])

	var alphaHex, blueHex, greenHex, redHex string
	alpha := 1.0
	switch len(hex) {
	case 8:
		alphaHex, blueHex, greenHex, redHex = hex[0:2], hex[2:4], hex[4:6], hex[6:8]
		a, err := strconv.ParseUint(alphaHex, 16, 8)
		if err != nil {
			return ""
		}
		alpha = math.Round((1.0-float64(a)/255.0)*1000) / 1000
	case 6:
		blueHex, greenHex, redHex = hex[0:2], hex[2:4], hex[4:6]
	default:
		return ""
	}

	r, err := strconv.ParseUint(redHex, 16, 8)
	if err != nil {
		return ""
	}
	g, err := strconv.ParseUint(greenHex, 16, 8)
	if err != nil {
		return ""
	}
	b, err := strconv.ParseUint(blueHex, 16, 8)
	if err != nil {
		return ""
	}

	if alpha >= 0.999 {
		return strings.ToLower("#" + redHex + greenHex + blueHex)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(alpha, 'g', -1, 64))
}
