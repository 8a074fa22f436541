package ass

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestColorToCSS(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "opaque white", in: "&H00FFFFFF", want: "#ffffff"},
		{name: "opaque red bgr order", in: "&H000000FF", want: "#ff0000"},
		{name: "opaque blue bgr order", in: "&H00FF0000", want: "#0000ff"},
		{name: "six digit form", in: "&H0000FF", want: "#ff0000"},
		{name: "half transparent", in: "&H80FFFFFF", want: "rgba(255,255,255,0.498)"},
		{name: "fully transparent", in: "&HFF000000", want: "rgba(0,0,0,0)"},
		{name: "lowercase digits accepted", in: "&H00ffffff", want: "#ffffff"},
		{name: "lowercase prefix rejected", in: "&h00FFFFFF", want: ""},
		{name: "missing prefix", in: "00FFFFFF", want: ""},
		{name: "wrong length", in: "&H0000FFF", want: ""},
		{name: "not hex", in: "&H00GGHHII", want: ""},
		{name: "empty", in: "", want: ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ColorToCSS(c.in); got != c.want {
				t.Errorf("ColorToCSS(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

// cssColor decodes the two output forms of ColorToCSS back to channels.
func cssColor(t *testing.T, s string) (r, g, b uint64, alpha float64) {
	t.Helper()
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 {
			t.Fatalf("bad hex color %q", s)
		}
		r, _ = strconv.ParseUint(hex[0:2], 16, 8)
		g, _ = strconv.ParseUint(hex[2:4], 16, 8)
		b, _ = strconv.ParseUint(hex[4:6], 16, 8)
		return r, g, b, 1.0
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "rgba("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 4 {
		t.Fatalf("bad rgba color %q", s)
	}
	r, _ = strconv.ParseUint(parts[0], 10, 8)
	g, _ = strconv.ParseUint(parts[1], 10, 8)
	b, _ = strconv.ParseUint(parts[2], 10, 8)
	alpha, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		t.Fatalf("bad alpha in %q: %v", s, err)
	}
	return r, g, b, alpha
}

func TestColorToCSSRoundTrip(t *testing.T) {
	samples := []uint64{0x00, 0x01, 0x33, 0x7F, 0x80, 0xCC, 0xFE, 0xFF}

	for _, a := range samples {
		for _, ch := range samples {
			in := fmt.Sprintf("&H%02X%02X%02X%02X", a, ch, 0xFF-ch, ch)
			out := ColorToCSS(in)
			if out == "" {
				t.Fatalf("ColorToCSS(%q) rejected a valid color", in)
			}

			r, g, b, alpha := cssColor(t, out)
			if r != ch || g != 0xFF-ch || b != ch {
				t.Errorf("%q -> %q: rgb (%d,%d,%d), want (%d,%d,%d)", in, out, r, g, b, ch, 0xFF-ch, ch)
			}
			wantAlpha := 1.0 - float64(a)/255.0
			if math.Abs(alpha-wantAlpha) > 1.0/255.0 {
				t.Errorf("%q -> %q: alpha %v, want %v within 1/255", in, out, alpha, wantAlpha)
			}
		}
	}
}
