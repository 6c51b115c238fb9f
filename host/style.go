package host

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var namedColors = map[string]color.RGBA{
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"lime":        {0, 255, 0, 255},
	"blue":        {0, 0, 255, 255},
	"yellow":      {255, 255, 0, 255},
	"orange":      {255, 165, 0, 255},
	"purple":      {128, 0, 128, 255},
	"cyan":        {0, 255, 255, 255},
	"magenta":     {255, 0, 255, 255},
	"gray":        {128, 128, 128, 255},
	"grey":        {128, 128, 128, 255},
	"transparent": {0, 0, 0, 0},
}

var funcColor = regexp.MustCompile(`^rgba?\(\s*([^,\s]+)\s*,\s*([^,\s]+)\s*,\s*([^,\s)]+)\s*(?:,\s*([^,\s)]+)\s*)?\)$`)

// ParseColor parses the subset of CSS colors used by canvas code: named
// colors, #rgb, #rrggbb, rgb() and rgba(). The result is not premultiplied.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return color.NRGBA(c), true
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	m := funcColor.FindStringSubmatch(s)
	if m == nil {
		return color.NRGBA{}, false
	}
	var out color.NRGBA
	for i, dst := range []*uint8{&out.R, &out.G, &out.B} {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		*dst = clampByte(v)
	}
	out.A = 255
	if m[4] != "" {
		a, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		out.A = clampByte(a * 255)
	}
	return out, true
}

func parseHex(h string) (color.NRGBA, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// FormatColor serializes c the way canvas fillStyle getters do.
func FormatColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	a := strconv.FormatFloat(float64(c.A)/255, 'f', -1, 64)
	if len(a) > 6 {
		a = a[:6]
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, a)
}

var fontSize = regexp.MustCompile(`(?:^|\s)(\d+(?:\.\d+)?)px\s+\S`)

// ParseFont extracts the pixel size from a CSS font shorthand such as
// "20px Courier New" or "bold 12px monospace".
func ParseFont(s string) (float64, bool) {
	m := fontSize.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	px, err := strconv.ParseFloat(m[1], 64)
	if err != nil || px <= 0 {
		return 0, false
	}
	return px, true
}
