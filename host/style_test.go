package host

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"rgb(0,50,200)", color.NRGBA{0, 50, 200, 255}, true},
		{"rgb(200, 50, 0)", color.NRGBA{200, 50, 0, 255}, true},
		{"rgba(10, 20, 30, 0.5)", color.NRGBA{10, 20, 30, 128}, true},
		{"#fff", color.NRGBA{255, 255, 255, 255}, true},
		{"#00ff7f", color.NRGBA{0, 255, 127, 255}, true},
		{"Red", color.NRGBA{255, 0, 0, 255}, true},
		{"rgb(300, -5, 0)", color.NRGBA{255, 0, 0, 255}, true},
		{"transparent", color.NRGBA{}, true},
		{"", color.NRGBA{}, false},
		{"#12", color.NRGBA{}, false},
		{"rgb(1,2)", color.NRGBA{}, false},
		{"chartreuse-ish", color.NRGBA{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#0032c8", FormatColor(color.NRGBA{0, 50, 200, 255}))
	assert.Equal(t, "rgba(1, 2, 3, 0)", FormatColor(color.NRGBA{1, 2, 3, 0}))
}

func TestParseFont(t *testing.T) {
	px, ok := ParseFont("20px Courier New")
	assert.True(t, ok)
	assert.Equal(t, 20.0, px)

	px, ok = ParseFont("bold 12.5px monospace")
	assert.True(t, ok)
	assert.Equal(t, 12.5, px)

	_, ok = ParseFont("Courier New")
	assert.False(t, ok)

	_, ok = ParseFont("20px")
	assert.False(t, ok)
}
