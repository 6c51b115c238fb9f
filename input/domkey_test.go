package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDOMKey(t *testing.T) {
	tests := []struct {
		code  string
		shift bool
		want  string
	}{
		{"A", false, "a"},
		{"KeyD", false, "d"},
		{"D", true, "D"},
		{"Digit7", false, "7"},
		{"Digit7", true, "&"},
		{"Digit0", true, ")"},
		{"Space", false, " "},
		{"Minus", true, "_"},
		{"ArrowLeft", false, "ArrowLeft"},
		{"ArrowRight", true, "ArrowRight"},
		{"Enter", false, "Enter"},
		{"Keyboard", false, "Keyboard"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DOMKey(tt.code, tt.shift), "%s shift=%t", tt.code, tt.shift)
	}
}
