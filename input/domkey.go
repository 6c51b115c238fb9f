package input

import "strings"

// US layout.
const shiftedDigits = ")!@#$%^&*("

var punctuation = map[string][2]string{
	"Space":        {" ", " "},
	"Minus":        {"-", "_"},
	"Equal":        {"=", "+"},
	"Comma":        {",", "<"},
	"Period":       {".", ">"},
	"Slash":        {"/", "?"},
	"Semicolon":    {";", ":"},
	"Quote":        {"'", "\""},
	"Backquote":    {"`", "~"},
	"Backslash":    {"\\", "|"},
	"BracketLeft":  {"[", "{"},
	"BracketRight": {"]", "}"},
}

// DOMKey converts a physical key code name ("KeyA", "A", "Digit1", "Space",
// "ArrowLeft") to the value a browser reports as KeyboardEvent.key. Named
// keys without a printable value pass through unchanged.
func DOMKey(code string, shift bool) string {
	name := strings.TrimPrefix(code, "Key")
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z' {
		if shift {
			return name
		}
		return strings.ToLower(name)
	}
	if d, ok := strings.CutPrefix(code, "Digit"); ok && len(d) == 1 && d[0] >= '0' && d[0] <= '9' {
		if shift {
			return string(shiftedDigits[d[0]-'0'])
		}
		return d
	}
	if p, ok := punctuation[code]; ok {
		if shift {
			return p[1]
		}
		return p[0]
	}
	return code
}
