package kind

import "fmt"

// Color is the clock-domain tag carried by signal kinds. Constant marks
// values that belong to no domain and may be combined with any color.
type Color uint8

const (
	Constant Color = iota
	Red
	Orange
	Yellow
	Green
	Blue
	Indigo
	Violet
)

var colorNames = []string{"Constant", "Red", "Orange", "Yellow", "Green", "Blue", "Indigo", "Violet"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("Color(%d)", uint8(c))
}

// ParseColor is the inverse of Color.String, case-insensitive on the first
// letter only.
func ParseColor(s string) (Color, error) {
	for i, n := range colorNames {
		if s == n || (len(s) > 0 && s[1:] == n[1:] && s[0]|0x20 == n[0]|0x20) {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown domain color %q", s)
}

// Compatible reports whether values of colors a and b may be combined
// without an explicit crossing.
func Compatible(a, b Color) bool {
	return a == b || a == Constant || b == Constant
}
