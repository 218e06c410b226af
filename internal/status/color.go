package status

import "fmt"

// MaxLevel is the full-scale value of one indicator channel.
const MaxLevel uint16 = 0xFFFF

// Color is an indicator colour with 16-bit channels.
type Color struct {
	R, G, B uint16
}

// Named indicator colours.
var (
	Off    = Color{}
	Red    = Color{R: MaxLevel}
	Green  = Color{G: MaxLevel}
	Blue   = Color{B: MaxLevel}
	Yellow = Color{R: MaxLevel, G: MaxLevel}
	Purple = Color{R: MaxLevel, B: MaxLevel}
	White  = Color{R: MaxLevel, G: MaxLevel, B: MaxLevel}
)

// Hex returns the colour as #rrggbb, keeping the high byte of each channel.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R>>8, c.G>>8, c.B>>8)
}

// Dim reports whether every channel is below a quarter of full scale.
func (c Color) Dim() bool {
	const quarter = MaxLevel / 4
	return c.R < quarter && c.G < quarter && c.B < quarter
}
