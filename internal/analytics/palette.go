package analytics

// OptionColor names one entry of the fixed voting palette. Presentation maps
// these to concrete colors; the index-to-color assignment itself is part of
// the analytics contract so every renderer agrees.
type OptionColor string

const (
	ColorGreen  OptionColor = "green"
	ColorRed    OptionColor = "red"
	ColorBlue   OptionColor = "blue"
	ColorAmber  OptionColor = "amber"
	ColorViolet OptionColor = "violet"
)

var palette = []OptionColor{ColorGreen, ColorRed, ColorBlue, ColorAmber, ColorViolet}

// ColorForOption assigns a palette color to the option at idx. Binary
// markets always get green/red; larger option sets cycle through the palette
// so the assignment stays deterministic however many options exist.
func ColorForOption(idx, optionCount int) OptionColor {
	if idx < 0 {
		idx = 0
	}
	if optionCount == 2 {
		if idx == 0 {
			return ColorGreen
		}
		return ColorRed
	}
	return palette[idx%len(palette)]
}
