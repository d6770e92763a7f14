package models

import (
	"math"
	"time"
)

// Sensation is one of the nine ordered comfort labels derived from
// effective temperature.
type Sensation string

const (
	SensationNone           Sensation = ""
	SensationExtremelyCold  Sensation = "Крайне холодно"
	SensationVeryCold       Sensation = "Очень холодно"
	SensationCold           Sensation = "Холодно"
	SensationModeratelyCold Sensation = "Умеренно холодно"
	SensationCool           Sensation = "Прохладно"
	SensationModeratelyWarm Sensation = "Умеренно тепло"
	SensationWarm           Sensation = "Тепло"
	SensationHot            Sensation = "Жарко"
	SensationVeryHot        Sensation = "Очень жарко"
)

// sensationThresholds holds inclusive lower bounds, evaluated highest
// first. Values below the last bound classify as extremely cold.
var sensationThresholds = []struct {
	Min   float64
	Label Sensation
}{
	{30, SensationVeryHot},
	{24, SensationHot},
	{18, SensationWarm},
	{12, SensationModeratelyWarm},
	{6, SensationCool},
	{0, SensationModeratelyCold},
	{-12, SensationCold},
	{-24, SensationVeryCold},
}

// Classify maps an effective temperature to its sensation category.
// NaN has no category.
func Classify(effectiveTemp float64) Sensation {
	if math.IsNaN(effectiveTemp) {
		return SensationNone
	}
	for _, t := range sensationThresholds {
		if effectiveTemp >= t.Min {
			return t.Label
		}
	}
	return SensationExtremelyCold
}

// SensationColors is the fixed chart palette, one entry per category.
var SensationColors = map[Sensation]string{
	SensationExtremelyCold:  "#000080",
	SensationVeryCold:       "#0000FF",
	SensationCold:           "#87CEFA",
	SensationModeratelyCold: "#ADD8E6",
	SensationCool:           "#008000",
	SensationModeratelyWarm: "#9ACD32",
	SensationWarm:           "#FFD700",
	SensationHot:            "#FF8C00",
	SensationVeryHot:        "#FF0000",
}

// DefaultSensationColor is used for categories missing from the palette.
const DefaultSensationColor = "#000000"

// ColorFor returns the palette color of a category, falling back to the
// default for unknown labels.
func ColorFor(s Sensation) string {
	if color, ok := SensationColors[s]; ok {
		return color
	}
	return DefaultSensationColor
}

// Segment is a maximal run of consecutive points sharing one sensation
// category. Segments are built per render and consumed immediately by
// trace assembly.
type Segment struct {
	Category Sensation
	Times    []time.Time
	Values   []float64
}
