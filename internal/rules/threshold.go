// Package rules implements the deterministic clinical rules engine:
// threshold classification, adherence, time-in-range, pattern detection,
// alerting, reminder generation, and reports.
package rules

import "github.com/carebuddy/carebuddy/internal/models"

// Direction reports where a reading sits relative to its target band.
type Direction string

const (
	DirectionInRange Direction = "in_range"
	DirectionLow     Direction = "low"
	DirectionHigh    Direction = "high"
)

// Severity tier boundaries in mg/dL. Comparisons are strict: a reading of
// exactly 70 is not hypoglycemic for tiering purposes.
const (
	hypoglycemiaFloor   = 70
	fastingHighCeiling  = 250
	criticalHighCeiling = 300
)

// Classification is the outcome of classifying one glucose reading.
type Classification struct {
	Direction Direction
	Severity  models.AlertSeverity
}

// Classify grades a glucose reading against the care plan targets. Fasting
// readings compare against the fasting band, every other type against the
// post-meal band. Non-fasting excursions tier more urgently than fasting
// deviations of the same magnitude.
func Classify(reading float64, readingType models.ReadingType, targets models.GlucoseTarget) Classification {
	min, max := bandFor(readingType, targets)
	switch {
	case reading < float64(min):
		return Classification{Direction: DirectionLow, Severity: lowSeverity(reading, readingType)}
	case reading > float64(max):
		return Classification{Direction: DirectionHigh, Severity: highSeverity(reading, readingType)}
	default:
		return Classification{Direction: DirectionInRange}
	}
}

func bandFor(readingType models.ReadingType, targets models.GlucoseTarget) (min, max int) {
	if readingType == models.ReadingFasting {
		return targets.FastingMin, targets.FastingMax
	}
	return targets.PostMealMin, targets.PostMealMax
}

func lowSeverity(reading float64, readingType models.ReadingType) models.AlertSeverity {
	if readingType == models.ReadingFasting {
		if reading < hypoglycemiaFloor {
			return models.SeverityHigh
		}
		return models.SeverityMedium
	}
	if reading < hypoglycemiaFloor {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}

func highSeverity(reading float64, readingType models.ReadingType) models.AlertSeverity {
	if readingType == models.ReadingFasting {
		if reading > fastingHighCeiling {
			return models.SeverityHigh
		}
		return models.SeverityMedium
	}
	if reading > criticalHighCeiling {
		return models.SeverityCritical
	}
	return models.SeverityHigh
}
