package rules

import (
	"math"

	"github.com/carebuddy/carebuddy/internal/models"
)

// TimeInRange summarizes how many readings fell inside their target band.
// Percentage is nil when there are no readings, distinguishing "no data"
// from a true 0%.
type TimeInRange struct {
	Percentage *float64 `json:"percentage"`
	Total      int      `json:"total"`
	InRange    int      `json:"in_range"`
	BelowRange int      `json:"below_range"`
	AboveRange int      `json:"above_range"`
}

// ComputeTimeInRange counts band inclusion per reading, selecting the band
// by reading type exactly as Classify does.
func ComputeTimeInRange(logs []models.GlucoseLog, targets models.GlucoseTarget) TimeInRange {
	tir := TimeInRange{Total: len(logs)}
	for _, l := range logs {
		switch Classify(l.Reading, l.ReadingType, targets).Direction {
		case DirectionLow:
			tir.BelowRange++
		case DirectionHigh:
			tir.AboveRange++
		default:
			tir.InRange++
		}
	}
	if tir.Total == 0 {
		return tir
	}
	pct := math.Round(float64(tir.InRange)/float64(tir.Total)*1000) / 10
	tir.Percentage = &pct
	return tir
}
