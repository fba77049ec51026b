package rules

import "github.com/carebuddy/carebuddy/internal/models"

// AdherenceResult reports medication adherence over a window. Expected is 0
// when the patient has no scheduled doses; callers that care must treat that
// separately from a true 0% rate.
type AdherenceResult struct {
	Rate     float64 `json:"rate"`
	Taken    int     `json:"taken"`
	Expected int     `json:"expected"`
}

// Adherence computes the percentage of expected doses confirmed taken.
// Expected doses are every Times entry of every medication, once per day of
// the window. Returns 0 rather than erroring when nothing is scheduled.
func Adherence(plan *models.CarePlan, logs []models.MedicationLog, windowDays int) AdherenceResult {
	var perDay int
	if plan != nil {
		for _, med := range plan.Medications {
			perDay += len(med.Times)
		}
	}
	expected := perDay * windowDays

	taken := 0
	for _, l := range logs {
		if l.Taken {
			taken++
		}
	}

	result := AdherenceResult{Taken: taken, Expected: expected}
	if expected == 0 {
		return result
	}
	result.Rate = float64(taken) / float64(expected) * 100
	if result.Rate > 100 {
		result.Rate = 100
	}
	return result
}
