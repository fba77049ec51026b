package rules

import "github.com/carebuddy/carebuddy/internal/models"

// Frequency ratios above which a counter becomes a qualitative finding.
// Policy constants, not derived values.
const (
	morningSpikeRatio  = 0.30
	eveningSpikeRatio  = 0.30
	nighttimeLowRatio  = 0.20
	postMealSpikeRatio = 0.40
)

// PatternSummary holds the time-of-day clustering counters for a window of
// glucose readings plus the qualitative findings they triggered.
type PatternSummary struct {
	Total          int      `json:"total"`
	MorningSpikes  int      `json:"morning_spikes"`
	EveningSpikes  int      `json:"evening_spikes"`
	NighttimeLows  int      `json:"nighttime_lows"`
	PostMealSpikes int      `json:"post_meal_spikes"`
	Findings       []string `json:"findings"`
}

// DetectPatterns scans the window once, bucketing each reading by its local
// hour of day. A reading can increment more than one counter (a post-meal
// reading at 7pm counts as both an evening and a post-meal spike).
func DetectPatterns(logs []models.GlucoseLog, targets models.GlucoseTarget) PatternSummary {
	s := PatternSummary{Total: len(logs), Findings: []string{}}
	for _, l := range logs {
		hour := l.Timestamp.Local().Hour()
		if hour >= 6 && hour < 12 && l.Reading > float64(targets.FastingMax) {
			s.MorningSpikes++
		}
		if hour >= 17 && hour < 22 && l.Reading > float64(targets.PostMealMax) {
			s.EveningSpikes++
		}
		if (hour >= 22 || hour < 6) && l.Reading < float64(targets.FastingMin) {
			s.NighttimeLows++
		}
		if l.ReadingType == models.ReadingPostMeal && l.Reading > float64(targets.PostMealMax) {
			s.PostMealSpikes++
		}
	}
	if s.Total == 0 {
		return s
	}
	total := float64(s.Total)
	if float64(s.MorningSpikes)/total > morningSpikeRatio {
		s.Findings = append(s.Findings, "Frequent morning glucose spikes detected (possible dawn phenomenon)")
	}
	if float64(s.EveningSpikes)/total > eveningSpikeRatio {
		s.Findings = append(s.Findings, "Frequent evening glucose spikes detected")
	}
	if float64(s.NighttimeLows)/total > nighttimeLowRatio {
		s.Findings = append(s.Findings, "Recurring nighttime low glucose detected")
	}
	if float64(s.PostMealSpikes)/total > postMealSpikeRatio {
		s.Findings = append(s.Findings, "Frequent post-meal glucose spikes detected")
	}
	return s
}
