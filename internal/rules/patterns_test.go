package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
)

func readingAt(hour int, reading float64, rtype models.ReadingType) models.GlucoseLog {
	now := time.Now()
	ts := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.Local)
	return models.GlucoseLog{PatientID: "p1", Reading: reading, ReadingType: rtype, Timestamp: ts}
}

func TestDetectPatterns_MorningSpikes(t *testing.T) {
	targets := models.DefaultGlucoseTarget()
	logs := []models.GlucoseLog{
		readingAt(7, 160, models.ReadingFasting),
		readingAt(8, 155, models.ReadingFasting),
		readingAt(14, 100, models.ReadingRandom),
	}
	s := DetectPatterns(logs, targets)
	if s.MorningSpikes != 2 {
		t.Errorf("expected 2 morning spikes, got %d", s.MorningSpikes)
	}
	found := false
	for _, f := range s.Findings {
		if strings.Contains(f, "dawn phenomenon") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected dawn phenomenon finding at 2/3 ratio, got %v", s.Findings)
	}
}

func TestDetectPatterns_BelowRatioNoFinding(t *testing.T) {
	targets := models.DefaultGlucoseTarget()
	// 1 morning spike out of 4 readings is 25%, under the 30% gate
	logs := []models.GlucoseLog{
		readingAt(7, 160, models.ReadingFasting),
		readingAt(13, 100, models.ReadingRandom),
		readingAt(14, 100, models.ReadingRandom),
		readingAt(15, 100, models.ReadingRandom),
	}
	s := DetectPatterns(logs, targets)
	if len(s.Findings) != 0 {
		t.Errorf("expected no findings under ratio, got %v", s.Findings)
	}
}

func TestDetectPatterns_NighttimeLowsAndPostMeal(t *testing.T) {
	targets := models.DefaultGlucoseTarget()
	logs := []models.GlucoseLog{
		readingAt(23, 65, models.ReadingBedtime),
		readingAt(3, 70, models.ReadingRandom),
		readingAt(19, 220, models.ReadingPostMeal),
		readingAt(12, 100, models.ReadingRandom),
	}
	s := DetectPatterns(logs, targets)
	if s.NighttimeLows != 2 {
		t.Errorf("expected 2 nighttime lows, got %d", s.NighttimeLows)
	}
	// the 7pm post-meal spike counts for both evening and post-meal
	if s.EveningSpikes != 1 || s.PostMealSpikes != 1 {
		t.Errorf("expected overlapping evening/post-meal counters, got %+v", s)
	}
	foundNight := false
	for _, f := range s.Findings {
		if strings.Contains(f, "nighttime") {
			foundNight = true
		}
	}
	if !foundNight {
		t.Errorf("expected nighttime finding at 50%% ratio, got %v", s.Findings)
	}
}

func TestDetectPatterns_Empty(t *testing.T) {
	s := DetectPatterns(nil, models.DefaultGlucoseTarget())
	if s.Total != 0 || len(s.Findings) != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
}
