package rules

import (
	"testing"

	"github.com/carebuddy/carebuddy/internal/models"
)

func TestClassify_FastingDirections(t *testing.T) {
	targets := models.GlucoseTarget{FastingMin: 80, FastingMax: 130, PostMealMin: 80, PostMealMax: 180}
	cases := []struct {
		reading float64
		want    Direction
	}{
		{79, DirectionLow},
		{80, DirectionInRange},
		{105, DirectionInRange},
		{130, DirectionInRange},
		{131, DirectionHigh},
	}
	for _, c := range cases {
		got := Classify(c.reading, models.ReadingFasting, targets)
		if got.Direction != c.want {
			t.Errorf("Classify(%g, fasting) direction = %s, want %s", c.reading, got.Direction, c.want)
		}
	}
}

func TestClassify_SeverityTiers(t *testing.T) {
	targets := models.GlucoseTarget{FastingMin: 80, FastingMax: 130, PostMealMin: 80, PostMealMax: 180}
	cases := []struct {
		name    string
		reading float64
		rtype   models.ReadingType
		want    models.AlertSeverity
	}{
		{"fasting low below 70", 65, models.ReadingFasting, models.SeverityHigh},
		{"fasting low above 70", 75, models.ReadingFasting, models.SeverityMedium},
		{"fasting high above 250", 260, models.ReadingFasting, models.SeverityHigh},
		{"fasting high below 250", 200, models.ReadingFasting, models.SeverityMedium},
		{"non-fasting low below 70", 69, models.ReadingPostMeal, models.SeverityCritical},
		{"non-fasting low above 70", 75, models.ReadingRandom, models.SeverityHigh},
		{"non-fasting high above 300", 310, models.ReadingPostMeal, models.SeverityCritical},
		{"non-fasting high below 300", 250, models.ReadingBedtime, models.SeverityHigh},
	}
	for _, c := range cases {
		got := Classify(c.reading, c.rtype, targets)
		if got.Severity != c.want {
			t.Errorf("%s: severity = %s, want %s", c.name, got.Severity, c.want)
		}
	}
}

func TestClassify_StrictBoundaryAt70(t *testing.T) {
	targets := models.DefaultGlucoseTarget()
	// exactly 70 is below the band but not hypoglycemic for tiering
	at70 := Classify(70, models.ReadingPostMeal, targets)
	if at70.Severity != models.SeverityHigh {
		t.Errorf("non-fasting reading of exactly 70 should be high severity, got %s", at70.Severity)
	}
	below := Classify(69.9, models.ReadingPostMeal, targets)
	if below.Severity != models.SeverityCritical {
		t.Errorf("non-fasting reading of 69.9 should be critical, got %s", below.Severity)
	}
}

func TestClassify_InRangeProducesNoSeverity(t *testing.T) {
	targets := models.DefaultGlucoseTarget()
	got := Classify(100, models.ReadingFasting, targets)
	if got.Direction != DirectionInRange || got.Severity != "" {
		t.Errorf("in-range reading should carry no severity, got %+v", got)
	}
}
