package engine

import (
	"errors"
	"testing"
)

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"onboarding":   StageOnboarding,
		"Practice":     StagePractice,
		"  mastery  ":  StageMastery,
		"APPLICATION":  StageApplication,
		"introduction": StageIntroduction,
	}
	for in, want := range cases {
		got, err := ParseStage(in)
		if err != nil {
			t.Fatalf("ParseStage(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseStage(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseStage("graduate"); err == nil {
		t.Fatal("accepted unknown stage")
	}
	if _, err := ParseStage(""); err == nil {
		t.Fatal("accepted empty stage")
	}
}

func TestFeatureLookup(t *testing.T) {
	b := FeatureBundle{Domain: DomainLearner, Features: map[string]float64{"x": 0.3}}
	v, err := b.Feature("x")
	if err != nil || v != 0.3 {
		t.Fatalf("Feature = %v, %v", v, err)
	}
	_, err = b.Feature("y")
	if !errors.Is(err, ErrIncompleteFeatureData) {
		t.Fatalf("missing feature error = %v", err)
	}
}

func TestNormalizeRescalesProportionally(t *testing.T) {
	w := WeightVector{Learner: 2, Knowledge: 1, Engagement: 1, Assessment: 0}.Normalize()
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if w.Learner != 0.5 || w.Knowledge != 0.25 || w.Engagement != 0.25 || w.Assessment != 0 {
		t.Fatalf("normalized = %+v", w)
	}
}

func TestNormalizeFloorsNegatives(t *testing.T) {
	w := WeightVector{Learner: 0.5, Knowledge: -0.5, Engagement: 0.25, Assessment: 0.25}.Normalize()
	if w.Knowledge != 0 {
		t.Fatalf("negative component survived: %+v", w)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNormalizeDegenerateEvenSplit(t *testing.T) {
	w := WeightVector{Learner: -1, Knowledge: -2}.Normalize()
	want := WeightVector{Learner: 0.25, Knowledge: 0.25, Engagement: 0.25, Assessment: 0.25}
	if w != want {
		t.Fatalf("degenerate normalize = %+v", w)
	}
}

func TestValidateRejectsBadVectors(t *testing.T) {
	if err := (WeightVector{Learner: 0.5, Knowledge: 0.5, Engagement: 0.5}).Validate(); err == nil {
		t.Fatal("accepted sum > 1")
	}
	if err := (WeightVector{Learner: 1.5, Knowledge: -0.5}).Validate(); err == nil {
		t.Fatal("accepted negative component")
	}
}

func TestWeightForDomain(t *testing.T) {
	w := WeightVector{Learner: 0.1, Knowledge: 0.2, Engagement: 0.3, Assessment: 0.4}
	for _, tc := range []struct {
		d    Domain
		want float64
	}{
		{DomainLearner, 0.1},
		{DomainKnowledge, 0.2},
		{DomainEngagement, 0.3},
		{DomainAssessment, 0.4},
		{DomainIntegration, 0},
	} {
		if got := w.For(tc.d); got != tc.want {
			t.Fatalf("For(%s) = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.2, 0, 1) != 1 || Clamp(-0.2, 0, 1) != 0 || Clamp(0.4, 0, 1) != 0.4 {
		t.Fatal("Clamp mishandles bounds")
	}
	if Clamp01(2) != 1 || Clamp01(-1) != 0 {
		t.Fatal("Clamp01 mishandles bounds")
	}
}
