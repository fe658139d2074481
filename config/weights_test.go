package config

import (
	"strings"
	"testing"

	"github.com/topicforge/go-site-audit/models"
)

func TestDefaultWeightsSumToConvention(t *testing.T) {
	weights := DefaultWeights()
	if got := weights.Sum(); got != IntendedWeightSum {
		t.Fatalf("default weight sum = %d, want %d", got, IntendedWeightSum)
	}
	if len(weights) != len(models.AllPhaseKeys()) {
		t.Fatalf("default weights cover %d phases, want %d", len(weights), len(models.AllPhaseKeys()))
	}
	if warning := weights.SumWarning(); warning != "" {
		t.Fatalf("default weights should not warn, got %q", warning)
	}
}

func TestDefaultWeightsResetIsCanonical(t *testing.T) {
	weights := DefaultWeights()
	weights[models.PhaseHTMLTechnical] = 50

	fresh := DefaultWeights()
	if fresh[models.PhaseHTMLTechnical] != 8 {
		t.Fatalf("reset weight = %d, want canonical 8", fresh[models.PhaseHTMLTechnical])
	}
	for key, want := range DefaultWeights() {
		if fresh[key] != want {
			t.Fatalf("weight for %s = %d, want %d", key, fresh[key], want)
		}
	}
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights AuditWeights
		wantErr string
	}{
		{
			name:    "nil map",
			weights: nil,
			wantErr: "cannot be nil",
		},
		{
			name: "unknown key",
			weights: AuditWeights{
				models.PhaseKey("page_rank"): 10,
			},
			wantErr: "unknown phase key",
		},
		{
			name: "negative weight",
			weights: AuditWeights{
				models.PhaseHTMLTechnical: -1,
			},
			wantErr: "cannot be negative",
		},
		{
			name: "weight above maximum",
			weights: AuditWeights{
				models.PhaseHTMLTechnical: WeightMax + 1,
			},
			wantErr: "exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.weights.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSumWarningOnDeviation(t *testing.T) {
	weights := DefaultWeights()
	weights[models.PhaseStrategicFoundation] = 50

	if err := weights.Validate(); err != nil {
		t.Fatalf("raised weight should still validate, got %v", err)
	}
	if got := weights.Sum(); got != 140 {
		t.Fatalf("sum = %d, want 140", got)
	}
	warning := weights.SumWarning()
	if !strings.Contains(warning, "140") || !strings.Contains(warning, "renormalized") {
		t.Fatalf("warning should mention sum 140 and renormalization, got %q", warning)
	}
}
