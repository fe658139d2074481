package config

import (
	"fmt"

	"github.com/topicforge/go-site-audit/models"
)

// WeightMax is the largest weight a single phase may carry.
const WeightMax = 50

// IntendedWeightSum is the conventional total for a weight map. The
// engine tolerates and renormalizes any other sum; deviation is a
// warning surfaced to the caller, never an error.
const IntendedWeightSum = 100

// AuditWeights maps each scored phase to its integer weight.
type AuditWeights map[models.PhaseKey]int

// DefaultWeights returns the canonical default weight map. Resetting to
// defaults always yields exactly this map.
func DefaultWeights() AuditWeights {
	return AuditWeights{
		models.PhaseStrategicFoundation:  10,
		models.PhaseEAVSystem:            10,
		models.PhaseMicroSemantics:       7,
		models.PhaseInformationDensity:   7,
		models.PhaseContextualFlow:       7,
		models.PhaseInternalLinking:      9,
		models.PhaseSemanticDistance:     7,
		models.PhaseContentFormat:        6,
		models.PhaseHTMLTechnical:        8,
		models.PhaseMetaStructuredData:   8,
		models.PhaseCostOfRetrieval:      9,
		models.PhaseURLArchitecture:      6,
		models.PhaseCrossPageConsistency: 6,
	}
}

// Sum returns the total of all weights.
func (w AuditWeights) Sum() int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

// Validate checks individual weights for range and key validity. A sum
// other than IntendedWeightSum is deliberately not an error here.
func (w AuditWeights) Validate() error {
	if w == nil {
		return fmt.Errorf("weights cannot be nil")
	}
	known := make(map[models.PhaseKey]struct{}, len(models.AllPhaseKeys()))
	for _, key := range models.AllPhaseKeys() {
		known[key] = struct{}{}
	}
	for key, value := range w {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("unknown phase key %q", key)
		}
		if value < 0 {
			return fmt.Errorf("weight for %s cannot be negative", key)
		}
		if value > WeightMax {
			return fmt.Errorf("weight for %s exceeds maximum %d", key, WeightMax)
		}
	}
	return nil
}

// SumWarning returns a caller-facing warning when the weight sum
// deviates from the 100 convention, or "" when it does not.
func (w AuditWeights) SumWarning() string {
	sum := w.Sum()
	if sum == IntendedWeightSum {
		return ""
	}
	return fmt.Sprintf("audit weights sum to %d, expected %d; scores are renormalized by the actual sum", sum, IntendedWeightSum)
}

// Weight returns the weight for a phase, defaulting to zero for keys
// absent from the map.
func (w AuditWeights) Weight(key models.PhaseKey) int {
	return w[key]
}
