package audit

import (
	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
)

// Aggregate combines the phase results selected by keys into one
// composite score: the weight-normalized average over phases that
// produced a numeric score. Unavailable phases are excluded, never
// treated as zero; if no available phase carries weight the composite
// itself is unavailable. Dividing by the actual weight sum makes the
// formula invariant under scaling the whole weight map.
func Aggregate(results map[models.PhaseKey]models.PhaseResult, weights config.AuditWeights, keys []models.PhaseKey) models.Score {
	weightSum := 0
	weighted := 0.0
	for _, key := range keys {
		result, ok := results[key]
		if !ok || !result.Score.Available {
			continue
		}
		w := weights.Weight(key)
		if w <= 0 {
			continue
		}
		weightSum += w
		weighted += result.Score.Value * float64(w)
	}
	if weightSum == 0 {
		return models.Unavailable("no scored phase carries weight")
	}
	return models.Scored(weighted / float64(weightSum))
}
