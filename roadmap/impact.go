package roadmap

import (
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/phases"
)

// estimateImpact rolls the task list up into the headline estimate:
// what completing the high and medium priority work should buy.
func estimateImpact(tasks []models.RoadmapTask, in *Inputs) models.EstimatedImpact {
	weights := map[models.Priority]float64{
		models.PriorityHigh:   3,
		models.PriorityMedium: 2,
		models.PriorityLow:    1,
	}

	semanticTotal, semanticResolved := 0.0, 0.0
	technicalTotal, technicalResolved := 0.0, 0.0
	trafficPotential := models.LevelLow
	anyTraffic := false

	for _, t := range tasks {
		w := weights[t.Priority]
		resolved := t.Priority != models.PriorityLow

		if isTechnicalTask(t) {
			technicalTotal += w
			if resolved {
				technicalResolved += w
			}
		} else {
			semanticTotal += w
			if resolved {
				semanticResolved += w
			}
		}

		if touchesTraffic(t.AffectedURLs, in) {
			anyTraffic = true
			if t.Priority == models.PriorityHigh {
				trafficPotential = models.LevelHigh
			}
		}
	}
	if trafficPotential != models.LevelHigh && anyTraffic {
		trafficPotential = models.LevelMedium
	}

	return models.EstimatedImpact{
		TrafficPotential:      trafficPotential,
		AuthorityImprovement:  share(semanticResolved, semanticTotal),
		IndexationImprovement: share(technicalResolved, technicalTotal),
		UserExperienceScore:   userExperienceScore(in),
	}
}

func isTechnicalTask(t models.RoadmapTask) bool {
	for _, key := range phases.TechnicalKeys() {
		if t.SourcePhase == key {
			return true
		}
	}
	return false
}

func share(resolved, total float64) float64 {
	if total == 0 {
		return 0
	}
	return resolved / total * 100
}

// userExperienceScore averages the available technical and structural
// phase scores.
func userExperienceScore(in *Inputs) float64 {
	keys := append(phases.TechnicalKeys(), phases.StructuralKeys()...)
	sum, count := 0.0, 0
	for _, key := range keys {
		if result, ok := in.Phases[key]; ok && result.Score.Available {
			sum += result.Score.Value
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
