// Package phases implements the thirteen scored audit phases. Each
// phase is a pure function of the run input: it reads the inventory,
// topic arena, and semantic triples, and returns a 0-100 score with an
// issue list, or an unavailable result when its required signal is
// absent. Phases never mutate their inputs, so the engine runs them
// concurrently.
package phases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/topics"
)

// Input bundles the read-only data every phase receives.
type Input struct {
	Items       []models.InventoryItem
	Topics      *topics.Arena
	Triples     []models.SemanticTriple
	WebsiteType models.WebsiteType
	Config      *config.Config
}

// Phase scores one content-authority criterion.
type Phase interface {
	Key() models.PhaseKey
	Name() string
	Run(ctx context.Context, in *Input) models.PhaseResult
}

// All returns the thirteen phases in canonical order.
func All() []Phase {
	return []Phase{
		strategicFoundation{},
		eavSystem{},
		microSemantics{},
		informationDensity{},
		contextualFlow{},
		internalLinking{},
		semanticDistance{},
		contentFormat{},
		htmlTechnical{},
		metaStructuredData{},
		costOfRetrieval{},
		urlArchitecture{},
		crossPageConsistency{},
	}
}

// TechnicalKeys is the fixed phase subset behind the technical
// composite score.
func TechnicalKeys() []models.PhaseKey {
	return []models.PhaseKey{
		models.PhaseHTMLTechnical,
		models.PhaseMetaStructuredData,
		models.PhaseCostOfRetrieval,
		models.PhaseURLArchitecture,
	}
}

// SemanticKeys is the fixed phase subset behind the semantic composite
// score.
func SemanticKeys() []models.PhaseKey {
	return []models.PhaseKey{
		models.PhaseStrategicFoundation,
		models.PhaseEAVSystem,
		models.PhaseMicroSemantics,
		models.PhaseSemanticDistance,
	}
}

// StructuralKeys is the fixed phase subset behind the structural
// composite score.
func StructuralKeys() []models.PhaseKey {
	return []models.PhaseKey{
		models.PhaseInformationDensity,
		models.PhaseContextualFlow,
		models.PhaseInternalLinking,
		models.PhaseContentFormat,
		models.PhaseCrossPageConsistency,
	}
}

// Run executes a phase with failure isolation: a panicking phase
// degrades to an unavailable result instead of aborting the audit.
func Run(ctx context.Context, p Phase, in *Input) (result models.PhaseResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("phase panicked",
				slog.String("phase", string(p.Key())),
				slog.Any("panic", r),
			)
			result = unavailable(p, fmt.Sprintf("phase panicked: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return unavailable(p, "cancelled before start")
	}
	return p.Run(ctx, in)
}

func unavailable(p Phase, reason string) models.PhaseResult {
	return models.PhaseResult{
		Key:   p.Key(),
		Name:  p.Name(),
		Score: models.Unavailable(reason),
	}
}

func scored(p Phase, score float64, issues []models.Issue, metrics map[string]float64) models.PhaseResult {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Type < issues[j].Type })
	return models.PhaseResult{
		Key:     p.Key(),
		Name:    p.Name(),
		Score:   models.Scored(score),
		Issues:  issues,
		Metrics: metrics,
	}
}

// ratio returns part/total scaled to 0-100, and 100 for an empty total
// so that a criterion with nothing to check counts as compliant.
func ratio(part, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(part) / float64(total) * 100
}

// severityBelow grades how far value falls below threshold: half or
// more below is high, a fifth or more is medium, anything less is low.
func severityBelow(value, threshold float64) models.Severity {
	if threshold <= 0 {
		return models.SeverityLow
	}
	gap := (threshold - value) / threshold
	switch {
	case gap >= 0.5:
		return models.SeverityHigh
	case gap >= 0.2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// severityShare grades a violation share of the corpus.
func severityShare(affected, total int) models.Severity {
	if total == 0 {
		return models.SeverityLow
	}
	share := float64(affected) / float64(total)
	switch {
	case share >= 0.25:
		return models.SeverityHigh
	case share >= 0.1:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func sortedURLs(urls []string) []string {
	out := make([]string, len(urls))
	copy(out, urls)
	sort.Strings(out)
	return out
}
