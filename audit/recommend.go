package audit

import (
	"math"
	"sort"

	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/overlap"
)

// issue severity debits against the per-page score
const (
	penaltyHigh   = 15
	penaltyMedium = 8
	penaltyLow    = 3
)

// recommendPages derives a per-page audit score and action from the
// composite score, the issues touching each URL, and the detector's
// merge plan.
func (e *Engine) recommendPages(items []models.InventoryItem, phaseResults []models.PhaseResult, detected *overlap.Result, overall models.Score) []models.PageRecommendation {
	penalties := make(map[string]float64)
	canonicalize := make(map[string]struct{})
	for _, result := range phaseResults {
		for _, issue := range result.Issues {
			penalty := float64(penaltyLow)
			switch issue.Severity {
			case models.SeverityHigh:
				penalty = penaltyHigh
			case models.SeverityMedium:
				penalty = penaltyMedium
			}
			for _, u := range issue.AffectedURLs {
				penalties[u] += penalty
				if issue.Type == "parameterized_content_urls" {
					canonicalize[u] = struct{}{}
				}
			}
		}
	}

	mergeAction := make(map[string]models.Action)
	for _, s := range detected.Suggestions {
		switch s.SuggestedAction {
		case models.MergeActionMerge:
			mergeAction[s.SourceURL] = models.ActionMerge
		case models.MergeActionRedirect:
			mergeAction[s.SourceURL] = models.ActionRedirect
		}
	}

	base := 70.0
	if overall.Available {
		base = overall.Value
	}

	out := make([]models.PageRecommendation, 0, len(items))
	for i := range items {
		item := &items[i]
		penalty := math.Min(penalties[item.URL], 60)
		score := math.Round(math.Max(0, math.Min(100, base-penalty))*10) / 10
		out = append(out, models.PageRecommendation{
			ItemID:     item.ID,
			URL:        item.URL,
			AuditScore: score,
			Action:     pageAction(item, score, mergeAction, canonicalize),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func pageAction(item *models.InventoryItem, score float64, mergeAction map[string]models.Action, canonicalize map[string]struct{}) models.Action {
	if action, ok := mergeAction[item.URL]; ok {
		return action
	}
	if _, ok := canonicalize[item.URL]; ok {
		return models.ActionCanonicalize
	}
	switch {
	case score < 35 && item.Clicks == 0 && item.Impressions == 0:
		// pruning stays a recommendation; the engine never deletes
		return models.ActionPrune
	case score < 35:
		return models.ActionRewrite
	case score < 70:
		return models.ActionOptimize
	default:
		return models.ActionKeep
	}
}

// ApplyRecommendations writes each page's audit score and recommended
// action back onto the matching inventory item, the one mutation the
// engine performs on caller-owned data. Items without a recommendation
// are left untouched.
func ApplyRecommendations(items []models.InventoryItem, result *models.SiteAuditResult) {
	if result == nil {
		return
	}
	byID := make(map[string]int, len(items))
	for i := range items {
		byID[items[i].ID] = i
	}
	for _, rec := range result.PageRecommendations {
		idx, ok := byID[rec.ItemID]
		if !ok {
			continue
		}
		score := rec.AuditScore
		items[idx].AuditScore = &score
		items[idx].RecommendedAction = rec.Action
	}
}
