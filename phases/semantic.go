package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/topics"
)

// strategicFoundation checks that the inventory is anchored to the
// topical map: every page maps to a topic and its CE/SC/CSI alignment
// scores hold up.
type strategicFoundation struct{}

func (strategicFoundation) Key() models.PhaseKey { return models.PhaseStrategicFoundation }
func (strategicFoundation) Name() string         { return "Strategic Foundation" }

func (p strategicFoundation) Run(_ context.Context, in *Input) models.PhaseResult {
	if in.Topics == nil || in.Topics.Len() == 0 {
		return unavailable(p, "no topic hierarchy supplied")
	}

	var unmapped, weak []string
	var alignmentSum float64
	for i := range in.Items {
		item := &in.Items[i]
		if _, ok := in.Topics.Get(item.TopicID); !ok {
			unmapped = append(unmapped, item.URL)
			continue
		}
		alignment := (item.EntityAlignment + item.SourceContextAlignment + item.IntentAlignment) / 3
		alignmentSum += alignment
		if alignment < 50 {
			weak = append(weak, item.URL)
		}
	}

	mapped := len(in.Items) - len(unmapped)
	coverage := ratio(mapped, len(in.Items))
	avgAlignment := 0.0
	if mapped > 0 {
		avgAlignment = alignmentSum / float64(mapped)
	}
	score := coverage*0.5 + avgAlignment*0.5

	var issues []models.Issue
	if len(unmapped) > 0 {
		issues = append(issues, models.Issue{
			Type:           "unmapped_pages",
			Severity:       severityShare(len(unmapped), len(in.Items)),
			Message:        fmt.Sprintf("%d pages are not attached to any topic in the topical map", len(unmapped)),
			Recommendation: "Attach each page to a topic or create the missing topic so the page serves the central entity",
			AffectedURLs:   sortedURLs(unmapped),
		})
	}
	if len(weak) > 0 {
		issues = append(issues, models.Issue{
			Type:           "weak_strategic_alignment",
			Severity:       severityShare(len(weak), len(in.Items)),
			Message:        fmt.Sprintf("%d pages score below 50 on combined entity, source-context, and intent alignment", len(weak)),
			Recommendation: "Rework these pages around the central entity and the site's source context",
			AffectedURLs:   sortedURLs(weak),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"mapped_pages":   float64(mapped),
		"unmapped_pages": float64(len(unmapped)),
		"avg_alignment":  avgAlignment,
	})
}

// eavSystem checks the semantic triple store: every topic entity should
// carry facts, and a healthy share of them should be unique or rare
// rather than common knowledge.
type eavSystem struct{}

func (eavSystem) Key() models.PhaseKey { return models.PhaseEAVSystem }
func (eavSystem) Name() string         { return "EAV System" }

func (p eavSystem) Run(_ context.Context, in *Input) models.PhaseResult {
	if len(in.Triples) == 0 {
		return unavailable(p, "no semantic triples supplied")
	}
	if in.Topics == nil || in.Topics.Len() == 0 {
		return unavailable(p, "no topic hierarchy supplied")
	}

	bySubject := make(map[string]int)
	distinctive := 0
	for _, t := range in.Triples {
		bySubject[topics.NormalizeEntity(t.Subject)]++
		if t.Category == models.TripleUnique || t.Category == models.TripleRare {
			distinctive++
		}
	}

	var uncovered []string
	covered := 0
	for _, topic := range in.Topics.All() {
		entity := topics.NormalizeEntity(topic.CentralEntity)
		if entity == "" {
			continue
		}
		if bySubject[entity] > 0 {
			covered++
		} else {
			uncovered = append(uncovered, topic.Title)
		}
	}
	totalTopics := covered + len(uncovered)
	coverage := ratio(covered, totalTopics)
	distinctiveShare := ratio(distinctive, len(in.Triples))
	score := coverage*0.6 + distinctiveShare*0.4

	var issues []models.Issue
	if len(uncovered) > 0 {
		issues = append(issues, models.Issue{
			Type:           "missing_eav_coverage",
			Severity:       severityShare(len(uncovered), totalTopics),
			Message:        fmt.Sprintf("%d topic entities have no semantic triples: %s", len(uncovered), truncateList(uncovered, 5)),
			Recommendation: "Research and record entity-attribute-value facts for each uncovered entity",
		})
	}
	if distinctiveShare < 30 {
		issues = append(issues, models.Issue{
			Type:           "generic_eav_profile",
			Severity:       severityBelow(distinctiveShare, 30),
			Message:        fmt.Sprintf("only %.0f%% of triples are unique or rare attributes", distinctiveShare),
			Recommendation: "Prioritize unique and rare attributes over common ones to differentiate the knowledge base",
		})
	}

	return scored(p, score, issues, map[string]float64{
		"triples":           float64(len(in.Triples)),
		"covered_topics":    float64(covered),
		"uncovered_topics":  float64(len(uncovered)),
		"distinctive_share": distinctiveShare,
	})
}

// microSemantics checks titles at the word level: the topic's entity or
// a topic keyword should appear, and the length should stay scannable.
type microSemantics struct{}

func (microSemantics) Key() models.PhaseKey { return models.PhaseMicroSemantics }
func (microSemantics) Name() string         { return "Micro Semantics" }

func (p microSemantics) Run(_ context.Context, in *Input) models.PhaseResult {
	if in.Topics == nil || in.Topics.Len() == 0 {
		return unavailable(p, "no topic hierarchy supplied")
	}

	var missingEntity, badLength []string
	checked := 0
	for i := range in.Items {
		item := &in.Items[i]
		topic, ok := in.Topics.Get(item.TopicID)
		if !ok || strings.TrimSpace(item.Title) == "" {
			continue
		}
		checked++

		title := strings.ToLower(item.Title)
		if !titleMentionsTopic(title, topic) {
			missingEntity = append(missingEntity, item.URL)
		}
		if n := len(item.Title); n < 20 || n > 65 {
			badLength = append(badLength, item.URL)
		}
	}
	if checked == 0 {
		return unavailable(p, "no titled pages mapped to topics")
	}

	compliant := checked - len(missingEntity)
	score := ratio(compliant, checked)*0.7 + ratio(checked-len(badLength), checked)*0.3

	var issues []models.Issue
	if len(missingEntity) > 0 {
		issues = append(issues, models.Issue{
			Type:           "title_missing_entity",
			Severity:       severityShare(len(missingEntity), checked),
			Message:        fmt.Sprintf("%d page titles mention neither the topic entity nor a topic keyword", len(missingEntity)),
			Recommendation: "Lead each title with the topic's central entity or one of its primary keywords",
			AffectedURLs:   sortedURLs(missingEntity),
		})
	}
	if len(badLength) > 0 {
		issues = append(issues, models.Issue{
			Type:           "title_length",
			Severity:       severityShare(len(badLength), checked),
			Message:        fmt.Sprintf("%d page titles fall outside the 20-65 character range", len(badLength)),
			Recommendation: "Rewrite titles to a 20-65 character range so they stay fully visible in search results",
			AffectedURLs:   sortedURLs(badLength),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"checked_titles": float64(checked),
		"missing_entity": float64(len(missingEntity)),
		"bad_length":     float64(len(badLength)),
	})
}

func titleMentionsTopic(lowerTitle string, topic models.EnrichedTopic) bool {
	if entity := topics.NormalizeEntity(topic.CentralEntity); entity != "" && strings.Contains(lowerTitle, entity) {
		return true
	}
	for _, kw := range topic.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	return false
}

// semanticDistance checks how far each page's topic sits from the
// corpus core; spokes buried too deep dilute the central entity.
type semanticDistance struct{}

func (semanticDistance) Key() models.PhaseKey { return models.PhaseSemanticDistance }
func (semanticDistance) Name() string         { return "Semantic Distance" }

func (p semanticDistance) Run(_ context.Context, in *Input) models.PhaseResult {
	if in.Topics == nil || in.Topics.Len() == 0 {
		return unavailable(p, "no topic hierarchy supplied")
	}

	maxDepth := 3
	if in.WebsiteType == models.WebsiteEcommerce {
		maxDepth = 4
	}

	var distant []string
	mapped := 0
	for i := range in.Items {
		item := &in.Items[i]
		depth := in.Topics.Depth(item.TopicID)
		if depth < 0 {
			continue
		}
		mapped++
		if depth > maxDepth {
			distant = append(distant, item.URL)
		}
	}
	if mapped == 0 {
		return unavailable(p, "no pages mapped to topics")
	}

	score := ratio(mapped-len(distant), mapped)

	var issues []models.Issue
	if len(distant) > 0 {
		issues = append(issues, models.Issue{
			Type:           "excessive_semantic_distance",
			Severity:       severityShare(len(distant), mapped),
			Message:        fmt.Sprintf("%d pages sit more than %d hops from a core topic", len(distant), maxDepth),
			Recommendation: "Flatten the topic branch or bridge these pages to the core with intermediate hub content",
			AffectedURLs:   sortedURLs(distant),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"mapped_pages":  float64(mapped),
		"distant_pages": float64(len(distant)),
		"max_depth":     float64(maxDepth),
	})
}

func truncateList(values []string, limit int) string {
	sorted := sortedURLs(values)
	if len(sorted) <= limit {
		return strings.Join(sorted, ", ")
	}
	return strings.Join(sorted[:limit], ", ") + fmt.Sprintf(" and %d more", len(sorted)-limit)
}
