// Package overlap detects content overlap and cannibalization across
// the audited corpus. Pages are reduced to topical signatures, blocked
// into buckets by primary entity to avoid full pairwise cost, and only
// compared within a bucket and its near-miss neighbours.
package overlap

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/topicforge/go-site-audit/classify"
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/topics"
)

// Signature is a page's topical fingerprint: its primary entity, the
// salient terms derived from the topic and EAV store, and the search
// intent the page competes for.
type Signature struct {
	ItemID   string
	URL      string
	Entity   string
	Terms    []string
	Keywords []string
	Intent   string
	Clicks   int64
	Siblings []string
}

// BuildSignatures derives one signature per inventory item that maps to
// a topic. Intent comes from the topic when present; otherwise the
// classifier collaborator resolves it, degrading to deterministic rules
// when the collaborator is unavailable.
func BuildSignatures(ctx context.Context, items []models.InventoryItem, arena *topics.Arena, triples []models.SemanticTriple, classifier classify.Classifier) []Signature {
	termsByEntity := make(map[string][]string)
	for _, t := range triples {
		subject := topics.NormalizeEntity(t.Subject)
		if subject == "" {
			continue
		}
		if predicate := strings.ToLower(strings.TrimSpace(t.Predicate)); predicate != "" {
			termsByEntity[subject] = append(termsByEntity[subject], predicate)
		}
	}

	var fallback classify.RuleClassifier
	signatures := make([]Signature, 0, len(items))
	for i := range items {
		item := &items[i]
		topic, ok := arena.Get(item.TopicID)
		if !ok {
			continue
		}
		entity := topics.NormalizeEntity(topic.CentralEntity)
		if entity == "" {
			continue
		}

		keywords := normalizeAll(topic.Keywords)
		terms := make(map[string]struct{}, len(keywords)+4)
		terms[entity] = struct{}{}
		for _, kw := range keywords {
			terms[kw] = struct{}{}
		}
		for _, predicate := range termsByEntity[entity] {
			terms[predicate] = struct{}{}
		}

		intent := strings.ToLower(strings.TrimSpace(topic.SearchIntent))
		if intent == "" {
			result, err := classifier.ClassifyIntent(ctx, entity, keywords)
			if err != nil {
				slog.Debug("intent classification degraded to rule fallback",
					slog.String("entity", entity),
					slog.Any("error", err),
				)
				result, _ = fallback.ClassifyIntent(ctx, entity, keywords)
			}
			intent = result.Intent
		}

		signatures = append(signatures, Signature{
			ItemID:   item.ID,
			URL:      item.URL,
			Entity:   entity,
			Terms:    setToSorted(terms),
			Keywords: keywords,
			Intent:   intent,
			Clicks:   item.Clicks,
			Siblings: arena.SiblingEntities(item.TopicID),
		})
	}

	sort.Slice(signatures, func(i, j int) bool { return signatures[i].ItemID < signatures[j].ItemID })
	return signatures
}

// jaccardPercent is the shared share of two term sets scaled to 0-100.
// Values are not clamped here; clamping is a display concern.
func jaccardPercent(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union) * 100
}

func sharedStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	var shared []string
	for _, s := range b {
		if _, ok := set[s]; ok {
			shared = append(shared, s)
		}
	}
	sort.Strings(shared)
	return shared
}

func normalizeAll(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = topics.NormalizeEntity(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return setToSorted(set)
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
