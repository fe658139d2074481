package overlap

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
)

// Result is the detector's output for one run.
type Result struct {
	Suggestions []models.ContentMergeSuggestion
	Risks       []models.CannibalizationRisk
	Comparisons int64
	Pruned      int64
}

// Detector runs blocked pairwise comparison over page signatures.
type Detector struct {
	cfg *config.Config
}

// NewDetector builds a detector from cfg.
func NewDetector(cfg *config.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect compares signatures within entity buckets (and a bounded set
// of adjacent buckets) and groups cannibalizing pages. Bucket work is
// sharded across workers; output ordering is deterministic regardless
// of scheduling. Cancellation is honoured at bucket boundaries.
func (d *Detector) Detect(ctx context.Context, signatures []Signature) (*Result, error) {
	buckets := make(map[string][]Signature)
	for _, sig := range signatures {
		buckets[sig.Entity] = append(buckets[sig.Entity], sig)
	}
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	total := int64(len(signatures))
	var comparisons atomic.Int64

	suggestionsByBucket := make([][]models.ContentMergeSuggestion, len(keys))
	risksByBucket := make([][]models.CannibalizationRisk, len(keys))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxWorkers)
	for idx, key := range keys {
		idx, key := idx, key
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			bucket := buckets[key]
			pairs := d.bucketPairs(bucket, d.adjacent(key, bucket, buckets))
			comparisons.Add(int64(len(pairs)))

			var suggestions []models.ContentMergeSuggestion
			for _, pair := range pairs {
				if s, ok := d.compare(pair[0], pair[1]); ok {
					suggestions = append(suggestions, s)
				}
			}
			suggestionsByBucket[idx] = suggestions
			risksByBucket[idx] = d.cannibalization(bucket)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("overlap detection: %w", err)
	}

	result := &Result{Comparisons: comparisons.Load()}
	for i := range keys {
		result.Suggestions = append(result.Suggestions, suggestionsByBucket[i]...)
		result.Risks = append(result.Risks, risksByBucket[i]...)
	}
	sort.SliceStable(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if a.SourceURL != b.SourceURL {
			return a.SourceURL < b.SourceURL
		}
		return a.TargetURL < b.TargetURL
	})
	sort.SliceStable(result.Risks, func(i, j int) bool {
		a, b := result.Risks[i], result.Risks[j]
		if a.SharedEntity != b.SharedEntity {
			return a.SharedEntity < b.SharedEntity
		}
		return a.URLs[0] < b.URLs[0]
	})

	// every pair never considered thanks to blocking
	if total > 1 {
		result.Pruned = total*(total-1)/2 - result.Comparisons
	}
	return result, nil
}

// adjacent returns signatures from near-miss buckets: sibling-topic
// entities first, then buckets sharing the entity's leading token,
// bounded by MaxAdjacentBuckets. Only lexically greater keys are taken
// so each cross-bucket pair is produced exactly once.
func (d *Detector) adjacent(key string, bucket []Signature, buckets map[string][]Signature) []Signature {
	if d.cfg.MaxAdjacentBuckets == 0 {
		return nil
	}

	candidates := make(map[string]struct{})
	for _, sig := range bucket {
		for _, sibling := range sig.Siblings {
			candidates[sibling] = struct{}{}
		}
	}
	lead := leadingToken(key)
	for other := range buckets {
		if other != key && leadingToken(other) == lead {
			candidates[other] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(candidates))
	for candidate := range candidates {
		if candidate <= key {
			continue
		}
		if _, ok := buckets[candidate]; !ok {
			continue
		}
		ordered = append(ordered, candidate)
	}
	sort.Strings(ordered)
	if len(ordered) > d.cfg.MaxAdjacentBuckets {
		ordered = ordered[:d.cfg.MaxAdjacentBuckets]
	}

	var out []Signature
	for _, candidate := range ordered {
		out = append(out, buckets[candidate]...)
	}
	return out
}

func leadingToken(entity string) string {
	for i := range entity {
		if entity[i] == ' ' {
			return entity[:i]
		}
	}
	return entity
}

func (d *Detector) bucketPairs(bucket, neighbours []Signature) [][2]Signature {
	var pairs [][2]Signature
	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			pairs = append(pairs, [2]Signature{bucket[i], bucket[j]})
		}
		for _, n := range neighbours {
			pairs = append(pairs, [2]Signature{bucket[i], n})
		}
	}
	return pairs
}

// compare classifies one pair. Suggestion direction is deterministic:
// the weaker page (fewer clicks, then higher id) is the source.
func (d *Detector) compare(a, b Signature) (models.ContentMergeSuggestion, bool) {
	source, target := a, b
	if source.Clicks > target.Clicks || (source.Clicks == target.Clicks && source.ItemID < target.ItemID) {
		source, target = target, source
	}

	overlap := jaccardPercent(a.Terms, b.Terms)
	switch {
	case overlap >= d.cfg.MergeThreshold:
		return models.ContentMergeSuggestion{
			SourceURL:         source.URL,
			TargetURL:         target.URL,
			OverlapPercentage: overlap,
			Reason:            fmt.Sprintf("pages share %.0f%% of their topical signature around %q", overlap, target.Entity),
			SuggestedAction:   models.MergeActionMerge,
		}, true
	case overlap >= d.cfg.DifferentiateThreshold:
		return models.ContentMergeSuggestion{
			SourceURL:         source.URL,
			TargetURL:         target.URL,
			OverlapPercentage: overlap,
			Reason:            fmt.Sprintf("pages overlap on %.0f%% of their signature; each should own a distinct attribute set", overlap),
			SuggestedAction:   models.MergeActionDifferentiate,
		}, true
	default:
		// Low overlap only matters when both pages target the same
		// entity and one's traffic is negligible next to the other's.
		if a.Entity != b.Entity || source.Clicks == 0 || target.Clicks == 0 {
			return models.ContentMergeSuggestion{}, false
		}
		if float64(source.Clicks) > float64(target.Clicks)*d.cfg.RedirectTrafficRatio {
			return models.ContentMergeSuggestion{}, false
		}
		return models.ContentMergeSuggestion{
			SourceURL:         source.URL,
			TargetURL:         target.URL,
			OverlapPercentage: overlap,
			Reason:            fmt.Sprintf("both pages target %q but the source draws negligible traffic", target.Entity),
			SuggestedAction:   models.MergeActionRedirect,
		}, true
	}
}

// cannibalization groups same-entity pages that share enough keywords
// to compete for one query intent.
func (d *Detector) cannibalization(bucket []Signature) []models.CannibalizationRisk {
	if len(bucket) < 2 {
		return nil
	}

	parent := make([]int, len(bucket))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			if len(sharedStrings(bucket[i].Keywords, bucket[j].Keywords)) >= d.cfg.MinSharedKeywords {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range bucket {
		root := find(i)
		groups[root] = append(groups[root], i)
	}
	roots := make([]int, 0, len(groups))
	for root, members := range groups {
		if len(members) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	var risks []models.CannibalizationRisk
	for _, root := range roots {
		members := groups[root]
		urls := make([]string, 0, len(members))
		trafficked := 0
		keywordCounts := make(map[string]int)
		for _, m := range members {
			urls = append(urls, bucket[m].URL)
			if bucket[m].Clicks > 0 {
				trafficked++
			}
			for _, kw := range bucket[m].Keywords {
				keywordCounts[kw]++
			}
		}
		var shared []string
		for kw, count := range keywordCounts {
			if count >= 2 {
				shared = append(shared, kw)
			}
		}
		sort.Strings(shared)
		sort.Strings(urls)

		severity := RiskSeverity(len(shared), trafficked)
		risks = append(risks, models.CannibalizationRisk{
			URLs:           urls,
			SharedEntity:   bucket[0].Entity,
			SharedKeywords: shared,
			Severity:       severity,
			Recommendation: riskRecommendation(severity),
		})
	}
	return risks
}

// RiskSeverity grades a cannibalization group: high when three or more
// keywords are contested by at least two trafficked pages, medium when
// traffic is concentrated in a single page, low otherwise.
func RiskSeverity(sharedKeywords, traffickedPages int) models.Severity {
	switch {
	case sharedKeywords >= 3 && traffickedPages >= 2:
		return models.SeverityHigh
	case traffickedPages == 1:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func riskRecommendation(severity models.Severity) string {
	switch severity {
	case models.SeverityHigh:
		return "Consolidate the competing pages or split their keyword targets; they are actively diluting each other's rankings"
	case models.SeverityMedium:
		return "Differentiate the low-traffic pages before they start competing with the ranking page"
	default:
		return "Monitor the group and differentiate keyword targets during the next content review"
	}
}
