package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"

	"github.com/topicforge/go-site-audit/models"
)

// informationDensity flags thin and padded content relative to the
// category-aware word-count threshold.
type informationDensity struct{}

func (informationDensity) Key() models.PhaseKey { return models.PhaseInformationDensity }
func (informationDensity) Name() string         { return "Information Density" }

func (p informationDensity) Run(_ context.Context, in *Input) models.PhaseResult {
	counted := 0
	var thin []string
	for i := range in.Items {
		item := &in.Items[i]
		if item.WordCount <= 0 {
			continue
		}
		counted++
		if item.WordCount < p.threshold(in, item) {
			thin = append(thin, item.URL)
		}
	}
	if counted == 0 {
		return unavailable(p, "no word counts supplied")
	}

	score := ratio(counted-len(thin), counted)

	var issues []models.Issue
	if len(thin) > 0 {
		issues = append(issues, models.Issue{
			Type:           "thin_content",
			Severity:       severityShare(len(thin), counted),
			Message:        fmt.Sprintf("%d pages fall below the word-count threshold for their category", len(thin)),
			Recommendation: "Expand thin pages with attribute-level answers, or fold them into a stronger page",
			AffectedURLs:   sortedURLs(thin),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"counted_pages": float64(counted),
		"thin_pages":    float64(len(thin)),
	})
}

// product and category pages legitimately carry less prose
func (informationDensity) threshold(in *Input, item *models.InventoryItem) int {
	base := in.Config.ThinContentWords
	switch item.Category {
	case models.CategoryProduct, models.CategoryCategory:
		return base / 2
	case models.CategoryLegal, models.CategoryPagination, models.CategoryMedia:
		return base / 3
	}
	if in.WebsiteType == models.WebsiteBlog {
		return base * 3 / 2
	}
	return base
}

// contextualFlow checks the hub-spoke shape of each topic cluster: a
// topic with multiple pages needs a hub that the spokes can flow
// through.
type contextualFlow struct{}

func (contextualFlow) Key() models.PhaseKey { return models.PhaseContextualFlow }
func (contextualFlow) Name() string         { return "Contextual Flow" }

func (p contextualFlow) Run(_ context.Context, in *Input) models.PhaseResult {
	if in.Topics == nil || in.Topics.Len() == 0 {
		return unavailable(p, "no topic hierarchy supplied")
	}

	byTopic := make(map[string][]*models.InventoryItem)
	for i := range in.Items {
		item := &in.Items[i]
		if _, ok := in.Topics.Get(item.TopicID); ok {
			byTopic[item.TopicID] = append(byTopic[item.TopicID], item)
		}
	}
	if len(byTopic) == 0 {
		return unavailable(p, "no pages mapped to topics")
	}

	clusters, brokenClusters := 0, 0
	var hubless []string
	for _, cluster := range byTopic {
		if len(cluster) < 2 {
			continue
		}
		clusters++
		if !hasHub(cluster) {
			brokenClusters++
			for _, item := range cluster {
				hubless = append(hubless, item.URL)
			}
		}
	}
	if clusters == 0 {
		// Single-page topics cannot break hub-spoke flow.
		return scored(p, 100, nil, map[string]float64{"clusters": 0})
	}
	score := ratio(clusters-brokenClusters, clusters)

	var issues []models.Issue
	if brokenClusters > 0 {
		issues = append(issues, models.Issue{
			Type:           "missing_hub",
			Severity:       severityShare(brokenClusters, clusters),
			Message:        fmt.Sprintf("%d topic clusters have spokes but no hub page collecting their internal links", brokenClusters),
			Recommendation: "Create or elevate a hub page per cluster and route spoke links through it",
			AffectedURLs:   sortedURLs(hubless),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"clusters":        float64(clusters),
		"broken_clusters": float64(brokenClusters),
	})
}

// a hub is a category page, or a page whose inlink count dominates the
// cluster
func hasHub(cluster []*models.InventoryItem) bool {
	maxInlinks, total := 0, 0
	for _, item := range cluster {
		if item.Category == models.CategoryCategory {
			return true
		}
		total += item.InternalInlinks
		if item.InternalInlinks > maxInlinks {
			maxInlinks = item.InternalInlinks
		}
	}
	if total == 0 {
		return false
	}
	return float64(maxInlinks) >= 0.5*float64(total)
}

// internalLinking penalizes orphaned and dead-end pages.
type internalLinking struct{}

func (internalLinking) Key() models.PhaseKey { return models.PhaseInternalLinking }
func (internalLinking) Name() string         { return "Internal Linking" }

func (p internalLinking) Run(_ context.Context, in *Input) models.PhaseResult {
	anyLinks := false
	for i := range in.Items {
		if in.Items[i].InternalInlinks > 0 || in.Items[i].InternalOutlinks > 0 {
			anyLinks = true
			break
		}
	}
	if !anyLinks {
		return unavailable(p, "no internal link counts supplied")
	}

	var orphans, deadEnds []string
	for i := range in.Items {
		item := &in.Items[i]
		if item.Category == models.CategoryPagination || item.Category == models.CategoryMedia {
			continue
		}
		if item.InternalInlinks == 0 {
			orphans = append(orphans, item.URL)
		}
		if item.InternalOutlinks == 0 {
			deadEnds = append(deadEnds, item.URL)
		}
	}

	total := len(in.Items)
	penalty := float64(len(orphans))*1.0 + float64(len(deadEnds))*0.5
	score := 100 - penalty/float64(total)*100

	var issues []models.Issue
	if len(orphans) > 0 {
		issues = append(issues, models.Issue{
			Type:           "orphaned_pages",
			Severity:       severityShare(len(orphans), total),
			Message:        fmt.Sprintf("%d pages receive no internal links", len(orphans)),
			Recommendation: "Link every orphan from its topic hub and from contextually related spokes",
			AffectedURLs:   sortedURLs(orphans),
		})
	}
	if len(deadEnds) > 0 {
		issues = append(issues, models.Issue{
			Type:           "dead_end_pages",
			Severity:       severityShare(len(deadEnds), total),
			Message:        fmt.Sprintf("%d pages link to no other internal page", len(deadEnds)),
			Recommendation: "Add contextual outbound links so readers and crawlers can continue through the cluster",
			AffectedURLs:   sortedURLs(deadEnds),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"orphans":   float64(len(orphans)),
		"dead_ends": float64(len(deadEnds)),
	})
}

// contentFormat checks structural formatting of the rendered snapshot:
// long prose needs subheadings, commercial categories benefit from
// lists and tables.
type contentFormat struct{}

func (contentFormat) Key() models.PhaseKey { return models.PhaseContentFormat }
func (contentFormat) Name() string         { return "Content Format" }

func (p contentFormat) Run(ctx context.Context, in *Input) models.PhaseResult {
	checked := 0
	var unstructured, listless []string
	for i := range in.Items {
		if ctx.Err() != nil {
			return unavailable(p, "cancelled")
		}
		item := &in.Items[i]
		if item.RenderedHTML == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.RenderedHTML))
		if err != nil {
			continue
		}
		checked++

		subheadings := doc.Find("h2, h3").Length()
		structures := doc.Find("ul, ol, table").Length()
		if item.WordCount > 600 && subheadings == 0 {
			unstructured = append(unstructured, item.URL)
		}
		if (item.Category == models.CategoryProduct || item.Category == models.CategoryCategory) && structures == 0 {
			listless = append(listless, item.URL)
		}
	}
	if checked == 0 {
		return unavailable(p, "no rendered HTML snapshots supplied")
	}

	score := ratio(checked-len(unstructured)-len(listless), checked)

	var issues []models.Issue
	if len(unstructured) > 0 {
		issues = append(issues, models.Issue{
			Type:           "unstructured_content",
			Severity:       severityShare(len(unstructured), checked),
			Message:        fmt.Sprintf("%d long pages carry no h2/h3 subheadings", len(unstructured)),
			Recommendation: "Break long passages into attribute-focused sections with descriptive subheadings",
			AffectedURLs:   sortedURLs(unstructured),
		})
	}
	if len(listless) > 0 {
		issues = append(issues, models.Issue{
			Type:           "missing_list_structures",
			Severity:       severityShare(len(listless), checked),
			Message:        fmt.Sprintf("%d commercial pages present no list or table structures", len(listless)),
			Recommendation: "Present specs, options, and comparisons as lists or tables for extractability",
			AffectedURLs:   sortedURLs(listless),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"checked_pages": float64(checked),
	})
}

// crossPageConsistency checks corpus-level coherence: duplicate titles
// and pages written in a language that deviates from the dominant one.
type crossPageConsistency struct{}

func (crossPageConsistency) Key() models.PhaseKey { return models.PhaseCrossPageConsistency }
func (crossPageConsistency) Name() string         { return "Cross-Page Consistency" }

func (p crossPageConsistency) Run(_ context.Context, in *Input) models.PhaseResult {
	if len(in.Items) < 2 {
		return unavailable(p, "not enough pages to compare")
	}

	titles := make(map[string][]string)
	langs := make(map[string][]string)
	detected := 0
	for i := range in.Items {
		item := &in.Items[i]
		if t := strings.ToLower(strings.TrimSpace(item.Title)); t != "" {
			titles[t] = append(titles[t], item.URL)
		}
		text := detectableText(item)
		if len(text) < 40 {
			continue
		}
		info := whatlanggo.Detect(text)
		if !info.IsReliable() {
			continue
		}
		code := whatlanggo.LangToString(info.Lang)
		langs[code] = append(langs[code], item.URL)
		detected++
	}

	var duplicates []string
	duplicateGroups := 0
	for _, urls := range titles {
		if len(urls) > 1 {
			duplicateGroups++
			duplicates = append(duplicates, urls...)
		}
	}

	dominant, dominantCount := "", 0
	for code, urls := range langs {
		if len(urls) > dominantCount || (len(urls) == dominantCount && code < dominant) {
			dominant, dominantCount = code, len(urls)
		}
	}
	var deviants []string
	for code, urls := range langs {
		if code != dominant {
			deviants = append(deviants, urls...)
		}
	}

	score := 100 - ratio(len(duplicates), len(in.Items))*0.6
	if detected > 0 {
		score -= ratio(len(deviants), detected) * 0.4
	}

	var issues []models.Issue
	if duplicateGroups > 0 {
		issues = append(issues, models.Issue{
			Type:           "duplicate_titles",
			Severity:       severityShare(len(duplicates), len(in.Items)),
			Message:        fmt.Sprintf("%d pages share a title with at least one other page", len(duplicates)),
			Recommendation: "Give each page a distinct title reflecting its unique attribute coverage",
			AffectedURLs:   sortedURLs(duplicates),
		})
	}
	if len(deviants) > 0 {
		issues = append(issues, models.Issue{
			Type:           "language_inconsistency",
			Severity:       severityShare(len(deviants), detected),
			Message:        fmt.Sprintf("%d pages deviate from the dominant corpus language %q", len(deviants), dominant),
			Recommendation: "Move off-language content to a dedicated localized section or align it with the corpus language",
			AffectedURLs:   sortedURLs(deviants),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"duplicate_groups":  float64(duplicateGroups),
		"detected_language": float64(detected),
		"language_deviants": float64(len(deviants)),
	})
}

func detectableText(item *models.InventoryItem) string {
	if item.RenderedHTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.RenderedHTML)); err == nil {
			if text := strings.TrimSpace(doc.Text()); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(item.Title)
}
