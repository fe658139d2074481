package phases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/topicforge/go-site-audit/models"
)

// htmlTechnical validates the rendered snapshot's document structure:
// one h1, alt text on images, no skipped heading levels.
type htmlTechnical struct{}

func (htmlTechnical) Key() models.PhaseKey { return models.PhaseHTMLTechnical }
func (htmlTechnical) Name() string         { return "HTML Technical" }

func (p htmlTechnical) Run(ctx context.Context, in *Input) models.PhaseResult {
	checked := 0
	var badH1, missingAlt, badOrder []string
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

		if doc.Find("h1").Length() != 1 {
			badH1 = append(badH1, item.URL)
		}
		withoutAlt := 0
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
				withoutAlt++
			}
		})
		if withoutAlt > 0 {
			missingAlt = append(missingAlt, item.URL)
		}
		if headingsSkipLevel(doc) {
			badOrder = append(badOrder, item.URL)
		}
	}
	if checked == 0 {
		return unavailable(p, "no rendered HTML snapshots supplied")
	}

	// each check weighs a third of the page's compliance
	failures := float64(len(badH1)+len(missingAlt)+len(badOrder)) / 3
	score := 100 - failures/float64(checked)*100

	var issues []models.Issue
	if len(badH1) > 0 {
		issues = append(issues, models.Issue{
			Type:           "h1_count",
			Severity:       severityShare(len(badH1), checked),
			Message:        fmt.Sprintf("%d pages do not have exactly one h1", len(badH1)),
			Recommendation: "Give every page a single h1 naming its central entity",
			AffectedURLs:   sortedURLs(badH1),
		})
	}
	if len(missingAlt) > 0 {
		issues = append(issues, models.Issue{
			Type:           "missing_alt_text",
			Severity:       severityShare(len(missingAlt), checked),
			Message:        fmt.Sprintf("%d pages contain images without alt text", len(missingAlt)),
			Recommendation: "Describe each image's entity in its alt attribute",
			AffectedURLs:   sortedURLs(missingAlt),
		})
	}
	if len(badOrder) > 0 {
		issues = append(issues, models.Issue{
			Type:           "heading_order",
			Severity:       severityShare(len(badOrder), checked),
			Message:        fmt.Sprintf("%d pages skip heading levels", len(badOrder)),
			Recommendation: "Keep heading levels sequential so the document outline mirrors the topic hierarchy",
			AffectedURLs:   sortedURLs(badOrder),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"checked_pages": float64(checked),
	})
}

func headingsSkipLevel(doc *goquery.Document) bool {
	last := 0
	skipped := false
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(s.Nodes[0].Data[1] - '0')
		if last > 0 && level > last+1 {
			skipped = true
		}
		last = level
	})
	return skipped
}

// metaStructuredData validates title tags, meta descriptions, and
// JSON-LD blocks in the rendered snapshot.
type metaStructuredData struct{}

func (metaStructuredData) Key() models.PhaseKey { return models.PhaseMetaStructuredData }
func (metaStructuredData) Name() string         { return "Meta & Structured Data" }

func (p metaStructuredData) Run(ctx context.Context, in *Input) models.PhaseResult {
	checked := 0
	var badTitle, badDescription, missingLD, invalidLD []string
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

		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" || len(title) > 60 {
			badTitle = append(badTitle, item.URL)
		}
		description, _ := doc.Find(`meta[name="description"]`).Attr("content")
		if n := len(strings.TrimSpace(description)); n < 50 || n > 160 {
			badDescription = append(badDescription, item.URL)
		}

		ld := doc.Find(`script[type="application/ld+json"]`)
		if ld.Length() == 0 {
			missingLD = append(missingLD, item.URL)
		} else {
			valid := true
			ld.Each(func(_ int, s *goquery.Selection) {
				if !json.Valid([]byte(s.Text())) {
					valid = false
				}
			})
			if !valid {
				invalidLD = append(invalidLD, item.URL)
			}
		}
	}
	if checked == 0 {
		return unavailable(p, "no rendered HTML snapshots supplied")
	}

	failures := float64(len(badTitle)+len(badDescription)+len(missingLD)+2*len(invalidLD)) / 4
	score := 100 - failures/float64(checked)*100

	var issues []models.Issue
	if len(badTitle) > 0 {
		issues = append(issues, models.Issue{
			Type:           "title_tag",
			Severity:       severityShare(len(badTitle), checked),
			Message:        fmt.Sprintf("%d pages have a missing or overlong title tag", len(badTitle)),
			Recommendation: "Write a unique title under 60 characters naming the page's entity",
			AffectedURLs:   sortedURLs(badTitle),
		})
	}
	if len(badDescription) > 0 {
		issues = append(issues, models.Issue{
			Type:           "meta_description",
			Severity:       severityShare(len(badDescription), checked),
			Message:        fmt.Sprintf("%d pages have a missing or out-of-range meta description", len(badDescription)),
			Recommendation: "Write a 50-160 character description answering the page's search intent",
			AffectedURLs:   sortedURLs(badDescription),
		})
	}
	if len(missingLD) > 0 {
		issues = append(issues, models.Issue{
			Type:           "missing_structured_data",
			Severity:       severityShare(len(missingLD), checked),
			Message:        fmt.Sprintf("%d pages carry no JSON-LD structured data", len(missingLD)),
			Recommendation: "Add schema.org JSON-LD matching the page category",
			AffectedURLs:   sortedURLs(missingLD),
		})
	}
	if len(invalidLD) > 0 {
		issues = append(issues, models.Issue{
			Type:           "invalid_structured_data",
			Severity:       models.SeverityHigh,
			Message:        fmt.Sprintf("%d pages carry JSON-LD that fails to parse", len(invalidLD)),
			Recommendation: "Fix the malformed JSON-LD blocks; invalid markup is ignored by crawlers",
			AffectedURLs:   sortedURLs(invalidLD),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"checked_pages": float64(checked),
	})
}

// costOfRetrieval penalizes pages that are expensive for a crawler or
// reader to extract value from.
type costOfRetrieval struct{}

func (costOfRetrieval) Key() models.PhaseKey { return models.PhaseCostOfRetrieval }
func (costOfRetrieval) Name() string         { return "Cost of Retrieval" }

const (
	corLoadGoodMS    = 1000
	corLoadWorstMS   = 5000
	corWeightGoodKB  = 1024
	corWeightWorstKB = 5120
)

func (p costOfRetrieval) Run(_ context.Context, in *Input) models.PhaseResult {
	measured := 0
	var slow, heavy []string
	var corSum float64
	for i := range in.Items {
		item := &in.Items[i]
		if item.LoadTimeMS <= 0 && item.PageWeightKB <= 0 {
			continue
		}
		measured++

		loadScore := descendingScore(item.LoadTimeMS, corLoadGoodMS, corLoadWorstMS)
		weightScore := descendingScore(item.PageWeightKB, corWeightGoodKB, corWeightWorstKB)
		corSum += loadScore*0.6 + weightScore*0.4

		if item.LoadTimeMS > 2500 {
			slow = append(slow, item.URL)
		}
		if item.PageWeightKB > 2048 {
			heavy = append(heavy, item.URL)
		}
	}
	if measured == 0 {
		return unavailable(p, "no load time or page weight measurements supplied")
	}

	score := corSum / float64(measured)

	var issues []models.Issue
	if len(slow) > 0 {
		issues = append(issues, models.Issue{
			Type:           "slow_pages",
			Severity:       severityShare(len(slow), measured),
			Message:        fmt.Sprintf("%d pages load slower than 2.5s", len(slow)),
			Recommendation: "Cut render-blocking resources and defer non-critical scripts on the slowest pages",
			AffectedURLs:   sortedURLs(slow),
		})
	}
	if len(heavy) > 0 {
		issues = append(issues, models.Issue{
			Type:           "heavy_pages",
			Severity:       severityShare(len(heavy), measured),
			Message:        fmt.Sprintf("%d pages exceed 2MB transfer weight", len(heavy)),
			Recommendation: "Compress media and trim payloads to lower the cost of retrieval",
			AffectedURLs:   sortedURLs(heavy),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"measured_pages": float64(measured),
		"slow_pages":     float64(len(slow)),
		"heavy_pages":    float64(len(heavy)),
	})
}

// 100 at or under good, 0 at or over worst, linear in between
func descendingScore(value, good, worst float64) float64 {
	if value <= good {
		return 100
	}
	if value >= worst {
		return 0
	}
	return (worst - value) / (worst - good) * 100
}

// urlArchitecture checks URL hygiene: depth, length, casing,
// underscores, and query strings on content pages.
type urlArchitecture struct{}

func (urlArchitecture) Key() models.PhaseKey { return models.PhaseURLArchitecture }
func (urlArchitecture) Name() string         { return "URL Architecture" }

func (p urlArchitecture) Run(_ context.Context, in *Input) models.PhaseResult {
	maxDepth := 4
	if in.WebsiteType == models.WebsiteEcommerce {
		maxDepth = 5
	}

	var deep, malformed, parameterized []string
	for i := range in.Items {
		item := &in.Items[i]
		parsed, err := url.Parse(item.URL)
		if err != nil {
			malformed = append(malformed, item.URL)
			continue
		}
		segments := 0
		for _, s := range strings.Split(parsed.Path, "/") {
			if s != "" {
				segments++
			}
		}
		if segments > maxDepth || len(item.URL) > 115 {
			deep = append(deep, item.URL)
		}
		if strings.ContainsAny(parsed.Path, "_") || parsed.Path != strings.ToLower(parsed.Path) {
			malformed = append(malformed, item.URL)
		}
		if parsed.RawQuery != "" && item.Category == models.CategoryContent {
			parameterized = append(parameterized, item.URL)
		}
	}

	total := len(in.Items)
	failures := float64(len(deep)+len(malformed)+len(parameterized)) / 3
	score := 100 - failures/float64(total)*100

	var issues []models.Issue
	if len(deep) > 0 {
		issues = append(issues, models.Issue{
			Type:           "deep_urls",
			Severity:       severityShare(len(deep), total),
			Message:        fmt.Sprintf("%d URLs exceed %d path segments or 115 characters", len(deep), maxDepth),
			Recommendation: "Flatten the URL hierarchy to mirror the topic map rather than the CMS structure",
			AffectedURLs:   sortedURLs(deep),
		})
	}
	if len(malformed) > 0 {
		issues = append(issues, models.Issue{
			Type:           "url_formatting",
			Severity:       severityShare(len(malformed), total),
			Message:        fmt.Sprintf("%d URLs use uppercase, underscores, or fail to parse", len(malformed)),
			Recommendation: "Use lowercase hyphenated slugs throughout",
			AffectedURLs:   sortedURLs(malformed),
		})
	}
	if len(parameterized) > 0 {
		issues = append(issues, models.Issue{
			Type:           "parameterized_content_urls",
			Severity:       severityShare(len(parameterized), total),
			Message:        fmt.Sprintf("%d content pages are served under query parameters", len(parameterized)),
			Recommendation: "Serve canonical content on clean paths and canonicalize parameterized variants",
			AffectedURLs:   sortedURLs(parameterized),
		})
	}

	return scored(p, score, issues, map[string]float64{
		"deep_urls":      float64(len(deep)),
		"malformed_urls": float64(len(malformed)),
	})
}
