package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
)

const renderedFixture = `<html><head>
<title>Coffee Grinders Buying Guide</title>
<meta name="description" content="How to choose a burr grinder that matches your brew method and budget.">
<script type="application/ld+json">{"@type":"Article"}</script>
</head><body>
<h1>Coffee Grinders</h1>
<h2>Burr vs Blade</h2>
<p>Grinding fresh makes the single largest difference in the cup.</p>
</body></html>`

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(config.DefaultConfig())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func testAuditInput() *Input {
	return &Input{
		Items: []models.InventoryItem{
			{
				ID: "p1", URL: "https://site.test/grinders", Title: "Coffee Grinders Buying Guide",
				Category: models.CategoryContent, TopicID: "t1",
				Clicks: 500, Impressions: 9000, WordCount: 1400,
				LoadTimeMS: 900, PageWeightKB: 700,
				InternalInlinks: 12, InternalOutlinks: 6,
				RenderedHTML:    renderedFixture,
				EntityAlignment: 85, SourceContextAlignment: 80, IntentAlignment: 90,
			},
			{
				ID: "p2", URL: "https://site.test/grinders-overview", Title: "Grinder Overview and Basics",
				Category: models.CategoryContent, TopicID: "t1",
				Clicks: 12, Impressions: 800, WordCount: 450,
				LoadTimeMS: 1800, PageWeightKB: 1400,
				InternalInlinks: 2, InternalOutlinks: 3,
				EntityAlignment: 60, SourceContextAlignment: 55, IntentAlignment: 50,
			},
			{
				ID: "p3", URL: "https://site.test/kettles", Title: "Gooseneck Kettles Compared",
				Category: models.CategoryContent, TopicID: "t2",
				Clicks: 80, Impressions: 2000, WordCount: 900,
				LoadTimeMS: 3200, PageWeightKB: 2600,
				InternalInlinks: 0, InternalOutlinks: 0,
				EntityAlignment: 70, SourceContextAlignment: 65, IntentAlignment: 75,
			},
		},
		Topics: []models.EnrichedTopic{
			{ID: "t1", Title: "Coffee Grinders", CentralEntity: "Coffee Grinders", Keywords: []string{"burr grinder", "grind size"}, SearchIntent: "commercial"},
			{ID: "t2", Title: "Kettles", CentralEntity: "Gooseneck Kettles", Keywords: []string{"pour over kettle"}},
		},
		Triples: []models.SemanticTriple{
			{Subject: "Coffee Grinders", Predicate: "burr material", Category: models.TripleUnique, Object: "steel"},
			{Subject: "Coffee Grinders", Predicate: "grind range", Category: models.TripleRare, Object: "espresso to press"},
			{Subject: "Gooseneck Kettles", Predicate: "spout", Category: models.TripleCommon, Object: "gooseneck"},
		},
		Weights: config.DefaultWeights(),
	}
}

func TestRunProducesCompleteResult(t *testing.T) {
	e := testEngine(t)
	result, err := e.Run(context.Background(), testAuditInput())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.PagesAudited != 3 {
		t.Fatalf("pages audited = %d, want 3", result.PagesAudited)
	}
	if len(result.Phases) != len(models.AllPhaseKeys()) {
		t.Fatalf("phases = %d, want %d", len(result.Phases), len(models.AllPhaseKeys()))
	}
	for i, phase := range result.Phases {
		if phase.Key != models.AllPhaseKeys()[i] {
			t.Fatalf("phase %d = %q, want canonical order", i, phase.Key)
		}
	}
	if !result.Overall.Available {
		t.Fatalf("overall unavailable: %s", result.Overall.Reason)
	}
	if result.Overall.Value < 0 || result.Overall.Value > 100 {
		t.Fatalf("overall = %v, want within [0,100]", result.Overall.Value)
	}
	if len(result.PageRecommendations) != 3 {
		t.Fatalf("page recommendations = %d, want one per page", len(result.PageRecommendations))
	}
	for i := 1; i < len(result.PageRecommendations); i++ {
		if result.PageRecommendations[i-1].ItemID >= result.PageRecommendations[i].ItemID {
			t.Fatal("page recommendations not sorted by item id")
		}
	}
	if result.RecommendationsGenerated != result.Roadmap.TotalTasks {
		t.Fatalf("recommendations = %d, roadmap tasks = %d", result.RecommendationsGenerated, result.Roadmap.TotalTasks)
	}
}

func TestRunDeterministic(t *testing.T) {
	e := testEngine(t)

	first, err := e.Run(context.Background(), testAuditInput())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := e.Run(context.Background(), testAuditInput())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		againJSON, err := json.Marshal(again)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if !bytes.Equal(firstJSON, againJSON) {
			t.Fatalf("run %d produced a different result", i)
		}
	}
}

func TestRunValidation(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	if _, err := e.Run(ctx, &Input{Weights: config.DefaultWeights()}); !errors.Is(err, ErrEmptyInventory) {
		t.Fatalf("empty inventory error = %v, want ErrEmptyInventory", err)
	}
	if _, err := e.Run(ctx, nil); !errors.Is(err, ErrEmptyInventory) {
		t.Fatalf("nil input error = %v, want ErrEmptyInventory", err)
	}

	in := testAuditInput()
	in.Weights = nil
	if _, err := e.Run(ctx, in); !errors.Is(err, ErrNilWeights) {
		t.Fatalf("nil weights error = %v, want ErrNilWeights", err)
	}

	in = testAuditInput()
	in.Weights[models.PhaseHTMLTechnical] = config.WeightMax + 1
	if _, err := e.Run(ctx, in); err == nil {
		t.Fatal("expected weight validation error")
	}
}

func TestRunCancelled(t *testing.T) {
	e := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress := make(chan models.AuditProgress, 64)
	in := testAuditInput()
	in.Progress = progress

	result, err := e.Run(ctx, in)
	if result != nil {
		t.Fatal("cancelled run must not return a partial result")
	}
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}

	var events []models.AuditProgress
	for event := range progress {
		events = append(events, event)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events before the channel close")
	}
	last := events[len(events)-1]
	if last.Phase != models.ProgressCancelled {
		t.Fatalf("terminal event = %q, want cancelled", last.Phase)
	}
}

func TestRunProgressSequence(t *testing.T) {
	e := testEngine(t)
	progress := make(chan models.AuditProgress, 128)
	in := testAuditInput()
	in.Progress = progress

	if _, err := e.Run(context.Background(), in); err != nil {
		t.Fatalf("run: %v", err)
	}

	var events []models.AuditProgress
	for event := range progress {
		events = append(events, event)
	}
	if len(events) < 3 {
		t.Fatalf("only %d progress events", len(events))
	}
	if events[0].Phase != models.ProgressPreparing {
		t.Fatalf("first event = %q, want preparing", events[0].Phase)
	}
	last := events[len(events)-1]
	if last.Phase != models.ProgressDone || last.PercentComplete != 100 {
		t.Fatalf("terminal event = %+v, want done at 100", last)
	}
	for _, event := range events {
		if event.PercentComplete < 0 || event.PercentComplete > 100 {
			t.Fatalf("percent out of range: %+v", event)
		}
	}
}

func TestRunWithoutProgressChannel(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Run(context.Background(), testAuditInput()); err != nil {
		t.Fatalf("run without progress channel: %v", err)
	}
}

func TestRunSurfacesWeightWarning(t *testing.T) {
	e := testEngine(t)
	in := testAuditInput()
	in.Weights[models.PhaseStrategicFoundation] = 50

	result, err := e.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one sum warning", result.Warnings)
	}
}

func TestApplyRecommendations(t *testing.T) {
	items := []models.InventoryItem{
		{ID: "p1", URL: "https://site.test/a"},
		{ID: "p2", URL: "https://site.test/b"},
	}
	result := &models.SiteAuditResult{
		PageRecommendations: []models.PageRecommendation{
			{ItemID: "p1", URL: "https://site.test/a", AuditScore: 62.5, Action: models.ActionOptimize},
			{ItemID: "missing", URL: "https://site.test/gone", AuditScore: 10, Action: models.ActionPrune},
		},
	}

	ApplyRecommendations(items, result)

	if items[0].AuditScore == nil || *items[0].AuditScore != 62.5 {
		t.Fatalf("item p1 score = %v, want 62.5", items[0].AuditScore)
	}
	if items[0].RecommendedAction != models.ActionOptimize {
		t.Fatalf("item p1 action = %q, want optimize", items[0].RecommendedAction)
	}
	if items[1].AuditScore != nil || items[1].RecommendedAction != "" {
		t.Fatalf("item p2 should be untouched, got %v / %q", items[1].AuditScore, items[1].RecommendedAction)
	}

	// nil result is a no-op
	ApplyRecommendations(items, nil)
}
