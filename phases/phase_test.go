package phases

import (
	"context"
	"strings"
	"testing"

	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/topics"
)

func testInput(items []models.InventoryItem, topicList []models.EnrichedTopic) *Input {
	return &Input{
		Items:  items,
		Topics: topics.BuildArena(topicList),
		Config: config.DefaultConfig(),
	}
}

type panickingPhase struct{}

func (panickingPhase) Key() models.PhaseKey { return models.PhaseKey("panicking") }
func (panickingPhase) Name() string         { return "Panicking" }
func (panickingPhase) Run(context.Context, *Input) models.PhaseResult {
	panic("boom")
}

func TestRunIsolatesPanics(t *testing.T) {
	result := Run(context.Background(), panickingPhase{}, testInput(nil, nil))
	if result.Score.Available {
		t.Fatal("panicking phase should yield an unavailable score")
	}
	if !strings.Contains(result.Score.Reason, "panicked") {
		t.Fatalf("reason = %q, want mention of panic", result.Score.Reason)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Run(ctx, strategicFoundation{}, testInput(nil, nil))
	if result.Score.Available {
		t.Fatal("cancelled phase should yield an unavailable score")
	}
}

func TestAllMatchesCanonicalOrder(t *testing.T) {
	all := All()
	keys := models.AllPhaseKeys()
	if len(all) != len(keys) {
		t.Fatalf("phases = %d, keys = %d", len(all), len(keys))
	}
	for i, p := range all {
		if p.Key() != keys[i] {
			t.Fatalf("phase %d = %q, want %q", i, p.Key(), keys[i])
		}
	}
}

func TestCompositeKeysPartitionThePhases(t *testing.T) {
	seen := make(map[models.PhaseKey]int)
	for _, key := range TechnicalKeys() {
		seen[key]++
	}
	for _, key := range SemanticKeys() {
		seen[key]++
	}
	for _, key := range StructuralKeys() {
		seen[key]++
	}
	for _, key := range models.AllPhaseKeys() {
		if seen[key] != 1 {
			t.Fatalf("phase %q appears in %d composite groups, want 1", key, seen[key])
		}
	}
	if len(seen) != len(models.AllPhaseKeys()) {
		t.Fatalf("composite groups cover %d phases, want %d", len(seen), len(models.AllPhaseKeys()))
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 100},
		{1, 2, 50},
		{0, 4, 0},
		{4, 4, 100},
	}
	for _, tt := range tests {
		if got := ratio(tt.part, tt.total); got != tt.want {
			t.Errorf("ratio(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestSeverityBelow(t *testing.T) {
	tests := []struct {
		value, threshold float64
		want             models.Severity
	}{
		{10, 30, models.SeverityHigh},   // two thirds below
		{22, 30, models.SeverityMedium}, // a bit over a fifth below
		{29, 30, models.SeverityLow},
		{30, 0, models.SeverityLow},
	}
	for _, tt := range tests {
		if got := severityBelow(tt.value, tt.threshold); got != tt.want {
			t.Errorf("severityBelow(%v, %v) = %q, want %q", tt.value, tt.threshold, got, tt.want)
		}
	}
}

func TestSeverityShare(t *testing.T) {
	tests := []struct {
		affected, total int
		want            models.Severity
	}{
		{25, 100, models.SeverityHigh},
		{10, 100, models.SeverityMedium},
		{5, 100, models.SeverityLow},
		{0, 0, models.SeverityLow},
	}
	for _, tt := range tests {
		if got := severityShare(tt.affected, tt.total); got != tt.want {
			t.Errorf("severityShare(%d, %d) = %q, want %q", tt.affected, tt.total, got, tt.want)
		}
	}
}

func TestScoredClampsAndSortsIssues(t *testing.T) {
	issues := []models.Issue{
		{Type: "zeta"},
		{Type: "alpha"},
	}
	result := scored(strategicFoundation{}, 130, issues, nil)
	if result.Score.Value != 100 {
		t.Fatalf("score = %v, want clamped 100", result.Score.Value)
	}
	if result.Issues[0].Type != "alpha" || result.Issues[1].Type != "zeta" {
		t.Fatalf("issues not sorted by type: %v", result.Issues)
	}

	if low := scored(strategicFoundation{}, -5, nil, nil); low.Score.Value != 0 {
		t.Fatalf("score = %v, want clamped 0", low.Score.Value)
	}
}
