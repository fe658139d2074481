package overlap

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/topicforge/go-site-audit/classify"
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/topics"
)

type failingClassifier struct{}

func (failingClassifier) ClassifyIntent(context.Context, string, []string) (classify.Result, error) {
	return classify.Result{}, errors.New("collaborator down")
}

func TestBuildSignatures(t *testing.T) {
	arena := topics.BuildArena([]models.EnrichedTopic{
		{ID: "t1", CentralEntity: "Coffee Grinders", Keywords: []string{"Burr Grinder", "grind size"}, SearchIntent: "Commercial"},
		{ID: "t2", CentralEntity: "Kettles"},
	})
	triples := []models.SemanticTriple{
		{Subject: "Coffee Grinders", Predicate: "Burr Material", Category: models.TripleUnique, Object: "steel"},
		{Subject: "Something Else", Predicate: "ignored", Category: models.TripleCommon, Object: "x"},
	}
	items := []models.InventoryItem{
		{ID: "p2", URL: "https://site.test/kettles", TopicID: "t2", Clicks: 30},
		{ID: "p1", URL: "https://site.test/grinders", TopicID: "t1", Clicks: 200},
		{ID: "p3", URL: "https://site.test/unmapped"},
	}

	signatures := BuildSignatures(context.Background(), items, arena, triples, classify.RuleClassifier{})

	if len(signatures) != 2 {
		t.Fatalf("signatures = %d, want 2 (unmapped pages are skipped)", len(signatures))
	}
	// sorted by item id regardless of input order
	if signatures[0].ItemID != "p1" || signatures[1].ItemID != "p2" {
		t.Fatalf("order = %s, %s, want p1, p2", signatures[0].ItemID, signatures[1].ItemID)
	}

	grinders := signatures[0]
	if grinders.Entity != "coffee grinders" {
		t.Fatalf("entity = %q, want normalized", grinders.Entity)
	}
	wantTerms := []string{"burr grinder", "burr material", "coffee grinders", "grind size"}
	if !reflect.DeepEqual(grinders.Terms, wantTerms) {
		t.Fatalf("terms = %v, want %v", grinders.Terms, wantTerms)
	}
	if grinders.Intent != "commercial" {
		t.Fatalf("intent = %q, want the topic's own intent", grinders.Intent)
	}
	if grinders.Clicks != 200 {
		t.Fatalf("clicks = %d, want 200", grinders.Clicks)
	}
}

func TestBuildSignaturesClassifierFallback(t *testing.T) {
	arena := topics.BuildArena([]models.EnrichedTopic{
		{ID: "t1", CentralEntity: "Espresso Machines", Keywords: []string{"buy espresso machine"}},
	})
	items := []models.InventoryItem{
		{ID: "p1", URL: "https://site.test/espresso", TopicID: "t1"},
	}

	signatures := BuildSignatures(context.Background(), items, arena, nil, failingClassifier{})
	if len(signatures) != 1 {
		t.Fatalf("signatures = %d, want 1", len(signatures))
	}
	// a failing collaborator degrades to the rule-based intent
	if signatures[0].Intent != classify.IntentTransactional {
		t.Fatalf("intent = %q, want transactional from the rule fallback", signatures[0].Intent)
	}
}

func TestJaccardPercent(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"disjoint", []string{"x"}, []string{"y"}, 0},
		{"identical", []string{"x", "y"}, []string{"x", "y"}, 100},
		{"half", []string{"x", "y", "z"}, []string{"x", "w"}, 25},
		{"both empty", nil, nil, 0},
		{"one empty", []string{"x"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jaccardPercent(tt.a, tt.b); got != tt.want {
				t.Fatalf("jaccardPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharedStrings(t *testing.T) {
	got := sharedStrings([]string{"b", "a", "c"}, []string{"c", "a", "d"})
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("shared = %v, want [a c]", got)
	}
}
