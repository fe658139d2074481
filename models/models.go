// Package models defines the data structures exchanged with the audit engine.
package models

// Category classifies an inventory page by its role on the site.
type Category string

const (
	CategoryContent       Category = "content"
	CategoryProduct       Category = "product"
	CategoryCategory      Category = "category"
	CategoryLegal         Category = "legal"
	CategoryPagination    Category = "pagination"
	CategoryMedia         Category = "media"
	CategoryUncategorized Category = "uncategorized"
)

// Action is the remediation the engine recommends for a page.
type Action string

const (
	ActionKeep         Action = "keep"
	ActionOptimize     Action = "optimize"
	ActionRewrite      Action = "rewrite"
	ActionMerge        Action = "merge"
	ActionRedirect     Action = "redirect"
	ActionPrune        Action = "prune"
	ActionCanonicalize Action = "canonicalize"
	ActionCreateNew    Action = "create_new"
)

// WebsiteType selects phase-specific rule variants.
type WebsiteType string

const (
	WebsiteEcommerce WebsiteType = "ecommerce"
	WebsiteBlog      WebsiteType = "blog"
	WebsiteCorporate WebsiteType = "corporate"
	WebsiteNews      WebsiteType = "news"
	WebsiteOther     WebsiteType = "other"
)

// InventoryItem is one audited page. Items are created by an import
// collaborator; the engine only ever writes AuditScore and
// RecommendedAction back onto them.
type InventoryItem struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Category Category `json:"category"`
	TopicID  string   `json:"topic_id,omitempty"`

	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	Position    float64 `json:"position"`

	WordCount        int     `json:"word_count"`
	LoadTimeMS       float64 `json:"load_time_ms"`
	PageWeightKB     float64 `json:"page_weight_kb"`
	InternalInlinks  int     `json:"internal_inlinks"`
	InternalOutlinks int     `json:"internal_outlinks"`

	// RenderedHTML is an optional pre-fetched snapshot supplied by the
	// importer. The engine never fetches pages itself.
	RenderedHTML string `json:"rendered_html,omitempty"`

	EntityAlignment        float64 `json:"entity_alignment"`
	SourceContextAlignment float64 `json:"source_context_alignment"`
	IntentAlignment        float64 `json:"intent_alignment"`

	AuditScore        *float64 `json:"audit_score,omitempty"`
	RecommendedAction Action   `json:"recommended_action,omitempty"`
}

// HasTraffic reports whether the page receives live clicks.
func (it *InventoryItem) HasTraffic() bool {
	return it.Clicks > 0
}

// EnrichedTopic is one node of the topical map hierarchy.
type EnrichedTopic struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	ParentID      string   `json:"parent_id,omitempty"`
	CentralEntity string   `json:"central_entity"`
	Keywords      []string `json:"keywords,omitempty"`
	SearchIntent  string   `json:"search_intent,omitempty"`
}

// TripleCategory ranks how distinctive a semantic relation is.
type TripleCategory string

const (
	TripleRoot   TripleCategory = "root"
	TripleUnique TripleCategory = "unique"
	TripleRare   TripleCategory = "rare"
	TripleCommon TripleCategory = "common"
)

// SemanticTriple is an immutable entity-attribute-value fact.
type SemanticTriple struct {
	Subject   string         `json:"subject"`
	Predicate string         `json:"predicate"`
	Category  TripleCategory `json:"category"`
	Object    string         `json:"object"`
}
