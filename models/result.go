package models

// PhaseKey identifies one of the thirteen scored audit phases.
type PhaseKey string

const (
	PhaseStrategicFoundation  PhaseKey = "strategic_foundation"
	PhaseEAVSystem            PhaseKey = "eav_system"
	PhaseMicroSemantics       PhaseKey = "micro_semantics"
	PhaseInformationDensity   PhaseKey = "information_density"
	PhaseContextualFlow       PhaseKey = "contextual_flow"
	PhaseInternalLinking      PhaseKey = "internal_linking"
	PhaseSemanticDistance     PhaseKey = "semantic_distance"
	PhaseContentFormat        PhaseKey = "content_format"
	PhaseHTMLTechnical        PhaseKey = "html_technical"
	PhaseMetaStructuredData   PhaseKey = "meta_structured_data"
	PhaseCostOfRetrieval      PhaseKey = "cost_of_retrieval"
	PhaseURLArchitecture      PhaseKey = "url_architecture"
	PhaseCrossPageConsistency PhaseKey = "cross_page_consistency"
)

// AllPhaseKeys lists every phase key in canonical order.
func AllPhaseKeys() []PhaseKey {
	return []PhaseKey{
		PhaseStrategicFoundation,
		PhaseEAVSystem,
		PhaseMicroSemantics,
		PhaseInformationDensity,
		PhaseContextualFlow,
		PhaseInternalLinking,
		PhaseSemanticDistance,
		PhaseContentFormat,
		PhaseHTMLTechnical,
		PhaseMetaStructuredData,
		PhaseCostOfRetrieval,
		PhaseURLArchitecture,
		PhaseCrossPageConsistency,
	}
}

// Score is a tagged phase score: either a 0-100 value or an
// unavailable marker carrying the reason.
type Score struct {
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
}

// Scored wraps a numeric score.
func Scored(v float64) Score {
	return Score{Value: v, Available: true}
}

// Unavailable marks a score that could not be computed.
func Unavailable(reason string) Score {
	return Score{Available: false, Reason: reason}
}

// ClampPercent bounds a percentage to [0,100] for display. Computed
// overlap values are stored raw; only rendering clamps them.
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Severity grades how urgent an issue is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is one finding produced by a phase. AffectedURLs is ordered and
// may be large; callers truncate for display.
type Issue struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
	AffectedURLs   []string `json:"affected_urls"`
}

// PhaseResult is the output of a single phase run.
type PhaseResult struct {
	Key     PhaseKey           `json:"key"`
	Name    string             `json:"name"`
	Score   Score              `json:"score"`
	Issues  []Issue            `json:"issues"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// MergeAction is the recommended resolution for an overlapping pair.
type MergeAction string

const (
	MergeActionMerge         MergeAction = "merge"
	MergeActionDifferentiate MergeAction = "differentiate"
	MergeActionRedirect      MergeAction = "redirect"
)

// ContentMergeSuggestion pairs two pages whose signatures overlap.
// OverlapPercentage is the raw computed value and may exceed 100 through
// upstream estimation error; use DisplayOverlap for rendering.
type ContentMergeSuggestion struct {
	SourceURL         string      `json:"source_url"`
	TargetURL         string      `json:"target_url"`
	OverlapPercentage float64     `json:"overlap_percentage"`
	Reason            string      `json:"reason"`
	SuggestedAction   MergeAction `json:"suggested_action"`
}

// DisplayOverlap returns the overlap clamped to [0,100].
func (s ContentMergeSuggestion) DisplayOverlap() float64 {
	return ClampPercent(s.OverlapPercentage)
}

// CannibalizationRisk flags a group of pages competing for one intent.
type CannibalizationRisk struct {
	URLs           []string `json:"urls"`
	SharedEntity   string   `json:"shared_entity"`
	SharedKeywords []string `json:"shared_keywords"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// TaskType categorizes a roadmap task.
type TaskType string

const (
	TaskFix      TaskType = "fix"
	TaskCreate   TaskType = "create"
	TaskMerge    TaskType = "merge"
	TaskDelete   TaskType = "delete"
	TaskRedirect TaskType = "redirect"
	TaskOther    TaskType = "other"
)

// Level grades impact and effort.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Priority orders roadmap work.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RoadmapTask is one recommended remediation action. SourcePhase is
// set for tasks born from a phase issue and empty for detector-sourced
// tasks.
type RoadmapTask struct {
	ID           string   `json:"id"`
	Type         TaskType `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Impact       Level    `json:"impact"`
	Effort       Level    `json:"effort"`
	AffectedURLs []string `json:"affected_urls"`
	Priority     Priority `json:"priority"`
	SourcePhase  PhaseKey `json:"source_phase,omitempty"`
}

// PriorityGroup bundles tasks that share a priority and category label.
type PriorityGroup struct {
	Priority Priority      `json:"priority"`
	Category string        `json:"category"`
	Tasks    []RoadmapTask `json:"tasks"`
}

// EstimatedImpact is the roadmap's rollup of what completing the
// high and medium priority work should buy.
type EstimatedImpact struct {
	TrafficPotential      Level   `json:"traffic_potential"`
	AuthorityImprovement  float64 `json:"authority_improvement_pct"`
	IndexationImprovement float64 `json:"indexation_improvement_pct"`
	UserExperienceScore   float64 `json:"user_experience_score"`
}

// Roadmap is the prioritized remediation plan.
type Roadmap struct {
	Priorities      []PriorityGroup  `json:"priorities"`
	TotalTasks      int              `json:"total_tasks"`
	TasksByPriority map[Priority]int `json:"tasks_by_priority"`
	EstimatedImpact EstimatedImpact  `json:"estimated_impact"`
}

// PageRecommendation is the per-page write-back payload persisted by
// inventory-update collaborators.
type PageRecommendation struct {
	ItemID     string  `json:"item_id"`
	URL        string  `json:"url"`
	AuditScore float64 `json:"audit_score"`
	Action     Action  `json:"action"`
}

// SiteAuditResult is the immutable snapshot returned by a completed run.
type SiteAuditResult struct {
	Overall    Score `json:"overall"`
	Technical  Score `json:"technical"`
	Semantic   Score `json:"semantic"`
	Structural Score `json:"structural"`

	PagesAudited             int `json:"pages_audited"`
	IssuesFound              int `json:"issues_found"`
	RecommendationsGenerated int `json:"recommendations_generated"`

	Phases              []PhaseResult            `json:"phases"`
	MergeSuggestions    []ContentMergeSuggestion `json:"merge_suggestions"`
	CannibalizationRisk []CannibalizationRisk    `json:"cannibalization_risks"`
	Roadmap             Roadmap                  `json:"roadmap"`
	PageRecommendations []PageRecommendation     `json:"page_recommendations"`

	Warnings []string `json:"warnings,omitempty"`
}

// ProgressPhase is the orchestrator state visible to callers.
type ProgressPhase string

const (
	ProgressPreparing   ProgressPhase = "preparing"
	ProgressChecking    ProgressPhase = "checking"
	ProgressCalculating ProgressPhase = "calculating"
	ProgressDone        ProgressPhase = "done"
	ProgressCancelled   ProgressPhase = "cancelled"
)

// AuditProgress is one progress event. The event stream ends with a
// terminal done or cancelled event followed by channel close.
type AuditProgress struct {
	Phase           ProgressPhase `json:"phase"`
	CurrentCategory string        `json:"current_category,omitempty"`
	PercentComplete float64       `json:"percent_complete"`
	IssuesFound     int           `json:"issues_found"`
}
