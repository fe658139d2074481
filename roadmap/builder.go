// Package roadmap turns issues, merge suggestions, and cannibalization
// risks into a prioritized, impact and effort annotated action plan.
package roadmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/topicforge/go-site-audit/models"
)

// Inputs collects every task source for one audit run.
type Inputs struct {
	Issues      []models.Issue
	IssuePhases []models.PhaseKey // parallel to Issues
	Suggestions []models.ContentMergeSuggestion
	Risks       []models.CannibalizationRisk

	// Traffic per URL, used for impact estimation.
	ClicksByURL             map[string]int64
	MeaningfulTrafficClicks int64

	// Available phase results feeding the rollup heuristics.
	Phases map[models.PhaseKey]models.PhaseResult
}

// Build maps every input to exactly one task, derives priorities, and
// groups tasks into priority buckets with an estimated-impact rollup.
func Build(in *Inputs) models.Roadmap {
	var tasks []models.RoadmapTask
	for i, issue := range in.Issues {
		phase := models.PhaseKey("")
		if i < len(in.IssuePhases) {
			phase = in.IssuePhases[i]
		}
		tasks = append(tasks, issueTask(issue, phase, in))
	}
	for _, s := range in.Suggestions {
		tasks = append(tasks, suggestionTask(s, in))
	}
	for _, r := range in.Risks {
		tasks = append(tasks, riskTask(r, in))
	}

	// Priority is always derived, never stored upstream.
	for i := range tasks {
		tasks[i].Priority = derivePriority(taskSeverity(tasks[i]), tasks[i].Impact, tasks[i].Effort)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if pi, pj := priorityRank(tasks[i].Priority), priorityRank(tasks[j].Priority); pi != pj {
			return pi < pj
		}
		if tasks[i].Title != tasks[j].Title {
			return tasks[i].Title < tasks[j].Title
		}
		return firstURL(tasks[i]) < firstURL(tasks[j])
	})
	for i := range tasks {
		tasks[i].ID = fmt.Sprintf("task-%04d", i+1)
	}

	return models.Roadmap{
		Priorities:      group(tasks),
		TotalTasks:      len(tasks),
		TasksByPriority: countByPriority(tasks),
		EstimatedImpact: estimateImpact(tasks, in),
	}
}

// severity is re-derived from impact so suggestion/risk tasks flow
// through the same priority rule as issue tasks
func taskSeverity(t models.RoadmapTask) models.Severity {
	switch t.Impact {
	case models.LevelHigh:
		return models.SeverityHigh
	case models.LevelMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func issueTask(issue models.Issue, phase models.PhaseKey, in *Inputs) models.RoadmapTask {
	impact := impactFromSeverity(issue.Severity)
	if impact != models.LevelHigh && touchesTraffic(issue.AffectedURLs, in) {
		impact = models.LevelMedium
	}
	return models.RoadmapTask{
		Type:         taskTypeForIssue(issue.Type),
		Title:        fmt.Sprintf("Fix: %s", strings.ReplaceAll(issue.Type, "_", " ")),
		Description:  issue.Message + ". " + issue.Recommendation,
		Impact:       impact,
		Effort:       effortForURLs(len(issue.AffectedURLs)),
		AffectedURLs: issue.AffectedURLs,
		SourcePhase:  phase,
	}
}

func suggestionTask(s models.ContentMergeSuggestion, in *Inputs) models.RoadmapTask {
	var taskType models.TaskType
	var title string
	switch s.SuggestedAction {
	case models.MergeActionMerge:
		taskType = models.TaskMerge
		title = fmt.Sprintf("Merge %s into %s", s.SourceURL, s.TargetURL)
	case models.MergeActionRedirect:
		taskType = models.TaskRedirect
		title = fmt.Sprintf("Redirect %s to %s", s.SourceURL, s.TargetURL)
	default:
		taskType = models.TaskFix
		title = fmt.Sprintf("Differentiate %s from %s", s.SourceURL, s.TargetURL)
	}

	impact := models.LevelMedium
	if s.OverlapPercentage >= 75 || touchesTraffic([]string{s.SourceURL, s.TargetURL}, in) {
		impact = models.LevelHigh
	}
	return models.RoadmapTask{
		Type:         taskType,
		Title:        title,
		Description:  s.Reason,
		Impact:       impact,
		Effort:       models.LevelMedium,
		AffectedURLs: []string{s.SourceURL, s.TargetURL},
	}
}

func riskTask(r models.CannibalizationRisk, in *Inputs) models.RoadmapTask {
	return models.RoadmapTask{
		Type:         models.TaskFix,
		Title:        fmt.Sprintf("Resolve cannibalization around %q", r.SharedEntity),
		Description:  fmt.Sprintf("%d pages compete for %s. %s", len(r.URLs), strings.Join(r.SharedKeywords, ", "), r.Recommendation),
		Impact:       impactFromSeverity(r.Severity),
		Effort:       effortForURLs(len(r.URLs)),
		AffectedURLs: r.URLs,
	}
}

// derivePriority applies the fixed rule: high severity always wins;
// high impact counts only when effort stays at or below medium.
func derivePriority(severity models.Severity, impact, effort models.Level) models.Priority {
	if severity == models.SeverityHigh || (impact == models.LevelHigh && effort != models.LevelHigh) {
		return models.PriorityHigh
	}
	if severity == models.SeverityMedium || impact == models.LevelMedium {
		return models.PriorityMedium
	}
	return models.PriorityLow
}

func impactFromSeverity(severity models.Severity) models.Level {
	switch severity {
	case models.SeverityHigh:
		return models.LevelHigh
	case models.SeverityMedium:
		return models.LevelMedium
	default:
		return models.LevelLow
	}
}

func effortForURLs(n int) models.Level {
	switch {
	case n <= 3:
		return models.LevelLow
	case n <= 20:
		return models.LevelMedium
	default:
		return models.LevelHigh
	}
}

func taskTypeForIssue(issueType string) models.TaskType {
	switch issueType {
	case "unmapped_pages", "missing_eav_coverage", "missing_hub":
		return models.TaskCreate
	case "thin_content":
		return models.TaskFix
	default:
		return models.TaskFix
	}
}

func touchesTraffic(urls []string, in *Inputs) bool {
	for _, u := range urls {
		if in.ClicksByURL[u] >= in.MeaningfulTrafficClicks && in.MeaningfulTrafficClicks > 0 {
			return true
		}
	}
	return false
}

func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// category is a coarse display label derived from the task type
func category(t models.RoadmapTask) string {
	switch t.Type {
	case models.TaskMerge:
		return "Merge Candidates"
	case models.TaskRedirect:
		return "Redirect Plan"
	case models.TaskCreate:
		return "Structural Gaps"
	case models.TaskDelete:
		return "Pruning"
	default:
		return "Technical Fixes"
	}
}

func group(tasks []models.RoadmapTask) []models.PriorityGroup {
	type key struct {
		priority models.Priority
		category string
	}
	grouped := make(map[key][]models.RoadmapTask)
	var order []key
	for _, t := range tasks {
		k := key{t.Priority, category(t)}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], t)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if pi, pj := priorityRank(order[i].priority), priorityRank(order[j].priority); pi != pj {
			return pi < pj
		}
		return order[i].category < order[j].category
	})

	out := make([]models.PriorityGroup, 0, len(order))
	for _, k := range order {
		out = append(out, models.PriorityGroup{
			Priority: k.priority,
			Category: k.category,
			Tasks:    grouped[k],
		})
	}
	return out
}

func countByPriority(tasks []models.RoadmapTask) map[models.Priority]int {
	counts := map[models.Priority]int{
		models.PriorityHigh:   0,
		models.PriorityMedium: 0,
		models.PriorityLow:    0,
	}
	for _, t := range tasks {
		counts[t.Priority]++
	}
	return counts
}

func firstURL(t models.RoadmapTask) string {
	if len(t.AffectedURLs) == 0 {
		return ""
	}
	return t.AffectedURLs[0]
}
