// Package audit orchestrates the scoring pipeline: it fans the thirteen
// phases and the overlap detector out over a bounded worker pool, waits
// on both barriers, aggregates composite scores under the caller's
// weight scheme, and synthesizes the remediation roadmap.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/topicforge/go-site-audit/classify"
	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/models"
	"github.com/topicforge/go-site-audit/overlap"
	"github.com/topicforge/go-site-audit/phases"
	"github.com/topicforge/go-site-audit/roadmap"
	"github.com/topicforge/go-site-audit/topics"
)

var (
	// ErrEmptyInventory is returned when the caller supplies no pages.
	ErrEmptyInventory = errors.New("audit: inventory cannot be empty")
	// ErrNilWeights is returned when the caller supplies no weight map.
	ErrNilWeights = errors.New("audit: weights cannot be nil")
	// ErrCancelled marks a run terminated by the caller. It is a
	// terminal status distinct from failure: no partial result exists.
	ErrCancelled = errors.New("audit: run cancelled")
)

// Input is one audit request. All collections are read-only for the
// duration of the run. Progress, when non-nil, receives AuditProgress
// events and is closed by the engine after the terminal event.
type Input struct {
	Items       []models.InventoryItem
	Topics      []models.EnrichedTopic
	Triples     []models.SemanticTriple
	Weights     config.AuditWeights
	WebsiteType models.WebsiteType
	Progress    chan<- models.AuditProgress
}

// Engine runs audits. It is safe for concurrent use; every run builds
// its own state and returns a fresh immutable snapshot.
type Engine struct {
	cfg        *config.Config
	classifier classify.Classifier
	detector   *overlap.Detector
	Metrics    *Metrics
}

// NewEngine builds an engine from cfg. A configured classifier URL
// selects the HTTP collaborator client; otherwise classification falls
// back to deterministic rules.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audit configuration: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		detector: overlap.NewDetector(cfg),
		Metrics:  NewMetrics(),
	}
	if cfg.ClassifierURL != "" {
		httpClassifier, err := classify.NewHTTPClassifier(cfg)
		if err != nil {
			return nil, fmt.Errorf("build classifier client: %w", err)
		}
		httpClassifier.RetryObserver = e.Metrics.IncClassifierRetry
		e.classifier = httpClassifier
	} else {
		e.classifier = classify.RuleClassifier{}
	}
	return e, nil
}

// Run executes a full audit. Identical inputs produce byte-identical
// results. On cancellation the partial state is discarded and the
// returned error wraps ErrCancelled.
func (e *Engine) Run(ctx context.Context, in *Input) (*models.SiteAuditResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if in == nil || len(in.Items) == 0 {
		return nil, ErrEmptyInventory
	}
	if in.Weights == nil {
		return nil, ErrNilWeights
	}
	if err := in.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("audit weights: %w", err)
	}

	progress := newReporter(in.Progress)
	defer progress.close()
	progress.emit(models.ProgressPreparing, "", 0, 0)

	var warnings []string
	if warning := in.Weights.SumWarning(); warning != "" {
		slog.Warn("weight sum deviates from convention", slog.Int("sum", in.Weights.Sum()))
		warnings = append(warnings, warning)
	}

	arena := topics.BuildArena(in.Topics)
	phaseInput := &phases.Input{
		Items:       in.Items,
		Topics:      arena,
		Triples:     in.Triples,
		WebsiteType: in.WebsiteType,
		Config:      e.cfg,
	}

	allPhases := phases.All()
	stages := len(allPhases) + 1 // +1 for the overlap pass
	var completed, issuesFound atomic.Int64

	results := make([]models.PhaseResult, len(allPhases))
	var detected *overlap.Result
	var detectedMu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)
	for i, p := range allPhases {
		i, p := i, p
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			progress.emit(models.ProgressChecking, p.Name(), checkingPercent(completed.Load(), stages), int(issuesFound.Load()))

			start := time.Now()
			phaseCtx, cancel := context.WithTimeout(gCtx, e.cfg.PhaseTimeout)
			result := phases.Run(phaseCtx, p, phaseInput)
			cancel()

			status := "scored"
			if !result.Score.Available {
				status = "unavailable"
				slog.Info("phase unavailable",
					slog.String("phase", string(p.Key())),
					slog.String("reason", result.Score.Reason),
				)
			}
			e.Metrics.ObservePhase(string(p.Key()), status, time.Since(start))
			e.Metrics.AddIssues(len(result.Issues))

			results[i] = result
			issuesFound.Add(int64(len(result.Issues)))
			progress.emit(models.ProgressChecking, p.Name(), checkingPercent(completed.Add(1), stages), int(issuesFound.Load()))
			return gCtx.Err()
		})
	}
	g.Go(func() error {
		if err := gCtx.Err(); err != nil {
			return err
		}
		progress.emit(models.ProgressChecking, "Overlap & Cannibalization", checkingPercent(completed.Load(), stages), int(issuesFound.Load()))

		signatures := overlap.BuildSignatures(gCtx, in.Items, arena, in.Triples, e.classifier)
		result, err := e.detector.Detect(gCtx, signatures)
		if err != nil {
			return err
		}
		e.Metrics.AddComparisons(result.Comparisons, result.Pruned)

		detectedMu.Lock()
		detected = result
		detectedMu.Unlock()
		progress.emit(models.ProgressChecking, "Overlap & Cannibalization", checkingPercent(completed.Add(1), stages), int(issuesFound.Load()))
		return nil
	})

	// Both barriers: composite scores need every phase, the roadmap
	// needs the detector output.
	if err := g.Wait(); err != nil {
		return nil, e.terminate(progress, int(issuesFound.Load()), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.terminate(progress, int(issuesFound.Load()), err)
	}

	progress.emit(models.ProgressCalculating, "", 95, int(issuesFound.Load()))

	result := e.assemble(in, results, detected, warnings)
	e.Metrics.IncRun("success")
	progress.emit(models.ProgressDone, "", 100, result.IssuesFound)
	return result, nil
}

// terminate maps an aborted run to its terminal status. Phase failures
// never reach here (they degrade to unavailable), so group errors are
// cancellations in practice.
func (e *Engine) terminate(progress *reporter, issues int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		progress.emit(models.ProgressCancelled, "", 0, issues)
		e.Metrics.IncRun("cancelled")
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	e.Metrics.IncRun("failed")
	return err
}

func (e *Engine) assemble(in *Input, phaseResults []models.PhaseResult, detected *overlap.Result, warnings []string) *models.SiteAuditResult {
	byKey := make(map[models.PhaseKey]models.PhaseResult, len(phaseResults))
	issueCount := 0
	var flatIssues []models.Issue
	var issuePhases []models.PhaseKey
	for _, result := range phaseResults {
		byKey[result.Key] = result
		issueCount += len(result.Issues)
		for _, issue := range result.Issues {
			flatIssues = append(flatIssues, issue)
			issuePhases = append(issuePhases, result.Key)
		}
	}

	clicksByURL := make(map[string]int64, len(in.Items))
	for i := range in.Items {
		clicksByURL[in.Items[i].URL] = in.Items[i].Clicks
	}

	plan := roadmap.Build(&roadmap.Inputs{
		Issues:                  flatIssues,
		IssuePhases:             issuePhases,
		Suggestions:             detected.Suggestions,
		Risks:                   detected.Risks,
		ClicksByURL:             clicksByURL,
		MeaningfulTrafficClicks: e.cfg.MeaningfulTrafficClicks,
		Phases:                  byKey,
	})

	overall := Aggregate(byKey, in.Weights, models.AllPhaseKeys())
	recommendations := e.recommendPages(in.Items, phaseResults, detected, overall)

	return &models.SiteAuditResult{
		Overall:                  overall,
		Technical:                Aggregate(byKey, in.Weights, phases.TechnicalKeys()),
		Semantic:                 Aggregate(byKey, in.Weights, phases.SemanticKeys()),
		Structural:               Aggregate(byKey, in.Weights, phases.StructuralKeys()),
		PagesAudited:             len(in.Items),
		IssuesFound:              issueCount,
		RecommendationsGenerated: plan.TotalTasks,
		Phases:                   phaseResults,
		MergeSuggestions:         detected.Suggestions,
		CannibalizationRisk:      detected.Risks,
		Roadmap:                  plan,
		PageRecommendations:      recommendations,
		Warnings:                 warnings,
	}
}

// checking covers the first 90 percent; calculating and done take the
// rest
func checkingPercent(completedStages int64, totalStages int) float64 {
	return float64(completedStages) / float64(totalStages) * 90
}
