package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/topicforge/go-site-audit/audit"
	"github.com/topicforge/go-site-audit/config"
	"github.com/topicforge/go-site-audit/export"
	"github.com/topicforge/go-site-audit/models"
)

// auditRequest is the JSON document a caller hands to the binary.
type auditRequest struct {
	Items       []models.InventoryItem  `json:"items"`
	Topics      []models.EnrichedTopic  `json:"topics"`
	Triples     []models.SemanticTriple `json:"triples"`
	Weights     config.AuditWeights     `json:"weights,omitempty"`
	WebsiteType models.WebsiteType      `json:"website_type,omitempty"`
}

func main() {
	inputFile := flag.String("input", "", "Path to the audit request JSON (required)")
	outputFile := flag.String("output", "", "Path for the result JSON (default stdout)")
	csvFile := flag.String("csv", "", "Optional path for the roadmap CSV")
	workers := flag.Int("workers", 0, "Override worker pool size")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.MaxWorkers = *workers
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	cfg.Verbose = *verbose

	setupLogging(cfg)

	if *inputFile == "" {
		slog.Error("missing required -input flag")
		os.Exit(1)
	}
	request, err := readRequest(*inputFile)
	if err != nil {
		slog.Error("reading audit request", slog.Any("error", err))
		os.Exit(1)
	}
	if request.Weights == nil {
		request.Weights = config.DefaultWeights()
	}

	engine, err := audit.NewEngine(cfg)
	if err != nil {
		slog.Error("initialising engine", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(engine.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	progress := make(chan models.AuditProgress, cfg.ProgressBuffer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range progress {
			slog.Info("audit progress",
				slog.String("phase", string(event.Phase)),
				slog.String("category", event.CurrentCategory),
				slog.Int("percent", int(event.PercentComplete)),
				slog.Int("issues", event.IssuesFound),
			)
		}
	}()

	slog.Info("starting audit",
		slog.Int("pages", len(request.Items)),
		slog.Int("topics", len(request.Topics)),
		slog.Int("triples", len(request.Triples)),
		slog.Int("workers", cfg.MaxWorkers),
	)

	start := time.Now()
	result, err := engine.Run(ctx, &audit.Input{
		Items:       request.Items,
		Topics:      request.Topics,
		Triples:     request.Triples,
		Weights:     request.Weights,
		WebsiteType: request.WebsiteType,
		Progress:    progress,
	})
	wg.Wait()
	if err != nil {
		if errors.Is(err, audit.ErrCancelled) {
			slog.Info("audit cancelled")
			os.Exit(2)
		}
		slog.Error("audit failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writeResult(*outputFile, *csvFile, result); err != nil {
		slog.Error("writing result", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(start))
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		handler = slog.NewJSONHandler(rotated, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func readRequest(path string) (*auditRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var request auditRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &request, nil
}

func writeResult(jsonPath, csvPath string, result *models.SiteAuditResult) error {
	if jsonPath == "" {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if _, err := os.Stdout.Write(append(payload, '\n')); err != nil {
			return err
		}
		if csvPath == "" {
			return nil
		}
	}

	var writer export.Writer
	var err error
	switch {
	case jsonPath != "" && csvPath != "":
		writer, err = export.NewDualWriter(jsonPath, csvPath)
	case jsonPath != "":
		writer, err = export.NewJSONWriter(jsonPath)
	default:
		writer, err = export.NewCSVWriter(csvPath)
	}
	if err != nil {
		return err
	}
	if err := writer.Write(result); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func printSummary(result *models.SiteAuditResult, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(os.Stderr, "\n"+separator)
	fmt.Fprintln(os.Stderr, "Audit complete")
	fmt.Fprintf(os.Stderr, "  Pages audited:   %d\n", result.PagesAudited)
	if result.Overall.Available {
		fmt.Fprintf(os.Stderr, "  Overall score:   %.1f\n", result.Overall.Value)
	} else {
		fmt.Fprintf(os.Stderr, "  Overall score:   unavailable (%s)\n", result.Overall.Reason)
	}
	fmt.Fprintf(os.Stderr, "  Issues found:    %d\n", result.IssuesFound)
	fmt.Fprintf(os.Stderr, "  Merge targets:   %d\n", len(result.MergeSuggestions))
	fmt.Fprintf(os.Stderr, "  Cannibalization: %d\n", len(result.CannibalizationRisk))
	fmt.Fprintf(os.Stderr, "  Roadmap tasks:   %d\n", result.Roadmap.TotalTasks)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "  Warning:         %s\n", warning)
	}
	fmt.Fprintf(os.Stderr, "  Duration:        %v\n", duration)
	fmt.Fprintln(os.Stderr, separator)
}
