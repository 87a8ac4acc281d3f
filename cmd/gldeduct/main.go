// Command gldeduct runs the monthly deduction report pipeline: it reads the
// per-country ledger exports, derives customer identities, aggregates
// deductions, resolves customer names against the master and writes the
// report workbook.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gldeductions/gldeductions/internal/app"
	"github.com/gldeductions/gldeductions/internal/customers"
	"github.com/gldeductions/gldeductions/internal/export"
	"github.com/gldeductions/gldeductions/internal/pipeline"
	"github.com/gldeductions/gldeductions/internal/report"
)

// Exit codes follow the run phases: configuration, processing, reporting.
const (
	exitOK = iota
	exitConfig
	exitProcessing
	exitReporting
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	env, err := app.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading environment:", err)
		return exitConfig
	}
	logger := app.NewLogger(env).With(slog.String("run_id", uuid.NewString()))

	cfg, err := app.LoadConfig(env.ConfigPath)
	if err != nil {
		logger.Error("loading configuration", slog.Any("error", err))
		return exitConfig
	}
	active, inactive, err := app.LoadRules(env.RulesPath)
	if err != nil {
		logger.Error("loading rules", slog.Any("error", err))
		return exitConfig
	}
	for _, rule := range inactive {
		logger.Warn("processing disabled for country", slog.String("country", rule.Country))
	}
	if len(active) == 0 {
		logger.Warn("no active country found, nothing to do")
		return exitOK
	}

	master, err := customers.LoadMaster(env.BranchesPath, env.HeadOfficesPath, logger)
	if err != nil {
		logger.Error("loading customer master", slog.Any("error", err))
		return exitConfig
	}
	if master.Warnings() > 0 {
		logger.Warn("customer master loaded with findings", slog.Int("count", master.Warnings()))
	}

	sess, err := export.Open(cfg.Source.System)
	if err != nil {
		logger.Error("opening export session", slog.Any("error", err))
		return exitConfig
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("closing export session", slog.Any("error", err))
		}
	}()

	p := &pipeline.Pipeline{
		Exporter: export.RetryingExporter{
			Next:   export.FileExporter{Dir: env.ExportDir},
			Policy: export.RetryPolicy{MaxAttempts: 3, Logger: logger},
		},
		Resolver:    customers.NewResolver(master, logger),
		Logger:      logger,
		Layout:      cfg.Source.Layout,
		Concurrency: len(active),
	}

	now := time.Now()
	from, to := pipeline.PreviousMonth(now)
	result, err := p.Run(context.Background(), sess, active, from, to)
	if err != nil {
		logger.Error("processing failed", slog.Any("error", err))
		return exitProcessing
	}
	logger.Info("processing finished",
		slog.Int("line_items", len(result.Detail)),
		slog.Int("aggregated_rows", len(result.Aggregated)))

	if err := os.MkdirAll(env.OutputDir, 0o755); err != nil {
		logger.Error("creating output directory", slog.Any("error", err))
		return exitReporting
	}
	path := filepath.Join(env.OutputDir, cfg.Report.FileName(now))
	if err := report.WriteWorkbook(path, result.Detail, result.Aggregated, cfg.Report); err != nil {
		logger.Error("writing report", slog.Any("error", err))
		return exitReporting
	}
	logger.Info("report written", slog.String("path", path))
	return exitOK
}
