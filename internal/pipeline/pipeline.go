// Package pipeline drives the forward-only transformation run: export per
// country, parse, compact, aggregate, resolve.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gldeductions/gldeductions/internal/app"
	"github.com/gldeductions/gldeductions/internal/customers"
	"github.com/gldeductions/gldeductions/internal/export"
	"github.com/gldeductions/gldeductions/internal/ledger"
)

// Result carries the two finished tables handed to the report sink.
type Result struct {
	// Detail is the compacted line-item table with derived customer numbers.
	Detail []ledger.LineItem
	// Aggregated is the deduction pivot with resolved customer names.
	Aggregated []customers.NamedRow
}

// Pipeline wires the stages together. Batches are independent, so parsing
// may fan out up to Concurrency goroutines; fan-in is by rule index, which
// keeps the concatenation order deterministic.
type Pipeline struct {
	Exporter export.Exporter
	Resolver *customers.Resolver
	Logger   *slog.Logger
	Layout   string

	// Concurrency bounds parallel per-country exports; zero or one runs
	// sequentially.
	Concurrency int
}

// Run executes the whole transformation for the given country rules and
// posting date range.
func (p *Pipeline) Run(ctx context.Context, sess *export.Session, rules []app.CountryRule, from, to time.Time) (*Result, error) {
	if len(rules) == 0 {
		return nil, ledger.ErrEmptyInput
	}

	batches := make([][]ledger.LineItem, len(rules))
	group, gctx := errgroup.WithContext(ctx)
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	group.SetLimit(limit)

	for i, rule := range rules {
		group.Go(func() error {
			p.log().Info("exporting country data",
				slog.String("country", rule.Country),
				slog.String("company_code", rule.CompanyCode))
			raw, err := p.Exporter.Export(gctx, sess, export.Request{
				CompanyCode: rule.CompanyCode,
				Accounts:    rule.Accounts,
				From:        from,
				To:          to,
				Layout:      p.Layout,
			})
			if err != nil {
				return fmt.Errorf("exporting %s: %w", rule.CompanyCode, err)
			}
			items, err := ledger.Parse(raw)
			if err != nil {
				return fmt.Errorf("converting %s: %w", rule.CompanyCode, err)
			}
			batches[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	p.log().Info("preprocessing exported data")
	detail, err := ledger.Compact(batches)
	if err != nil {
		return nil, err
	}

	p.log().Info("aggregating deductions", slog.Int("items", len(detail)))
	aggregated, err := ledger.Aggregate(detail)
	if err != nil {
		return nil, err
	}

	p.log().Info("assigning customer names", slog.Int("rows", len(aggregated)))
	named, err := p.Resolver.Resolve(aggregated)
	if err != nil {
		return nil, err
	}

	return &Result{Detail: detail, Aggregated: named}, nil
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// PreviousMonth returns the first and last day of the calendar month before
// the given time, the default posting date range of a monthly run.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := firstOfThis.AddDate(0, 0, -1)
	first := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, now.Location())
	return first, last
}
