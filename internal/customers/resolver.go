package customers

import (
	"log/slog"

	"github.com/gldeductions/gldeductions/internal/ledger"
)

// NamedRow is an aggregated deduction row with the resolved customer name
// attached. CustomerName stays empty when neither pass found a match.
type NamedRow struct {
	ledger.AggregatedRow
	CustomerName string
}

type branchKey struct {
	number      uint32
	companyCode string
}

// Resolver attaches customer names to aggregated rows using two lookup
// passes over the merged master: branch level first, head office second.
type Resolver struct {
	byBranch     map[branchKey]string
	byHeadOffice map[uint32]string
	logger       *slog.Logger
}

// NewResolver builds the lookup maps from the merged master. Conflicting
// duplicate keys keep the first name seen in master order so that resolution
// can never fan out; conflicts are logged as data-quality findings.
func NewResolver(master *Master, logger *slog.Logger) *Resolver {
	r := &Resolver{
		byBranch:     make(map[branchKey]string),
		byHeadOffice: make(map[uint32]string),
		logger:       logger,
	}
	for _, rec := range master.Records() {
		if rec.HasBranch && rec.CustomerName != "" && rec.CompanyCode != "" {
			key := branchKey{number: rec.BranchNumber, companyCode: rec.CompanyCode}
			if prev, ok := r.byBranch[key]; ok {
				if prev != rec.CustomerName && logger != nil {
					logger.Warn("conflicting branch names in master",
						slog.Uint64("branch", uint64(key.number)),
						slog.String("company_code", key.companyCode))
				}
			} else {
				r.byBranch[key] = rec.CustomerName
			}
		}
		if rec.HasHeadOffice && rec.CustomerName != "" {
			if prev, ok := r.byHeadOffice[rec.HeadOffice]; ok {
				if prev != rec.CustomerName && logger != nil {
					logger.Warn("conflicting head-office names in master",
						slog.Uint64("head_office", uint64(rec.HeadOffice)))
				}
			} else {
				r.byHeadOffice[rec.HeadOffice] = rec.CustomerName
			}
		}
	}
	return r
}

// Resolve attaches a customer name to every aggregated row. A branch-level
// match always wins over a head-office match. Rows with customer number zero
// never match either pass and keep an empty name. The output always has
// exactly as many rows as the input; anything else is a fatal consistency
// error.
func (r *Resolver) Resolve(rows []ledger.AggregatedRow) ([]NamedRow, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	resolved := make([]NamedRow, 0, len(rows))
	for _, row := range rows {
		name := r.byBranch[branchKey{number: row.CustomerNumber, companyCode: row.CompanyCode}]
		if name == "" {
			name = r.byHeadOffice[row.CustomerNumber]
		}
		resolved = append(resolved, NamedRow{AggregatedRow: row, CustomerName: name})
	}
	if len(resolved) != len(rows) {
		return nil, ErrRowCountMismatch
	}
	return resolved, nil
}
