// Package customers loads the two-tier customer master and resolves customer
// display names for aggregated ledger rows. Branch records are subordinate to
// head offices via the shared head_office key; the merged master is an outer
// join of the two files so either side survives without a counterpart.
package customers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyInput indicates the resolver received no rows.
	ErrEmptyInput = errors.New("customers: input contains no records")
	// ErrRowCountMismatch indicates the resolution joins changed the row
	// count, which signals a join defect rather than bad data.
	ErrRowCountMismatch = errors.New("customers: resolved row count differs from input")
)

// Branch file and head-office file column names are the external contract.
var (
	branchColumns     = []string{"head_office", "branch_number", "employee_id", "Customer_Name", "Company_Code", "country"}
	headOfficeColumns = []string{"head_office", "country", "Company_Code", "type"}
)

// Record is one row of the merged customer master. Either side of the join
// may be absent.
type Record struct {
	HeadOffice    uint32
	HasHeadOffice bool

	BranchNumber uint32
	HasBranch    bool
	EmployeeID   uint8
	CustomerName string
	CompanyCode  string
	Country      string

	HeadOfficeCountry     string
	HeadOfficeCompanyCode string
	HeadOfficeType        string
}

// Master is the read-only merged customer reference data for one run.
type Master struct {
	records []Record
	// quality warnings encountered while loading, countable for diagnostics
	warnings int
}

// Records exposes the merged rows in file order.
func (m *Master) Records() []Record { return m.records }

// Warnings reports how many data-quality findings the load produced.
func (m *Master) Warnings() int { return m.warnings }

// LoadMaster reads the branch and head-office files and outer-joins them on
// head_office. The branch file is Windows-1252 encoded, the head-office file
// ISO 8859-15; both are semicolon separated with a header row.
func LoadMaster(branchesPath, headOfficesPath string, logger *slog.Logger) (*Master, error) {
	m := &Master{}

	branches, err := readDelimited(branchesPath, charmap.Windows1252.NewDecoder(), branchColumns)
	if err != nil {
		return nil, fmt.Errorf("customers: branch master: %w", err)
	}
	headOffices, err := readDelimited(headOfficesPath, charmap.ISO8859_15.NewDecoder(), headOfficeColumns)
	if err != nil {
		return nil, fmt.Errorf("customers: head-office master: %w", err)
	}

	type headOffice struct {
		country     string
		companyCode string
		typ         string
	}
	hoByKey := make(map[uint32]headOffice, len(headOffices))
	hoOrder := make([]uint32, 0, len(headOffices))
	hoMatched := make(map[uint32]bool)
	for _, row := range headOffices {
		key, err := parseUint32(row["head_office"])
		if err != nil {
			return nil, fmt.Errorf("customers: head-office master: head_office %q: %w", row["head_office"], err)
		}
		if _, dup := hoByKey[key]; dup {
			m.warn(logger, "duplicate head office in master", slog.Uint64("head_office", uint64(key)))
			continue
		}
		hoByKey[key] = headOffice{country: row["country"], companyCode: row["Company_Code"], typ: row["type"]}
		hoOrder = append(hoOrder, key)
	}

	for _, row := range branches {
		rec := Record{
			CustomerName: row["Customer_Name"],
			CompanyCode:  row["Company_Code"],
			Country:      row["country"],
			HasBranch:    true,
		}
		if rec.BranchNumber, err = parseUint32(row["branch_number"]); err != nil {
			return nil, fmt.Errorf("customers: branch master: branch_number %q: %w", row["branch_number"], err)
		}
		if raw := strings.TrimSpace(row["employee_id"]); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				// out of the 0-255 contract range: surface, keep the
				// record with the zero default instead of truncating
				m.warn(logger, "employee id outside contract range",
					slog.String("employee_id", raw),
					slog.Uint64("branch", uint64(rec.BranchNumber)))
			} else {
				rec.EmployeeID = uint8(id)
			}
		}
		if raw := strings.TrimSpace(row["head_office"]); raw != "" {
			key, err := parseUint32(raw)
			if err != nil {
				return nil, fmt.Errorf("customers: branch master: head_office %q: %w", raw, err)
			}
			rec.HeadOffice = key
			rec.HasHeadOffice = true
			if ho, ok := hoByKey[key]; ok {
				rec.HeadOfficeCountry = ho.country
				rec.HeadOfficeCompanyCode = ho.companyCode
				rec.HeadOfficeType = ho.typ
				hoMatched[key] = true
			}
		}
		m.records = append(m.records, rec)
	}

	// head offices with no branch rows still yield a usable record
	for _, key := range hoOrder {
		if hoMatched[key] {
			continue
		}
		ho := hoByKey[key]
		m.records = append(m.records, Record{
			HeadOffice:            key,
			HasHeadOffice:         true,
			HeadOfficeCountry:     ho.country,
			HeadOfficeCompanyCode: ho.companyCode,
			HeadOfficeType:        ho.typ,
		})
	}

	return m, nil
}

func (m *Master) warn(logger *slog.Logger, msg string, args ...any) {
	m.warnings++
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// readDelimited loads a semicolon separated file through the given character
// decoder and returns one column-name keyed map per data row.
func readDelimited(path string, decoder *encoding.Decoder, required []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(decoder.Reader(f))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(required))
		for _, name := range required {
			if idx := index[name]; idx < len(record) {
				row[name] = strings.TrimSpace(record[idx])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
