package ledger

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// A data line starts with a pipe followed by a three-letter currency code and
// ends with a pipe. Everything else in the export (headers, separators, page
// footers, totals) does not match and is discarded.
var dataLineRx = regexp.MustCompile(`(?m)^\|\s*\w{3}\s*\|.*\|$`)

const fieldCount = 10

// Field positions within a data line, in export layout order.
const (
	fldCurrency = iota
	fldCompanyCode
	fldGLAccount
	fldYear
	fldPeriod
	fldDocumentType
	fldOffsettingAccount
	fldOffsettingAccountType
	fldLocalAmount
	fldText
)

var fieldNames = [fieldCount]string{
	"Currency",
	"Company_Code",
	"GL_Account",
	"Year",
	"Period",
	"Document_Type",
	"Offsetting_Account",
	"Offsetting_Account_Type",
	"LC_Amount",
	"Text",
}

// Parse converts a raw ledger export into line items. Any data line that
// fails coercion fails the whole batch with a DecodeError naming the
// offending field.
func Parse(raw string) ([]LineItem, error) {
	lines := dataLineRx.FindAllString(raw, -1)
	items := make([]LineItem, 0, len(lines))
	pool := make(internPool)
	for n, line := range lines {
		item, err := parseLine(line, n+1, pool)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseTolerant behaves like Parse but reports and skips malformed data lines
// instead of failing the batch. It returns the surviving items and the number
// of lines skipped.
func ParseTolerant(raw string, logger *slog.Logger) ([]LineItem, int, error) {
	lines := dataLineRx.FindAllString(raw, -1)
	items := make([]LineItem, 0, len(lines))
	pool := make(internPool)
	skipped := 0
	for n, line := range lines {
		item, err := parseLine(line, n+1, pool)
		if err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping malformed data line", slog.Int("line", n+1), slog.Any("error", err))
			}
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

func parseLine(line string, n int, pool internPool) (LineItem, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	// Double quotes are user noise inside free-text fields, never delimiters.
	cleaned := strings.ReplaceAll(trimmed, `"`, "")

	fields := strings.Split(cleaned, "|")
	if len(fields) != fieldCount {
		return LineItem{}, &DecodeError{
			Line:  n,
			Field: "record",
			Value: line,
			Err:   errFieldCount(len(fields)),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var item LineItem
	var err error

	item.Currency = pool.intern(fields[fldCurrency])
	item.CompanyCode = pool.intern(fields[fldCompanyCode])
	item.DocumentType = pool.intern(fields[fldDocumentType])
	item.OffsettingAccountType = pool.intern(fields[fldOffsettingAccountType])
	item.Text = fields[fldText]

	if item.GLAccount, err = strconv.ParseUint(fields[fldGLAccount], 10, 64); err != nil {
		return LineItem{}, decodeErr(n, fldGLAccount, fields, err)
	}
	year, err := strconv.ParseUint(fields[fldYear], 10, 16)
	if err != nil {
		return LineItem{}, decodeErr(n, fldYear, fields, err)
	}
	item.Year = uint16(year)
	// Period range 1-12 is not validated here; out-of-range values pass
	// through to keep the parser a faithful view of the export.
	period, err := strconv.ParseUint(fields[fldPeriod], 10, 8)
	if err != nil {
		return LineItem{}, decodeErr(n, fldPeriod, fields, err)
	}
	item.Period = uint8(period)
	if item.OffsettingAccount, err = strconv.ParseUint(fields[fldOffsettingAccount], 10, 64); err != nil {
		return LineItem{}, decodeErr(n, fldOffsettingAccount, fields, err)
	}
	if item.LocalAmount, err = parseAmount(fields[fldLocalAmount]); err != nil {
		return LineItem{}, decodeErr(n, fldLocalAmount, fields, err)
	}
	return item, nil
}

// parseAmount converts an amount in the export locale, where '.' separates
// thousands, ',' marks the decimal point and a trailing '-' negates.
func parseAmount(s string) (decimal.Decimal, error) {
	v := strings.ReplaceAll(s, ".", "")
	v = strings.ReplaceAll(v, ",", ".")
	if strings.HasSuffix(v, "-") {
		v = "-" + strings.TrimSuffix(v, "-")
	}
	return decimal.NewFromString(v)
}

func decodeErr(line, field int, fields []string, err error) *DecodeError {
	return &DecodeError{Line: line, Field: fieldNames[field], Value: fields[field], Err: err}
}

type errFieldCount int

func (e errFieldCount) Error() string {
	return "expected " + strconv.Itoa(fieldCount) + " fields, got " + strconv.Itoa(int(e))
}

// internPool deduplicates categorical code values so that repeated company,
// currency and document type codes share one backing string per batch. The
// label sets are determined by upstream data and stay open-ended.
type internPool map[string]string

func (p internPool) intern(s string) string {
	if v, ok := p[s]; ok {
		return v
	}
	p[s] = s
	return s
}
