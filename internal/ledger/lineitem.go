package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ChequeAccount is the offsetting account used for cheque clearing postings.
// Items offset against it never fall back to the offsetting account as a
// customer identity.
const ChequeAccount uint64 = 48505240

var (
	// ErrEmptyInput indicates a stage received no records to work on.
	ErrEmptyInput = errors.New("ledger: input contains no records")
)

// LineItem is a single posting from the general ledger export.
type LineItem struct {
	Currency              string
	CompanyCode           string
	GLAccount             uint64
	Year                  uint16
	Period                uint8
	DocumentType          string
	OffsettingAccount     uint64
	OffsettingAccountType string
	LocalAmount           decimal.Decimal
	Text                  string

	// CustomerNumber is derived by the extractor and stays zero with
	// HasCustomer false when no identity could be established.
	CustomerNumber uint32
	HasCustomer    bool
}

// DecodeError describes a data line that failed field coercion.
type DecodeError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ledger: line %d: field %s: cannot decode %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
