// Package export defines the boundary to the system that produces the raw
// ledger export. The transform stages downstream are pure; everything that
// can transiently fail lives behind this boundary.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrConnectionLost indicates the session to the source system dropped
	// mid-export. This is the only condition worth retrying.
	ErrConnectionLost = errors.New("export: connection to source system lost")
	// ErrSessionClosed indicates an export was attempted on a closed session.
	ErrSessionClosed = errors.New("export: session is closed")
	// ErrNoData indicates the source produced no export for the request.
	ErrNoData = errors.New("export: no data for request")
)

// Session is an explicit handle to the source system with an open/close
// lifecycle. It is passed into every export call rather than held as
// process-wide state.
type Session struct {
	system string
	closed bool
}

// Open establishes a session against the named source system.
func Open(system string) (*Session, error) {
	if system == "" {
		return nil, errors.New("export: source system must be named")
	}
	return &Session{system: system}, nil
}

// System reports which source system the session talks to.
func (s *Session) System() string { return s.system }

// Close releases the session. Further exports through it fail.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

func (s *Session) active() bool { return s != nil && !s.closed }

// Request describes one per-country export: which company code and accounts
// to select, the posting date range, and the display layout to apply.
type Request struct {
	CompanyCode string
	Accounts    []uint64
	From        time.Time
	To          time.Time
	Layout      string
}

// Exporter produces the raw export text for a request.
type Exporter interface {
	Export(ctx context.Context, sess *Session, req Request) (string, error)
}

// FileExporter serves pre-exported text files from a directory, one file per
// company code. It stands in for the terminal-automation producer in local
// and test runs.
type FileExporter struct {
	Dir string
}

// Export reads <dir>/<company code>.txt.
func (e FileExporter) Export(ctx context.Context, sess *Session, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !sess.active() {
		return "", ErrSessionClosed
	}
	path := filepath.Join(e.Dir, req.CompanyCode+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: company code %s", ErrNoData, req.CompanyCode)
		}
		return "", err
	}
	return string(data), nil
}
