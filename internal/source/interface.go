// Package source defines spreadsheet sources and the workbook parser they
// share. Sources return raw rows; normalization happens elsewhere.
package source

import (
	"context"
	"fmt"

	"github.com/newthinker/sheetpulse/internal/core"
	"github.com/newthinker/sheetpulse/internal/normalize"
)

// Source fetches raw signal rows from one spreadsheet
type Source interface {
	// ID identifies the source in sync state and records
	ID() string
	// Kind names the backend, e.g. "gsheet", "file", "s3"
	Kind() string
	// FetchRows returns the rows of the configured worksheet
	FetchRows(ctx context.Context) ([]normalize.Row, error)
}

// WorksheetFetcher is implemented by sources that can read an arbitrary
// worksheet of the same spreadsheet, such as the alerts sheet.
type WorksheetFetcher interface {
	FetchWorksheet(ctx context.Context, name string) ([]normalize.Row, error)
}

// Info describes a configured source
type Info struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// FetchError wraps a backend failure as SOURCE_FETCH_FAILED
func FetchError(id string, err error) error {
	return core.WrapError(core.ErrSourceFetch, fmt.Errorf("source %s: %w", id, err))
}
