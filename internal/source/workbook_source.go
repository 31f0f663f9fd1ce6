package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/sheetpulse/internal/normalize"
	"github.com/newthinker/sheetpulse/internal/source/blob"
)

// Workbook reads xlsx documents from a blob store. A path ending in "/"
// names a prefix: every .xlsx under it is read in lexical order and the
// rows are concatenated.
type Workbook struct {
	id    string
	kind  string
	store blob.Store
	path  string
	sheet SheetSelector
}

// NewWorkbook creates a blob-backed workbook source
func NewWorkbook(id, kind string, store blob.Store, path string, sheet SheetSelector) *Workbook {
	return &Workbook{
		id:    id,
		kind:  kind,
		store: store,
		path:  path,
		sheet: sheet,
	}
}

func (w *Workbook) ID() string {
	return w.id
}

func (w *Workbook) Kind() string {
	return w.kind
}

func (w *Workbook) FetchRows(ctx context.Context) ([]normalize.Row, error) {
	return w.fetch(ctx, w.sheet)
}

// FetchWorksheet reads a named worksheet from the same document(s)
func (w *Workbook) FetchWorksheet(ctx context.Context, name string) ([]normalize.Row, error) {
	return w.fetch(ctx, SheetSelector{Name: name})
}

func (w *Workbook) fetch(ctx context.Context, sel SheetSelector) ([]normalize.Row, error) {
	paths, err := w.documents(ctx)
	if err != nil {
		return nil, FetchError(w.id, err)
	}

	var rows []normalize.Row
	for _, p := range paths {
		data, err := w.store.Read(ctx, p)
		if err != nil {
			return nil, FetchError(w.id, fmt.Errorf("reading %s: %w", p, err))
		}
		parsed, err := ParseWorkbook(data, sel)
		if err != nil {
			return nil, FetchError(w.id, fmt.Errorf("parsing %s: %w", p, err))
		}
		rows = append(rows, parsed...)
	}
	return rows, nil
}

func (w *Workbook) documents(ctx context.Context) ([]string, error) {
	if !strings.HasSuffix(w.path, "/") {
		return []string{w.path}, nil
	}

	all, err := w.store.List(ctx, w.path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", w.path, err)
	}
	var paths []string
	for _, p := range all {
		if strings.EqualFold(path.Ext(p), ".xlsx") {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no workbooks under %s", w.path)
	}
	return paths, nil
}
