package source

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/sheetpulse/internal/normalize"
	"github.com/xuri/excelize/v2"
)

// SheetSelector picks a worksheet by name, falling back to a zero-based
// index when Name is empty.
type SheetSelector struct {
	Name  string
	Index int
}

// ParseWorkbook reads the selected worksheet of an xlsx document. The first
// non-empty row is the header row; each later non-empty row becomes a Row
// keyed by header text. Cells under a blank header are dropped. Numbers are
// read unformatted; date and time cells keep their displayed text.
func ParseWorkbook(data []byte, sel SheetSelector) ([]normalize.Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet, err := resolveSheet(f, sel)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	// Dates are stored as serial numbers; their display text is what the
	// sheet author sees, so date-styled cells use the formatted value.
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	dates := dateStyles{f: f, known: map[int]bool{}}

	var headers []string
	result := make([]normalize.Row, 0, len(rows))
	for r, cells := range rows {
		if isBlank(cells) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(cells))
			for i, h := range cells {
				headers[i] = strings.TrimSpace(h)
			}
			continue
		}

		row := make(normalize.Row, len(cells))
		for i, cell := range cells {
			if i >= len(headers) || headers[i] == "" || cell == "" {
				continue
			}
			if _, dup := row[headers[i]]; dup {
				continue
			}
			if text, ok := dates.display(sheet, formatted, r, i); ok {
				row[headers[i]] = text
				continue
			}
			row[headers[i]] = parseValue(cell)
		}
		result = append(result, row)
	}

	return result, nil
}

func resolveSheet(f *excelize.File, sel SheetSelector) (string, error) {
	sheets := f.GetSheetList()
	if sel.Name != "" {
		for _, name := range sheets {
			if strings.EqualFold(name, sel.Name) {
				return name, nil
			}
		}
		return "", fmt.Errorf("worksheet %q not found", sel.Name)
	}
	if sel.Index < 0 || sel.Index >= len(sheets) {
		return "", fmt.Errorf("worksheet index %d out of range (%d sheets)", sel.Index, len(sheets))
	}
	return sheets[sel.Index], nil
}

// dateStyles caches whether a cell style id carries a date or time number
// format
type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

// display returns the formatted text of the cell at row r, column c when its
// style is a date or time format.
func (d dateStyles) display(sheet string, formatted [][]string, r, c int) (string, bool) {
	if r >= len(formatted) || c >= len(formatted[r]) {
		return "", false
	}
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return "", false
	}
	styleID, err := d.f.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return "", false
	}
	isDate, seen := d.known[styleID]
	if !seen {
		isDate = d.isDateStyle(styleID)
		d.known[styleID] = isDate
	}
	if !isDate {
		return "", false
	}
	return formatted[r][c], true
}

func (d dateStyles) isDateStyle(styleID int) bool {
	style, err := d.f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		// east asian locale date formats
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format renders a date or
// time. Quoted literals, escaped characters and bracketed sections such as
// colors or locales are ignored.
func isDateFormatCode(code string) bool {
	inQuote, inBracket, escaped := false, false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case strings.ContainsRune("ymdhs", ch):
			return true
		}
	}
	return false
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseValue attempts to parse a string value as a number.
// Returns int64 for integers, float64 for decimals, or the original string.
// Text without digits stays text, so tickers such as "INF" or "NAN" are
// not read as special floats.
func parseValue(s string) any {
	if !strings.ContainsAny(s, "0123456789") {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
