package grounding

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Extract returns the snapshot records whose symbol appears in answer as a
// whole token, in snapshot order and capped at limit. Matching ignores
// case. A '.' or '-' between alphanumerics joins a token, so "BRK" does not
// match inside "BRK.B". When nothing matches, the first limit candidates
// are returned instead.
func Extract(answer string, snap *core.Snapshot, candidates []core.StockRecord, limit int) []core.StockRecord {
	upper := strings.ToUpper(answer)

	found := make(map[string]bool)
	result := make([]core.StockRecord, 0)
	if snap != nil {
		for _, rec := range snap.Records {
			if limit > 0 && len(result) >= limit {
				break
			}
			sym := strings.ToUpper(strings.TrimSpace(rec.Symbol))
			if sym == "" {
				continue
			}
			hit, seen := found[sym]
			if !seen {
				hit = containsToken(upper, sym)
				found[sym] = hit
			}
			if hit {
				result = append(result, rec)
			}
		}
	}
	if len(result) > 0 {
		return result
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return append(result, candidates...)
}

// containsToken reports whether sym occurs in text bounded by token edges
func containsToken(text, sym string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], sym)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(sym)
		if leftEdge(text, start) && rightEdge(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isJoiner(r rune) bool {
	return r == '.' || r == '-'
}

// leftEdge reports whether a token may start at i
func leftEdge(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, size := utf8.DecodeLastRuneInString(text[:i])
	if isAlnum(r) {
		return false
	}
	if isJoiner(r) && i-size > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:i-size])
		return !isAlnum(prev)
	}
	return true
}

// rightEdge reports whether a token may end at i
func rightEdge(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, size := utf8.DecodeRuneInString(text[i:])
	if isAlnum(r) {
		return false
	}
	if isJoiner(r) && i+size < len(text) {
		next, _ := utf8.DecodeRuneInString(text[i+size:])
		return !isAlnum(next)
	}
	return true
}
