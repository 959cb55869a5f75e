// Package filter maps raw filter names found in frame headers to AstroBin
// equipment catalog identifiers.
package filter

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Normalizer resolves a raw filter token to its catalog identifier. When no
// mapping applies the raw token is passed through unchanged so that unknown
// filters remain visible in the output instead of being silently merged.
type Normalizer interface {
	Normalize(raw string) string
}

// catalogTable holds the built-in AstroBin filter identifiers for the common
// single-letter filter names used by capture software.
var catalogTable = map[string]int{
	"R": 28943,
	"L": 25576,
	"G": 28944,
	"B": 28945,
	"H": 4410,
	"O": 4415,
	"S": 4420,
}

// catalogNormalizer implements Normalizer with a two-stage lookup: the exact
// token first, then the token's first character. User overrides take
// precedence over the built-in table at both stages.
type catalogNormalizer struct {
	overrides map[string]int
	logger    *slog.Logger
}

// NewCatalogNormalizer creates a Normalizer backed by the built-in catalog
// table, optionally extended by user-supplied overrides keyed by raw token.
// Override keys match case-insensitively: viper lowercases map keys read
// from config files, and header tokens are typically uppercase, so the keys
// are folded to upper case here and at lookup time. A nil loggerHandler
// disables debug logging.
func NewCatalogNormalizer(overrides map[string]int, loggerHandler slog.Handler) Normalizer {
	var logger *slog.Logger
	if loggerHandler != nil {
		logger = slog.New(loggerHandler).With(slog.String("component", "filternorm"))
	}
	ov := make(map[string]int, len(overrides))
	for raw, id := range overrides {
		ov[strings.ToUpper(raw)] = id
	}
	return &catalogNormalizer{overrides: ov, logger: logger}
}

func (n *catalogNormalizer) Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	if id, ok := n.lookup(raw); ok {
		return strconv.Itoa(id)
	}
	// Fall back to the leading character so names like "Ha" or "OIII"
	// still resolve to their narrowband identifiers.
	r, _ := utf8.DecodeRuneInString(raw)
	if id, ok := n.lookup(string(r)); ok {
		return strconv.Itoa(id)
	}
	if n.logger != nil {
		n.logger.Debug("No catalog mapping for filter, passing through", slog.String("filter", raw))
	}
	return raw
}

func (n *catalogNormalizer) lookup(token string) (int, bool) {
	if id, ok := n.overrides[strings.ToUpper(token)]; ok {
		return id, true
	}
	id, ok := catalogTable[token]
	return id, ok
}
