package retrieval

import (
	"path/filepath"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"athena/internal/config"
	"athena/internal/domain/models"
)

// NormalizeFilename reduces a filename to a comparable form: extension
// stripped (last dot only), lowercased, underscores and hyphens turned
// into spaces, whitespace collapsed.
func NormalizeFilename(filename string) string {
	trimmed := strings.TrimSpace(filename)
	if trimmed == "" {
		return ""
	}
	base := strings.TrimSuffix(trimmed, filepath.Ext(trimmed))
	name := strings.ToLower(strings.Trim(base, ". "))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// matchDocumentName finds the single document the query names, if any.
// Candidates sharing no token with the query are skipped outright; the
// rest compete on partial fuzzy ratio against the lowercased query, and
// only a best ratio above the threshold narrows the scope. This lets
// "what does report.pdf say about X" bypass multi-document ambiguity.
func matchDocumentName(query string, candidates []models.Document) (models.Document, bool) {
	loweredQuery := strings.ToLower(query)
	queryTokens := tokenSet(loweredQuery)

	var (
		best      models.Document
		bestRatio int
	)
	for _, doc := range candidates {
		normalized := NormalizeFilename(doc.Filename)
		if normalized == "" {
			continue
		}
		if !sharesToken(tokenSet(normalized), queryTokens) {
			continue
		}
		ratio := fuzzy.PartialRatio(normalized, loweredQuery)
		if ratio > bestRatio {
			best = doc
			bestRatio = ratio
		}
	}

	if bestRatio > config.NameMatchThreshold {
		return best, true
	}
	return models.Document{}, false
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

func sharesToken(a, b map[string]struct{}) bool {
	for token := range a {
		if _, ok := b[token]; ok {
			return true
		}
	}
	return false
}
