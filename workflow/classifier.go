package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/checks_backend/models"
)

var (
	aiScorePattern         = regexp.MustCompile(`(\d{1,3})%\s*detected\s*as\s*ai`)
	similarityScorePattern = regexp.MustCompile(`(\d{1,3})%\s*overall\s*similarity`)
)

// ClassifyReport decides the report kind from page-2 text and extracts the
// percentage when present. The two report templates come from a single
// upstream tool with a stable vocabulary, so two fixed phrases are enough;
// the AI phrase is checked first and the first hit wins.
func ClassifyReport(pageText string) (models.ReportKind, *int) {
	if pageText == "" {
		return models.ReportKindUnknown, nil
	}

	lower := strings.ToLower(pageText)
	if strings.Contains(lower, "detected as ai") {
		return models.ReportKindAi, extractBoundedScore(aiScorePattern, lower)
	}
	if strings.Contains(lower, "overall similarity") {
		return models.ReportKindSimilarity, extractBoundedScore(similarityScorePattern, lower)
	}
	return models.ReportKindUnknown, nil
}

// extractBoundedScore returns nil for anything outside [0,100]: an out-of-range
// value is discarded, never clamped.
func extractBoundedScore(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 0 || v > 100 {
		return nil
	}
	return &v
}
