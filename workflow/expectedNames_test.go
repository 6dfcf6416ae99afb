package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/checks_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedReportNames(t *testing.T) {
	pdf := ExpectedReportNames("Essay1.pdf", true)
	assert.Equal(t, "Essay1.pdf (1)", pdf.Similarity)
	assert.Equal(t, "Essay1.pdf (2)", pdf.Ai)

	converted := ExpectedReportNames("Essay1", false)
	assert.Equal(t, "Essay1", converted.Similarity)
	assert.Equal(t, "Essay1 (1)", converted.Ai)
}

// Matching the exact derived name back against the same document must succeed
// for the corresponding kind, for either value of the PDF flag.
func TestMatchDocument_DerivationRoundTrip(t *testing.T) {
	for _, originalIsPdf := range []bool{true, false} {
		doc := &models.Document{ID: 7, FileName: "Thesis Draft.docx", OriginalIsPdf: originalIsPdf}
		pool := []*models.Document{doc}
		names := ExpectedReportNames(doc.FileName, originalIsPdf)

		for kind, expected := range map[models.ReportKind]string{
			models.ReportKindSimilarity: names.Similarity,
			models.ReportKindAi:         names.Ai,
		} {
			matched, ok := MatchDocument(NormalizeName(expected), kind, pool)
			require.True(t, ok, "kind=%s pdf=%v", kind, originalIsPdf)
			assert.Equal(t, 7, matched.ID)
		}
	}
}

func TestMatchDocument_FallsBackToDeclaredFileName(t *testing.T) {
	// Scanner suffixes on a converted source: "Essay1 (1)" is not the expected
	// similarity name "Essay1", but the raw-name substring test still lands it.
	doc := &models.Document{ID: 3, FileName: "Essay1.docx", OriginalIsPdf: false}
	matched, ok := MatchDocument("essay1 (1)", models.ReportKindSimilarity, []*models.Document{doc})
	require.True(t, ok)
	assert.Equal(t, 3, matched.ID)
}

func TestMatchDocument_FirstMatchWins(t *testing.T) {
	// Two documents both satisfy the substring rule; pool iteration order
	// decides and there is no ranking pass.
	first := &models.Document{ID: 1, FileName: "Report Essay", OriginalIsPdf: false}
	second := &models.Document{ID: 2, FileName: "Essay", OriginalIsPdf: false}
	matched, ok := MatchDocument("essay", models.ReportKindSimilarity, []*models.Document{first, second})
	require.True(t, ok)
	assert.Equal(t, 1, matched.ID)
}

func TestMatchDocument_NoMatch(t *testing.T) {
	doc := &models.Document{ID: 1, FileName: "Biology Lab", OriginalIsPdf: true}
	_, ok := MatchDocument("chemistry notes", models.ReportKindAi, []*models.Document{doc})
	assert.False(t, ok)
}
