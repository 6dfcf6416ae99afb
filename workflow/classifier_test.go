package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/checks_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReport_Ai(t *testing.T) {
	kind, score := ClassifyReport("Writing Overview\n37% detected as AI\nPage 2")
	assert.Equal(t, models.ReportKindAi, kind)
	require.NotNil(t, score)
	assert.Equal(t, 37, *score)
}

func TestClassifyReport_Similarity(t *testing.T) {
	kind, score := ClassifyReport("12% Overall Similarity\nSources overview")
	assert.Equal(t, models.ReportKindSimilarity, kind)
	require.NotNil(t, score)
	assert.Equal(t, 12, *score)
}

func TestClassifyReport_AiPhraseWinsWhenBothPresent(t *testing.T) {
	// Both phrases on one page: the AI check runs first and the first hit wins.
	kind, score := ClassifyReport("5% detected as AI\n80% overall similarity")
	assert.Equal(t, models.ReportKindAi, kind)
	require.NotNil(t, score)
	assert.Equal(t, 5, *score)
}

func TestClassifyReport_Unknown(t *testing.T) {
	kind, score := ClassifyReport("Submission receipt\nno scores here")
	assert.Equal(t, models.ReportKindUnknown, kind)
	assert.Nil(t, score)
}

func TestClassifyReport_EmptyInput(t *testing.T) {
	kind, score := ClassifyReport("")
	assert.Equal(t, models.ReportKindUnknown, kind)
	assert.Nil(t, score)
}

func TestClassifyReport_OutOfRangeScoreDiscarded(t *testing.T) {
	// Values past 100 are dropped, not clamped; the kind stands on its own.
	kind, score := ClassifyReport("150% detected as AI")
	assert.Equal(t, models.ReportKindAi, kind)
	assert.Nil(t, score)
}

func TestClassifyReport_KindWithoutScore(t *testing.T) {
	kind, score := ClassifyReport("This text was detected as AI generated")
	assert.Equal(t, models.ReportKindAi, kind)
	assert.Nil(t, score)
}

func TestClassifyReport_BoundaryScores(t *testing.T) {
	kind, score := ClassifyReport("0% overall similarity")
	assert.Equal(t, models.ReportKindSimilarity, kind)
	require.NotNil(t, score)
	assert.Equal(t, 0, *score)

	kind, score = ClassifyReport("100% overall similarity")
	assert.Equal(t, models.ReportKindSimilarity, kind)
	require.NotNil(t, score)
	assert.Equal(t, 100, *score)
}
