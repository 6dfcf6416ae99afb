package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Essay1", "essay1"},
		{"strips one extension", "Essay1.docx", "essay1"},
		{"keeps parenthesized index", "Essay1 (1)", "essay1 (1)"},
		{"collapses whitespace", "My   Final\tEssay", "my final essay"},
		{"trims ends", "  Essay1  ", "essay1"},
		{"extension after index is kept", "Essay1 (1).pdf", "essay1 (1)"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeName(tc.in))
		})
	}
}

func TestNamesEquivalent(t *testing.T) {
	assert.True(t, namesEquivalent("Essay1.docx", "essay1"))
	assert.True(t, namesEquivalent("Essay1 (1)", "Essay1"), "substring tolerance")
	assert.True(t, namesEquivalent("Essay1", "Essay1 (1)"), "substring works both ways")
	assert.False(t, namesEquivalent("Essay1", "Essay2"))
	assert.False(t, namesEquivalent("", "Essay1"), "empty side never matches")
}

func TestExtractIdentifier_LabeledFieldWinsFirst(t *testing.T) {
	text := "Turnitin Similarity Report\nDocument: My Final Essay.docx\nSome other line"
	id, ok := ExtractIdentifier(text)
	require.True(t, ok)
	assert.Equal(t, "my final essay", id)
}

func TestExtractIdentifier_LabelIsCaseInsensitive(t *testing.T) {
	id, ok := ExtractIdentifier("TITLE:   Climate Change Study  ")
	require.True(t, ok)
	assert.Equal(t, "climate change study", id)
}

func TestExtractIdentifier_FileNameToken(t *testing.T) {
	// No labeled field; the token scan should skip template noise and pick the
	// first filename-shaped candidate.
	text := "Similarity Report for submission\nEssay draft_v2.docx was scanned"
	id, ok := ExtractIdentifier(text)
	require.True(t, ok)
	assert.Equal(t, "essay draft_v2", id)
}

func TestExtractIdentifier_StopWordsRejected(t *testing.T) {
	for _, line := range []string{
		"Page 2 of 14",
		"Similarity Index",
		"AI Writing Overview",
		"Detected as machine written",
		"Overall result",
		"Report generated today",
		"Detection summary",
		"Turnitin LLC",
	} {
		_, ok := ExtractIdentifier(line)
		assert.False(t, ok, "stop-worded line %q must not yield an identifier", line)
	}
}

func TestExtractIdentifier_TokenScanSkipsPercentPrefix(t *testing.T) {
	// "12" is too short for the token scan; the next surviving token wins.
	text := "\n\n12% match found\nFinal Thesis Draft\n"
	id, ok := ExtractIdentifier(text)
	require.True(t, ok)
	assert.Equal(t, "match found", id)
}

func TestExtractIdentifier_FirstSubstantialLineFallback(t *testing.T) {
	// A non-Latin title produces no filename-shaped token, so the line scan
	// is the heuristic that finally yields a candidate.
	id, ok := ExtractIdentifier("Дипломная работа Иванова\nстраница 1")
	require.True(t, ok)
	assert.Equal(t, "дипломная работа иванова", id)
}

func TestExtractIdentifier_LengthBounds(t *testing.T) {
	_, ok := ExtractIdentifier("ab")
	assert.False(t, ok, "candidates under 3 chars are rejected")

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	_, ok = ExtractIdentifier(string(long))
	assert.False(t, ok, "candidates over 100 chars are rejected")
}

func TestExtractIdentifier_EmptyText(t *testing.T) {
	_, ok := ExtractIdentifier("")
	assert.False(t, ok)
}
