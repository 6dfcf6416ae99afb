package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPageText_EmptyBuffer(t *testing.T) {
	assert.Equal(t, "", ExtractPageText(nil, 1))
	assert.Equal(t, "", ExtractPageText([]byte{}, 1))
}

func TestExtractPageText_NotAPdf(t *testing.T) {
	assert.Equal(t, "", ExtractPageText([]byte("plain text, not a pdf"), 1))
}

func TestExtractPageText_TruncatedHeader(t *testing.T) {
	// A valid header with nothing behind it must not panic out of the call.
	assert.Equal(t, "", ExtractPageText([]byte("%PDF-1.7\n"), 1))
}

func TestExtractPageText_PageOutOfRange(t *testing.T) {
	assert.Equal(t, "", ExtractPageText([]byte("garbage"), 9000))
}

func TestExtractPageText_PageBelowOne(t *testing.T) {
	assert.Equal(t, "", ExtractPageText([]byte("%PDF-1.7\n"), 0))
	assert.Equal(t, "", ExtractPageText([]byte("%PDF-1.7\n"), -3))
}
