package workflow

import (
	"bitbucket.org/mmdatafocus/checks_backend/models"
)

// ExpectedNames holds the two identifiers the scanner is expected to have
// given a document's reports.
type ExpectedNames struct {
	Similarity string
	Ai         string
}

// ExpectedReportNames derives the scanner's output names from the declared
// file name. The scanner converts non-PDF sources to PDF before scanning,
// which shifts the index suffix:
//
//	originalIsPdf=true:  similarity "name (1)", ai "name (2)"
//	originalIsPdf=false: similarity "name",     ai "name (1)"
func ExpectedReportNames(declaredFileName string, originalIsPdf bool) ExpectedNames {
	if originalIsPdf {
		return ExpectedNames{
			Similarity: declaredFileName + " (1)",
			Ai:         declaredFileName + " (2)",
		}
	}
	return ExpectedNames{
		Similarity: declaredFileName,
		Ai:         declaredFileName + " (1)",
	}
}

// ForKind picks the expected name for one report kind.
func (n ExpectedNames) ForKind(kind models.ReportKind) string {
	if kind == models.ReportKindAi {
		return n.Ai
	}
	return n.Similarity
}

// MatchDocument scans the open pool in iteration order and returns the first
// document whose expected name for the report kind, or raw declared file
// name, is equivalent to the identifier. There is no scoring or ranking among
// candidates: first match wins, so outcomes stay deterministic for a fixed
// pool order.
func MatchDocument(identifier string, kind models.ReportKind, pool []*models.Document) (*models.Document, bool) {
	for _, doc := range pool {
		expected := ExpectedReportNames(doc.FileName, doc.OriginalIsPdf).ForKind(kind)
		if namesEquivalent(identifier, expected) || namesEquivalent(identifier, doc.FileName) {
			return doc, true
		}
	}
	return nil, false
}
