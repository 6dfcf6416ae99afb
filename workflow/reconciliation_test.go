package workflow

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"bitbucket.org/mmdatafocus/checks_backend/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NOTE: These tests are intentionally DB-free. The store, download and page
// extraction collaborators are faked; what is under test is the per-file state
// machine, the in-batch snapshot semantics and the batch result bookkeeping.
// Full GCS+MySQL integration tests need an environment with both emulators.

type fakeStore struct {
	pool         []*models.Document
	unmatched    []*models.UnmatchedReport
	openErr      error
	attachErr    error
	unmatchedErr error
}

func (f *fakeStore) OpenDocuments(ctx context.Context) ([]*models.Document, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.pool, nil
}

func (f *fakeStore) AttachReport(ctx context.Context, doc *models.Document, kind models.ReportKind, reportPath string, percentage *int) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	// Mirror the in-memory mutation the gorm store performs so later files in
	// the same batch observe this update.
	path := reportPath
	switch kind {
	case models.ReportKindSimilarity:
		doc.SimilarityReportPath = &path
		doc.SimilarityPercentage = percentage
	case models.ReportKindAi:
		doc.AiReportPath = &path
		doc.AiPercentage = percentage
	}
	if doc.FullyChecked() {
		doc.Status = models.DocumentStatusResolved
	}
	return nil
}

func (f *fakeStore) InsertUnmatched(ctx context.Context, entry *models.UnmatchedReport) error {
	if f.unmatchedErr != nil {
		return f.unmatchedErr
	}
	f.unmatched = append(f.unmatched, entry)
	return nil
}

// fakePages keys page text by storage path; the fake fetch hands the path back
// as the "downloaded" buffer and the fake extractor looks pages up from it.
type fakePages map[string][2]string

func testDeps(store *fakeStore, pages fakePages, notified *[]int) batchDeps {
	return batchDeps{
		store: store,
		fetch: func(ctx context.Context, storagePath string) ([]byte, error) {
			if _, ok := pages[storagePath]; !ok {
				return nil, errors.New("object not found")
			}
			return []byte(storagePath), nil
		},
		extract: func(data []byte, pageNumber int) string {
			pg, ok := pages[string(data)]
			if !ok || pageNumber < 1 || pageNumber > 2 {
				return ""
			}
			return pg[pageNumber-1]
		},
		notify: func(ctx context.Context, doc *models.Document) {
			if notified != nil {
				*notified = append(*notified, doc.ID)
			}
		},
	}
}

func assertCompletionInvariant(t *testing.T, docs []*models.Document) {
	t.Helper()
	for _, d := range docs {
		resolved := d.Status == models.DocumentStatusResolved
		assert.Equal(t, d.FullyChecked(), resolved,
			"document %d: status %q vs slots sim=%v ai=%v", d.ID, d.Status, d.SimilarityReportPath, d.AiReportPath)
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestReconcile_SimilarityReportMapped(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, UserId: 10, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
	}}
	pages := fakePages{
		"reports/essay1-sim.pdf": {"Document: Essay1 (1)", "12% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "Essay1 (1)", StoragePath: "reports/essay1-sim.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Mapped, 1)
	assert.Equal(t, 1, result.Mapped[0].DocumentId)
	assert.Equal(t, models.ReportKindSimilarity, result.Mapped[0].ReportType)
	require.NotNil(t, result.Mapped[0].Percentage)
	assert.Equal(t, 12, *result.Mapped[0].Percentage)

	doc := store.pool[0]
	require.NotNil(t, doc.SimilarityReportPath)
	assert.Equal(t, "reports/essay1-sim.pdf", *doc.SimilarityReportPath)
	assert.Equal(t, models.DocumentStatusOpen, doc.Status, "one slot filled keeps the document open")

	assert.Empty(t, result.Unmatched)
	assert.Empty(t, result.CompletedDocuments)
	assert.Equal(t, BatchStats{TotalReports: 1, MappedCount: 1}, result.Stats)
	assertCompletionInvariant(t, store.pool)
}

// Both reports for one document arrive in the same batch. The AI report file
// carries a doubled suffix ("Essay1 (1) (1)") but the substring rule still
// lands it on the expected AI name "Essay1 (1)", so the document completes.
func TestReconcile_SameBatchCompletesDocument(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, UserId: 10, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
	}}
	pages := fakePages{
		"reports/essay1-sim.pdf": {"Document: Essay1 (1)", "12% Overall Similarity"},
		"reports/essay1-ai.pdf":  {"Document: Essay1 (1) (1)", "5% detected as AI"},
	}
	var notified []int

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, &notified), []ReportFile{
		{FileName: "Essay1 (1)", StoragePath: "reports/essay1-sim.pdf"},
		{FileName: "Essay1 (1) (1)", StoragePath: "reports/essay1-ai.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Mapped, 2)
	assert.Equal(t, models.ReportKindSimilarity, result.Mapped[0].ReportType)
	assert.Equal(t, models.ReportKindAi, result.Mapped[1].ReportType)

	assert.Equal(t, []int{1}, result.CompletedDocuments)
	assert.Equal(t, models.DocumentStatusResolved, store.pool[0].Status)
	assert.Equal(t, []int{1}, notified, "resolved document triggers one dispatch")
	assert.Equal(t, BatchStats{TotalReports: 2, MappedCount: 2, CompletedCount: 1}, result.Stats)
	assertCompletionInvariant(t, store.pool)
}

// Reprocessing a file whose slot is already filled drops it with only an
// inline annotation: not mapped, not unmatched, no review row.
func TestReconcile_DuplicateSlotDropped(t *testing.T) {
	existing := "reports/old.pdf"
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen, SimilarityReportPath: &existing},
	}}
	pages := fakePages{
		"reports/essay1-sim.pdf": {"Document: Essay1 (1)", "12% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "Essay1 (1)", StoragePath: "reports/essay1-sim.pdf"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Mapped)
	assert.Empty(t, result.Unmatched)
	assert.Empty(t, store.unmatched)
	require.Len(t, result.Processed, 1)
	assert.Contains(t, result.Processed[0].Error, "already has a similarity report")
	assert.Equal(t, existing, *store.pool[0].SimilarityReportPath, "filled slot is never overwritten")
	assert.Equal(t, BatchStats{TotalReports: 1}, result.Stats)
}

func TestReconcile_UnknownReportType(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
	}}
	pages := fakePages{
		"reports/receipt.pdf": {"Document: Essay1", "Submission receipt - no scores"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "receipt", StoragePath: "reports/receipt.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, models.ReviewReasonUnknownReportType, result.Unmatched[0].Reason)
	assert.Equal(t, 1, result.Stats.UnknownTypeCount)
	assert.Equal(t, 1, result.Stats.UnmatchedCount)

	require.Len(t, store.unmatched, 1)
	assert.Equal(t, models.ReportKindUnknown, store.unmatched[0].ReportType)
}

func TestReconcile_NoIdentifier(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
	}}
	// Page 1 extraction yields nothing; page 2 classifies fine.
	pages := fakePages{
		"reports/blank.pdf": {"", "12% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "blank", StoragePath: "reports/blank.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, models.ReviewReasonNoIdentifier, result.Unmatched[0].Reason)
	assert.Nil(t, result.Unmatched[0].DocumentName, "best-guess identifier stays empty")

	require.Len(t, store.unmatched, 1)
	assert.Nil(t, store.unmatched[0].DocumentName)
	assert.Equal(t, models.ReportKindSimilarity, store.unmatched[0].ReportType)
}

func TestReconcile_NoMatchingDocument(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, FileName: "Biology Lab", OriginalIsPdf: true, Status: models.DocumentStatusOpen},
	}}
	pages := fakePages{
		"reports/stray.pdf": {"Document: Chemistry Notes", "9% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "Chemistry Notes", StoragePath: "reports/stray.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, models.ReviewReasonNoMatchingDocument, result.Unmatched[0].Reason)
	require.NotNil(t, result.Unmatched[0].DocumentName)
	assert.Equal(t, "chemistry notes", *result.Unmatched[0].DocumentName)
}

func TestReconcile_DownloadFailedDoesNotAbortBatch(t *testing.T) {
	store := &fakeStore{pool: []*models.Document{
		{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
	}}
	pages := fakePages{
		"reports/essay1-sim.pdf": {"Document: Essay1", "12% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "missing", StoragePath: "reports/missing.pdf"},
		{FileName: "Essay1", StoragePath: "reports/essay1-sim.pdf"},
	})
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, models.ReviewReasonDownloadFailed, result.Unmatched[0].Reason)
	require.Len(t, result.Mapped, 1, "the batch continues past the failed file")
	assert.Equal(t, BatchStats{TotalReports: 2, MappedCount: 1, UnmatchedCount: 1}, result.Stats)
}

func TestReconcile_UpdateFailedQueuedForReview(t *testing.T) {
	store := &fakeStore{
		pool: []*models.Document{
			{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
		},
		attachErr: errors.New("deadlock"),
	}
	pages := fakePages{
		"reports/essay1-sim.pdf": {"Document: Essay1", "12% Overall Similarity"},
	}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, pages, nil), []ReportFile{
		{FileName: "Essay1", StoragePath: "reports/essay1-sim.pdf"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Mapped)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, models.ReviewReasonUpdateFailed, result.Unmatched[0].Reason)
	assert.Contains(t, result.Processed[0].Error, "update failed")
}

func TestReconcile_OpenPoolFailureIsBatchFatal(t *testing.T) {
	store := &fakeStore{openErr: errors.New("connection refused")}

	result, err := runReconciliation(context.Background(), testLogger(), testDeps(store, fakePages{}, nil), []ReportFile{
		{FileName: "anything", StoragePath: "reports/anything.pdf"},
	})
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestReconcile_Deterministic(t *testing.T) {
	fixtures := func() (*fakeStore, fakePages, []ReportFile) {
		store := &fakeStore{pool: []*models.Document{
			{ID: 1, FileName: "Essay1", OriginalIsPdf: false, Status: models.DocumentStatusOpen},
			{ID: 2, FileName: "Essay2", OriginalIsPdf: true, Status: models.DocumentStatusOpen},
		}}
		pages := fakePages{
			"reports/a.pdf": {"Document: Essay1", "12% Overall Similarity"},
			"reports/b.pdf": {"Document: Essay2 (2)", "40% detected as AI"},
			"reports/c.pdf": {"Document: Unrelated", "33% Overall Similarity"},
		}
		files := []ReportFile{
			{FileName: "Essay1", StoragePath: "reports/a.pdf"},
			{FileName: "Essay2 (2)", StoragePath: "reports/b.pdf"},
			{FileName: "Unrelated", StoragePath: "reports/c.pdf"},
		}
		return store, pages, files
	}

	storeA, pagesA, filesA := fixtures()
	resultA, err := runReconciliation(context.Background(), testLogger(), testDeps(storeA, pagesA, nil), filesA)
	require.NoError(t, err)

	storeB, pagesB, filesB := fixtures()
	resultB, err := runReconciliation(context.Background(), testLogger(), testDeps(storeB, pagesB, nil), filesB)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(resultA, resultB), "fixed pool and batch order must reproduce identical results")
}
