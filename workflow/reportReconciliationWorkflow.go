package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/models"
	"bitbucket.org/mmdatafocus/checks_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Report PDFs are a few hundred KB; anything past this is not a report.
const maxReportBytes int64 = 20 * 1024 * 1024

// ReportFile references one uploaded report awaiting reconciliation.
type ReportFile struct {
	FileName    string `json:"fileName" binding:"required"`
	StoragePath string `json:"storagePath" binding:"required"`
}

// ProcessedReport is the per-file processing record in the batch result.
type ProcessedReport struct {
	FileName          string            `json:"fileName"`
	FilePath          string            `json:"filePath"`
	DocumentName      *string           `json:"documentName,omitempty"`
	ReportType        models.ReportKind `json:"reportType"`
	Percentage        *int              `json:"percentage,omitempty"`
	MatchedDocumentId *int              `json:"matchedDocumentId,omitempty"`
	Error             string            `json:"error,omitempty"`
}

type MappedReport struct {
	DocumentId int               `json:"documentId"`
	FileName   string            `json:"fileName"`
	ReportType models.ReportKind `json:"reportType"`
	Percentage *int              `json:"percentage,omitempty"`
}

type UnmatchedEntry struct {
	FileName     string              `json:"fileName"`
	DocumentName *string             `json:"documentName,omitempty"`
	Reason       models.ReviewReason `json:"reason"`
}

type BatchStats struct {
	TotalReports     int `json:"totalReports"`
	MappedCount      int `json:"mappedCount"`
	UnmatchedCount   int `json:"unmatchedCount"`
	CompletedCount   int `json:"completedCount"`
	UnknownTypeCount int `json:"unknownTypeCount"`
}

// BatchResult is the engine's single output value. It has no persistence of
// its own; the durable side effects are document updates and review-queue rows.
type BatchResult struct {
	Success            bool               `json:"success"`
	Processed          []*ProcessedReport `json:"processed"`
	Mapped             []*MappedReport    `json:"mapped"`
	Unmatched          []*UnmatchedEntry  `json:"unmatched"`
	CompletedDocuments []int              `json:"completedDocuments"`
	Stats              BatchStats         `json:"stats"`
}

// BatchStore is the slice of the document store the engine needs. Narrow on
// purpose so workflow tests run without a database.
type BatchStore interface {
	OpenDocuments(ctx context.Context) ([]*models.Document, error)
	AttachReport(ctx context.Context, doc *models.Document, kind models.ReportKind, reportPath string, percentage *int) error
	InsertUnmatched(ctx context.Context, entry *models.UnmatchedReport) error
}

// ReportFetcher downloads one report's raw bytes by storage path.
type ReportFetcher func(ctx context.Context, storagePath string) ([]byte, error)

// ResolvedNotifier is the best-effort dispatch for newly resolved documents.
// Implementations must swallow their own errors.
type ResolvedNotifier func(ctx context.Context, doc *models.Document)

type batchDeps struct {
	store   BatchStore
	fetch   ReportFetcher
	extract func(data []byte, pageNumber int) string
	notify  ResolvedNotifier
}

// ProcessReportReconciliationWorkflow runs one reconcile batch against the
// real collaborators: gorm document store, GCS download, PDF extraction and
// pub/sub notifications. Batch-fatal failures (open pool unavailable) return
// an error with no BatchResult; everything per-file is captured inside the
// result instead.
func ProcessReportReconciliationWorkflow(ctx context.Context, db *gorm.DB, logger *logrus.Logger, files []ReportFile) (*BatchResult, error) {
	deps := batchDeps{
		store: &gormBatchStore{db: db},
		fetch: func(ctx context.Context, storagePath string) ([]byte, error) {
			return utils.FetchObjectFromGCS(ctx, storagePath, maxReportBytes)
		},
		extract: ExtractPageText,
		notify: func(ctx context.Context, doc *models.Document) {
			models.NotifyDocumentResolved(ctx, db, logger, doc)
		},
	}
	return runReconciliation(ctx, logger, deps, files)
}

// runReconciliation drives the batch strictly sequentially: the similarity and
// AI reports for one document may both arrive in the same batch, and the
// second file processed must observe the first one's in-memory update to
// detect duplicates and completion correctly.
func runReconciliation(ctx context.Context, logger *logrus.Logger, deps batchDeps, files []ReportFile) (*BatchResult, error) {
	pool, err := deps.store.OpenDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading open documents: %w", err)
	}

	result := &BatchResult{
		Success:            true,
		Processed:          []*ProcessedReport{},
		Mapped:             []*MappedReport{},
		Unmatched:          []*UnmatchedEntry{},
		CompletedDocuments: []int{},
	}
	result.Stats.TotalReports = len(files)

	var newlyResolved []*models.Document

	for _, file := range files {
		rec := &ProcessedReport{
			FileName:   file.FileName,
			FilePath:   file.StoragePath,
			ReportType: models.ReportKindUnknown,
		}
		result.Processed = append(result.Processed, rec)

		data, err := deps.fetch(ctx, file.StoragePath)
		if err != nil {
			rec.Error = "download failed: " + err.Error()
			config.LogError(logger, "reportReconciliationWorkflow.go", "runReconciliation", "downloading report", file.StoragePath, err)
			queueForReview(ctx, logger, deps.store, result, file, nil, models.ReportKindUnknown, models.ReviewReasonDownloadFailed)
			continue
		}

		page1 := deps.extract(data, 1)
		page2 := deps.extract(data, 2)

		kind, score := ClassifyReport(page2)
		rec.ReportType = kind
		rec.Percentage = score

		identifier, hasIdentifier := ExtractIdentifier(page1)
		if hasIdentifier {
			rec.DocumentName = &identifier
		}

		if kind == models.ReportKindUnknown {
			result.Stats.UnknownTypeCount++
			rec.Error = "could not determine report type"
			queueForReview(ctx, logger, deps.store, result, file, rec.DocumentName, kind, models.ReviewReasonUnknownReportType)
			continue
		}
		if !hasIdentifier {
			rec.Error = "no document identifier found on page 1"
			queueForReview(ctx, logger, deps.store, result, file, nil, kind, models.ReviewReasonNoIdentifier)
			continue
		}

		doc, found := MatchDocument(identifier, kind, pool)
		if !found {
			rec.Error = "no open document matches " + identifier
			queueForReview(ctx, logger, deps.store, result, file, rec.DocumentName, kind, models.ReviewReasonNoMatchingDocument)
			continue
		}
		rec.MatchedDocumentId = &doc.ID

		if doc.HasReport(kind) {
			// The slot was filled before this file was processed (earlier
			// batch, or earlier file in this one). The report is dropped with
			// only this annotation: not mapped, not unmatched, no review row.
			rec.Error = fmt.Sprintf("document %d already has a %s report", doc.ID, kind)
			continue
		}

		if err := deps.store.AttachReport(ctx, doc, kind, file.StoragePath, score); err != nil {
			rec.Error = "update failed: " + err.Error()
			config.LogError(logger, "reportReconciliationWorkflow.go", "runReconciliation", "attaching report", doc.ID, err)
			queueForReview(ctx, logger, deps.store, result, file, rec.DocumentName, kind, models.ReviewReasonUpdateFailed)
			continue
		}

		result.Mapped = append(result.Mapped, &MappedReport{
			DocumentId: doc.ID,
			FileName:   file.FileName,
			ReportType: kind,
			Percentage: score,
		})
		result.Stats.MappedCount++

		if doc.FullyChecked() {
			result.CompletedDocuments = append(result.CompletedDocuments, doc.ID)
			result.Stats.CompletedCount++
			newlyResolved = append(newlyResolved, doc)
		}
	}

	// Best-effort side effects after the outcome is fully computed: a failed
	// dispatch never changes the reconciliation already performed.
	for _, doc := range newlyResolved {
		deps.notify(ctx, doc)
	}

	return result, nil
}

// queueForReview records the unmatched outcome in the result and inserts the
// durable review-queue row. The insert itself is fire-and-forget: a failure is
// logged and the outcome still appears in the batch result.
func queueForReview(ctx context.Context, logger *logrus.Logger, store BatchStore, result *BatchResult, file ReportFile, documentName *string, kind models.ReportKind, reason models.ReviewReason) {
	result.Unmatched = append(result.Unmatched, &UnmatchedEntry{
		FileName:     file.FileName,
		DocumentName: documentName,
		Reason:       reason,
	})
	result.Stats.UnmatchedCount++

	entry := &models.UnmatchedReport{
		FileName:     file.FileName,
		DocumentName: documentName,
		StoragePath:  file.StoragePath,
		ReportType:   kind,
		Reason:       reason,
	}
	if err := store.InsertUnmatched(ctx, entry); err != nil {
		config.LogError(logger, "reportReconciliationWorkflow.go", "queueForReview", "inserting review entry", file.FileName, err)
	}
}

// gormBatchStore adapts the gorm models to the BatchStore interface.
type gormBatchStore struct {
	db *gorm.DB
}

func (s *gormBatchStore) OpenDocuments(ctx context.Context) ([]*models.Document, error) {
	return models.GetOpenDocuments(s.db, ctx)
}

func (s *gormBatchStore) AttachReport(ctx context.Context, doc *models.Document, kind models.ReportKind, reportPath string, percentage *int) error {
	return doc.AttachReport(s.db, ctx, kind, reportPath, percentage)
}

func (s *gormBatchStore) InsertUnmatched(ctx context.Context, entry *models.UnmatchedReport) error {
	return entry.Store(s.db, ctx)
}
