package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Document is one customer upload awaiting two scanner reports (similarity and
// AI detection). It is "resolved" exactly when both report slots are filled.
type Document struct {
	ID            int    `gorm:"primary_key" json:"id"`
	BusinessId    string `gorm:"size:64;index" json:"business_id"`
	UserId        int    `gorm:"index" json:"user_id"`
	Title         string `gorm:"size:255" json:"title"`
	FileName      string `gorm:"size:255;not null" json:"file_name"`
	OriginalIsPdf bool   `json:"original_is_pdf"`
	StoragePath   string `gorm:"size:512" json:"storage_path"`

	SimilarityReportPath *string `gorm:"size:512" json:"similarity_report_path"`
	SimilarityPercentage *int    `json:"similarity_percentage"`
	AiReportPath         *string `gorm:"size:512" json:"ai_report_path"`
	AiPercentage         *int    `json:"ai_percentage"`

	Status     DocumentStatus `gorm:"type:enum('open','resolved');default:'open';index" json:"status"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateDocument registers a fresh upload as an open work item.
func CreateDocument(tx *gorm.DB, ctx context.Context, doc *Document) error {
	doc.Status = DocumentStatusOpen
	return tx.WithContext(ctx).Create(doc).Error
}

// GetOpenDocuments loads the open pool once, in insertion order. The reconcile
// batch works on this snapshot and layers its own updates on top in memory.
func GetOpenDocuments(tx *gorm.DB, ctx context.Context) ([]*Document, error) {
	var documents []*Document
	if err := tx.WithContext(ctx).
		Where("status = ?", DocumentStatusOpen).
		Order("id asc").
		Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

func GetDocuments(tx *gorm.DB, ctx context.Context, status DocumentStatus) ([]*Document, error) {
	var documents []*Document
	q := tx.WithContext(ctx).Order("id asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

// HasReport reports whether the slot for the given kind is already filled.
func (d *Document) HasReport(kind ReportKind) bool {
	switch kind {
	case ReportKindSimilarity:
		return d.SimilarityReportPath != nil && *d.SimilarityReportPath != ""
	case ReportKindAi:
		return d.AiReportPath != nil && *d.AiReportPath != ""
	default:
		return false
	}
}

// FullyChecked reports whether both report slots are filled.
func (d *Document) FullyChecked() bool {
	return d.HasReport(ReportKindSimilarity) && d.HasReport(ReportKindAi)
}

// AttachReport fills one report slot (path plus optional percentage) with a
// partial update scoped to the report fields, and flips the document to
// resolved in the same write when this was the second slot. The in-memory
// struct is mutated as well so the batch snapshot stays coherent.
func (d *Document) AttachReport(tx *gorm.DB, ctx context.Context, kind ReportKind, reportPath string, percentage *int) error {
	if kind != ReportKindSimilarity && kind != ReportKindAi {
		return errors.New("invalid report kind")
	}
	if d.HasReport(kind) {
		return errors.New("report slot already filled")
	}

	columns := map[string]interface{}{}
	switch kind {
	case ReportKindSimilarity:
		d.SimilarityReportPath = &reportPath
		d.SimilarityPercentage = percentage
		columns["similarity_report_path"] = reportPath
		columns["similarity_percentage"] = percentage
	case ReportKindAi:
		d.AiReportPath = &reportPath
		d.AiPercentage = percentage
		columns["ai_report_path"] = reportPath
		columns["ai_percentage"] = percentage
	}

	if d.FullyChecked() {
		now := time.Now()
		d.Status = DocumentStatusResolved
		d.ResolvedAt = &now
		columns["status"] = DocumentStatusResolved
		columns["resolved_at"] = now
	}

	return tx.WithContext(ctx).Model(&Document{}).
		Where("id = ?", d.ID).
		Updates(columns).Error
}
