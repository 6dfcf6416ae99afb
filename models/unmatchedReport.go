package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// UnmatchedReport is a review-queue row: a report file the reconcile batch
// could not confidently attach to a document. Rows are inserted by the engine
// and resolved later by a staff user; the engine never mutates them.
type UnmatchedReport struct {
	ID           int          `gorm:"primary_key" json:"id"`
	FileName     string       `gorm:"size:255;not null" json:"file_name"`
	DocumentName *string      `gorm:"size:255" json:"document_name"`
	StoragePath  string       `gorm:"size:512;not null" json:"storage_path"`
	ReportType   ReportKind   `gorm:"type:enum('similarity','ai','unknown');default:'unknown'" json:"report_type"`
	Reason       ReviewReason `gorm:"size:40;index" json:"reason"`

	Resolved           bool       `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedDocumentId *int       `json:"resolved_document_id"`
	ResolvedBy         *int       `json:"resolved_by"`
	ResolvedAt         *time.Time `json:"resolved_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *UnmatchedReport) Store(tx *gorm.DB, ctx context.Context) error {
	return tx.WithContext(ctx).Create(u).Error
}

func GetOpenUnmatchedReports(tx *gorm.DB, ctx context.Context) ([]*UnmatchedReport, error) {
	var entries []*UnmatchedReport
	if err := tx.WithContext(ctx).
		Where("resolved = ?", false).
		Order("id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ResolveManually closes a review row. When documentId is non-nil the report is
// attached to that document's slot first; a nil documentId dismisses the row.
func (u *UnmatchedReport) ResolveManually(tx *gorm.DB, ctx context.Context, reviewerId int, documentId *int, kind ReportKind, percentage *int) error {
	if u.Resolved {
		return errors.New("review entry already resolved")
	}

	if documentId != nil {
		var doc Document
		if err := tx.WithContext(ctx).Take(&doc, *documentId).Error; err != nil {
			return err
		}
		if doc.HasReport(kind) {
			return errors.New("document already has a report of that kind")
		}
		if err := doc.AttachReport(tx, ctx, kind, u.StoragePath, percentage); err != nil {
			return err
		}
	}

	now := time.Now()
	u.Resolved = true
	u.ResolvedDocumentId = documentId
	u.ResolvedBy = &reviewerId
	u.ResolvedAt = &now
	return tx.WithContext(ctx).Model(&UnmatchedReport{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"resolved":             true,
			"resolved_document_id": documentId,
			"resolved_by":          reviewerId,
			"resolved_at":          now,
		}).Error
}
