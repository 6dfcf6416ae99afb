package models

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleStaff  UserRole = "S"
	UserRoleMember UserRole = "M"
)

func (r UserRole) Label() string {
	switch r {
	case UserRoleAdmin:
		return "Admin"
	case UserRoleStaff:
		return "Staff"
	default:
		return "Member"
	}
}

// IsStaff reports whether the role may drive the staff console
// (report uploads, reconcile batches, review queue).
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleStaff
}

type DocumentStatus string

const (
	DocumentStatusOpen     DocumentStatus = "open"
	DocumentStatusResolved DocumentStatus = "resolved"
)

type ReportKind string

const (
	ReportKindSimilarity ReportKind = "similarity"
	ReportKindAi         ReportKind = "ai"
	ReportKindUnknown    ReportKind = "unknown"
)

// ReviewReason is the closed vocabulary for why a report landed in the
// manual-review queue (or failed inline, for DuplicateSlot/UpdateFailed).
type ReviewReason string

const (
	ReviewReasonDownloadFailed     ReviewReason = "download-failed"
	ReviewReasonUnknownReportType  ReviewReason = "unknown-report-type"
	ReviewReasonNoIdentifier       ReviewReason = "no-identifier"
	ReviewReasonNoMatchingDocument ReviewReason = "no-matching-document"

	// ReviewReasonDuplicateSlot is never written to the review queue: a report
	// whose slot is already filled is dropped with only an inline error
	// annotation on its processed record. Kept for the annotation text.
	ReviewReasonDuplicateSlot ReviewReason = "duplicate-slot"

	ReviewReasonUpdateFailed ReviewReason = "update-failed"
)

type NotificationChannel string

const (
	NotificationChannelPush  NotificationChannel = "push"
	NotificationChannelEmail NotificationChannel = "email"
)

type NotificationPublishStatus string

const (
	NotificationPublishPending   NotificationPublishStatus = "PENDING"
	NotificationPublishPublished NotificationPublishStatus = "PUBLISHED"
	NotificationPublishFailed    NotificationPublishStatus = "FAILED"
)
