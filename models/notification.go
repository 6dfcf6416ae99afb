package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notification is a durable record of one outbound user notification. The row
// is written first; publishing to the push/email topic is best-effort and a
// failure only flips publish_status to FAILED (the reconciliation outcome is
// already committed by then).
type Notification struct {
	ID            int                       `gorm:"primary_key" json:"id"`
	UserId        int                       `gorm:"index;not null" json:"user_id"`
	DocumentId    int                       `gorm:"index;not null" json:"document_id"`
	Title         string                    `gorm:"size:255;not null" json:"title"`
	Body          string                    `gorm:"type:text" json:"body"`
	Channel       NotificationChannel       `gorm:"type:enum('push','email');not null" json:"channel"`
	PublishStatus NotificationPublishStatus `gorm:"size:20;not null;index" json:"publish_status"`
	PublishedId   *string                   `gorm:"size:64" json:"published_id"`
	CreatedAt     time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`
}

// NotifyDocumentResolved records and dispatches the "your document is fully
// checked" notification over both channels. Errors are logged and swallowed.
func NotifyDocumentResolved(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, doc *Document) {
	if !config.NotificationsEnabled() {
		return
	}

	title := "Document check completed"
	body := fmt.Sprintf("Both reports for %q have been received.", doc.FileName)

	for _, channel := range []NotificationChannel{NotificationChannelPush, NotificationChannelEmail} {
		n := Notification{
			UserId:        doc.UserId,
			DocumentId:    doc.ID,
			Title:         title,
			Body:          body,
			Channel:       channel,
			PublishStatus: NotificationPublishPending,
		}
		if err := tx.WithContext(ctx).Create(&n).Error; err != nil {
			config.LogError(logger, "notification.go", "NotifyDocumentResolved", "inserting notification", doc.ID, err)
			continue
		}

		topic := config.PushTopic()
		if channel == NotificationChannelEmail {
			topic = config.EmailTopic()
		}
		msgId, err := config.PublishNotification(ctx, topic, config.NotificationMessage{
			UserId:     doc.UserId,
			Title:      title,
			Body:       body,
			DocumentId: doc.ID,
			Channel:    string(channel),
		})

		status := NotificationPublishPublished
		var publishedId *string
		if err != nil {
			status = NotificationPublishFailed
			config.LogError(logger, "notification.go", "NotifyDocumentResolved", "publishing "+string(channel), doc.ID, err)
		} else {
			publishedId = &msgId
		}
		if uerr := tx.WithContext(ctx).Model(&Notification{}).
			Where("id = ?", n.ID).
			Updates(map[string]interface{}{"publish_status": status, "published_id": publishedId}).Error; uerr != nil {
			config.LogError(logger, "notification.go", "NotifyDocumentResolved", "updating publish status", n.ID, uerr)
		}
	}
}
