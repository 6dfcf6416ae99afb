package config

import (
	"os"
	"strings"
)

// StrictBatchSerialization requires the reconcile endpoint to hold the redis
// batch lock before touching any file. When off (local dev without redis) the
// lock step is skipped and overlapping batches race.
//
// Set via env:
// - STRICT_BATCH_SERIALIZATION=true
func StrictBatchSerialization() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_BATCH_SERIALIZATION")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// NotificationsEnabled gates the best-effort push/email fan-out after a
// document becomes fully checked. Reconciliation outcomes never depend on it.
//
// Set via env:
// - NOTIFICATIONS_ENABLED=false
func NotificationsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFICATIONS_ENABLED")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
