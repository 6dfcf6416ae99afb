package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/models"
	"bitbucket.org/mmdatafocus/checks_backend/utils"
	"bitbucket.org/mmdatafocus/checks_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const reconcileHandlerName = "reports.reconcile"

type reconcileRequest struct {
	Reports []workflow.ReportFile `json:"reports" binding:"required,min=1,dive"`
}

// reconcileHandler runs one reconcile batch. Batches are serialized with a
// redis lock; an optional Idempotency-Key header makes retried calls safe to
// replay.
func reconcileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		var req reconcileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reports is required and every entry needs fileName and storagePath"})
			return
		}

		lock, err := workflow.AcquireBatchLock(ctx, 10*time.Minute)
		if err != nil {
			if errors.Is(err, workflow.ErrBatchInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			config.LogError(logger, "reconcile.go", "reconcileHandler", "acquiring batch lock", nil, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not serialize batch"})
			return
		}
		defer workflow.ReleaseBatchLock(ctx, lock)

		db := config.GetDB()
		idempotencyKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if idempotencyKey != "" {
			skip, err := workflow.BeginIdempotency(db, reconcileHandlerName, idempotencyKey)
			if err != nil {
				if errors.Is(err, workflow.ErrIdempotencyInProgress) {
					c.JSON(http.StatusConflict, gin.H{"error": "batch with this idempotency key is already running"})
					return
				}
				config.LogError(logger, "reconcile.go", "reconcileHandler", "begin idempotency", idempotencyKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency bookkeeping failed"})
				return
			}
			if skip {
				c.JSON(http.StatusOK, gin.H{"data": gin.H{"skipped": true, "reason": "batch already completed"}})
				return
			}
		}

		result, err := workflow.ProcessReportReconciliationWorkflow(ctx, db, logger, req.Reports)
		if err != nil {
			if idempotencyKey != "" {
				_ = workflow.MarkIdempotencyFailed(db, reconcileHandlerName, idempotencyKey, err)
			}
			config.LogError(logger, "reconcile.go", "reconcileHandler", "running batch", len(req.Reports), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed: " + err.Error()})
			return
		}
		if idempotencyKey != "" {
			if err := workflow.MarkIdempotencySucceeded(db, reconcileHandlerName, idempotencyKey); err != nil {
				config.LogError(logger, "reconcile.go", "reconcileHandler", "mark idempotency succeeded", idempotencyKey, err)
			}
		}

		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"total":          result.Stats.TotalReports,
			"mapped":         result.Stats.MappedCount,
			"unmatched":      result.Stats.UnmatchedCount,
			"completed":      result.Stats.CompletedCount,
			"unknown_type":   result.Stats.UnknownTypeCount,
			"correlation_id": cid,
		}).Info("[reports.reconcile]")

		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func listDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.DocumentStatus(strings.TrimSpace(c.Query("status")))
		if status != "" && status != models.DocumentStatusOpen && status != models.DocumentStatusResolved {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or resolved"})
			return
		}

		docs, err := models.GetDocuments(config.GetDB(), c.Request.Context(), status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load documents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": docs})
	}
}

func listReviewQueueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := models.GetOpenUnmatchedReports(config.GetDB(), c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load review queue"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entries})
	}
}

type resolveReviewRequest struct {
	DocumentId *int              `json:"documentId"`
	ReportType models.ReportKind `json:"reportType"`
	Percentage *int              `json:"percentage"`
}

// resolveReviewEntryHandler closes a review-queue row: attach the report to a
// chosen document, or dismiss the row when documentId is absent.
func resolveReviewEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		user, err := models.SessionUser(ctx)
		if err != nil {
			if id, ok := utils.GetUserIdFromContext(ctx); ok {
				user = &models.User{ID: id}
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		entryId, err := strconv.Atoi(c.Param("id"))
		if err != nil || entryId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review entry id"})
			return
		}

		var req resolveReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.DocumentId != nil {
			if req.ReportType != models.ReportKindSimilarity && req.ReportType != models.ReportKindAi {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reportType must be similarity or ai"})
				return
			}
			if req.Percentage != nil && (*req.Percentage < 0 || *req.Percentage > 100) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "percentage must be between 0 and 100"})
				return
			}
		}

		db := config.GetDB()
		var entry models.UnmatchedReport
		if err := db.WithContext(ctx).Take(&entry, entryId).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "review entry not found"})
			return
		}

		if err := entry.ResolveManually(db, ctx, user.ID, req.DocumentId, req.ReportType, req.Percentage); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Manual attachment may have been the document's second slot.
		if req.DocumentId != nil {
			var doc models.Document
			if err := db.WithContext(ctx).Take(&doc, *req.DocumentId).Error; err == nil && doc.Status == models.DocumentStatusResolved {
				models.NotifyDocumentResolved(ctx, db, logger, &doc)
			}
		}

		logger.WithFields(logrus.Fields{
			"entry_id":    entry.ID,
			"reviewer_id": user.ID,
			"document_id": req.DocumentId,
		}).Info("[review.resolve]")

		c.JSON(http.StatusOK, gin.H{"data": entry})
	}
}
