package main

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// exportReviewQueueHandler streams the open review queue as an xlsx sheet for
// the staff doing manual triage.
func exportReviewQueueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := models.GetOpenUnmatchedReports(config.GetDB(), c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load review queue"})
			return
		}

		f := excelize.NewFile()
		sheetName := "Sheet1"
		if _, err := f.NewSheet(sheetName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build export"})
			return
		}

		f.SetCellValue(sheetName, "A1", "Id")
		f.SetCellValue(sheetName, "B1", "FileName")
		f.SetCellValue(sheetName, "C1", "DocumentName")
		f.SetCellValue(sheetName, "D1", "StoragePath")
		f.SetCellValue(sheetName, "E1", "ReportType")
		f.SetCellValue(sheetName, "F1", "Reason")
		f.SetCellValue(sheetName, "G1", "CreatedAt")

		for i, entry := range entries {
			row := fmt.Sprint(i + 2)
			documentName := ""
			if entry.DocumentName != nil {
				documentName = *entry.DocumentName
			}
			f.SetCellValue(sheetName, "A"+row, entry.ID)
			f.SetCellValue(sheetName, "B"+row, entry.FileName)
			f.SetCellValue(sheetName, "C"+row, documentName)
			f.SetCellValue(sheetName, "D"+row, entry.StoragePath)
			f.SetCellValue(sheetName, "E"+row, string(entry.ReportType))
			f.SetCellValue(sheetName, "F"+row, string(entry.Reason))
			f.SetCellValue(sheetName, "G"+row, entry.CreatedAt.Format(time.RFC3339))
		}

		filename := "review-queue-" + time.Now().Format("2006-01-02") + ".xlsx"
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "exports.go", "exportReviewQueueHandler", "writing xlsx", filename, err)
		}
	}
}
