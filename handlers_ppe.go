package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/models"
	"bitbucket.org/lgugso/assets_backend/models/reports"
	"bitbucket.org/lgugso/assets_backend/utils"
	"github.com/gin-gonic/gin"
)

// createPpeEntriesHandler accepts a JSON array of line items and runs the
// ingestion workflow. The batch is validated before any store access; a
// single response is sent after every dispatched insert has finished.
func createPpeEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var entries []models.NewPpeEntry
		if err := c.ShouldBindJSON(&entries); err != nil || len(entries) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No entries provided."})
			return
		}
		for i := range entries {
			if err := utils.ValidateStruct(&entries[i]); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid entry at position " + strconv.Itoa(i) + "."})
				return
			}
		}

		ctx, span := tracer.Start(c.Request.Context(), "ppe-entries.ingest")
		defer span.End()

		result, err := models.CreatePpeEntries(ctx, entries)
		if err != nil {
			config.LogError(logger, "handlers_ppe.go", "createPpeEntriesHandler", "CreatePpeEntries", len(entries), err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error saving entries."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Entries saved successfully!", "data": result})
	}
}

func listPpeEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		entries, err := models.FetchAllPpeEntries(c.Request.Context())
		if err != nil {
			config.LogError(logger, "handlers_ppe.go", "listPpeEntriesHandler", "FetchAllPpeEntries", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
	}
}

func updatePpeEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid entry id"})
			return
		}

		var input models.UpdatePpeEntry
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
			return
		}

		entry, err := models.UpdatePpeEntryById(c.Request.Context(), id, &input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "PPE entry not found"})
				return
			}
			config.LogError(logger, "handlers_ppe.go", "updatePpeEntryHandler", "UpdatePpeEntryById", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating PPE entry."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "PPE entry updated successfully", "data": entry})
	}
}

func deletePpeEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid entry id"})
			return
		}

		if err := models.DeletePpeEntryById(c.Request.Context(), id); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "PPE entry not found"})
				return
			}
			config.LogError(logger, "handlers_ppe.go", "deletePpeEntryHandler", "DeletePpeEntryById", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting PPE entry."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "PPE entry deleted successfully"})
	}
}

func listItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		items, err := models.FetchAllItems(c.Request.Context())
		if err != nil {
			config.LogError(logger, "handlers_ppe.go", "listItemsHandler", "FetchAllItems", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		tagId := c.Param("id")
		item, err := models.FetchItemByTag(c.Request.Context(), tagId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found"})
				return
			}
			config.LogError(logger, "handlers_ppe.go", "getItemHandler", "FetchItemByTag", tagId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
	}
}

func itemScannedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		tagId := c.Param("id")
		item, err := models.MarkItemInspected(c.Request.Context(), tagId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found"})
				return
			}
			config.LogError(logger, "handlers_ppe.go", "itemScannedHandler", "MarkItemInspected", tagId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item marked as inspected", "data": item})
	}
}

func itemCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		items, err := models.FetchInspectedItems(c.Request.Context())
		if err != nil {
			config.LogError(logger, "handlers_ppe.go", "itemCheckHandler", "FetchInspectedItems", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	}
}

func itemSearchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		term := c.Param("id")
		items, err := models.SearchItems(c.Request.Context(), term)
		if err != nil {
			config.LogError(logger, "handlers_ppe.go", "itemSearchHandler", "SearchItems", term, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
	}
}

func exportPpeRegistryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		filename := "ppe-registry-" + time.Now().Format("2006-01-02") + ".xlsx"
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)

		if err := reports.ExportPpeRegistryExcel(c.Request.Context(), c.Writer); err != nil {
			config.LogError(logger, "handlers_ppe.go", "exportPpeRegistryHandler", "ExportPpeRegistryExcel", nil, err)
			c.Status(http.StatusInternalServerError)
			return
		}
	}
}
