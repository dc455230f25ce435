package routes

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeowner-assistant-platform/internal/config"
	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/internal/queue"
	"homeowner-assistant-platform/models"
	"homeowner-assistant-platform/services"
	"homeowner-assistant-platform/utils"
)

const uploadDir = "./uploads"

// SetupAdminRoutes registers the site-team endpoints: document ingestion,
// corpus management, unit and drawing records, exports and token minting.
// Everything behind a static admin key.
func SetupAdminRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database, asynqClient *asynq.Client, exportSvc *services.ExportService) {
	admin := router.Group("/admin")
	admin.Use(adminKeyRequired(cfg))

	admin.POST("/documents", func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "A PDF file is required", gin.H{"error": err.Error()})
			return
		}
		if file.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, fmt.Sprintf("File exceeds the %dMB limit", cfg.MaxFileSize>>20), nil)
			return
		}
		if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
			utils.RespondWithBadRequest(c, "Only PDF documents can be ingested", nil)
			return
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to prepare upload storage", nil)
			return
		}
		documentID := uuid.NewString()
		storedPath := filepath.Join(uploadDir, documentID+".pdf")
		if err := c.SaveUploadedFile(file, storedPath); err != nil {
			utils.RespondWithInternalError(c, "Failed to store uploaded file", nil)
			return
		}

		homeownerFacing := c.DefaultPostForm("homeowner_facing", "true") == "true"
		supersedesID := c.PostForm("supersedes_id")
		doc := models.Document{
			DocumentID:      documentID,
			DevelopmentID:   cfg.DevelopmentID,
			FileName:        file.Filename,
			Discipline:      c.PostForm("discipline"),
			HomeownerFacing: homeownerFacing,
			Status:          "queued",
			UploadedAt:      time.Now().UTC(),
		}
		if _, err := db.Collection("documents").InsertOne(c.Request.Context(), doc); err != nil {
			os.Remove(storedPath)
			utils.RespondWithInternalError(c, "Failed to record document", nil)
			return
		}

		task, err := queue.NewIngestDocumentTask(queue.IngestDocumentPayload{
			DocumentID:      documentID,
			DevelopmentID:   cfg.DevelopmentID,
			FilePath:        storedPath,
			FileName:        file.Filename,
			Discipline:      doc.Discipline,
			HomeownerFacing: homeownerFacing,
			SupersedesID:    supersedesID,
		})
		if err == nil {
			_, err = asynqClient.Enqueue(task)
		}
		if err != nil {
			logger.Error("failed to enqueue document ingestion", "document_id", documentID, "error", err)
			utils.RespondWithInternalError(c, "Failed to queue document for processing", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"success":     true,
			"document_id": documentID,
			"status":      "queued",
		})
	})

	admin.GET("/documents", func(c *gin.Context) {
		opts := options.Find().SetSort(bson.M{"uploaded_at": -1})
		cursor, err := db.Collection("documents").Find(c.Request.Context(),
			bson.M{"development_id": cfg.DevelopmentID}, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		defer cursor.Close(c.Request.Context())

		var docs []models.Document
		if err := cursor.All(c.Request.Context(), &docs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(docs), "documents": docs})
	})

	admin.PUT("/units/:unit_id", func(c *gin.Context) {
		var unit models.UnitProfile
		if err := c.ShouldBindJSON(&unit); err != nil {
			utils.RespondWithBadRequest(c, "Invalid unit payload", gin.H{"error": err.Error()})
			return
		}
		unit.UnitID = c.Param("unit_id")

		_, err := db.Collection("units").UpdateOne(c.Request.Context(),
			bson.M{"unit_id": unit.UnitID},
			bson.M{"$set": unit},
			options.Update().SetUpsert(true))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to save unit", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "unit_id": unit.UnitID})
	})

	admin.PUT("/drawings", func(c *gin.Context) {
		var req struct {
			UnitID      string `json:"unit_id"`
			HouseType   string `json:"house_type"`
			DrawingType string `json:"drawing_type" binding:"required,oneof=floor_plan elevation"`
			FileName    string `json:"file_name" binding:"required"`
			Title       string `json:"title"`
			URL         string `json:"url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid drawing payload", gin.H{"error": err.Error()})
			return
		}
		if req.UnitID == "" && req.HouseType == "" {
			utils.RespondWithBadRequest(c, "A drawing needs a unit_id or a house_type", nil)
			return
		}

		filter := bson.M{"drawing_type": req.DrawingType}
		if req.UnitID != "" {
			filter["unit_id"] = req.UnitID
		} else {
			filter["house_type"] = req.HouseType
		}
		update := bson.M{"$set": bson.M{
			"unit_id":      req.UnitID,
			"house_type":   req.HouseType,
			"drawing_type": req.DrawingType,
			"file_name":    req.FileName,
			"title":        req.Title,
			"url":          req.URL,
		}}
		_, err := db.Collection("drawings").UpdateOne(c.Request.Context(), filter, update,
			options.Update().SetUpsert(true))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to save drawing", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	admin.POST("/tokens", func(c *gin.Context) {
		var req struct {
			UnitID string `json:"unit_id" binding:"required"`
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "A unit_id is required", gin.H{"error": err.Error()})
			return
		}
		token, err := utils.GenerateHomeownerToken(req.UnitID, req.UserID, cfg.HomeownerTokenSecret, 30*24*time.Hour)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to mint token", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	})

	admin.GET("/export", func(c *gin.Context) {
		from := parseDay(c.Query("from"))
		to := parseDay(c.Query("to"))
		if !to.IsZero() {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}

		workbook, count, err := exportSvc.ExportAnswerRecords(c.Request.Context(), cfg.DevelopmentID, from, to)
		if err != nil {
			logger.Error("export failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}

		filename := fmt.Sprintf("questions-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Header("X-Record-Count", fmt.Sprintf("%d", count))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
	})
}

func adminKeyRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminAPIKey == "" || c.GetHeader("X-Admin-API-Key") != cfg.AdminAPIKey {
			utils.RespondWithUnauthorized(c, "A valid admin API key is required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseDay(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
