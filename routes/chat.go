package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"homeowner-assistant-platform/internal/config"
	"homeowner-assistant-platform/middleware"
	"homeowner-assistant-platform/models"
	"homeowner-assistant-platform/services"
	"homeowner-assistant-platform/utils"
)

// SetupChatRoutes registers the homeowner-facing question endpoints
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, pipeline *services.Pipeline, messages *services.MongoMessageStore) {
	chat := router.Group("/chat")
	chat.Use(middleware.UnitAuth(cfg))
	chat.Use(middleware.EnrichTrace())

	chat.POST("/ask", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "A question message is required", gin.H{"error": err.Error()})
			return
		}

		// Token identity outranks anything the request body claims
		unitID := middleware.GetUnitID(c)
		if unitID == "" {
			unitID = req.UnitUID
		}
		userID := middleware.GetUserID(c)
		if userID == "" {
			userID = req.UserID
		}

		query := services.Query{
			Text:          req.Message,
			UnitID:        unitID,
			UserID:        userID,
			DevelopmentID: cfg.DevelopmentID,
		}
		if req.TestMode {
			handleSingleShot(c, pipeline, query)
			return
		}
		handleStream(c, pipeline, query)
	})

	chat.GET("/history", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			userID = c.Query("user_id")
		}
		if userID == "" {
			utils.RespondWithUnauthorized(c, "A user identity is required for history")
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		records, err := messages.ListRecords(c.Request.Context(), userID, cfg.DevelopmentID, limit, offset)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   len(records),
			"records": records,
		})
	})
}

func handleSingleShot(c *gin.Context, pipeline *services.Pipeline, query services.Query) {
	out, err := pipeline.Ask(c.Request.Context(), query)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AskResponse{
		Success:         true,
		Answer:          out.Answer,
		Source:          out.Source,
		SafetyIntercept: out.SafetyIntercept,
		GDPRBlocked:     out.GDPRBlocked,
		Clarification:   out.Clarification,
		ChunksUsed:      out.ChunksUsed,
		Sources:         out.Sources,
		Drawing:         out.Drawing,
	})
}

// handleStream answers over newline-delimited JSON frames. Once the first
// frame is on the wire the status is committed, so later failures arrive as
// an error frame rather than a status code.
func handleStream(c *gin.Context, pipeline *services.Pipeline, query services.Query) {
	headersSent := false

	emit := func(ev services.Event) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		// Headers go out with the first frame, so a failure before any
		// output can still answer with a plain JSON error.
		if !headersSent {
			c.Header("Content-Type", "application/x-ndjson")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			headersSent = true
		}
		var frame interface{}
		switch ev.Type {
		case services.EventMetadata:
			frame = ev.Metadata
		case services.EventText:
			frame = models.TextFrame{Type: "text", Content: ev.Text}
		case services.EventDone:
			frame = models.DoneFrame{Type: "done"}
		case services.EventError:
			frame = models.ErrorFrame{Type: "error", Message: ev.Message}
		}
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := c.Writer.Write(append(data, '\n')); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if _, err := pipeline.AskStream(c.Request.Context(), query, emit); err != nil {
		if !c.Writer.Written() {
			respondPipelineError(c, err)
		}
	}
}

func respondPipelineError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrEmptyMessage) {
		utils.RespondWithBadRequest(c, "A question message is required", nil)
		return
	}
	var corpus *services.ErrCorpusUnavailable
	if errors.As(err, &corpus) {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "corpus_unavailable",
			"The document library is temporarily unavailable", nil)
		return
	}
	utils.RespondWithError(c, http.StatusBadGateway, "generation_failed",
		"Sorry, something went wrong answering that. Please try again.", nil)
}
