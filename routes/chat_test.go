package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"homeowner-assistant-platform/internal/config"
	"homeowner-assistant-platform/services"
)

func chatTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{DevelopmentID: "dev-1"}
	pipeline := services.NewPipeline(services.PipelineDeps{}, 20, 80000, 0.30, 4)
	router := gin.New()
	SetupChatRoutes(router, cfg, pipeline, nil)
	return router
}

func TestAskWhitespaceMessageAnswersPlainJSON(t *testing.T) {
	router := chatTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/chat/ask",
		strings.NewReader(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("Content-Type = %q, want a JSON error body", ct)
	}
	if strings.Contains(ct, "ndjson") {
		t.Errorf("error response labeled as a stream: %q", ct)
	}
	if !strings.Contains(w.Body.String(), `"error_code"`) {
		t.Errorf("missing error envelope: %s", w.Body.String())
	}
}
