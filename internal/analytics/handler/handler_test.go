package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead_broker_backend/internal/analytics/repository"
	"lead_broker_backend/internal/analytics/service"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func newRouter(repo repository.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(service.New(repo, logger.Discard()), validator.New())
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1/analytics"))
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/track", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "https://example.com/quote")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTrackStoresEvent(t *testing.T) {
	repo := repository.NewMemory()
	w := post(newRouter(repo), `{"sessionId":"sess-12345","stepReached":3,"abandonedAtStep":3,"testVariant":"b"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	got := repo.Events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	e := got[0]
	if e.SessionID != "sess-12345" || e.StepReached != 3 || e.AbandonedAtStep == nil || *e.AbandonedAtStep != 3 {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.UserAgent != "test-agent" || e.Referrer != "https://example.com/quote" {
		t.Fatalf("client info not captured: %+v", e)
	}
}

func TestTrackValidation(t *testing.T) {
	repo := repository.NewMemory()
	w := post(newRouter(repo), `{"sessionId":"x","stepReached":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("nothing should be stored")
	}
}
