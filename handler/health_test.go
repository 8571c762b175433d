package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ultra2000/pdfBot/model"
	"github.com/Ultra2000/pdfBot/service"
	"github.com/gin-gonic/gin"
)

type staticProber struct {
	status service.HealthStatus
}

func (p staticProber) HealthCheck(ctx context.Context) service.HealthStatus {
	return p.status
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := service.NewDocumentStore()
	store.CreateDocument(&model.Document{ID: "doc-1"})
	store.CreateJob(&model.TaskJob{ID: "job-1", DocumentID: "doc-1"})

	h := NewHealthHandler(store, staticProber{status: service.HealthStatus{Status: "healthy"}})

	router := gin.New()
	router.GET("/api/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["documents"].(float64) != 1 || body["jobs"].(float64) != 1 {
		t.Errorf("Unexpected counts: %v", body)
	}
	if body["pdf_service"] != "healthy" {
		t.Errorf("Expected healthy pdf_service, got %v", body["pdf_service"])
	}
}
