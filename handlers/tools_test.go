package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"slotline/config"
	"slotline/services/availability"
)

func toolsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := availability.NewEngine(config.Config{
		Timezone:          "America/New_York",
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		BusinessDays:      "Mon,Tue,Wed,Thu,Fri",
		MinAdvanceHours:   2,
		MaxAdvanceHours:   720,
	}, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	h := NewToolsHandler(nil, engine)
	r := gin.New()
	r.POST("/checkAvailability", h.CheckAvailability)
	return r
}

func TestCheckAvailabilityRejectsUnsupportedDuration(t *testing.T) {
	r := toolsRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/checkAvailability",
		strings.NewReader(`{"date":"2025-12-10","duration":20}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported duration, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not a supported duration") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestCheckAvailabilityRejectsMalformedDate(t *testing.T) {
	r := toolsRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/checkAvailability",
		strings.NewReader(`{"date":"12/10/2025","duration":30}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d: %s", w.Code, w.Body.String())
	}
}
