package wellness

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/companionbot/backend/internal/model/wellness"
)

func TestListAndGetActivities(t *testing.T) {
	r := chi.NewRouter()
	New(wellness.NewMemoryStore(wellness.Seed())).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var list []wellness.Activity
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil || len(list) == 0 {
		t.Fatalf("unexpected list %s (%v)", resp.Body.String(), err)
	}

	req = httptest.NewRequest(http.MethodGet, "/activities/breathing", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/activities/unknown", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
