package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/timebox/internal/adapters/export"
	"github.com/hylla/timebox/internal/adapters/server/common"
	"github.com/hylla/timebox/internal/app"
)

// newTestHandler wires the handler to an in-memory store on a fixed clock.
func newTestHandler(t *testing.T) (*Handler, *app.Store) {
	t.Helper()
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	store := app.NewStore(nil, app.WithClock(func() time.Time { return now }))
	h := NewHandler(store)
	h.now = func() time.Time { return now }
	return h, store
}

// serve sends one request and returns the recorder.
func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes one JSON response body into the requested type.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func TestHandlerStartCompleteFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(h, http.MethodPost, "/activities", `{"name":"Write report","estimated_minutes":25}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	started := decodeBody[common.ActivityView](t, rec)
	if started.Remaining != "25:00" || started.Status != "in-progress" {
		t.Fatalf("unexpected started view %#v", started)
	}

	rec = serve(h, http.MethodGet, "/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d", rec.Code)
	}
	if got := decodeBody[common.ActivityView](t, rec); got.ID != started.ID {
		t.Fatalf("active id = %q, want %q", got.ID, started.ID)
	}

	rec = serve(h, http.MethodPost, "/activities", `{"name":"Other","estimated_minutes":"5"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := decodeBody[ErrorEnvelope](t, rec); got.Error.Code != "conflict" {
		t.Fatalf("error code = %q, want conflict", got.Error.Code)
	}

	rec = serve(h, http.MethodPost, "/active/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d (%s)", rec.Code, rec.Body.String())
	}
	done := decodeBody[common.ActivityView](t, rec)
	if done.Status != "completed" || done.ActualMinutes == nil {
		t.Fatalf("unexpected completed view %#v", done)
	}

	rec = serve(h, http.MethodGet, "/active", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("active after complete status = %d, want 404", rec.Code)
	}
	rec = serve(h, http.MethodPost, "/active/complete", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("complete without active status = %d, want 404", rec.Code)
	}
}

func TestHandlerListEditDelete(t *testing.T) {
	h, store := newTestHandler(t)
	a, err := store.StartActivity(t.Context(), "Tea", 25)
	if err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}

	rec := serve(h, http.MethodDelete, "/activities/"+a.ID, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete active status = %d, want 409", rec.Code)
	}
	if _, err := store.CompleteActivity(t.Context()); err != nil {
		t.Fatalf("CompleteActivity() error = %v", err)
	}

	rec = serve(h, http.MethodPatch, "/activities/"+a.ID, `{"field":"actualMinutes","value":"30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d (%s)", rec.Code, rec.Body.String())
	}
	rec = serve(h, http.MethodPatch, "/activities/"+a.ID, `{"field":"estimatedMinutes","value":"50"}`)
	edited := decodeBody[common.ActivityView](t, rec)
	if edited.Difference == nil || *edited.Difference != -40 {
		t.Fatalf("difference = %v, want -40", edited.Difference)
	}

	rec = serve(h, http.MethodPatch, "/activities/"+a.ID, `{"field":"estimatedMinutes","value":"0"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid edit status = %d, want 400", rec.Code)
	}

	rec = serve(h, http.MethodGet, "/activities", "")
	list := decodeBody[map[string][]common.ActivityView](t, rec)
	if len(list["activities"]) != 1 || list["activities"][0].Name != "Tea" {
		t.Fatalf("unexpected list %#v", list)
	}

	rec = serve(h, http.MethodDelete, "/activities/"+a.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = serve(h, http.MethodDelete, "/activities/"+a.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestHandlerStatusAndExport(t *testing.T) {
	h, store := newTestHandler(t)
	if _, err := store.StartActivity(t.Context(), "Plan, review", 10); err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}

	rec := serve(h, http.MethodGet, "/status", "")
	status := decodeBody[common.Status](t, rec)
	if status.Active == nil || status.Active.Name != "Plan, review" || status.Summary.InProgress != 1 {
		t.Fatalf("unexpected status %#v", status)
	}

	rec = serve(h, http.MethodGet, "/activities.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "time-tracker-export-2026-02-24.csv") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	parsed, err := export.ParseCSV(rec.Body)
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(parsed) != 1 || parsed[0].Name != "Plan, review" {
		t.Fatalf("unexpected csv rows %#v", parsed)
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)
	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown field", http.MethodPost, "/activities", `{"name":"x","minutes":5}`, http.StatusBadRequest, "invalid_request"},
		{"trailing content", http.MethodPost, "/activities", `{"name":"x","estimated_minutes":5}{}`, http.StatusBadRequest, "invalid_request"},
		{"blank name", http.MethodPost, "/activities", `{"name":" ","estimated_minutes":5}`, http.StatusBadRequest, "invalid_request"},
		{"zero estimate", http.MethodPost, "/activities", `{"name":"x","estimated_minutes":0}`, http.StatusBadRequest, "invalid_request"},
		{"wrong method", http.MethodPut, "/activities", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"unknown path", http.MethodGet, "/nope", "", http.StatusNotFound, "not_found"},
		{"nested id", http.MethodDelete, "/activities/a/b", "", http.StatusNotFound, "not_found"},
		{"missing record", http.MethodPatch, "/activities/missing", `{"field":"name","value":"x"}`, http.StatusNotFound, "not_found"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeBody[ErrorEnvelope](t, rec); got.Error.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", got.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandlerWithoutTracker(t *testing.T) {
	rec := serve(NewHandler(nil), http.MethodGet, "/status", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
