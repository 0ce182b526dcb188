package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/claude/mapty/internal/screen"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
	"github.com/claude/mapty/internal/tracker"
	"github.com/claude/mapty/internal/view"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New()
	scr := screen.New()
	sync := view.NewSynchronizer(scr, scr, st)
	clock := time.Date(2026, time.April, 14, 7, 0, 0, 0, time.UTC)
	ctrl := tracker.New(st, storage.NewWorkouts(storage.NewMemory(), ""), sync, scr, scr, tracker.Options{
		Now: func() time.Time {
			clock = clock.Add(time.Millisecond)
			return clock
		},
		Logger: log,
	})
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(ctrl, scr, st, apiKey, log)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, eventResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp eventResponse
	if strings.HasPrefix(path, "/api/v1/") && rec.Header().Get("Content-Type") == "application/json" {
		json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

// TestEventFlow drives a full create, sort and delete cycle through the API.
func TestEventFlow(t *testing.T) {
	s := newTestServer(t, "")

	rec, resp := do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":50,"lng":30}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("click before position: status = %d, want 409", rec.Code)
	}

	rec, resp = do(t, s, http.MethodPost, "/api/v1/position", `{"lat":50,"lng":30}`)
	if rec.Code != http.StatusOK || !resp.Screen.Map.Ready {
		t.Fatalf("position: status = %d, map = %+v", rec.Code, resp.Screen.Map)
	}

	rec, resp = do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":50,"lng":30}`)
	if rec.Code != http.StatusOK || !resp.Screen.Form.Visible {
		t.Fatalf("click: status = %d, form = %+v", rec.Code, resp.Screen.Form)
	}

	rec, resp = do(t, s, http.MethodPost, "/api/v1/form/submit", `{"type":"running","distance":"5","duration":"0","cadence":"170"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid submit: status = %d, want 422", rec.Code)
	}
	if resp.Error == "" || resp.Screen.Form.Classes["duration"] != screen.ClassError {
		t.Errorf("invalid submit: error %q, classes %v", resp.Error, resp.Screen.Form.Classes)
	}

	rec, resp = do(t, s, http.MethodPost, "/api/v1/form/submit", `{"type":"running","distance":"5","duration":"30","cadence":"170"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status = %d, body %s", rec.Code, rec.Body)
	}
	if len(resp.Screen.Items) != 1 || len(resp.Screen.Map.Markers) != 1 {
		t.Fatalf("submit: %d items, %d markers", len(resp.Screen.Items), len(resp.Screen.Map.Markers))
	}
	if !strings.Contains(string(resp.Screen.Items[0].HTML), "6.0") {
		t.Errorf("item missing pace: %s", resp.Screen.Items[0].HTML)
	}
	if resp.Screen.Speech.Lines[0] != tracker.MsgCreated || resp.Screen.Form.Visible {
		t.Errorf("submit: speech %v, form %+v", resp.Screen.Speech, resp.Screen.Form)
	}
	id := resp.Screen.Items[0].ID

	rec, resp = do(t, s, http.MethodPost, "/api/v1/sort/time", "")
	if rec.Code != http.StatusOK || resp.Screen.Speech.Lines[0] != tracker.MsgSortedTime {
		t.Errorf("sort: status = %d, speech %v", rec.Code, resp.Screen.Speech)
	}

	rec, _ = do(t, s, http.MethodPost, "/api/v1/workouts/"+id+"/focus", "")
	if rec.Code != http.StatusOK {
		t.Errorf("focus: status = %d", rec.Code)
	}

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/workouts/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown: status = %d, want 404", rec.Code)
	}

	rec, resp = do(t, s, http.MethodDelete, "/api/v1/workouts/"+id, "")
	if rec.Code != http.StatusOK || len(resp.Screen.Items) != 0 || len(resp.Screen.Map.Markers) != 0 {
		t.Errorf("delete: status = %d, items %d, markers %d", rec.Code, len(resp.Screen.Items), len(resp.Screen.Map.Markers))
	}
}

// TestFormStateConflicts verifies submit and cancel without an open form.
func TestFormStateConflicts(t *testing.T) {
	s := newTestServer(t, "")
	for _, path := range []string{"/api/v1/form/submit", "/api/v1/form/cancel"} {
		rec, resp := do(t, s, http.MethodPost, path, `{}`)
		if rec.Code != http.StatusConflict || resp.Error == "" {
			t.Errorf("%s: status = %d, error %q; want 409", path, rec.Code, resp.Error)
		}
	}
}

// TestEditAndCancel verifies the edit round trip through the API.
func TestEditAndCancel(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/v1/position", `{"lat":1,"lng":1}`)
	do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":1,"lng":1}`)
	_, resp := do(t, s, http.MethodPost, "/api/v1/form/submit", `{"type":"cycling","distance":"20","duration":"60","elevation":"-10"}`)
	id := resp.Screen.Items[0].ID

	rec, resp := do(t, s, http.MethodPost, "/api/v1/workouts/"+id+"/edit", "")
	if rec.Code != http.StatusOK || !resp.Screen.Form.Visible || len(resp.Screen.Items) != 0 {
		t.Fatalf("edit: status = %d, form %+v, items %d", rec.Code, resp.Screen.Form, len(resp.Screen.Items))
	}

	rec, resp = do(t, s, http.MethodPost, "/api/v1/form/cancel", "")
	if rec.Code != http.StatusOK || len(resp.Screen.Items) != 1 || resp.Screen.Items[0].ID != id {
		t.Errorf("cancel: status = %d, items %+v", rec.Code, resp.Screen.Items)
	}
}

// TestClearAll verifies the clear-all endpoint empties the screen.
func TestClearAll(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/v1/position", `{"lat":1,"lng":1}`)
	do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":1,"lng":1}`)
	do(t, s, http.MethodPost, "/api/v1/form/submit", `{"type":"running","distance":"5","duration":"30","cadence":"170"}`)

	rec, resp := do(t, s, http.MethodDelete, "/api/v1/workouts", "")
	if rec.Code != http.StatusOK || len(resp.Screen.Items) != 0 {
		t.Errorf("clear: status = %d, items %d", rec.Code, len(resp.Screen.Items))
	}
	if resp.Screen.Speech.Lines[0] != tracker.MsgAllDeleted {
		t.Errorf("speech = %v", resp.Screen.Speech)
	}
}

// TestPositionError verifies a failed geolocation shows the map error.
func TestPositionError(t *testing.T) {
	s := newTestServer(t, "")
	rec, resp := do(t, s, http.MethodPost, "/api/v1/position/error", "")
	if rec.Code != http.StatusOK || resp.Screen.Map.Error != tracker.MsgNoPosition {
		t.Errorf("status = %d, map = %+v", rec.Code, resp.Screen.Map)
	}
}

// TestBadRequests verifies malformed bodies are rejected before reaching the tracker.
func TestBadRequests(t *testing.T) {
	s := newTestServer(t, "")
	tests := []struct {
		path, body string
	}{
		{"/api/v1/position", `not json`},
		{"/api/v1/position", `{"lat":1}`},
		{"/api/v1/map/click", `{}`},
		{"/api/v1/form/submit", `[`},
	}
	for _, tt := range tests {
		rec, _ := do(t, s, http.MethodPost, tt.path, tt.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %q: status = %d, want 400", tt.path, tt.body, rec.Code)
		}
	}
}

// TestListWorkouts verifies the collection export and its API key guard.
func TestListWorkouts(t *testing.T) {
	s := newTestServer(t, "secret")
	do(t, s, http.MethodPost, "/api/v1/position", `{"lat":1,"lng":1}`)
	do(t, s, http.MethodPost, "/api/v1/map/click", `{"lat":1,"lng":1}`)
	do(t, s, http.MethodPost, "/api/v1/form/submit", `{"type":"running","distance":"5","duration":"30","cadence":"170"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/workouts", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	ws, err := storage.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ws) != 1 || ws[0].Label() != "Running on April 14" {
		t.Errorf("workouts = %+v", ws)
	}
}

// TestImportUpload verifies an uploaded export is merged into the live
// collection and a repeated upload only counts duplicates.
func TestImportUpload(t *testing.T) {
	s := newTestServer(t, "")
	export := `[
	  {"date":"2026-04-14T07:00:00Z","id":"1","coords":[50,30],"distance":5,"duration":30,"type":"running","cadence":170,"pace":6},
	  {"date":"2026-04-14T07:00:00Z","id":"2","coords":[50,30],"distance":5,"duration":30,"type":"swimming"}
	]`

	post := func() (int, importResponse) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/import", strings.NewReader(export))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		var resp importResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return rec.Code, resp
	}

	code, resp := post()
	if code != http.StatusOK || resp.Inserted != 1 || resp.Rejected != 1 {
		t.Errorf("first upload: status = %d, resp = %+v", code, resp)
	}
	code, resp = post()
	if code != http.StatusOK || resp.Inserted != 0 || resp.Duplicated != 1 {
		t.Errorf("second upload: status = %d, resp = %+v", code, resp)
	}

	_, screenResp := do(t, s, http.MethodGet, "/api/v1/screen", "")
	if len(screenResp.Screen.Items) != 1 || screenResp.Screen.Items[0].ID != "1" {
		t.Errorf("items = %+v", screenResp.Screen.Items)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workouts/import", strings.NewReader("nope"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad export: status = %d, want 400", rec.Code)
	}
}

// TestScreenEndpoint verifies the read-only snapshot endpoint.
func TestScreenEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec, resp := do(t, s, http.MethodGet, "/api/v1/screen", "")
	if rec.Code != http.StatusOK || resp.Screen.Map.Ready {
		t.Errorf("status = %d, map = %+v", rec.Code, resp.Screen.Map)
	}
}

// TestMetricsEndpoint verifies Prometheus exposition is served.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec, _ := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mapty_tracker_workouts") {
		t.Errorf("metrics missing mapty_tracker_workouts")
	}
}

// TestFrontendFallback verifies files are served and unknown paths get index.html.
func TestFrontendFallback(t *testing.T) {
	s := newTestServer(t, "")
	s.SetFrontend(fstest.MapFS{
		"index.html": {Data: []byte("<html>mapty</html>")},
		"app.js":     {Data: []byte("console.log('mapty')")},
	})

	rec, _ := do(t, s, http.MethodGet, "/app.js", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("app.js: status = %d, body %q", rec.Code, rec.Body)
	}
	rec, _ = do(t, s, http.MethodGet, "/somewhere", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mapty</html>") {
		t.Errorf("fallback: status = %d, body %q", rec.Code, rec.Body)
	}
}
