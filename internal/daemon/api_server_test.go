package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"headphones/internal/api"
	"headphones/internal/logging"
	"headphones/internal/postprocess"
	"headphones/internal/snatch"
)

type snatchStoreStub struct {
	items []*snatch.Snatch
}

func (s *snatchStoreStub) List(context.Context, ...snatch.Status) ([]*snatch.Snatch, error) {
	return s.items, nil
}

func (s *snatchStoreStub) Stats(context.Context) (map[snatch.Status]int, error) {
	return map[snatch.Status]int{snatch.StatusSnatched: len(s.items)}, nil
}

func (s *snatchStoreStub) Get(_ context.Context, id int64) (*snatch.Snatch, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

type resultScanner struct {
	results []postprocess.Result
}

func (s resultScanner) CheckFolders(context.Context) ([]postprocess.Result, error) {
	return s.results, nil
}

func testServer(items ...*snatch.Snatch) *apiServer {
	d := &Daemon{
		scanNow:   make(chan struct{}, 1),
		searchNow: make(chan struct{}, 1),
	}
	d.workers = Workers{Scanner: resultScanner{results: []postprocess.Result{{
		AlbumID: "album-1",
		Outcome: postprocess.OutcomeProcessed,
		Folder:  "/downloads/Abbey Road",
	}}}}
	return &apiServer{daemon: d, logger: logging.NewNop(), snatchSvc: api.NewSnatchService(&snatchStoreStub{items: items})}
}

func TestAPIServerHandleSnatches(t *testing.T) {
	srv := testServer(&snatch.Snatch{ID: 1, AlbumID: "album-1", Title: "Abbey Road", Status: snatch.StatusSnatched})

	req := httptest.NewRequest(http.MethodGet, "/api/snatches?status=Snatched", nil)
	w := httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.SnatchListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Title != "Abbey Road" {
		t.Fatalf("unexpected title: %q", resp.Items[0].Title)
	}
}

func TestAPIServerHandleSnatchesEmpty(t *testing.T) {
	srv := testServer()

	w := httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snatches", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["items"]) != "[]" {
		t.Fatalf("expected empty array, got %s", raw["items"])
	}
}

func TestAPIServerHandleSnatch(t *testing.T) {
	srv := testServer(&snatch.Snatch{ID: 7, AlbumID: "album-1", Title: "Abbey Road"})

	tests := []struct {
		path string
		code int
	}{
		{"/api/snatches/7", http.StatusOK},
		{"/api/snatches/8", http.StatusNotFound},
		{"/api/snatches/abc", http.StatusBadRequest},
		{"/api/snatches/7/extra", http.StatusNotFound},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.code, w.Code)
		}
	}
}

func TestAPIServerHandleScan(t *testing.T) {
	srv := testServer()

	w := httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.ScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Outcome != "processed" {
		t.Fatalf("unexpected scan results: %+v", resp.Results)
	}

	w = httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan?async=1", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var trig api.TriggerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &trig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !trig.Accepted || trig.Job != "scan" {
		t.Fatalf("unexpected trigger response: %+v", trig)
	}

	w = httptest.NewRecorder()
	srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scan", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAPIServerSearchCoalescesRequests(t *testing.T) {
	srv := testServer()

	for i, want := range []bool{true, false} {
		w := httptest.NewRecorder()
		srv.routes("").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/search", nil))
		var resp api.TriggerResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Accepted != want {
			t.Fatalf("request %d: expected accepted=%v", i, want)
		}
	}
}
