package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventreview/internal/logging"
	"eventreview/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(logging.Discard(), srv.URL, token)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "://nope"} {
		if _, err := NewClient(logging.Discard(), raw, ""); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", raw)
		}
	}
}

func TestListEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"uid":"a","recurrence_id":null,"start_time":"2024-01-01T10:00:00Z","rejected":false},
			{"uid":"b","recurrence_id":"20240102T100000","start_time":"2024-01-02T10:00:00Z","rejected":true}
		]`))
	})
	c := newTestClient(t, mux, "")

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].RecurrenceID != "20240102T100000" || events[1].Status != models.StatusRejected {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestNonSuccessStatusIsStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events/stats", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})
	c := newTestClient(t, mux, "")

	_, err := c.GetStats(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Body != "boom" {
		t.Errorf("unexpected status error: %+v", se)
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Errorf("StatusCode(err) = %d", StatusCode(err))
	}
}

func TestPatchEventSendsOnlySetFields(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/events/{uid}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("uid") != "evt-1@example.com" {
			t.Errorf("uid = %q", r.PathValue("uid"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	c := newTestClient(t, mux, "")

	rejected := true
	if err := c.PatchEvent(context.Background(), "evt-1@example.com", PatchRequest{Rejected: &rejected}); err != nil {
		t.Fatalf("PatchEvent: %v", err)
	}
	if got["recurrence_id"] != "" || got["rejected"] != true {
		t.Errorf("body = %v", got)
	}
	if _, ok := got["organization"]; ok {
		t.Errorf("organization should be omitted: %v", got)
	}
}

func TestUpdateStatusUsesWireNames(t *testing.T) {
	var got StatusRequest
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/events/{uid}/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	})
	c := newTestClient(t, mux, "")

	if err := c.UpdateStatus(context.Background(), "a", models.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != "reviewed" {
		t.Errorf("status = %q, want reviewed", got.Status)
	}
}

func TestOverlayEndpoints(t *testing.T) {
	var set OverlayRequest
	var deletedField string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/events/{uid}/overlay", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&set)
	})
	mux.HandleFunc("DELETE /api/events/{uid}/overlay/{field}", func(w http.ResponseWriter, r *http.Request) {
		deletedField = r.PathValue("field")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux, "")
	ctx := context.Background()

	req := OverlayRequest{Field: "location", Value: "Main St", MergeLogic: "overwrite_empty", Reason: "why"}
	if err := c.SetOverlay(ctx, "a", req); err != nil {
		t.Fatalf("SetOverlay: %v", err)
	}
	if set != req {
		t.Errorf("overlay body = %+v", set)
	}

	if err := c.DeleteOverlay(ctx, "a", "location"); err != nil {
		t.Fatalf("DeleteOverlay: %v", err)
	}
	if deletedField != "location" {
		t.Errorf("deleted field = %q", deletedField)
	}
}

func TestBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("token transport dropped X-Request-ID")
		}
		w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux, "secret")

	if _, err := c.ListEvents(context.Background()); err != nil {
		t.Fatalf("ListEvents with token: %v", err)
	}
}

func TestNetworkErrorIsNotStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewClient(logging.Discard(), srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	srv.Close()

	_, err = c.ListEvents(context.Background())
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode(err) = %d, want 0", StatusCode(err))
	}
}
