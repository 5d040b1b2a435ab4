package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ticketDesk/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.Handler, tok string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, staticToken(tok), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New("ftp://example.com", nil); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestLogin_PublicNoBearer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("public call carried Authorization %q", h)
		}
		var in models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Email != "admin@example.com" {
			t.Errorf("email = %q", in.Email)
		}
		_, _ = w.Write([]byte(`{"accessToken":"tok","user":{"id":"1","email":"admin@example.com","name":"Ada","role":"admin"}}`))
	}), "ignored")

	cred, err := c.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if cred.AccessToken != "tok" || cred.User.Role != models.RoleAdmin {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestAuthenticatedCallsAttachBearer(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`[]`))
	}), "tok-1")

	if _, err := c.MyTickets(context.Background()); err != nil {
		t.Fatalf("my tickets: %v", err)
	}
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), "")
	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("request should not have been sent")
	}
}

func TestErrorMessageDecoding(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"message":"Ticket already used"}`, "Ticket already used"},
		{"list", `{"message":["name too short","capacity must be positive"]}`, "name too short; capacity must be positive"},
		{"none", `{"error":"boom"}`, ""},
		{"html", `<html>oops</html>`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(tc.body))
			}), "tok")
			err := c.Scan(context.Background(), "ticket-999")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != http.StatusConflict || apiErr.Message != tc.want {
				t.Fatalf("got %d %q", apiErr.StatusCode, apiErr.Message)
			}
			if got := MessageOr(err, "fallback"); tc.want == "" && got != "fallback" {
				t.Fatalf("MessageOr = %q", got)
			}
		})
	}
}

func TestScanSendsTicketID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if r.URL.Path != "/scan" || in["ticketId"] != "ticket-123" {
			t.Errorf("unexpected scan request %s %v", r.URL.Path, in)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}), "tok")
	if err := c.Verify(context.Background(), "ticket-123"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestUpdateEventSendsOnlyChangedFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/events/7" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if len(raw) != 1 || raw["capacity"] != float64(80) {
			t.Errorf("patch body = %v", raw)
		}
		_, _ = w.Write([]byte(`{"id":7,"name":"Gig","capacity":80}`))
	}), "tok")
	capacity := 80
	ev, err := c.UpdateEvent(context.Background(), 7, models.UpdateEventRequest{Capacity: &capacity})
	if err != nil || ev.Capacity != 80 {
		t.Fatalf("update: %v %+v", err, ev)
	}
}

func TestDeleteNoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.EscapedPath() != "/tickets/abc%2Fdef" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	}), "tok")
	if err := c.DeleteTicket(context.Background(), "abc/def"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), "tok")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := c.ListEvents(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTicketCounts_PartialFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tickets/1":
			_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
		case "/tickets/2":
			w.WriteHeader(http.StatusInternalServerError)
		case "/tickets/3":
			_, _ = w.Write([]byte(`[{"id":"c"}]`))
		default:
			http.NotFound(w, r)
		}
	}), "tok")

	got := c.TicketCounts(context.Background(), []int64{1, 2, 3})
	if got[1] != 2 || got[2] != 0 || got[3] != 1 {
		t.Fatalf("counts = %v", got)
	}
	if _, ok := got[2]; !ok {
		t.Fatalf("failed event must still have a placeholder entry")
	}
}

func TestListEventsDecodesAvailability(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Full","capacity":50,"ticketsSold":50,"dateStart":"2026-11-01T18:00:00Z"}]`))
	}), "")
	events, err := c.ListEvents(context.Background())
	if err != nil || len(events) != 1 {
		t.Fatalf("list: %v %v", err, events)
	}
	if !events[0].SoldOut() || events[0].Remaining() != 0 {
		t.Fatalf("expected sold out: %+v", events[0])
	}
	if !strings.HasPrefix(events[0].DateStart.Format(time.RFC3339), "2026-11-01") {
		t.Fatalf("date not decoded: %v", events[0].DateStart)
	}
}
