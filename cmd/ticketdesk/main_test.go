package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"ticketDesk/internal/logging"
)

func TestServe_ListenFailureIsReturned(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	stopped := false
	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	err = serve(context.Background(), srv, func() (func(context.Context) error, error) {
		return func(context.Context) error { stopped = true; return nil }, nil
	}, logging.Discard())
	if err == nil || !strings.HasPrefix(err.Error(), "http server: ") {
		t.Fatalf("serve error = %v", err)
	}
	if !stopped {
		t.Fatalf("scan feed not stopped after http failure")
	}
}

func TestServe_FeedFailureStopsHTTP(t *testing.T) {
	feedErr := errors.New("address in use")
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	err := serve(context.Background(), srv, func() (func(context.Context) error, error) {
		return nil, feedErr
	}, logging.Discard())
	if !errors.Is(err, feedErr) {
		t.Fatalf("serve error = %v", err)
	}
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("http server still usable after feed failure: %v", err)
	}
}

func TestServe_CancelShutsDownCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stopped := false
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	err := serve(ctx, srv, func() (func(context.Context) error, error) {
		return func(context.Context) error { stopped = true; return nil }, nil
	}, logging.Discard())
	if err != nil {
		t.Fatalf("serve error = %v", err)
	}
	if !stopped {
		t.Fatalf("scan feed not stopped")
	}
}

func TestRollbackDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")
	if err := rollbackDB(path, logging.Discard()); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	d, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'client_state'`).Scan(&n); err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if n != 0 {
		t.Fatalf("client_state still present after rollback")
	}
}
