package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/config"
	"ticketDesk/internal/scanner"
	"ticketDesk/internal/testutil"
)

const testSecret = "feed-secret"

// fixedSource serves one machine, or none when m is nil.
type fixedSource struct{ m *scanner.Machine }

func (f fixedSource) ActiveScanner() (*scanner.Machine, bool) {
	if f.m == nil || f.m.Closed() {
		return nil, false
	}
	return f.m, true
}

func newMachine(t *testing.T, verify func(context.Context, string) error) *scanner.Machine {
	t.Helper()
	m := scanner.New(context.Background(), scanner.VerifierFunc(verify), scanner.WithResetAfter(time.Hour))
	t.Cleanup(m.Close)
	return m
}

func decoderCtx(name string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{Name: name, Kind: auth.KindDecoder})
}

func code(err error) codes.Code { return status.Code(err) }

func TestSubmit_NoScannerOpen(t *testing.T) {
	s := &FeedServer{Scanners: fixedSource{}}
	_, err := s.Submit(decoderCtx("gate-a"), wrapperspb.String("ticket-1"))
	if code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
	_, err = s.Current(decoderCtx("gate-a"), &emptypb.Empty{})
	if code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestSubmit_RequiresDecoder(t *testing.T) {
	s := &FeedServer{Scanners: fixedSource{m: newMachine(t, func(context.Context, string) error { return nil })}}
	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{Name: "kiosk", Kind: "display"})
	if _, err := s.Submit(ctx, wrapperspb.String("ticket-1")); code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := s.Submit(context.Background(), wrapperspb.String("ticket-1")); code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestSubmit_EmptyPayload(t *testing.T) {
	s := &FeedServer{Scanners: fixedSource{m: newMachine(t, func(context.Context, string) error { return nil })}}
	if _, err := s.Submit(decoderCtx("gate-a"), wrapperspb.String("  ")); code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestSubmit_OneVerificationAtATime(t *testing.T) {
	release := make(chan struct{})
	m := newMachine(t, func(ctx context.Context, _ string) error {
		select {
		case <-release:
			return errors.New("boom")
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	s := &FeedServer{Scanners: fixedSource{m: m}}

	out, err := s.Submit(decoderCtx("gate-a"), wrapperspb.String("ticket-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Fields["accepted"].GetBoolValue() || out.Fields["state"].GetStringValue() != "verifying" {
		t.Fatalf("unexpected response %v", out)
	}
	out, err = s.Submit(decoderCtx("gate-b"), wrapperspb.String("ticket-2"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Fields["accepted"].GetBoolValue() {
		t.Fatalf("second submit accepted while verifying")
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for m.Snapshot().State != scanner.Resolved {
		if time.Now().After(deadline) {
			t.Fatalf("never resolved")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cur, err := s.Current(decoderCtx("gate-a"), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	f := cur.Fields
	if f["state"].GetStringValue() != "resolved" || f["payload"].GetStringValue() != "ticket-1" ||
		f["success"].GetBoolValue() || f["message"].GetStringValue() != scanner.RejectedMessage {
		t.Fatalf("unexpected current %v", cur)
	}
	if _, err := time.Parse(time.RFC3339, f["at"].GetStringValue()); err != nil {
		t.Fatalf("bad at: %v", err)
	}
}

func dialBufconn(t *testing.T, src ScannerSource) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(testSecret, src, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestScanFeedOverTheWire(t *testing.T) {
	m := newMachine(t, func(context.Context, string) error { return nil })
	conn := dialBufconn(t, fixedSource{m: m})
	client := NewScanFeedClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Submit(ctx, "ticket-123"); code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated without token, got %v", err)
	}

	bad := testutil.OutgoingBearer(ctx, testutil.GenerateDeviceJWT(t, "wrong-secret", "gate-a", auth.KindDecoder))
	if _, err := client.Submit(bad, "ticket-123"); code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated with foreign token, got %v", err)
	}

	authed := testutil.OutgoingBearer(ctx, testutil.GenerateDeviceJWT(t, testSecret, "gate-a", auth.KindDecoder))
	out, err := client.Submit(authed, "ticket-123")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Fields["accepted"].GetBoolValue() {
		t.Fatalf("not accepted: %v", out)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		cur, err := client.Current(authed)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if cur.Fields["state"].GetStringValue() == "resolved" {
			if !cur.Fields["success"].GetBoolValue() || cur.Fields["message"].GetStringValue() != scanner.GrantedMessage {
				t.Fatalf("unexpected current %v", cur)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never resolved")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a := m.Snapshot().Attempt; a == nil || a.Source != "device:gate-a" {
		t.Fatalf("attempt source not recorded: %+v", a)
	}
}

func TestHealthCheckBypassesAuth(t *testing.T) {
	conn := dialBufconn(t, fixedSource{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestStartGRPC(t *testing.T) {
	if _, err := StartGRPC(&config.Config{}, fixedSource{}, nil); err == nil {
		t.Fatalf("expected error for empty address")
	}

	cfg := &config.Config{}
	cfg.GRPC.Address = "127.0.0.1:0"
	cfg.Auth.DeviceSecret = testSecret
	shutdown, err := StartGRPC(cfg, fixedSource{}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
