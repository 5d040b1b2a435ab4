package grpcserver

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/logging"
	"ticketDesk/internal/scanner"
)

// Scan feed method names.
const (
	ServiceName   = "ticketdesk.scanfeed.v1.ScanFeed"
	SubmitMethod  = "/" + ServiceName + "/Submit"
	CurrentMethod = "/" + ServiceName + "/Current"
)

// ScanFeedServer is the scan feed offered to decoder devices. Messages are
// protobuf well-known types so devices need no generated stubs.
type ScanFeedServer interface {
	// Submit hands a decoded payload to the open scanner screen.
	Submit(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Current reports what the scanner screen is showing.
	Current(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ScannerSource yields the machine of the open scanner screen.
type ScannerSource interface {
	ActiveScanner() (*scanner.Machine, bool)
}

// FeedServer implements ScanFeedServer on top of the open scanner screen.
type FeedServer struct {
	Scanners ScannerSource
	Logger   *logging.Logger
}

var errNoScanner = status.Error(codes.FailedPrecondition, "scanner screen is not open")

// Submit forwards a payload. accepted is false when the machine is busy
// verifying or showing a previous result.
func (s *FeedServer) Submit(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	p, err := auth.RequireDecoder(ctx)
	if err != nil {
		return nil, err
	}
	payload := strings.TrimSpace(in.GetValue())
	if payload == "" {
		return nil, status.Error(codes.InvalidArgument, "payload is required")
	}
	m, ok := s.Scanners.ActiveScanner()
	if !ok {
		return nil, errNoScanner
	}

	accepted := m.Decode(payload, "device:"+p.Name)
	snap := m.Snapshot()
	if s.Logger != nil {
		s.Logger.Debug("scan feed submit", "device", p.Name, "accepted", accepted, "state", snap.State.String())
	}

	out, err := structpb.NewStruct(map[string]any{
		"accepted": accepted,
		"state":    snap.State.String(),
		"message":  message(snap),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Current returns the scanner's state and, once resolved, the outcome.
func (s *FeedServer) Current(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	m, ok := s.Scanners.ActiveScanner()
	if !ok {
		return nil, errNoScanner
	}
	snap := m.Snapshot()

	fields := map[string]any{
		"state":   snap.State.String(),
		"message": message(snap),
	}
	if a := snap.Attempt; a != nil {
		fields["payload"] = a.Payload
		if a.Outcome != nil {
			fields["success"] = a.Outcome.Success
			fields["at"] = a.ResolvedAt.UTC().Format(time.RFC3339)
		}
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func message(snap scanner.Snapshot) string {
	if a := snap.Attempt; a != nil && a.Outcome != nil {
		return a.Outcome.Message
	}
	return ""
}

// ScanFeedServiceDesc registers a ScanFeedServer with a grpc.Server.
var ScanFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScanFeedServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "Current", Handler: currentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ticketdesk/scanfeed/v1/scanfeed.proto",
}

// RegisterScanFeedServer registers srv on s.
func RegisterScanFeedServer(s grpc.ServiceRegistrar, srv ScanFeedServer) {
	s.RegisterService(&ScanFeedServiceDesc, srv)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanFeedServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScanFeedServer).Submit(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func currentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanFeedServer).Current(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CurrentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScanFeedServer).Current(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ScanFeedClient calls the scan feed, for decoder devices and tests.
type ScanFeedClient struct {
	cc grpc.ClientConnInterface
}

// NewScanFeedClient wraps an established connection.
func NewScanFeedClient(cc grpc.ClientConnInterface) *ScanFeedClient {
	return &ScanFeedClient{cc: cc}
}

// Submit sends one decoded payload.
func (c *ScanFeedClient) Submit(ctx context.Context, payload string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SubmitMethod, wrapperspb.String(payload), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Current fetches the scanner state.
func (c *ScanFeedClient) Current(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CurrentMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
