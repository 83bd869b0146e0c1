package plugin

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The MessageHook service carries protobuf well-known types only, so
// there is no generated code to keep in sync between host and plugins.
const (
	hookServiceName      = "payloadlog.MessageHook"
	hookInitializeMethod = "/payloadlog.MessageHook/Initialize"
	hookOnMessageMethod  = "/payloadlog.MessageHook/OnMessage"
	hookCleanupMethod    = "/payloadlog.MessageHook/Cleanup"
)

// hookService is the server side of the MessageHook gRPC service.
type hookService interface {
	Initialize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	OnMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cleanup(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var hookServiceDesc = grpc.ServiceDesc{
	ServiceName: hookServiceName,
	HandlerType: (*hookService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Initialize", Handler: initializeHandler},
		{MethodName: "OnMessage", Handler: onMessageHandler},
		{MethodName: "Cleanup", Handler: cleanupHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payloadlog/hook.proto",
}

func initializeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(hookService).Initialize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: hookInitializeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(hookService).Initialize(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func onMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(hookService).OnMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: hookOnMessageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(hookService).OnMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func cleanupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(hookService).Cleanup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: hookCleanupMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(hookService).Cleanup(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// hookGRPCServer adapts a Hook to the MessageHook service.
type hookGRPCServer struct {
	impl Hook
}

func (s *hookGRPCServer) Initialize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return resultToProto(s.impl.Initialize(ctx, protoToInitialize(req))), nil
}

func (s *hookGRPCServer) OnMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ev, err := protoToMessageEvent(req)
	if err != nil {
		return statusToProto(StatusUnknown), nil
	}
	return statusToProto(s.impl.OnMessage(ctx, ev)), nil
}

func (s *hookGRPCServer) Cleanup(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return resultToProto(s.impl.Cleanup(ctx)), nil
}

// HookClient is the host side of a hook running in a plugin process.
// It implements Hook, so the host treats it like any local hook.
type HookClient struct {
	conn grpc.ClientConnInterface
}

// NewHookClient creates a Hook backed by the given gRPC connection.
func NewHookClient(conn grpc.ClientConnInterface) *HookClient {
	return &HookClient{conn: conn}
}

// Initialize sends the hook configuration to the plugin.
func (c *HookClient) Initialize(ctx context.Context, req *InitializeRequest) error {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, hookInitializeMethod, initializeToProto(req), out); err != nil {
		return err
	}
	return protoToResult(out)
}

// OnMessage forwards the event to the plugin. A plugin that does not serve
// the MessageHook service yields StatusNotSupported; other transport
// failures are reported as StatusUnknown.
func (c *HookClient) OnMessage(ctx context.Context, ev *MessageEvent) Status {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, hookOnMessageMethod, messageEventToProto(ev), out); err != nil {
		if status.Code(err) == codes.Unimplemented {
			return StatusNotSupported
		}
		slog.Default().Error("Failed to deliver message to hook",
			slog.String("client_id", ev.ClientID),
			slog.Any("error", err))
		return StatusUnknown
	}
	return protoToStatus(out)
}

// Cleanup asks the plugin to release its resources.
func (c *HookClient) Cleanup(ctx context.Context) error {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, hookCleanupMethod, &emptypb.Empty{}, out); err != nil {
		return err
	}
	return protoToResult(out)
}

var (
	_ Hook = (*HookClient)(nil)

	errHookFailed = errors.New("hook reported failure")
)
