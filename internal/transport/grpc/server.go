// Package grpcx exposes a read-only admin service over gRPC, together with
// the standard health service. Messages use protobuf well-known types, so
// the service descriptor is declared by hand.
package grpcx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const AdminServiceName = "relay.admin.v1.Admin"

// AdminServer is the server API of relay.admin.v1.Admin.
type AdminServer interface {
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListRooms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListUsers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type adminMethod func(AdminServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(name string, call adminMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + AdminServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*emptypb.Empty))
			})
		},
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Stats", AdminServer.Stats),
		unaryHandler("ListRooms", AdminServer.ListRooms),
		unaryHandler("ListUsers", AdminServer.ListUsers),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay/admin/v1/admin.proto",
}

// SnapshotSource is satisfied by *service.Registry.
type SnapshotSource interface {
	Snapshot() service.Snapshot
}

type Server struct {
	registry SnapshotSource
}

func NewServer(registry SnapshotSource) *Server {
	return &Server{registry: registry}
}

func (s *Server) Stats(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.registry.Snapshot()
	return toStruct(struct {
		Users        int `json:"users"`
		Rooms        int `json:"rooms"`
		Polls        int `json:"polls"`
		PendingPolls int `json:"pendingPolls"`
	}{
		Users:        len(snap.Users),
		Rooms:        len(snap.Rooms),
		Polls:        snap.Polls,
		PendingPolls: snap.PendingPolls,
	})
}

func (s *Server) ListRooms(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]any{"rooms": s.registry.Snapshot().Rooms})
}

func (s *Server) ListUsers(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]any{"users": s.registry.Snapshot().Users})
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "decode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "struct: %v", err)
	}
	return out, nil
}

func Register(grpcServer *grpc.Server, s AdminServer) *health.Server {
	grpcServer.RegisterService(&adminServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

// NewGRPCServer builds a server with the logging interceptors and the admin
// and health services registered.
func NewGRPCServer(registry SnapshotSource, cfg Config) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(cfg.CallTimeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := Register(gs, NewServer(registry))
	return gs, hs
}

// Run serves on cfg.Addr until ctx is done. Health flips to NOT_SERVING
// before the graceful stop.
func Run(ctx context.Context, cfg Config, gs *grpc.Server, hs *health.Server) error {
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", cfg.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("grpc server listening", "addr", cfg.Addr)
		errCh <- gs.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
