package inspect

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"localgroup/internal/engine"
)

const (
	// ServiceName is the fully qualified inspector service name.
	ServiceName = "localgroup.v1.Inspector"

	snapshotMethod = "/" + ServiceName + "/Snapshot"
)

// Snapshotter supplies node state. *node.Node implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context) (engine.State, error)
}

// InspectorServer is the server API for the inspector service.
type InspectorServer interface {
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var inspectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InspectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "localgroup/v1/inspector.proto",
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InspectorServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: snapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InspectorServer).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterInspectorServer registers srv on s.
func RegisterInspectorServer(s grpc.ServiceRegistrar, srv InspectorServer) {
	s.RegisterService(&inspectorServiceDesc, srv)
}

// Server implements the inspector service for one node.
type Server struct {
	src    Snapshotter
	log    *zap.Logger
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates the gRPC server with health, reflection and inspector
// services registered.
func NewServer(src Snapshotter, logger *zap.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		src:    src,
		log:    logger.Named("inspect"),
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	RegisterInspectorServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Enable gRPC reflection for grpcurl
	reflection.Register(s.grpc)
	return s
}

// Snapshot handles the inspector Snapshot method.
func (s *Server) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	state, err := s.src.Snapshot(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "snapshot: %v", err)
	}
	pb, err := stateToStruct(state)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return pb, nil
}

// Serve accepts connections on lis until Stop. Serving after Stop returns nil.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("serving", zap.Stringer("addr", lis.Addr()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop marks the services not serving and stops gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
