// Package grpc exposes the session-token operations as the
// rback.auth.v1.AuthService gRPC service, alongside the standard health
// service.
package grpc

import (
	"context"
	"net"

	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/models"
	"github.com/advn1/rback/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AuthService is the subset of services.UserService the server calls.
type AuthService interface {
	Register(ctx context.Context, name, password, email string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	IdentifyRefresh(presented string) (auth.Identity, error)
	Refresh(ctx context.Context, presented string, caller auth.Identity) (*services.TokenPair, error)
	Logout(ctx context.Context, presented string) error
}

// AccessVerifier verifies access tokens. *auth.Codec satisfies it.
type AccessVerifier interface {
	Verify(token string, kind auth.TokenType) (*auth.TokenClaims, error)
}

type GRPCServer struct {
	address  string
	users    AuthService
	verifier AccessVerifier
	logger   logging.Logger
}

var _ AuthServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us AuthService, v AccessVerifier) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		verifier: v,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	// registers services
	srv.RegisterService(&AuthServiceDesc, s)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		healthSrv.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
