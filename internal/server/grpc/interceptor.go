package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authorizationKey is the metadata key carrying "Bearer <access token>".
// gRPC lowercases metadata keys.
var authorizationKey = strings.ToLower(common.AuthorizationHeaderName)

var protectedMethods = map[string]bool{
	WhoAmIMethod: true,
}

func authorization(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if protectedMethods[info.FullMethod] {

		header, _ := authorization(ctx)
		accessToken, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := s.verifier.Verify(accessToken, auth.Access)
		if err != nil {
			s.logger.Debug(ctx, "access token rejected", "reason", err.Error())
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = auth.WithClaims(ctx, claims)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
