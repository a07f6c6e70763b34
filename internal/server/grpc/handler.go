package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps service errors to gRPC status codes. Storage and hashing
// causes are logged, never sent.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, validationMessage(verr))
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, "refresh token cannot be empty")
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "user with this name or email already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid email or password")
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return status.Error(codes.Unauthenticated, "invalid or expired refresh token")
	default:
		s.logger.Error(ctx, op+" failed", "error", err.Error())
		return status.Error(codes.Internal, "internal error")
	}
}

// validationMessage flattens field errors into "field: msg; field: msg".
func validationMessage(verr *services.ValidationError) string {
	parts := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		for _, m := range f.Messages {
			parts = append(parts, f.Field+": "+m)
		}
	}
	if len(parts) == 0 {
		return verr.Error()
	}
	return strings.Join(parts, "; ")
}

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	s.logger.Info(ctx, "Registration request")

	fields := req.GetFields()
	user, err := s.users.Register(ctx,
		fields["name"].GetStringValue(), fields["password"].GetStringValue(), fields["email"].GetStringValue())
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	return structpb.NewStruct(map[string]any{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if header, ok := authorization(ctx); ok {
		msg := "not bearer"
		if strings.HasPrefix(header, common.BearerPrefix) {
			msg = "already authorized"
		}
		return nil, status.Error(codes.FailedPrecondition, msg)
	}

	fields := req.GetFields()
	tokens, err := s.users.Login(ctx, fields["email"].GetStringValue(), fields["password"].GetStringValue())
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}

	return structpb.NewStruct(map[string]any{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {

	caller, err := s.users.IdentifyRefresh(req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "refresh", err)
	}

	tokens, err := s.users.Refresh(ctx, req.GetValue(), caller)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh", err)
	}

	return structpb.NewStruct(map[string]any{
		"new_access_token":  tokens.AccessToken,
		"new_refresh_token": tokens.RefreshToken,
	})
}

func (s *GRPCServer) Logout(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {

	if err := s.users.Logout(ctx, req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, "logout", err)
	}

	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	return structpb.NewStruct(map[string]any{
		"user_id":    claims.UserID,
		"name":       claims.Name,
		"email":      claims.Email,
		"token_type": string(claims.TokenType),
		"exp":        claims.Expiry().Unix(),
	})
}
