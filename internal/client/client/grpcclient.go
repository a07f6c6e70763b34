package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/advn1/rback/internal/common"
	gs "github.com/advn1/rback/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Identity is what WhoAmI reports about the logged-in user.
type Identity struct {
	UserID    int64
	Name      string
	Email     string
	TokenType string
	ExpiresAt int64
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// accessTokenInterceptor attaches the access token to WhoAmI calls and, when
// the server answers Unauthenticated, rotates the refresh token and retries
// once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if method != gs.WhoAmIMethod {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	if access == "" {
		return ErrNotLoggedIn
	}

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated || refresh == "" {
		return err
	}

	// the refresh call bypasses this interceptor
	if rerr := s.refresh(ctx, refresh, func(ctx context.Context, method string, req, reply any) error {
		return invoker(ctx, method, req, reply, cc, opts...)
	}); rerr != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// NewGRPCClient returns a client for the server at endpointURL. opts are
// appended to the default dial options.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return ErrUnavailable
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	default:
		return fmt.Errorf("%s", st.Message())
	}
}

func (s *GRPCClient) Register(ctx context.Context, name, password, email string) (int64, error) {

	req, err := structpb.NewStruct(map[string]any{"name": name, "password": password, "email": email})
	if err != nil {
		return 0, err
	}

	resp := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.RegisterMethod, req, resp); err != nil {
		return 0, s.mapError(err)
	}

	return int64(resp.GetFields()["user_id"].GetNumberValue()), nil
}

// Login opens a session and keeps its tokens.
func (s *GRPCClient) Login(ctx context.Context, email, password string) error {

	req, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	if err != nil {
		return err
	}

	resp := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.LoginMethod, req, resp); err != nil {
		return s.mapError(err)
	}

	f := resp.GetFields()
	s.setTokens(f["access_token"].GetStringValue(), f["refresh_token"].GetStringValue())
	return nil
}

func (s *GRPCClient) refresh(ctx context.Context, refreshToken string,
	invoke func(ctx context.Context, method string, req, reply any) error) error {

	resp := new(structpb.Struct)
	if err := invoke(ctx, gs.RefreshMethod, wrapperspb.String(refreshToken), resp); err != nil {
		return err
	}

	f := resp.GetFields()
	s.setTokens(f["new_access_token"].GetStringValue(), f["new_refresh_token"].GetStringValue())
	return nil
}

// Refresh rotates the current refresh token.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refreshToken := s.tokens()
	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	invoke := func(ctx context.Context, method string, req, reply any) error {
		return s.conn.Invoke(ctx, method, req, reply)
	}
	if err := s.refresh(ctx, refreshToken, invoke); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Logout revokes the current refresh token and forgets both tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {
	_, refreshToken := s.tokens()
	if refreshToken == "" {
		return ErrNotLoggedIn
	}

	if err := s.conn.Invoke(ctx, gs.LogoutMethod, wrapperspb.String(refreshToken), new(emptypb.Empty)); err != nil {
		return s.mapError(err)
	}

	s.setTokens("", "")
	return nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Identity, error) {

	resp := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, gs.WhoAmIMethod, &emptypb.Empty{}, resp); err != nil {
		return nil, s.mapError(err)
	}

	f := resp.GetFields()
	return &Identity{
		UserID:    int64(f["user_id"].GetNumberValue()),
		Name:      f["name"].GetStringValue(),
		Email:     f["email"].GetStringValue(),
		TokenType: f["token_type"].GetStringValue(),
		ExpiresAt: int64(f["exp"].GetNumberValue()),
	}, nil
}

// LoggedIn reports whether the client holds a refresh token.
func (s *GRPCClient) LoggedIn() bool {
	_, refreshToken := s.tokens()
	return refreshToken != ""
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}
