package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rback.auth.v1.AuthService"

const (
	RegisterMethod = "/" + ServiceName + "/Register"
	LoginMethod    = "/" + ServiceName + "/Login"
	RefreshMethod  = "/" + ServiceName + "/Refresh"
	LogoutMethod   = "/" + ServiceName + "/Logout"
	WhoAmIMethod   = "/" + ServiceName + "/WhoAmI"
)

// AuthServiceServer is the server API of rback.auth.v1.AuthService. Messages
// are protobuf well-known types, so no generated code is needed.
//
//	Register Struct{name, password, email} -> Struct{message, user_id}
//	Login    Struct{email, password}       -> Struct{access_token, refresh_token}
//	Refresh  StringValue(refresh token)    -> Struct{new_access_token, new_refresh_token}
//	Logout   StringValue(refresh token)    -> Empty
//	WhoAmI   Empty                         -> Struct{user_id, name, email, token_type, exp}
type AuthServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Logout(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// AuthServiceDesc describes AuthServiceServer for grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Register", RegisterMethod, newStruct, AuthServiceServer.Register),
		unaryMethod("Login", LoginMethod, newStruct, AuthServiceServer.Login),
		unaryMethod("Refresh", RefreshMethod, newString, AuthServiceServer.Refresh),
		unaryMethod("Logout", LogoutMethod, newString, AuthServiceServer.Logout),
		unaryMethod("WhoAmI", WhoAmIMethod, newEmpty, AuthServiceServer.WhoAmI),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rback/auth/v1/auth.proto",
}

func newStruct() *structpb.Struct        { return new(structpb.Struct) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }

// unaryMethod builds the method handler protoc-gen-go-grpc would generate.
func unaryMethod[Req proto.Message, Resp proto.Message](
	name, fullMethod string,
	newReq func() Req,
	call func(AuthServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(AuthServiceServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
