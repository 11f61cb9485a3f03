package grpc

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sweetcrumb/backoffice-auth/internal/application"
	"github.com/sweetcrumb/backoffice-auth/internal/domain"
)

// AuthInternalService is the service-to-service surface other back-office
// services call to validate access tokens and force session revocation.
type AuthInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RevokeAccountSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type AuthInternalServer struct {
	service *application.Service
}

func NewAuthInternalServer(service *application.Service) *AuthInternalServer {
	return &AuthInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc AuthInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "sweetcrumb.auth.v1.AuthInternalService",
		HandlerType: (*AuthInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    structHandler(svc, "ValidateToken", AuthInternalService.ValidateToken),
			},
			{
				MethodName: "RevokeAccountSessions",
				Handler:    structHandler(svc, "RevokeAccountSessions", AuthInternalService.RevokeAccountSessions),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "proto/auth/v1/auth_internal.proto",
	}, svc)
}

func (s *AuthInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.service.ValidateAccessToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			return nil, status.Error(codes.Unauthenticated, "token expired")
		case errors.Is(err, domain.ErrAuthorization):
			return nil, status.Error(codes.PermissionDenied, "account cannot authenticate")
		default:
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"account_id": claims.AccountID.String(),
		"email":      claims.Email,
		"role":       string(claims.Role),
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *AuthInternalServer) RevokeAccountSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := req.GetFields()["account_id"].GetStringValue()
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "account_id must be a UUID")
	}

	revoked, err := s.service.LogoutAll(ctx, accountID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "revoke sessions: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"revoked_sessions": revoked,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func structHandler(
	svc AuthInternalService,
	method string,
	invoke func(AuthInternalService, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/sweetcrumb.auth.v1.AuthInternalService/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return invoke(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return invoke(svc, ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
