package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/clipstage/share-access-service/internal/application"
)

// ContentTokenService is the internal surface the delivery tier calls
// to validate scoped content tokens before serving bytes.
type ContentTokenService interface {
	ValidateContentToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type ContentTokenServer struct {
	service *application.Service
}

func NewContentTokenServer(service *application.Service) *ContentTokenServer {
	return &ContentTokenServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc ContentTokenService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "clipstage.shareaccess.v1.ContentTokenService",
		HandlerType: (*ContentTokenService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateContentToken",
				Handler:    validateContentTokenHandler(svc),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    getPublicKeysHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "clipstage/shareaccess/v1/content_token.proto",
	}, svc)
}

func (s *ContentTokenServer) ValidateContentToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tokenVal := req.GetFields()["token"]
	if tokenVal == nil {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}
	token := tokenVal.GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.service.ValidateContentToken(ctx, token)
	if err != nil {
		return nil, status.Error(codes.PermissionDenied, "invalid token")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":            true,
		"asset_id":         claims.AssetID.String(),
		"share_id":         claims.ShareID.String(),
		"quality":          claims.Quality,
		"session_id":       claims.SessionID,
		"download_allowed": claims.DownloadAllowed,
		"expires_at":       claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *ContentTokenServer) GetPublicKeys(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	keys, err := s.service.PublicJWKs()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get keys: %v", err)
	}
	keyList := make([]any, 0, len(keys))
	for _, key := range keys {
		keyList = append(keyList, map[string]any(key))
	}
	resp, err := structpb.NewStruct(map[string]any{
		"keys": keyList,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func validateContentTokenHandler(svc ContentTokenService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateContentToken(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/clipstage.shareaccess.v1.ContentTokenService/ValidateContentToken",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateContentToken(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPublicKeysHandler(svc ContentTokenService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPublicKeys(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/clipstage.shareaccess.v1.ContentTokenService/GetPublicKeys",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPublicKeys(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
