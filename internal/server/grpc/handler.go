package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto/authpb"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// toStatus maps service errors to gRPC codes. Anything unrecognized becomes
// a bare Internal so no detail leaks to the caller.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, "invalid input")
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toTokenResponse(p *services.TokenPair) *pb.TokenResponse {
	return &pb.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.ExpiresIn,
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.TokenResponse, error) {
	s.logger.Info(ctx, "Registration request")

	pair, err := s.sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return toTokenResponse(pair), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.TokenResponse, error) {
	pair, err := s.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return toTokenResponse(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.TokenResponse, error) {
	pair, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return toTokenResponse(pair), nil
}

func (s *GRPCServer) Identify(ctx context.Context, req *pb.IdentifyRequest) (*pb.IdentifyResponse, error) {
	user, err := s.sessions.Identify(ctx, req.UserID, accessTokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.IdentifyResponse{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

func (s *GRPCServer) GetPublicKey(ctx context.Context, req *pb.GetPublicKeyRequest) (*pb.GetPublicKeyResponse, error) {
	key, err := s.sessions.PublicKey(ctx, req.Kid)
	if err != nil {
		return nil, toStatus(err)
	}

	return &pb.GetPublicKeyResponse{Kid: req.Kid, PublicKey: string(key)}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}
