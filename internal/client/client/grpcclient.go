package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto/authpb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      pb.AuthServiceClient

	mu           sync.Mutex
	email        string
	userID       string
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// accessTokenInterceptor attaches the current access token to Identify calls.
// An Unauthenticated answer triggers a single refresh and retry.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method != pb.AuthService_Identify_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	if status.Code(err) != codes.Unauthenticated || refresh == "" {
		return err
	}

	if err := s.refresh(ctx, refresh); err != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// NewAuthKeeperClient dials endpointURL lazily. Extra dial options are
// appended after the defaults.
func NewAuthKeeperClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(s.timeoutInterceptor, s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, dialOpts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// subject reads sub from a token without verifying it. The server is the
// only party that trusts the claims.
func subject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("parse token: empty subject")
	}
	return claims.Subject, nil
}

func (s *GRPCClient) store(email string, resp *pb.TokenResponse) error {
	sub, err := subject(resp.AccessToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if email != "" {
		s.email = email
	}
	s.userID = sub
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email, password string) error {
	resp, err := s.client.Register(ctx, &pb.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return s.mapError(err)
	}
	return s.store(email, resp)
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) error {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{Email: email, Password: password})
	if err != nil {
		return s.mapError(err)
	}
	return s.store(email, resp)
}

func (s *GRPCClient) refresh(ctx context.Context, refreshToken string) error {
	resp, err := s.client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return s.mapError(err)
	}
	return s.store("", resp)
}

// Refresh rotates the held refresh token and obtains a new access token.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	return s.refresh(ctx, refresh)
}

func (s *GRPCClient) Identify(ctx context.Context) (*models.Identity, error) {
	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	if userID == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.Identify(ctx, &pb.IdentifyRequest{UserID: userID})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &models.Identity{ID: resp.ID, Email: resp.Email, CreatedAt: resp.CreatedAt}, nil
}

func (s *GRPCClient) PublicKey(ctx context.Context, kid string) (string, error) {
	resp, err := s.client.GetPublicKey(ctx, &pb.GetPublicKeyRequest{Kid: kid})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.PublicKey, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &pb.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

// Session returns the state worth persisting between runs.
func (s *GRPCClient) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Session{Email: s.email, UserID: s.userID, RefreshToken: s.refreshToken}
}

// Restore loads a cached session. The access token is left empty and is
// obtained through refresh on first use.
func (s *GRPCClient) Restore(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = sess.Email
	s.userID = sess.UserID
	s.refreshToken = sess.RefreshToken
	s.accessToken = ""
}

// Forget drops all tokens held in memory.
func (s *GRPCClient) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email, s.userID, s.accessToken, s.refreshToken = "", "", "", ""
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrConflict
	case codes.InvalidArgument:
		return ErrInvalidInput
	case codes.NotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
