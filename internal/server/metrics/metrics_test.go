package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryServerInterceptor(t *testing.T) {
	m := New()
	icpt := m.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/authkeeper.v1.AuthService/Login"}

	ok := func(context.Context, any) (any, error) { return "ok", nil }
	denied := func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	resp, err := icpt(context.Background(), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = icpt(context.Background(), nil, info, denied)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, _ = icpt(context.Background(), nil, info, denied)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(info.FullMethod, "OK")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(info.FullMethod, "Unauthenticated")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestLatency))
}

func TestTokenIssued(t *testing.T) {
	m := New()
	m.TokenIssued("access")
	m.TokenIssued("access")
	m.TokenIssued("refresh")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("access")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("refresh")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.TokenIssued("access")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `authkeeper_tokens_issued_total{use="access"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
