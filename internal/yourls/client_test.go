package yourls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{Endpoint: endpoint, Signature: "sig-123"})
	require.NoError(t, err)
	return c
}

func serveStatic(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{name: "valid", cfg: ClientConfig{Endpoint: "https://sho.rt/yourls-api.php", Signature: "s"}},
		{name: "missing scheme", cfg: ClientConfig{Endpoint: "sho.rt/yourls-api.php", Signature: "s"}, wantErr: true},
		{name: "ftp scheme", cfg: ClientConfig{Endpoint: "ftp://sho.rt/api", Signature: "s"}, wantErr: true},
		{name: "missing host", cfg: ClientConfig{Endpoint: "https:///api", Signature: "s"}, wantErr: true},
		{name: "missing signature", cfg: ClientConfig{Endpoint: "https://sho.rt/api"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errx.Invalid, errx.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

type capturedRequest struct {
	method string
	query  url.Values
}

func TestClient_Shorten_QueryParameters(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured <- capturedRequest{method: r.Method, query: r.URL.Query()}
		_, _ = w.Write([]byte(`{"status":"success","shorturl":"https://x.io/a1"}`))
	}))
	t.Cleanup(srv.Close)

	t.Run("without keyword", func(t *testing.T) {
		c := newTestClient(t, srv.URL+"/yourls-api.php")

		c.Shorten(context.Background(), Request{LongURL: "https://example.com/page?q=1"})
		got := <-captured

		assert.Equal(t, http.MethodGet, got.method)
		assert.Equal(t, "sig-123", got.query.Get("signature"))
		assert.Equal(t, "shorturl", got.query.Get("action"))
		assert.Equal(t, "json", got.query.Get("format"))
		assert.Equal(t, "https://example.com/page?q=1", got.query.Get("url"))
		assert.False(t, got.query.Has("keyword"))
	})

	t.Run("with keyword", func(t *testing.T) {
		c := newTestClient(t, srv.URL+"/yourls-api.php")

		c.Shorten(context.Background(), Request{LongURL: "https://example.com", Keyword: "docs"})
		got := <-captured

		assert.Equal(t, "docs", got.query.Get("keyword"))
	})

	t.Run("keeps query already on endpoint", func(t *testing.T) {
		c := newTestClient(t, srv.URL+"/yourls-api.php?lang=en")

		c.Shorten(context.Background(), Request{LongURL: "https://example.com"})
		got := <-captured

		assert.Equal(t, "en", got.query.Get("lang"))
		assert.Equal(t, "shorturl", got.query.Get("action"))
	})
}

func TestClient_Shorten_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Result
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"status":"success","shorturl":"https://x.io/a1"}`,
			want:   Success{ShortURL: "https://x.io/a1"},
		},
		{
			name:   "fail status with message",
			status: http.StatusOK,
			body:   `{"status":"fail","message":"keyword docs already exists"}`,
			want:   ServiceError{StatusCode: 200, Message: "keyword docs already exists"},
		},
		{
			name:   "fail status without message",
			status: http.StatusOK,
			body:   `{"status":"fail"}`,
			want:   ServiceError{StatusCode: 200, Message: "An unknown error occurred."},
		},
		{
			name:   "overloaded with json body",
			status: http.StatusServiceUnavailable,
			body:   `{"status":"fail","message":"maintenance"}`,
			want:   Overloaded{},
		},
		{
			name:   "overloaded with html body",
			status: http.StatusServiceUnavailable,
			body:   `<html>busy</html>`,
			want:   Overloaded{},
		},
		{
			name:   "other status with message",
			status: http.StatusForbidden,
			body:   `{"errorCode":403,"message":"Please log in"}`,
			want:   ServiceError{StatusCode: 403, Message: "Please log in"},
		},
		{
			name:   "other status without json",
			status: http.StatusInternalServerError,
			body:   `oops`,
			want:   ServiceError{StatusCode: 500, Message: "An error occurred."},
		},
		{
			name:   "success without short url",
			status: http.StatusOK,
			body:   `{"status":"success"}`,
			want:   UnexpectedError{Detail: "response did not include a short URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveStatic(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL)

			got := c.Shorten(context.Background(), Request{LongURL: "https://example.com"})

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Shorten_MalformedSuccessBody(t *testing.T) {
	srv := serveStatic(t, http.StatusOK, `{"status":`)
	c := newTestClient(t, srv.URL)

	got := c.Shorten(context.Background(), Request{LongURL: "https://example.com"})

	unexpected, ok := got.(UnexpectedError)
	require.True(t, ok, "got %T, want UnexpectedError", got)
	assert.Contains(t, unexpected.Detail, "malformed response body")
}

func TestClient_Shorten_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := newTestClient(t, endpoint)

	got := c.Shorten(context.Background(), Request{LongURL: "https://example.com"})

	netErr, ok := got.(NetworkError)
	require.True(t, ok, "got %T, want NetworkError", got)
	assert.Error(t, netErr.Err)
	assert.Equal(t, "network_error", Outcome(got))
}

func TestClient_Shorten_CanceledContext(t *testing.T) {
	srv := serveStatic(t, http.StatusOK, `{"status":"success","shorturl":"https://x.io/a1"}`)
	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := c.Shorten(ctx, Request{LongURL: "https://example.com"})

	assert.IsType(t, NetworkError{}, got)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{Success{}, "success"},
		{ServiceError{}, "service_error"},
		{Overloaded{}, "overloaded"},
		{NetworkError{}, "network_error"},
		{UnexpectedError{}, "unexpected_error"},
		{nil, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.result))
		})
	}
}
