package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	authHeader := req.Header.Get("Authorization")
	expected := "Bearer test-api-key"
	if authHeader != expected {
		t.Errorf("Expected Authorization header '%s', got '%s'", expected, authHeader)
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "key"}

	reqURL, _ := url.Parse("https://dealer.example.com/export.csv?existing=value")
	req := &http.Request{
		URL:    reqURL,
		Header: make(http.Header),
	}

	auth.Apply(req, "test-api-key")

	query := req.URL.Query()
	if query.Get("key") != "test-api-key" {
		t.Errorf("Expected query param 'key=test-api-key', got '%s'", query.Get("key"))
	}
	if query.Get("existing") != "value" {
		t.Errorf("Expected existing param to be preserved, got '%s'", query.Get("existing"))
	}

	// nil URL must not panic
	auth.Apply(&http.Request{Header: make(http.Header)}, "test-api-key")
}

func TestAuthenticatorFor(t *testing.T) {
	tests := []struct {
		name           string
		cfg            AuthConfig
		expectedHeader string
		expectedValue  string
		queryParam     string
	}{
		{
			name:           "bearer",
			cfg:            AuthConfig{Scheme: "bearer"},
			expectedHeader: "Authorization",
			expectedValue:  "Bearer test-api-key",
		},
		{
			name:           "basic",
			cfg:            AuthConfig{Scheme: "Basic"},
			expectedHeader: "Authorization",
			expectedValue:  "Basic test-api-key",
		},
		{
			name:           "custom header",
			cfg:            AuthConfig{Scheme: "header", Header: "x-api-key"},
			expectedHeader: "x-api-key",
			expectedValue:  "test-api-key",
		},
		{
			name:           "header without scheme",
			cfg:            AuthConfig{Header: "x-dealer-token"},
			expectedHeader: "x-dealer-token",
			expectedValue:  "test-api-key",
		},
		{
			name:       "query param wins over header",
			cfg:        AuthConfig{Scheme: "bearer", QueryParam: "token"},
			queryParam: "token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := AuthenticatorFor(tt.cfg)

			reqURL, _ := url.Parse("https://dealer.example.com/export.csv")
			req := &http.Request{URL: reqURL, Header: make(http.Header)}
			auth.Apply(req, "test-api-key")

			if tt.queryParam != "" {
				assert.Equal(t, "test-api-key", req.URL.Query().Get(tt.queryParam))
				assert.Empty(t, req.Header.Get("Authorization"))
				return
			}
			assert.Equal(t, tt.expectedValue, req.Header.Get(tt.expectedHeader))
		})
	}

	_, ok := AuthenticatorFor(AuthConfig{}).(*NoAuth)
	assert.True(t, ok, "empty config should not authenticate")
}

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("missing token"))
			return
		}
		_, _ = w.Write([]byte("VIN,Make\n1G1JC12345,Chevrolet\n"))
	}))
	defer srv.Close()

	t.Run("authorized", func(t *testing.T) {
		client := New(&BearerAuth{}, "secret")
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)

		body, err := ReadBody(resp, "main-lot", 0)
		require.NoError(t, err)
		assert.Contains(t, string(body), "Chevrolet")
	})

	t.Run("unauthorized", func(t *testing.T) {
		client := New(nil, "")
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)

		_, err = ReadBody(resp, "main-lot", 0)
		require.Error(t, err)
		assert.True(t, errors.IsFeedUnavailable(err))

		var fe *errors.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusUnauthorized, fe.StatusCode)
		assert.Equal(t, "missing token", fe.Message)
	})

	t.Run("limit", func(t *testing.T) {
		client := New(&BearerAuth{}, "secret")
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)

		_, err = ReadBody(resp, "main-lot", 4)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 4 bytes")
	})
}
