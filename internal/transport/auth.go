package transport

import (
	"net/http"
	"strings"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// BasicAuth sends a pre-encoded basic credential.
type BasicAuth struct{}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Basic "+apiKey)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}

// QueryAuth implements API key as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, apiKey string) {
	if req.URL == nil {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, apiKey)
	req.URL.RawQuery = query.Encode()
}

// AuthConfig describes how a feed endpoint expects its credential.
type AuthConfig struct {
	Scheme     string `mapstructure:"scheme" yaml:"scheme"` // bearer, basic, header, query, or none
	Header     string `mapstructure:"header" yaml:"header"`
	QueryParam string `mapstructure:"query_param" yaml:"query_param"`
}

// AuthenticatorFor resolves an Authenticator from configuration.
// A query parameter takes precedence over header schemes.
func AuthenticatorFor(cfg AuthConfig) Authenticator {
	if cfg.QueryParam != "" {
		return &QueryAuth{Param: cfg.QueryParam}
	}

	switch strings.ToLower(cfg.Scheme) {
	case "bearer":
		return &BearerAuth{}
	case "basic":
		return &BasicAuth{}
	case "header", "direct":
		header := cfg.Header
		if header == "" {
			header = "Authorization"
		}
		return &HeaderAuth{Header: header}
	case "query":
		return &QueryAuth{Param: "key"}
	default:
		if cfg.Header != "" {
			return &HeaderAuth{Header: cfg.Header}
		}
		return &NoAuth{}
	}
}
