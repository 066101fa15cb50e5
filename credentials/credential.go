// Package credentials provides connection credentials for live session
// endpoints. Credentials are applied to the WebSocket handshake headers;
// an Issuer produces fresh credentials on demand so short-lived tokens can
// be minted per connection.
package credentials

import (
	"context"
	"net/http"
)

// DefaultHeaderName is the handshake header used for API keys.
const DefaultHeaderName = "x-goog-api-key"

// Credential applies authentication to a WebSocket handshake.
type Credential interface {
	// Apply adds authentication headers to the handshake.
	Apply(ctx context.Context, h http.Header) error

	// Type returns the credential type identifier (e.g., "api_key", "none").
	Type() string
}

// APIKey implements header-based API key authentication.
type APIKey struct {
	key        string
	headerName string
	prefix     string
}

// APIKeyOption configures an APIKey credential.
type APIKeyOption func(*APIKey)

// WithHeaderName sets the header name for the API key.
func WithHeaderName(name string) APIKeyOption {
	return func(k *APIKey) {
		k.headerName = name
	}
}

// WithBearerPrefix prepends "Bearer " to the API key value.
func WithBearerPrefix() APIKeyOption {
	return func(k *APIKey) {
		k.prefix = "Bearer "
	}
}

// NewAPIKey creates an API key credential. By default the key is sent in
// the DefaultHeaderName header with no prefix.
func NewAPIKey(key string, opts ...APIKeyOption) *APIKey {
	k := &APIKey{
		key:        key,
		headerName: DefaultHeaderName,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Apply sets the API key header.
func (k *APIKey) Apply(_ context.Context, h http.Header) error {
	if k.key != "" {
		h.Set(k.headerName, k.prefix+k.key)
	}
	return nil
}

// Type returns "api_key".
func (k *APIKey) Type() string {
	return "api_key"
}

// Key returns the raw API key value. Useful for endpoints that accept the
// key as a query parameter instead of a header.
func (k *APIKey) Key() string {
	return k.key
}

// NoOp is a credential that does nothing. Used for endpoints that do not
// require authentication, such as local test servers.
type NoOp struct{}

// Apply does nothing.
func (NoOp) Apply(_ context.Context, _ http.Header) error {
	return nil
}

// Type returns "none".
func (NoOp) Type() string {
	return "none"
}
