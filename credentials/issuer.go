package credentials

import "context"

// Issuer produces a credential for a new connection. Implementations may
// mint short-lived tokens; the session controller calls Issue once per
// connection attempt, including reconnects.
type Issuer interface {
	Issue(ctx context.Context) (Credential, error)
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) (Credential, error)

// Issue calls f.
func (f IssuerFunc) Issue(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// Static returns an Issuer that always yields the same credential.
func Static(cred Credential) Issuer {
	return IssuerFunc(func(context.Context) (Credential, error) {
		return cred, nil
	})
}
