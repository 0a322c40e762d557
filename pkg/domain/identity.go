package domain

import "context"

// Identity is the answer an IdentityGate gives about the current caller.
// It has exactly two shapes: authenticated with a token, or anonymous.
type Identity struct {
	token         string
	authenticated bool
}

// Authenticated constructs an identity carrying the caller's token.
func Authenticated(token string) Identity {
	return Identity{token: token, authenticated: true}
}

// Anonymous is the identity of an unauthenticated caller.
func Anonymous() Identity {
	return Identity{}
}

// IsAuthenticated reports whether the caller holds a valid session.
func (i Identity) IsAuthenticated() bool { return i.authenticated }

// Token returns the caller's identity token. Empty for anonymous callers.
func (i Identity) Token() string { return i.token }

// IdentityGate supplies the current caller identity. The store trusts the
// gate's answer and never validates or forges identity itself.
type IdentityGate interface {
	CurrentIdentity(ctx context.Context) (Identity, error)
}

// IdentityGateFunc adapts a function to the IdentityGate interface.
type IdentityGateFunc func(ctx context.Context) (Identity, error)

// CurrentIdentity implements IdentityGate.
func (f IdentityGateFunc) CurrentIdentity(ctx context.Context) (Identity, error) {
	return f(ctx)
}

// StaticGate returns a gate that always answers with the given identity.
// Useful for tests and single-operator deployments.
func StaticGate(identity Identity) IdentityGate {
	return IdentityGateFunc(func(context.Context) (Identity, error) {
		return identity, nil
	})
}

type tokenContextKey struct{}

// WithToken stashes a caller token on the context for ContextGate to read.
// Transport adapters call this after extracting credentials.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the caller token placed by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

// ContextGate answers with the token carried on the context. Callers without
// a token are anonymous. A non-empty secret restricts authentication to that
// exact token.
func ContextGate(secret string) IdentityGate {
	return IdentityGateFunc(func(ctx context.Context) (Identity, error) {
		token, ok := TokenFromContext(ctx)
		if !ok {
			return Anonymous(), nil
		}
		if secret != "" && token != secret {
			return Anonymous(), nil
		}
		return Authenticated(token), nil
	})
}
