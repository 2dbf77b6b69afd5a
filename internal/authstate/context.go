package authstate

import (
	"context"
	"errors"
)

type providerContextKey struct{}

// ErrNoProvider indicates a consumer running outside the composition
// root's provider. This is an integration bug, not a runtime condition;
// callers should treat it as fatal.
var ErrNoProvider = errors.New("authstate: no Provider in context; attach one with WithProvider at the composition root")

func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerContextKey{}, p)
}

func FromContext(ctx context.Context) (*Provider, error) {
	value := ctx.Value(providerContextKey{})
	if value == nil {
		return nil, ErrNoProvider
	}
	p, ok := value.(*Provider)
	if !ok || p == nil {
		return nil, ErrNoProvider
	}
	return p, nil
}
