package identity

import "context"

// ChainResolver tries each resolver in order and returns the first
// successful resolution. When every strategy fails the last error is
// returned.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver creates a resolver chain.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

// Resolve tries each strategy in order.
func (c *ChainResolver) Resolve(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, ErrUnauthenticated
	}

	lastErr := ErrUnauthenticated
	for _, r := range c.resolvers {
		userID, err := r.Resolve(ctx, credential)
		if err == nil {
			return userID, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// Verify interface compliance.
var _ Resolver = (*ChainResolver)(nil)
