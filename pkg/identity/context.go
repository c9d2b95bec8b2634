package identity

import "context"

// contextKey is a private type for context keys.
type contextKey int

const (
	credentialContextKey contextKey = iota
	userContextKey
)

// WithCredential adds a raw credential to the context.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialContextKey, credential)
}

// CredentialFromContext retrieves the raw credential from the context.
func CredentialFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(credentialContextKey).(string); ok {
		return c
	}
	return ""
}

// WithUserID adds a resolved user id to the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserIDFromContext retrieves the resolved user id from the context.
// The second return is false when no identity was resolved.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userContextKey).(int64)
	return id, ok
}
