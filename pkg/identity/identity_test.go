package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutrackit/courtflow/pkg/profile"
)

var testSigningKey = []byte("test-signing-key")

// fakeProfileStore serves canned profiles keyed by auth subject and QR token.
type fakeProfileStore struct {
	byAuthID  map[string]*profile.Profile
	byQRToken map[string]*profile.Profile
	err       error
}

func (s *fakeProfileStore) ByID(_ context.Context, id int64) (*profile.Profile, error) {
	return nil, profile.ErrNotFound
}

func (s *fakeProfileStore) ByAuthID(_ context.Context, authID string) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.byAuthID[authID]; ok {
		return p, nil
	}
	return nil, profile.ErrNotFound
}

func (s *fakeProfileStore) ByQRToken(_ context.Context, token string) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.byQRToken[token]; ok {
		return p, nil
	}
	return nil, profile.ErrNotFound
}

func (s *fakeProfileStore) Sync(_ context.Context, _ profile.SyncInput) (*profile.Profile, bool, error) {
	return nil, false, errors.New("not implemented")
}

func mintToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestNewJWTResolver_RequiresKey(t *testing.T) {
	_, err := NewJWTResolver(JWTConfig{}, nil)
	assert.Error(t, err)

	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, r)
}

func TestJWTResolve_UserIDClaim(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestJWTResolve_SubMapping(t *testing.T) {
	store := &fakeProfileStore{
		byAuthID: map[string]*profile.Profile{
			"auth0|abc123": {ID: 7, AuthID: "auth0|abc123"},
		},
	}
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, store)
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"sub": "auth0|abc123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	userID, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestJWTResolve_UnknownSubject(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, &fakeProfileStore{})
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"sub": "auth0|nobody",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTResolve_EmptyCredential(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestJWTResolve_BadSignature(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	require.NoError(t, err)

	token := mintToken(t, []byte("wrong-key"), jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolve_Expired(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolve_WrongIssuer(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey, Issuer: "courtflow"}, nil)
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"user_id": 42,
		"iss":     "someone-else",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	_, err = r.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token = mintToken(t, testSigningKey, jwt.MapClaims{
		"user_id": 42,
		"iss":     "courtflow",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestJWTSubject(t *testing.T) {
	r, err := NewJWTResolver(JWTConfig{SigningKey: testSigningKey}, nil)
	require.NoError(t, err)

	token := mintToken(t, testSigningKey, jwt.MapClaims{
		"sub": "auth0|abc123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sub, err := r.Subject(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", sub)

	_, err = r.Subject(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noSub := mintToken(t, testSigningKey, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = r.Subject(context.Background(), noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestQRResolve(t *testing.T) {
	store := &fakeProfileStore{
		byQRToken: map[string]*profile.Profile{
			"qr-token-1": {ID: 9},
		},
	}
	r := NewQRResolver(store)

	userID, err := r.Resolve(context.Background(), "qr-token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)

	_, err = r.Resolve(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestQRResolve_StoreError(t *testing.T) {
	boom := errors.New("db down")
	r := NewQRResolver(&fakeProfileStore{err: boom})

	_, err := r.Resolve(context.Background(), "qr-token-1")
	assert.ErrorIs(t, err, boom)
}

func TestChainResolve(t *testing.T) {
	fail := ResolverFunc(func(_ context.Context, _ string) (int64, error) {
		return 0, ErrInvalidToken
	})
	succeed := ResolverFunc(func(_ context.Context, _ string) (int64, error) {
		return 5, nil
	})

	chain := NewChainResolver(fail, succeed)
	userID, err := chain.Resolve(context.Background(), "cred")
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)

	// First success wins; later resolvers are never consulted.
	var called bool
	counting := ResolverFunc(func(_ context.Context, _ string) (int64, error) {
		called = true
		return 99, nil
	})
	chain = NewChainResolver(succeed, counting)
	userID, err = chain.Resolve(context.Background(), "cred")
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)
	assert.False(t, called)
}

func TestChainResolve_AllFail(t *testing.T) {
	boom := errors.New("backend unavailable")
	chain := NewChainResolver(
		ResolverFunc(func(_ context.Context, _ string) (int64, error) {
			return 0, ErrInvalidToken
		}),
		ResolverFunc(func(_ context.Context, _ string) (int64, error) {
			return 0, boom
		}),
	)

	_, err := chain.Resolve(context.Background(), "cred")
	assert.ErrorIs(t, err, boom)
}

func TestChainResolve_EmptyCredential(t *testing.T) {
	chain := NewChainResolver()
	_, err := chain.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, CredentialFromContext(ctx))
	_, ok := UserIDFromContext(ctx)
	assert.False(t, ok)

	ctx = WithCredential(ctx, "bearer-token")
	assert.Equal(t, "bearer-token", CredentialFromContext(ctx))

	ctx = WithUserID(ctx, 42)
	userID, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), userID)
}
