package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cutrackit/courtflow/pkg/identity"
)

func credentialCapture(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = identity.CredentialFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestCredentialMiddleware_BearerToken(t *testing.T) {
	var captured string
	h := CredentialMiddleware(credentialCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "the-token", captured)
}

func TestCredentialMiddleware_QRToken(t *testing.T) {
	var captured string
	h := CredentialMiddleware(credentialCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-QR-Token", "qr-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "qr-token", captured)
}

func TestCredentialMiddleware_BearerWins(t *testing.T) {
	var captured string
	h := CredentialMiddleware(credentialCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	req.Header.Set("X-QR-Token", "qr-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "the-token", captured)
}

func TestCredentialMiddleware_NoCredential(t *testing.T) {
	captured := "sentinel"
	h := CredentialMiddleware(credentialCapture(&captured))

	// A non-Bearer Authorization header is ignored.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, captured)
}

func TestRequestLogMiddleware_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkin", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "method=POST")
	assert.Contains(t, buf.String(), "path=/checkin")
	assert.Contains(t, buf.String(), "status=201")
}

func TestRequestLogMiddleware_EchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "request_id=req-123")
}
