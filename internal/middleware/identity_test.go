package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"athena/internal/httputil"
)

func TestIdentityRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without an identity")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestIdentityRejectsMalformedID(t *testing.T) {
	t.Parallel()

	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with a malformed identity")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestIdentityPutsUserInContext(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	var got uuid.UUID
	var ok bool

	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = httputil.GetUserID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-User-ID", userID.String())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok || got != userID {
		t.Errorf("context user = %s (ok=%v), want %s", got, ok, userID)
	}
}
