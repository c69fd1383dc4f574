package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireInternalKey_ValidKey(t *testing.T) {
	h := RequireInternalKey("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	req.Header.Set(InternalKeyHeader, "s3cret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireInternalKey_WrongKey(t *testing.T) {
	h := RequireInternalKey("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	req.Header.Set(InternalKeyHeader, "wrong")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireInternalKey_MissingHeader(t *testing.T) {
	h := RequireInternalKey("s3cret")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireInternalKey_EmptyConfiguredKeyFailsClosed(t *testing.T) {
	h := RequireInternalKey("")(okHandler())

	// Even an empty supplied key must not match an empty configured key.
	req := httptest.NewRequest(http.MethodPost, "/internal/users", nil)
	req.Header.Set(InternalKeyHeader, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (route disabled)", rr.Code, http.StatusNotFound)
	}
}
