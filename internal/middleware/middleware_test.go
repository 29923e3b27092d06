package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soaringjerry/FootPulse/internal/models"
)

func echoUID(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromContext(r.Context())
	_, _ = w.Write([]byte(uid))
}

func TestAuthRoundTrip(t *testing.T) {
	a := NewAuth("unit-test-secret-123")
	tok, err := a.SignToken("u-1", models.RoleTrainer, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	h := a.WithAuth(RequireAuth(http.HandlerFunc(echoUID)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "u-1" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAuthRejectsForeignAndExpiredTokens(t *testing.T) {
	a := NewAuth("unit-test-secret-123")
	other := NewAuth("another-secret-4567")
	foreign, _ := other.SignToken("u-1", models.RoleAdmin, time.Hour)

	expiredAuth := NewAuth("unit-test-secret-123")
	expiredAuth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredAuth.SignToken("u-1", models.RoleAdmin, time.Hour)

	h := a.WithAuth(RequireAuth(http.HandlerFunc(echoUID)))
	for name, tok := range map[string]string{"foreign": foreign, "expired": expired, "garbage": "abc.def.ghi"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s token: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestLocaleMiddleware(t *testing.T) {
	var seen string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR, ar;q=0.8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "ar" || rec.Header().Get("Content-Language") != "ar" {
		t.Fatalf("expected ar, got %q / %q", seen, rec.Header().Get("Content-Language"))
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?lang=de", nil))
	if seen != "en" {
		t.Fatalf("unsupported lang should fall back to en, got %q", seen)
	}
}

func TestHeaders(t *testing.T) {
	h := SecureHeaders(NoStore(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame options")
	}
	if rec.Header().Get("Pragma") != "no-cache" {
		t.Fatalf("missing no-cache")
	}
}
