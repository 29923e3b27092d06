package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type authCtxKey int

const authKey authCtxKey = 7

type Claims struct {
	UID  string      `json:"uid"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Auth signs and verifies HS256 bearer tokens.
type Auth struct {
	secret []byte
	now    func() time.Time
}

func NewAuth(secret string) *Auth {
	if secret == "" {
		secret = "footpulse-dev-secret"
	}
	return &Auth{secret: []byte(secret), now: time.Now}
}

func (a *Auth) SignToken(uid string, role models.Role, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{UID: uid, Role: role, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parseToken(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.UID != "" {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// WithAuth attaches auth claims to the context if the Authorization header
// carries a valid bearer token.
func (a *Auth) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := a.parseToken(tok); err == nil {
				ctx := context.WithValue(r.Context(), authKey, c)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(authKey).(*Claims); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(authKey).(*Claims)
	return c, ok
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	if c, ok := ClaimsFromContext(ctx); ok && c.UID != "" {
		return c.UID, true
	}
	return "", false
}
