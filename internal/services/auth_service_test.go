package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type authStubStore struct {
	users map[string]*models.User
}

func (s *authStubStore) FindUserByEmail(email string) (*models.User, error) {
	if u, ok := s.users[email]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func TestAuthLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := &authStubStore{users: map[string]*models.User{
		"mike@footpulse.app": {ID: "u-trainer-1", Email: "mike@footpulse.app", PassHash: hash, Role: models.RoleTrainer},
	}}
	svc := NewAuthService(store, func(uid string, role models.Role, ttl time.Duration) (string, error) {
		return "token:" + uid + ":" + string(role), nil
	}, time.Hour)
	svc.now = func() time.Time { return time.Unix(0, 0).UTC() }

	res, err := svc.Login(LoginInput{Email: " Mike@FootPulse.app ", Password: "password123"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Token != "token:u-trainer-1:TRAINER" {
		t.Fatalf("unexpected token %q", res.Token)
	}
	if !res.ExpiresAt.Equal(time.Unix(0, 0).Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", res.ExpiresAt)
	}

	_, err = svc.Login(LoginInput{Email: "mike@footpulse.app", Password: "wrong"})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Login(LoginInput{Email: "missing@footpulse.app", Password: "password123"}); err == nil {
		t.Fatalf("expected error for missing user")
	}
}

func TestAuthValidation(t *testing.T) {
	svc := NewAuthService(&authStubStore{}, nil, 0)
	if svc.TokenTTL() != 24*time.Hour {
		t.Fatalf("default ttl = %v", svc.TokenTTL())
	}
	_, err := svc.Login(LoginInput{})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Login(LoginInput{Email: "not-an-email", Password: "x"}); err == nil {
		t.Fatalf("expected validation error for malformed email")
	}
}
