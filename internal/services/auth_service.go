package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type AuthStore interface {
	FindUserByEmail(email string) (*models.User, error)
}

type TokenSigner func(uid string, role models.Role, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func NewAuthService(store AuthStore, signer TokenSigner, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		signToken: signer,
		tokenTTL:  ttl,
	}
}

func (s *AuthService) Login(in LoginInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	u, err := s.store.FindUserByEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(in.Password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: s.now().Add(s.tokenTTL), User: u}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func hashPassword(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
}
