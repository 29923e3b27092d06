package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type UserStore interface {
	GetUser(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	AddUser(u *models.User) error
	SetPassword(id string, hash []byte) error
}

type UserService struct {
	store UserStore
	audit AuditStore
	now   func() time.Time
	idGen func(prefix string) string
}

type CreateUserInput struct {
	Name      string      `json:"name" validate:"required,max=120"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=6"`
	Mobile    string      `json:"mobile" validate:"omitempty,max=32"`
	Avatar    string      `json:"avatar" validate:"omitempty,url"`
	Role      models.Role `json:"role" validate:"required,oneof=ADMIN TRAINER PLAYER GUARDIAN"`
	TrainerID string      `json:"trainerId"`
	PlayerID  string      `json:"playerId"`
}

type ResetPasswordInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func NewUserService(store UserStore, audit AuditStore) *UserService {
	return &UserService{
		store: store,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: defaultIDGen,
	}
}

func requireAdmin(actor *models.User) error {
	if actor == nil {
		return NewUnauthorizedError("unauthorized")
	}
	if actor.Role != models.RoleAdmin {
		return NewForbiddenError("admin only")
	}
	return nil
}

// List returns the users the actor may see: everyone for admins, the
// trainer and its squad for trainers, and only the actor otherwise.
func (s *UserService) List(actor *models.User) ([]*models.User, error) {
	if actor == nil {
		return nil, NewUnauthorizedError("unauthorized")
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleTrainer {
		return []*models.User{actor}, nil
	}
	all, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return all, nil
	}
	out := []*models.User{}
	for _, u := range all {
		if u.ID == actor.ID || u.TrainerID == actor.ID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserService) Get(id string) (*models.User, error) {
	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

// checkRelation verifies that id, when set, names a user with the wanted role.
func (s *UserService) checkRelation(field, id string, want models.Role) error {
	if id == "" {
		return nil
	}
	ref, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if ref == nil || ref.Role != want {
		return NewInvalidError(fmt.Sprintf("%s must reference a %s", field, want))
	}
	return nil
}

func (s *UserService) Create(actor *models.User, in CreateUserInput) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.TrainerID != "" && in.Role != models.RolePlayer {
		return nil, NewInvalidError("trainerId is only valid for players")
	}
	if in.PlayerID != "" && in.Role != models.RoleGuardian {
		return nil, NewInvalidError("playerId is only valid for guardians")
	}
	if err := s.checkRelation("trainerId", in.TrainerID, models.RoleTrainer); err != nil {
		return nil, err
	}
	if err := s.checkRelation("playerId", in.PlayerID, models.RolePlayer); err != nil {
		return nil, err
	}
	existing, err := s.store.FindUserByEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:        s.idGen("u"),
		Name:      in.Name,
		Email:     in.Email,
		PassHash:  hash,
		Mobile:    in.Mobile,
		Avatar:    in.Avatar,
		Role:      in.Role,
		TrainerID: in.TrainerID,
		PlayerID:  in.PlayerID,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(u); err != nil {
		return nil, err
	}
	recordAudit(s.audit, s.now(), actor.ID, AuditUserCreate, u.ID, string(u.Role))
	return u, nil
}

func (s *UserService) ResetPassword(actor *models.User, id string, in ResetPasswordInput) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if _, err := s.Get(id); err != nil {
		return err
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.SetPassword(id, hash); err != nil {
		return err
	}
	recordAudit(s.audit, s.now(), actor.ID, AuditUserResetPass, id, "")
	return nil
}
