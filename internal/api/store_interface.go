package api

import (
	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

// Store is the full persistence surface the router wires into the services.
// Both the in-memory store and the SQLite store implement it.
type Store interface {
	GetUser(id string) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	AddUser(u *models.User) error
	SetPassword(id string, hash []byte) error

	AddTemplate(t *models.Template) error
	GetTemplate(id string) (*models.Template, error)
	ListTemplates() ([]*models.Template, error)

	ListAssignments() ([]*models.Assignment, error)
	GetAssignment(id string) (*models.Assignment, error)
	AddAssignments(as []*models.Assignment) (int, error)
	DeleteAssignment(id string) error

	ListResponses() ([]*models.Response, error)
	SubmitResponse(r *models.Response) (*models.Assignment, error)

	AddAudit(e models.AuditEntry) error
	ListAudit(limit int) ([]models.AuditEntry, error)
}

var (
	_ Store                    = (*MemoryStore)(nil)
	_ services.UserStore       = Store(nil)
	_ services.AuthStore       = Store(nil)
	_ services.TemplateStore   = Store(nil)
	_ services.ResponseStore   = Store(nil)
	_ services.AssignmentStore = Store(nil)
	_ services.AnalyticsStore  = Store(nil)
	_ services.AuditStore      = Store(nil)
)
