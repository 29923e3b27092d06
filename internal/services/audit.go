package services

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type AuditStore interface {
	AddAudit(e models.AuditEntry) error
}

const (
	AuditUserCreate       = "user.create"
	AuditUserResetPass    = "user.reset_password"
	AuditTemplateCreate   = "template.create"
	AuditAssignmentBulk   = "assignment.bulk"
	AuditAssignmentDelete = "assignment.delete"
	AuditResponseSubmit   = "response.submit"
)

// recordAudit appends to the audit log. A failed append is logged and does
// not fail the action it describes.
func recordAudit(store AuditStore, now time.Time, actor, action, target, note string) {
	if store == nil {
		return
	}
	e := models.AuditEntry{Time: now, Actor: actor, Action: action, Target: target, Note: note}
	if err := store.AddAudit(e); err != nil {
		log.Error().Err(err).Str("action", action).Str("target", target).Msg("audit append failed")
	}
}
