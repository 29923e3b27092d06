package services

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soaringjerry/FootPulse/internal/models"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	GetTemplate(id string) (*models.Template, error)
	GetUser(id string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	ListResponses() ([]*models.Response, error)
	ListAssignments() ([]*models.Assignment, error)
	// SubmitResponse stores r and completes the assignment with the same key,
	// returning it (nil when there is none). ErrDuplicate when a response
	// already exists for the key.
	SubmitResponse(r *models.Response) (*models.Assignment, error)
}

// SubmitResponseInput carries one completed questionnaire. The score is
// always computed here; clients cannot supply it.
type SubmitResponseInput struct {
	TemplateID     string             `json:"templateId" validate:"required"`
	TargetPlayerID string             `json:"targetPlayerId" validate:"required"`
	Month          string             `json:"month" validate:"required,datetime=2006-01"`
	Answers        map[string]float64 `json:"answers" validate:"required"`
}

// ResponseService hosts the submission workflow.
type ResponseService struct {
	store ResponseStore
	audit AuditStore
	now   func() time.Time
	idGen func(prefix string) string
}

// NewResponseService constructs a service bound to the provided persistence interface.
func NewResponseService(store ResponseStore, audit AuditStore) *ResponseService {
	return &ResponseService{
		store: store,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: defaultIDGen,
	}
}

// Submit scores and stores the actor's answers about the target. The actor
// needs an assignment for the key or a relationship to the target (see
// SubjectPredicate). Answers for questions the template does not define are
// dropped.
func (s *ResponseService) Submit(actor *models.User, in SubmitResponseInput) (*models.Response, error) {
	if actor == nil {
		return nil, NewUnauthorizedError("unauthorized")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplate(in.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, NewNotFoundError("template not found")
	}
	target, err := s.store.GetUser(in.TargetPlayerID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewNotFoundError("target not found")
	}
	if err := s.checkSubject(actor, models.AssignmentKey{
		TemplateID: tpl.ID, RespondentID: actor.ID, TargetID: target.ID, Month: in.Month,
	}); err != nil {
		return nil, err
	}
	answers := make(map[string]float64, len(in.Answers))
	for qid, v := range in.Answers {
		if q, _ := tpl.Question(qid); q != nil {
			answers[qid] = v
		}
	}
	now := s.now()
	r := &models.Response{
		ID:             s.idGen("sr"),
		TemplateID:     tpl.ID,
		UserID:         actor.ID,
		TargetPlayerID: target.ID,
		Month:          in.Month,
		Date:           now,
		Answers:        answers,
		WeightedScore:  Score(tpl, answers),
	}
	completed, err := s.store.SubmitResponse(r)
	if errors.Is(err, ErrDuplicate) {
		return nil, NewConflictError("a response for this template, target and month already exists")
	}
	if err != nil {
		return nil, err
	}
	ev := log.Info().Str("response_id", r.ID).Str("template_id", r.TemplateID).
		Str("respondent_id", r.UserID).Str("target_id", r.TargetPlayerID).
		Str("month", r.Month).Int("score", r.WeightedScore)
	if completed != nil {
		ev = ev.Str("assignment_id", completed.ID)
	}
	ev.Msg("response submitted")
	recordAudit(s.audit, now, actor.ID, AuditResponseSubmit, r.ID, r.Month)
	return r, nil
}

func (s *ResponseService) checkSubject(actor *models.User, key models.AssignmentKey) error {
	assignments, err := s.store.ListAssignments()
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a != nil && a.Key() == key {
			return nil
		}
	}
	users, err := s.store.ListUsers()
	if err != nil {
		return err
	}
	if SubjectPredicate(actor, users)(key.TargetID) {
		return nil
	}
	return NewForbiddenError("no assignment or relationship covers this evaluation")
}

// List returns every response to admins; everyone else sees what they
// authored plus what their visibility scope covers.
func (s *ResponseService) List(actor *models.User) ([]*models.Response, error) {
	if actor == nil {
		return nil, NewUnauthorizedError("unauthorized")
	}
	all, err := s.store.ListResponses()
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return all, nil
	}
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	visible := VisibilityPredicate(actor, users)
	out := []*models.Response{}
	for _, r := range all {
		if r.UserID == actor.ID || visible(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
