package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type AssignmentStore interface {
	ListUsers() ([]*models.User, error)
	GetTemplate(id string) (*models.Template, error)
	ListAssignments() ([]*models.Assignment, error)
	GetAssignment(id string) (*models.Assignment, error)
	// AddAssignments inserts as, skipping any whose key already exists, and
	// reports how many rows were written.
	AddAssignments(as []*models.Assignment) (int, error)
	// DeleteAssignment removes the assignment and the response completing it.
	DeleteAssignment(id string) error
}

type BulkAssignInput struct {
	TemplateID    string     `json:"templateId" validate:"required"`
	Month         string     `json:"month" validate:"required,datetime=2006-01"`
	Policy        PolicyKind `json:"policy" validate:"required"`
	RespondentIDs []string   `json:"respondentIds" validate:"omitempty,dive,required"`
	TargetIDs     []string   `json:"targetIds" validate:"omitempty,dive,required"`
}

// BulkAssignResult reports an executed plan. Inserted can be lower than
// len(Plan.Created) when a concurrent writer got there first.
type BulkAssignResult struct {
	Plan     *AssignmentPlan `json:"plan"`
	Outcome  PlanOutcome     `json:"outcome"`
	Inserted int             `json:"count"`
}

type AssignmentService struct {
	store AssignmentStore
	audit AuditStore
	now   func() time.Time
	idGen func(prefix string) string
	// mu serialises plan+write so that execute always writes against the
	// snapshot it planned from within this process.
	mu sync.Mutex
}

func NewAssignmentService(store AssignmentStore, audit AuditStore) *AssignmentService {
	return &AssignmentService{
		store: store,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: defaultIDGen,
	}
}

func (s *AssignmentService) checkInput(actor *models.User, in BulkAssignInput) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if !in.Policy.Valid() {
		return NewInvalidError(fmt.Sprintf("unknown policy %q", in.Policy))
	}
	if in.Policy == PolicyManual && (len(in.RespondentIDs) == 0 || len(in.TargetIDs) == 0) {
		return NewInvalidError("manual assignment needs respondents and targets")
	}
	tpl, err := s.store.GetTemplate(in.TemplateID)
	if err != nil {
		return err
	}
	if tpl == nil {
		return NewNotFoundError("template not found")
	}
	return nil
}

func (s *AssignmentService) plan(in BulkAssignInput) (*AssignmentPlan, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListAssignments()
	if err != nil {
		return nil, err
	}
	policy := Policy{Kind: in.Policy, RespondentIDs: in.RespondentIDs, TargetIDs: in.TargetIDs}
	plan := Plan(users, policy, in.TemplateID, in.Month, existing)
	for _, ex := range plan.Excluded {
		log.Info().Str("policy", string(in.Policy)).Str("user_id", ex.UserID).
			Str("reason", ex.Reason).Msg("assignment candidate excluded")
	}
	return plan, nil
}

// Preview computes the plan without writing.
func (s *AssignmentService) Preview(actor *models.User, in BulkAssignInput) (*AssignmentPlan, error) {
	if err := s.checkInput(actor, in); err != nil {
		return nil, err
	}
	return s.plan(in)
}

// Execute re-plans against the current assignments and persists the
// created pairs as PENDING assignments.
func (s *AssignmentService) Execute(actor *models.User, in BulkAssignInput) (*BulkAssignResult, error) {
	if err := s.checkInput(actor, in); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, err := s.plan(in)
	if err != nil {
		return nil, err
	}
	res := &BulkAssignResult{Plan: plan, Outcome: plan.Outcome()}
	if len(plan.Created) == 0 {
		return res, nil
	}
	now := s.now()
	batch := make([]*models.Assignment, 0, len(plan.Created))
	for _, p := range plan.Created {
		batch = append(batch, &models.Assignment{
			ID:           s.idGen("a"),
			TemplateID:   in.TemplateID,
			AssignerID:   actor.ID,
			RespondentID: p.Respondent.ID,
			TargetID:     p.Target.ID,
			Month:        in.Month,
			Status:       models.StatusPending,
			CreatedAt:    now,
		})
	}
	n, err := s.store.AddAssignments(batch)
	if err != nil {
		return nil, fmt.Errorf("persist assignments: %w", err)
	}
	res.Inserted = n
	if n < len(batch) {
		log.Warn().Int("planned", len(batch)).Int("inserted", n).Msg("assignment keys taken by a concurrent writer")
	}
	recordAudit(s.audit, now, actor.ID, AuditAssignmentBulk, in.TemplateID,
		fmt.Sprintf("%s %s: %d new, %d existing", in.Policy, in.Month, n, len(plan.AlreadyExists)))
	return res, nil
}

// List returns every assignment to admins and the actor's own work otherwise.
func (s *AssignmentService) List(actor *models.User) ([]*models.Assignment, error) {
	if actor == nil {
		return nil, NewUnauthorizedError("unauthorized")
	}
	all, err := s.store.ListAssignments()
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return all, nil
	}
	out := []*models.Assignment{}
	for _, a := range all {
		if a.RespondentID == actor.ID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AssignmentService) Delete(actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	a, err := s.store.GetAssignment(id)
	if err != nil {
		return err
	}
	if a == nil {
		return NewNotFoundError("assignment not found")
	}
	if err := s.store.DeleteAssignment(id); err != nil {
		return err
	}
	recordAudit(s.audit, s.now(), actor.ID, AuditAssignmentDelete, id, string(a.Status))
	return nil
}
