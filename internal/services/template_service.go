package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type TemplateStore interface {
	AddTemplate(t *models.Template) error
	GetTemplate(id string) (*models.Template, error)
	ListTemplates() ([]*models.Template, error)
}

type TemplateService struct {
	store TemplateStore
	audit AuditStore
	now   func() time.Time
	idGen func(prefix string) string
}

type CreateTemplateInput struct {
	ID            string            `json:"id" validate:"omitempty,max=64"`
	Name          string            `json:"name" validate:"required,max=200"`
	ArName        string            `json:"arName" validate:"max=200"`
	Description   string            `json:"description" validate:"max=2000"`
	ArDescription string            `json:"arDescription" validate:"max=2000"`
	Categories    []models.Category `json:"categories" validate:"required,min=1"`
}

// weightTolerance absorbs float noise in hand-entered percentages.
const weightTolerance = 0.01

func NewTemplateService(store TemplateStore, audit AuditStore) *TemplateService {
	return &TemplateService{
		store: store,
		audit: audit,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: defaultIDGen,
	}
}

// ValidateTemplate checks the authoring invariants: unique ids, known
// question types, options for multiple choice, and weights summing to 100
// at both levels. Scoring never calls this.
func ValidateTemplate(categories []models.Category) error {
	if len(categories) == 0 {
		return NewInvalidError("template needs at least one category")
	}
	seen := map[string]struct{}{}
	unique := func(kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return NewInvalidError(kind + " id required")
		}
		if _, dup := seen[id]; dup {
			return NewInvalidError(fmt.Sprintf("duplicate id %q", id))
		}
		seen[id] = struct{}{}
		return nil
	}
	var catSum float64
	for _, c := range categories {
		if err := unique("category", c.ID); err != nil {
			return err
		}
		if strings.TrimSpace(c.Name) == "" {
			return NewInvalidError(fmt.Sprintf("category %s: name required", c.ID))
		}
		if c.Weight < 0 {
			return NewInvalidError(fmt.Sprintf("category %s: negative weight", c.ID))
		}
		if len(c.Questions) == 0 {
			return NewInvalidError(fmt.Sprintf("category %s: no questions", c.ID))
		}
		catSum += c.Weight
		var qSum float64
		for _, q := range c.Questions {
			if err := unique("question", q.ID); err != nil {
				return err
			}
			if q.Weight < 0 || q.ScaleMax < 0 {
				return NewInvalidError(fmt.Sprintf("question %s: negative weight or scale", q.ID))
			}
			switch q.Type {
			case models.QuestionRating:
			case models.QuestionMultipleChoice:
				if len(q.Options) == 0 {
					return NewInvalidError(fmt.Sprintf("question %s: multiple choice needs options", q.ID))
				}
			default:
				return NewInvalidError(fmt.Sprintf("question %s: unknown type %q", q.ID, q.Type))
			}
			qSum += q.Weight
		}
		if math.Abs(qSum-100) > weightTolerance {
			return NewInvalidError(fmt.Sprintf("category %s: question weights sum to %g, want 100", c.ID, qSum))
		}
	}
	if math.Abs(catSum-100) > weightTolerance {
		return NewInvalidError(fmt.Sprintf("category weights sum to %g, want 100", catSum))
	}
	return nil
}

func (s *TemplateService) Create(actor *models.User, in CreateTemplateInput) (*models.Template, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := ValidateTemplate(in.Categories); err != nil {
		return nil, err
	}
	id := in.ID
	if id == "" {
		id = s.idGen("t")
	} else if existing, err := s.store.GetTemplate(id); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, NewConflictError("template exists")
	}
	t := &models.Template{
		ID:            id,
		Name:          in.Name,
		ArName:        in.ArName,
		Description:   in.Description,
		ArDescription: in.ArDescription,
		Categories:    in.Categories,
		CreatedAt:     s.now(),
	}
	if err := s.store.AddTemplate(t); err != nil {
		return nil, err
	}
	recordAudit(s.audit, s.now(), actor.ID, AuditTemplateCreate, t.ID, t.Name)
	return t, nil
}

func (s *TemplateService) Get(id string) (*models.Template, error) {
	t, err := s.store.GetTemplate(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NewNotFoundError("template not found")
	}
	return t, nil
}

func (s *TemplateService) List() ([]*models.Template, error) {
	return s.store.ListTemplates()
}

// Localize returns a copy of t whose display strings are in lang. Missing
// translations fall back to the default text.
func Localize(t *models.Template, lang string) *models.Template {
	if t == nil || lang != "ar" {
		return t
	}
	out := *t
	pick := func(ar, def string) string {
		if ar != "" {
			return ar
		}
		return def
	}
	out.Name = pick(t.ArName, t.Name)
	out.Description = pick(t.ArDescription, t.Description)
	out.Categories = make([]models.Category, len(t.Categories))
	for ci, c := range t.Categories {
		c.Name = pick(c.ArName, c.Name)
		qs := make([]models.Question, len(c.Questions))
		for qi, q := range c.Questions {
			q.Text = pick(q.ArText, q.Text)
			opts := make([]models.Option, len(q.Options))
			for oi, o := range q.Options {
				o.Text = pick(o.ArText, o.Text)
				opts[oi] = o
			}
			if q.Options == nil {
				opts = nil
			}
			q.Options = opts
			qs[qi] = q
		}
		c.Questions = qs
		out.Categories[ci] = c
	}
	return &out
}
