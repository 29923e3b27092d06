package services

import (
	"errors"
	"sort"
	"sync"

	"github.com/soaringjerry/FootPulse/internal/models"
)

// stubStore is a minimal in-memory implementation of every store interface
// the services declare.
type stubStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	templates   map[string]*models.Template
	responses   []*models.Response
	assignments []*models.Assignment
	audit       []models.AuditEntry
	listCalls   int
	failList    error
}

func newStubStore(users ...*models.User) *stubStore {
	s := &stubStore{users: map[string]*models.User{}, templates: map[string]*models.Template{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *stubStore) FindUserByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListUsers() ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) AddUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return errors.New("duplicate user")
	}
	s.users[u.ID] = u
	return nil
}

func (s *stubStore) SetPassword(id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u == nil {
		return errors.New("missing user")
	}
	u.PassHash = hash
	return nil
}

func (s *stubStore) AddTemplate(t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *stubStore) GetTemplate(id string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.templates[id], nil
}

func (s *stubStore) ListTemplates() ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) ListResponses() ([]*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Response(nil), s.responses...), nil
}

func (s *stubStore) SubmitResponse(r *models.Response) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.responses {
		if existing.Key() == r.Key() {
			return nil, ErrDuplicate
		}
	}
	s.responses = append(s.responses, r)
	for _, a := range s.assignments {
		if a.Key() == r.Key() {
			a.Status = models.StatusCompleted
			return a, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListAssignments() ([]*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Assignment(nil), s.assignments...), nil
}

func (s *stubStore) GetAssignment(id string) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (s *stubStore) AddAssignments(as []*models.Assignment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
outer:
	for _, a := range as {
		for _, existing := range s.assignments {
			if existing.Key() == a.Key() {
				continue outer
			}
		}
		for _, r := range s.responses {
			if r.Key() == a.Key() {
				a.Status = models.StatusCompleted
			}
		}
		s.assignments = append(s.assignments, a)
		n++
	}
	return n, nil
}

func (s *stubStore) DeleteAssignment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assignments {
		if a.ID != id {
			continue
		}
		s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
		if a.Status == models.StatusCompleted {
			for j, r := range s.responses {
				if r.Key() == a.Key() {
					s.responses = append(s.responses[:j], s.responses[j+1:]...)
					break
				}
			}
		}
		return nil
	}
	return nil
}

func (s *stubStore) AddAudit(e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

func (s *stubStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

var (
	stubAdmin   = &models.User{ID: "admin", Name: "Director", Role: models.RoleAdmin}
	stubCoach   = &models.User{ID: "coach1", Name: "Coach One", Role: models.RoleTrainer}
	stubPlayer  = &models.User{ID: "p1", Name: "Player One", Role: models.RolePlayer, TrainerID: "coach1"}
	stubPlayer2 = &models.User{ID: "p2", Name: "Player Two", Role: models.RolePlayer}
	stubParent  = &models.User{ID: "g1", Name: "Parent", Role: models.RoleGuardian, PlayerID: "p1"}
)

// seededStore returns fresh copies of the shared roster plus the pipeline template.
func seededStore() *stubStore {
	clone := func(u *models.User) *models.User { c := *u; return &c }
	s := newStubStore(clone(stubAdmin), clone(stubCoach), clone(stubPlayer), clone(stubPlayer2), clone(stubParent))
	s.templates["T1"] = pipelineTemplate()
	return s
}
