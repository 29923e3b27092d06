package api

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

// MemoryStore keeps everything in process. It backs tests and the --memory
// server mode. Returned records are copies; callers cannot mutate state.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	usersByEmail map[string]string
	templates    map[string]*models.Template
	assignments  map[string]*models.Assignment
	assignByKey  map[models.AssignmentKey]string
	responses    map[string]*models.Response
	respByKey    map[models.AssignmentKey]string
	audit        []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        map[string]*models.User{},
		usersByEmail: map[string]string{},
		templates:    map[string]*models.Template{},
		assignments:  map[string]*models.Assignment{},
		assignByKey:  map[models.AssignmentKey]string{},
		responses:    map[string]*models.Response{},
		respByKey:    map[models.AssignmentKey]string{},
		audit:        []models.AuditEntry{},
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.PassHash = append([]byte(nil), u.PassHash...)
	return &c
}

func copyResponse(r *models.Response) *models.Response {
	c := *r
	c.Answers = make(map[string]float64, len(r.Answers))
	for k, v := range r.Answers {
		c.Answers[k] = v
	}
	return &c
}

func copyAssignment(a *models.Assignment) *models.Assignment {
	c := *a
	return &c
}

func (s *MemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.users[id]; u != nil {
		return copyUser(u), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.usersByEmail[strings.ToLower(email)]; ok {
		return copyUser(s.users[id]), nil
	}
	return nil, nil
}

func (s *MemoryStore) ListUsers() ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AddUser(u *models.User) error {
	if u == nil {
		return errors.New("user required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.users[u.ID]; ok {
		return services.NewConflictError("user exists")
	}
	if _, ok := s.usersByEmail[email]; ok {
		return services.NewConflictError("email exists")
	}
	s.users[u.ID] = copyUser(u)
	s.usersByEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) SetPassword(id string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u == nil {
		return services.NewNotFoundError("user not found")
	}
	u.PassHash = append([]byte(nil), hash...)
	return nil
}

// Templates are stored by pointer and treated as immutable once added.
func (s *MemoryStore) AddTemplate(t *models.Template) error {
	if t == nil {
		return errors.New("template required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; ok {
		return services.NewConflictError("template exists")
	}
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryStore) GetTemplate(id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates[id], nil
}

func (s *MemoryStore) ListTemplates() ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListAssignments() ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, copyAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetAssignment(id string) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.assignments[id]; a != nil {
		return copyAssignment(a), nil
	}
	return nil, nil
}

// AddAssignments inserts the batch atomically with respect to other writers,
// skipping keys that are already taken. A key that already has a response
// is stored as COMPLETED.
func (s *MemoryStore) AddAssignments(as []*models.Assignment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range as {
		if a == nil {
			continue
		}
		if _, taken := s.assignByKey[a.Key()]; taken {
			continue
		}
		if _, taken := s.assignments[a.ID]; taken {
			continue
		}
		c := copyAssignment(a)
		if _, done := s.respByKey[a.Key()]; done {
			c.Status = models.StatusCompleted
		}
		s.assignments[a.ID] = c
		s.assignByKey[a.Key()] = a.ID
		n++
	}
	return n, nil
}

func (s *MemoryStore) DeleteAssignment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.assignments[id]
	if a == nil {
		return services.NewNotFoundError("assignment not found")
	}
	delete(s.assignments, id)
	delete(s.assignByKey, a.Key())
	if a.Status == models.StatusCompleted {
		if rid, ok := s.respByKey[a.Key()]; ok {
			delete(s.responses, rid)
			delete(s.respByKey, a.Key())
		}
	}
	return nil
}

func (s *MemoryStore) ListResponses() ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Response, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, copyResponse(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SubmitResponse(r *models.Response) (*models.Assignment, error) {
	if r == nil {
		return nil, errors.New("response required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.Key()
	if _, taken := s.respByKey[key]; taken {
		return nil, services.ErrDuplicate
	}
	s.responses[r.ID] = copyResponse(r)
	s.respByKey[key] = r.ID
	aid, ok := s.assignByKey[key]
	if !ok {
		return nil, nil
	}
	a := s.assignments[aid]
	a.Status = models.StatusCompleted
	return copyAssignment(a), nil
}

func (s *MemoryStore) AddAudit(e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns the newest entries first; limit <= 0 means all.
func (s *MemoryStore) ListAudit(limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.audit)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.AuditEntry, 0, n)
	for i := len(s.audit) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}
