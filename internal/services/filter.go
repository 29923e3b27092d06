package services

import (
	"sort"

	"github.com/soaringjerry/FootPulse/internal/models"
)

// FilterSelection narrows analytics queries. An empty dimension places no
// restriction on that dimension.
type FilterSelection struct {
	UserIDs     []string `json:"userIds,omitempty"`
	TrainerIDs  []string `json:"trainerIds,omitempty"`
	MonthIDs    []string `json:"monthIds,omitempty"`
	TemplateIDs []string `json:"templateIds,omitempty"`
	CategoryIDs []string `json:"categoryIds,omitempty"`
	QuestionIDs []string `json:"questionIds,omitempty"`
}

type idSet map[string]struct{}

func newIDSet(ids []string) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// allows treats an empty set as "everything".
func (s idSet) allows(id string) bool { return len(s) == 0 || s.has(id) }

func (s idSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type compiledFilter struct {
	users      idSet
	trainers   idSet
	months     idSet
	templates  idSet
	categories idSet
	questions  idSet
}

func (f FilterSelection) compile() compiledFilter {
	return compiledFilter{
		users:      newIDSet(f.UserIDs),
		trainers:   newIDSet(f.TrainerIDs),
		months:     newIDSet(f.MonthIDs),
		templates:  newIDSet(f.TemplateIDs),
		categories: newIDSet(f.CategoryIDs),
		questions:  newIDSet(f.QuestionIDs),
	}
}

// narrowsQuestions reports whether the metric must be computed from
// individual answers rather than the stored weighted score.
func (f compiledFilter) narrowsQuestions() bool {
	return len(f.categories) > 0 || len(f.questions) > 0
}

func (f compiledFilter) questionSelected(c *models.Category, q *models.Question) bool {
	return f.categories.allows(c.ID) && f.questions.allows(q.ID)
}

// trainerAllows matches a target against the trainer dimension: a player
// through its coach, a coach through itself.
func (f compiledFilter) trainerAllows(target *models.User) bool {
	if len(f.trainers) == 0 {
		return true
	}
	if target == nil {
		return false
	}
	if f.trainers.has(target.TrainerID) {
		return true
	}
	return target.Role == models.RoleTrainer && f.trainers.has(target.ID)
}
