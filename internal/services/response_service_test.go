package services

import (
	"testing"
	"time"

	"github.com/soaringjerry/FootPulse/internal/models"
)

func TestSubmitScoresServerSide(t *testing.T) {
	store := seededStore()
	store.assignments = []*models.Assignment{
		{ID: "a-1", TemplateID: "T1", RespondentID: "coach1", TargetID: "p1", Month: "2024-03", Status: models.StatusPending},
	}
	svc := NewResponseService(store, store)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	svc.idGen = func(prefix string) string { return prefix + "-1" }

	r, err := svc.Submit(stubCoach, SubmitResponseInput{
		TemplateID:     "T1",
		TargetPlayerID: "p1",
		Month:          "2024-03",
		Answers:        map[string]float64{"t1": 4, "t2": 4, "f1": 8, "bogus": 99},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.ID != "sr-1" || r.WeightedScore != 80 || r.UserID != "coach1" {
		t.Fatalf("unexpected response %+v", r)
	}
	if _, ok := r.Answers["bogus"]; ok {
		t.Fatalf("unknown question ids must be dropped")
	}
	if store.assignments[0].Status != models.StatusCompleted {
		t.Fatalf("matching assignment not completed")
	}

	_, err = svc.Submit(stubCoach, SubmitResponseInput{TemplateID: "T1", TargetPlayerID: "p1", Month: "2024-03", Answers: map[string]float64{"t1": 1}})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorConflict {
		t.Fatalf("duplicate submission should conflict, got %v", err)
	}
	if got := store.auditActions(); len(got) != 1 || got[0] != AuditResponseSubmit {
		t.Fatalf("audit = %v", got)
	}
}

func TestSubmitWithoutAssignment(t *testing.T) {
	store := seededStore()
	svc := NewResponseService(store, nil)
	r, err := svc.Submit(stubParent, SubmitResponseInput{TemplateID: "T1", TargetPlayerID: "p1", Month: "2024-04", Answers: map[string]float64{}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.WeightedScore != 0 {
		t.Fatalf("empty answers should score 0, got %d", r.WeightedScore)
	}
}

func TestSubmitValidation(t *testing.T) {
	store := seededStore()
	svc := NewResponseService(store, store)
	cases := []struct {
		name string
		in   SubmitResponseInput
		code ErrorCode
	}{
		{"bad month", SubmitResponseInput{TemplateID: "T1", TargetPlayerID: "p1", Month: "2024-13", Answers: map[string]float64{}}, ErrorInvalid},
		{"missing answers", SubmitResponseInput{TemplateID: "T1", TargetPlayerID: "p1", Month: "2024-01"}, ErrorInvalid},
		{"unknown template", SubmitResponseInput{TemplateID: "T9", TargetPlayerID: "p1", Month: "2024-01", Answers: map[string]float64{}}, ErrorNotFound},
		{"unknown target", SubmitResponseInput{TemplateID: "T1", TargetPlayerID: "ghost", Month: "2024-01", Answers: map[string]float64{}}, ErrorNotFound},
	}
	for _, c := range cases {
		_, err := svc.Submit(stubCoach, c.in)
		if se, ok := AsServiceError(err); !ok || se.Code != c.code {
			t.Fatalf("%s: want %s, got %v", c.name, c.code, err)
		}
	}
	if _, err := svc.Submit(nil, cases[0].in); err == nil {
		t.Fatalf("expected unauthorized without actor")
	}
}

func TestResponseListScopes(t *testing.T) {
	store := seededStore()
	store.responses = []*models.Response{
		{ID: "r1", TemplateID: "T1", UserID: "coach1", TargetPlayerID: "p1", Month: "2024-01"},
		{ID: "r2", TemplateID: "T1", UserID: "admin", TargetPlayerID: "p2", Month: "2024-01"},
		{ID: "r3", TemplateID: "T1", UserID: "p1", TargetPlayerID: "coach1", Month: "2024-01"},
	}
	svc := NewResponseService(store, store)
	want := map[string]int{"admin": 3, "coach1": 1, "p1": 2, "g1": 1, "p2": 1}
	actors := map[string]*models.User{"admin": stubAdmin, "coach1": stubCoach, "p1": stubPlayer, "g1": stubParent, "p2": stubPlayer2}
	for id, n := range want {
		got, err := svc.List(actors[id])
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if len(got) != n {
			t.Fatalf("%s sees %d responses, want %d", id, len(got), n)
		}
	}
}

func TestSubmitRequiresAssignmentOrRelationship(t *testing.T) {
	store := seededStore()
	store.assignments = []*models.Assignment{
		{ID: "a-1", TemplateID: "T1", RespondentID: "p2", TargetID: "coach1", Month: "2024-03", Status: models.StatusPending},
	}
	svc := NewResponseService(store, store)
	in := func(target, month string) SubmitResponseInput {
		return SubmitResponseInput{TemplateID: "T1", TargetPlayerID: target, Month: month, Answers: map[string]float64{"t1": 5}}
	}
	cases := []struct {
		name   string
		actor  *models.User
		in     SubmitResponseInput
		denied bool
	}{
		{"player rates self", stubPlayer, in("p1", "2024-03"), true},
		{"player rates another player", stubPlayer, in("p2", "2024-03"), true},
		{"player without coach", stubPlayer2, in("coach1", "2024-04"), true},
		{"coach rates foreign player", stubCoach, in("p2", "2024-03"), true},
		{"player rates own coach", stubPlayer, in("coach1", "2024-03"), false},
		{"assigned respondent", stubPlayer2, in("coach1", "2024-03"), false},
		{"guardian rates child's coach", stubParent, in("coach1", "2024-03"), false},
		{"admin rates anyone", stubAdmin, in("p2", "2024-03"), false},
	}
	for _, c := range cases {
		_, err := svc.Submit(c.actor, c.in)
		if c.denied {
			if se, ok := AsServiceError(err); !ok || se.Code != ErrorForbidden {
				t.Fatalf("%s: want forbidden, got %v", c.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
	}
	if len(store.responses) != 4 {
		t.Fatalf("stored %d responses, want 4", len(store.responses))
	}
	if store.assignments[0].Status != models.StatusCompleted {
		t.Fatalf("assigned submission did not complete its assignment")
	}
}

func TestSubjectPredicate(t *testing.T) {
	users := []*models.User{stubAdmin, stubCoach, stubPlayer, stubPlayer2, stubParent}
	want := map[string][]string{
		"admin":  {"coach1", "p1", "p2", "g1"},
		"coach1": {"p1"},
		"p1":     {"coach1"},
		"p2":     nil,
		"g1":     {"p1", "coach1"},
	}
	for _, actor := range users {
		can := SubjectPredicate(actor, users)
		allowed := map[string]bool{}
		for _, id := range want[actor.ID] {
			allowed[id] = true
		}
		for _, u := range users {
			if got := can(u.ID); got != allowed[u.ID] {
				t.Fatalf("%s may evaluate %s = %v, want %v", actor.ID, u.ID, got, allowed[u.ID])
			}
		}
	}
	if SubjectPredicate(nil, users)("p1") {
		t.Fatalf("nil actor must not evaluate anyone")
	}
}
