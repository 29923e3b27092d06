package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sqlDB, err := Open(filepath.Join(t.TempDir(), "data", "footpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	ran, err := RunMigrations(sqlDB, "")
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.sql"}, ran)
	s, err := NewSQLiteStore(sqlDB)
	require.NoError(t, err)
	return s
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	sqlDB, err := Open(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	ran, err := RunMigrations(sqlDB, filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Len(t, ran, 1)

	ran, err = RunMigrations(sqlDB, "")
	require.NoError(t, err)
	assert.Empty(t, ran)
}

func TestSQLiteUsers(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, s.AddUser(&models.User{
		ID: "p1", Name: "Leo", Email: "Leo@FootPulse.app", PassHash: []byte("hash"),
		Role: models.RolePlayer, TrainerID: "c1", Mobile: "+44 7700 900003", CreatedAt: created,
	}))

	u, err := s.FindUserByEmail("leo@footpulse.app")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "p1", u.ID)
	assert.Equal(t, "c1", u.TrainerID)
	assert.Empty(t, u.PlayerID)
	assert.True(t, created.Equal(u.CreatedAt))

	err = s.AddUser(&models.User{ID: "p2", Name: "Dup", Email: "leo@footpulse.app", Role: models.RolePlayer})
	se, ok := services.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, services.ErrorConflict, se.Code)

	require.NoError(t, s.SetPassword("p1", []byte("other")))
	u, _ = s.GetUser("p1")
	assert.Equal(t, []byte("other"), u.PassHash)

	missing, err := s.GetUser("ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteTemplatesRoundTripCategories(t *testing.T) {
	s := newTestStore(t)
	tpl := &models.Template{
		ID: "t1", Name: "Eval", ArName: "تقييم",
		Categories: []models.Category{{
			ID: "c1", Name: "Tech", Weight: 100,
			Questions: []models.Question{{ID: "q1", Text: "Pass", Weight: 100, Type: models.QuestionMultipleChoice,
				Options: []models.Option{{ID: "o1", Text: "Good", Value: 3}}}},
		}},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.AddTemplate(tpl))

	got, err := s.GetTemplate("t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "تقييم", got.ArName)
	assert.Equal(t, tpl.Categories, got.Categories)

	_, ok := services.AsServiceError(s.AddTemplate(tpl))
	assert.True(t, ok)

	list, err := s.ListTemplates()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func assignment(id, respondent, target, month string) *models.Assignment {
	return &models.Assignment{ID: id, TemplateID: "t1", AssignerID: "admin", RespondentID: respondent, TargetID: target,
		Month: month, Status: models.StatusPending, CreatedAt: time.Now().UTC()}
}

func TestSQLiteAssignmentsUniqueKey(t *testing.T) {
	s := newTestStore(t)
	n, err := s.AddAssignments([]*models.Assignment{assignment("a1", "p1", "c1", "2025-01"), assignment("a2", "p2", "c1", "2025-01")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AddAssignments([]*models.Assignment{assignment("a3", "p1", "c1", "2025-01"), assignment("a1", "p9", "c1", "2025-05")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := s.ListAssignments()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSQLiteSubmitAndCascade(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddAssignments([]*models.Assignment{assignment("a1", "p1", "c1", "2025-01")})
	require.NoError(t, err)

	r := &models.Response{ID: "r1", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1", Month: "2025-01",
		Date: time.Now().UTC(), Answers: map[string]float64{"q1": 4}, WeightedScore: 80}
	done, err := s.SubmitResponse(r)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, "a1", done.ID)
	assert.Equal(t, models.StatusCompleted, done.Status)

	r.ID = "r2"
	_, err = s.SubmitResponse(r)
	assert.True(t, errors.Is(err, services.ErrDuplicate))

	rs, err := s.ListResponses()
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 4.0, rs[0].Answers["q1"])
	assert.Equal(t, 80, rs[0].WeightedScore)

	require.NoError(t, s.DeleteAssignment("a1"))
	rs, _ = s.ListResponses()
	assert.Empty(t, rs)

	se, ok := services.AsServiceError(s.DeleteAssignment("a1"))
	require.True(t, ok)
	assert.Equal(t, services.ErrorNotFound, se.Code)
}

func TestSQLiteAssignmentAfterResponseIsCompleted(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SubmitResponse(&models.Response{ID: "r1", TemplateID: "t1", UserID: "c1", TargetPlayerID: "p1",
		Month: "2024-03", Date: time.Now().UTC(), Answers: map[string]float64{"q1": 4}, WeightedScore: 80})
	require.NoError(t, err)

	n, err := s.AddAssignments([]*models.Assignment{assignment("a1", "c1", "p1", "2024-03"), assignment("a2", "c1", "p1", "2024-04")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	late, err := s.GetAssignment("a1")
	require.NoError(t, err)
	require.NotNil(t, late)
	assert.Equal(t, models.StatusCompleted, late.Status)
	open, err := s.GetAssignment("a2")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, models.StatusPending, open.Status)
	assert.Equal(t, "admin", open.AssignerID)

	require.NoError(t, s.DeleteAssignment("a1"))
	rs, _ := s.ListResponses()
	assert.Empty(t, rs)
}

func TestSQLiteSubmitWithoutAssignment(t *testing.T) {
	s := newTestStore(t)
	done, err := s.SubmitResponse(&models.Response{ID: "r1", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1",
		Month: "2025-01", Date: time.Now(), Answers: map[string]float64{}})
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestSQLiteAudit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAudit(models.AuditEntry{Time: time.Now(), Actor: "admin", Action: "user.create", Target: "u1"}))
	require.NoError(t, s.AddAudit(models.AuditEntry{Time: time.Now(), Actor: "admin", Action: "template.create", Target: "t1", Note: "Eval"}))

	got, err := s.ListAudit(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "template.create", got[0].Action)
	assert.Equal(t, "Eval", got[0].Note)

	all, err := s.ListAudit(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
