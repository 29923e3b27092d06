package api

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

func pending(id, respondent, target, month string) *models.Assignment {
	return &models.Assignment{ID: id, TemplateID: "t1", RespondentID: respondent, TargetID: target, Month: month, Status: models.StatusPending}
}

func TestMemoryStoreUsers(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddUser(&models.User{ID: "u1", Email: "A@x.io", PassHash: []byte("h")}))

	err := s.AddUser(&models.User{ID: "u2", Email: "a@X.io"})
	se, ok := services.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, services.ErrorConflict, se.Code)

	u, err := s.FindUserByEmail("a@x.io")
	require.NoError(t, err)
	require.NotNil(t, u)
	u.PassHash[0] = 'z'
	again, _ := s.GetUser("u1")
	assert.Equal(t, []byte("h"), again.PassHash)

	require.NoError(t, s.SetPassword("u1", []byte("new")))
	again, _ = s.GetUser("u1")
	assert.Equal(t, []byte("new"), again.PassHash)

	missing, err := s.GetUser("nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.Error(t, s.SetPassword("nobody", nil))
}

func TestMemoryStoreAddAssignmentsSkipsTakenKeys(t *testing.T) {
	s := NewMemoryStore()
	n, err := s.AddAssignments([]*models.Assignment{pending("a1", "p1", "c1", "2025-01"), pending("a2", "p2", "c1", "2025-01")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AddAssignments([]*models.Assignment{pending("a3", "p1", "c1", "2025-01"), pending("a4", "p1", "c1", "2025-02")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, _ := s.ListAssignments()
	require.Len(t, all, 3)
	assert.Equal(t, "2025-02", all[2].Month)
}

func TestMemoryStoreConcurrentAssignmentsNeverDuplicate(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	total := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, _ := s.AddAssignments([]*models.Assignment{pending(fmt.Sprintf("a%d", i), "p1", "c1", "2025-01")})
			total <- n
		}(i)
	}
	wg.Wait()
	close(total)
	sum := 0
	for n := range total {
		sum += n
	}
	assert.Equal(t, 1, sum)
}

func TestMemoryStoreSubmitCompletesAndDeleteCascades(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.AddAssignments([]*models.Assignment{pending("a1", "p1", "c1", "2025-01")})
	require.NoError(t, err)

	r := &models.Response{ID: "r1", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1", Month: "2025-01", Date: time.Now(), Answers: map[string]float64{"q": 3}}
	done, err := s.SubmitResponse(r)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, models.StatusCompleted, done.Status)

	_, err = s.SubmitResponse(&models.Response{ID: "r2", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1", Month: "2025-01"})
	assert.True(t, errors.Is(err, services.ErrDuplicate))

	free, err := s.SubmitResponse(&models.Response{ID: "r3", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1", Month: "2025-02"})
	require.NoError(t, err)
	assert.Nil(t, free)

	require.NoError(t, s.DeleteAssignment("a1"))
	rs, _ := s.ListResponses()
	require.Len(t, rs, 1)
	assert.Equal(t, "r3", rs[0].ID)

	_, err = s.SubmitResponse(&models.Response{ID: "r4", TemplateID: "t1", UserID: "p1", TargetPlayerID: "c1", Month: "2025-01"})
	assert.NoError(t, err)

	se, ok := services.AsServiceError(s.DeleteAssignment("a1"))
	require.True(t, ok)
	assert.Equal(t, services.ErrorNotFound, se.Code)
}

func TestMemoryStoreAssignmentAfterResponseIsCompleted(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.SubmitResponse(&models.Response{ID: "r1", TemplateID: "t1", UserID: "c1", TargetPlayerID: "p1", Month: "2024-03"})
	require.NoError(t, err)

	n, err := s.AddAssignments([]*models.Assignment{pending("a1", "c1", "p1", "2024-03"), pending("a2", "c1", "p1", "2024-04")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	late, _ := s.GetAssignment("a1")
	require.NotNil(t, late)
	assert.Equal(t, models.StatusCompleted, late.Status)
	open, _ := s.GetAssignment("a2")
	require.NotNil(t, open)
	assert.Equal(t, models.StatusPending, open.Status)

	require.NoError(t, s.DeleteAssignment("a1"))
	rs, _ := s.ListResponses()
	assert.Empty(t, rs)
}

func TestMemoryStoreAuditNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddAudit(models.AuditEntry{Action: fmt.Sprintf("act-%d", i)}))
	}
	got, err := s.ListAudit(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "act-4", got[0].Action)
	assert.Equal(t, "act-3", got[1].Action)

	all, _ := s.ListAudit(0)
	assert.Len(t, all, 5)
}
