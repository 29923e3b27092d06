package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type AnalyticsStore interface {
	ListUsers() ([]*models.User, error)
	ListTemplates() ([]*models.Template, error)
	ListResponses() ([]*models.Response, error)
	ListAssignments() ([]*models.Assignment, error)
}

// AnalyticsService loads snapshots and runs the aggregation pipeline on them.
// Concurrent requests share one in-flight snapshot load.
type AnalyticsService struct {
	store AnalyticsStore
	group singleflight.Group
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

func (s *AnalyticsService) load() (*Snapshot, error) {
	users, err := s.store.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	templates, err := s.store.ListTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	responses, err := s.store.ListResponses()
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	assignments, err := s.store.ListAssignments()
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	return &Snapshot{Users: users, Templates: templates, Responses: responses, Assignments: assignments}, nil
}

// Snapshot returns the current collections. The result is shared between
// callers and must not be mutated.
func (s *AnalyticsService) Snapshot(ctx context.Context) (*Snapshot, error) {
	ch := s.group.DoChan("snapshot", func() (any, error) { return s.load() })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Pipeline loads a snapshot and scopes it to actor. Explicitly selected
// users outside the actor's scope are rejected rather than filtered.
func (s *AnalyticsService) Pipeline(ctx context.Context, actor *models.User, sel FilterSelection) (*Pipeline, error) {
	if actor == nil {
		return nil, NewUnauthorizedError("unauthorized")
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		allowed := TargetPredicate(actor, snap.Users)
		for _, id := range sel.UserIDs {
			if !allowed(id) {
				return nil, NewForbiddenError(fmt.Sprintf("user %s is outside your scope", id))
			}
		}
	}
	for _, m := range sel.MonthIDs {
		if !models.ValidMonth(m) {
			return nil, NewInvalidError(fmt.Sprintf("invalid month %q", m))
		}
	}
	return NewPipeline(snap, actor), nil
}

func (s *AnalyticsService) Trend(ctx context.Context, actor *models.User, sel FilterSelection) ([]TrendPoint, error) {
	p, err := s.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	return p.Trend(sel), nil
}

func (s *AnalyticsService) Comparison(ctx context.Context, actor *models.User, sel FilterSelection) ([]ComparisonRow, error) {
	p, err := s.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	return p.Comparison(sel), nil
}

func (s *AnalyticsService) Radar(ctx context.Context, actor *models.User, sel FilterSelection) ([]RadarPoint, error) {
	p, err := s.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	return p.Radar(sel), nil
}

func (s *AnalyticsService) Growth(ctx context.Context, actor *models.User, sel FilterSelection) ([]GrowthDelta, error) {
	p, err := s.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	return p.Growth(sel), nil
}

func (s *AnalyticsService) Completion(ctx context.Context, actor *models.User, sel FilterSelection) ([]CompletionPoint, error) {
	p, err := s.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	return p.Completion(sel), nil
}
