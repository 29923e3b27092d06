package services

import "github.com/soaringjerry/FootPulse/internal/models"

// TargetPredicate reports whether actor may see evaluations about the user
// with the given id. It is built once per actor from the roster.
//
//	ADMIN    everyone
//	TRAINER  players whose coach is the actor
//	GUARDIAN the actor's linked player
//	PLAYER   the actor
func TargetPredicate(actor *models.User, users []*models.User) func(targetID string) bool {
	if actor == nil {
		return func(string) bool { return false }
	}
	switch actor.Role {
	case models.RoleAdmin:
		return func(string) bool { return true }
	case models.RoleTrainer:
		squad := map[string]struct{}{}
		for _, u := range users {
			if u != nil && u.Role == models.RolePlayer && u.TrainerID == actor.ID {
				squad[u.ID] = struct{}{}
			}
		}
		return func(id string) bool {
			_, ok := squad[id]
			return ok
		}
	case models.RoleGuardian:
		child := actor.PlayerID
		return func(id string) bool { return child != "" && id == child }
	case models.RolePlayer:
		self := actor.ID
		return func(id string) bool { return id == self }
	}
	return func(string) bool { return false }
}

// VisibilityPredicate is the response-level form of TargetPredicate.
func VisibilityPredicate(actor *models.User, users []*models.User) func(*models.Response) bool {
	target := TargetPredicate(actor, users)
	return func(r *models.Response) bool {
		return r != nil && target(r.TargetPlayerID)
	}
}

// SubjectPredicate reports whom actor may evaluate without an assignment:
//
//	ADMIN    anyone
//	TRAINER  players they coach
//	PLAYER   their coach
//	GUARDIAN the linked player and that player's coach
//
// Nobody may evaluate themselves this way.
func SubjectPredicate(actor *models.User, users []*models.User) func(targetID string) bool {
	if actor == nil {
		return func(string) bool { return false }
	}
	r := newRoster(users)
	allowed := map[string]struct{}{}
	switch actor.Role {
	case models.RoleAdmin:
		return func(id string) bool { return id != actor.ID }
	case models.RoleTrainer:
		for _, u := range users {
			if u != nil && u.Role == models.RolePlayer && u.TrainerID == actor.ID {
				allowed[u.ID] = struct{}{}
			}
		}
	case models.RolePlayer:
		if coach := r.withRole(actor.TrainerID, models.RoleTrainer); coach != nil {
			allowed[coach.ID] = struct{}{}
		}
	case models.RoleGuardian:
		if child := r.withRole(actor.PlayerID, models.RolePlayer); child != nil {
			allowed[child.ID] = struct{}{}
			if coach := r.withRole(child.TrainerID, models.RoleTrainer); coach != nil {
				allowed[coach.ID] = struct{}{}
			}
		}
	}
	delete(allowed, actor.ID)
	return func(id string) bool {
		_, ok := allowed[id]
		return ok
	}
}
