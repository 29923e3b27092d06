package services

import "github.com/soaringjerry/FootPulse/internal/models"

// PolicyKind names a rule for expanding the roster into respondent/target pairs.
type PolicyKind string

const (
	PolicyManual              PolicyKind = "MANUAL"
	PolicyGuardiansToChildren PolicyKind = "GUARDIANS_TO_CHILDREN"
	PolicyGuardiansToCoaches  PolicyKind = "GUARDIANS_TO_COACHES"
	PolicyPlayersToCoaches    PolicyKind = "PLAYERS_TO_COACHES"
	PolicyCoachesToPlayers    PolicyKind = "COACHES_TO_PLAYERS"
)

func (k PolicyKind) Valid() bool {
	switch k {
	case PolicyManual, PolicyGuardiansToChildren, PolicyGuardiansToCoaches, PolicyPlayersToCoaches, PolicyCoachesToPlayers:
		return true
	}
	return false
}

// Policy selects who evaluates whom. RespondentIDs and TargetIDs are only
// read for MANUAL.
type Policy struct {
	Kind          PolicyKind `json:"kind"`
	RespondentIDs []string   `json:"respondentIds,omitempty"`
	TargetIDs     []string   `json:"targetIds,omitempty"`
}

// Pair is one candidate evaluation.
type Pair struct {
	Respondent *models.User `json:"respondent"`
	Target     *models.User `json:"target"`
}

// Exclusion explains why a user produced no candidate.
type Exclusion struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type roster struct {
	users []*models.User
	byID  map[string]*models.User
}

func newRoster(users []*models.User) roster {
	r := roster{users: users, byID: make(map[string]*models.User, len(users))}
	for _, u := range users {
		if u != nil {
			r.byID[u.ID] = u
		}
	}
	return r
}

func (r roster) withRole(id string, role models.Role) *models.User {
	if id == "" {
		return nil
	}
	u := r.byID[id]
	if u == nil || u.Role != role {
		return nil
	}
	return u
}

// Expand turns the policy into candidate pairs over users, in roster order.
// Users that lack the relationship a policy needs are reported as exclusions.
func (p Policy) Expand(users []*models.User) ([]Pair, []Exclusion) {
	r := newRoster(users)
	var pairs []Pair
	var excluded []Exclusion
	exclude := func(id, reason string) { excluded = append(excluded, Exclusion{UserID: id, Reason: reason}) }

	switch p.Kind {
	case PolicyManual:
		targets := make([]*models.User, 0, len(p.TargetIDs))
		for _, id := range p.TargetIDs {
			if u := r.byID[id]; u != nil {
				targets = append(targets, u)
			} else {
				exclude(id, "unknown target")
			}
		}
		for _, id := range p.RespondentIDs {
			resp := r.byID[id]
			if resp == nil {
				exclude(id, "unknown respondent")
				continue
			}
			for _, t := range targets {
				pairs = append(pairs, Pair{Respondent: resp, Target: t})
			}
		}
	case PolicyGuardiansToChildren:
		for _, u := range r.users {
			if u == nil || u.Role != models.RoleGuardian {
				continue
			}
			child := r.withRole(u.PlayerID, models.RolePlayer)
			if child == nil {
				exclude(u.ID, "guardian has no linked player")
				continue
			}
			pairs = append(pairs, Pair{Respondent: u, Target: child})
		}
	case PolicyGuardiansToCoaches:
		for _, u := range r.users {
			if u == nil || u.Role != models.RoleGuardian {
				continue
			}
			child := r.withRole(u.PlayerID, models.RolePlayer)
			if child == nil {
				exclude(u.ID, "guardian has no linked player")
				continue
			}
			coach := r.withRole(child.TrainerID, models.RoleTrainer)
			if coach == nil {
				exclude(u.ID, "linked player has no coach")
				continue
			}
			pairs = append(pairs, Pair{Respondent: u, Target: coach})
		}
	case PolicyPlayersToCoaches:
		for _, u := range r.users {
			if u == nil || u.Role != models.RolePlayer {
				continue
			}
			coach := r.withRole(u.TrainerID, models.RoleTrainer)
			if coach == nil {
				exclude(u.ID, "player has no coach")
				continue
			}
			pairs = append(pairs, Pair{Respondent: u, Target: coach})
		}
	case PolicyCoachesToPlayers:
		for _, coach := range r.users {
			if coach == nil || coach.Role != models.RoleTrainer {
				continue
			}
			found := false
			for _, u := range r.users {
				if u != nil && u.Role == models.RolePlayer && u.TrainerID == coach.ID {
					pairs = append(pairs, Pair{Respondent: coach, Target: u})
					found = true
				}
			}
			if !found {
				exclude(coach.ID, "coach has no players")
			}
		}
	}
	return dedupePairs(pairs), excluded
}

func dedupePairs(pairs []Pair) []Pair {
	seen := make(map[[2]string]struct{}, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		k := [2]string{p.Respondent.ID, p.Target.ID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

type PlanOutcome string

const (
	OutcomeNoCandidates PlanOutcome = "no_candidates"
	OutcomeNothingNew   PlanOutcome = "nothing_new"
	OutcomeHasNew       PlanOutcome = "has_new"
)

// AssignmentPlan is the preview of a bulk assignment: candidates split into
// those that would be created and those that already exist.
type AssignmentPlan struct {
	TemplateID    string      `json:"templateId"`
	Month         string      `json:"month"`
	Created       []Pair      `json:"created"`
	AlreadyExists []Pair      `json:"alreadyExists"`
	Excluded      []Exclusion `json:"excluded,omitempty"`
}

func (p *AssignmentPlan) Candidates() int { return len(p.Created) + len(p.AlreadyExists) }

// Outcome tells "nothing to assign" apart from "nothing new to assign".
func (p *AssignmentPlan) Outcome() PlanOutcome {
	switch {
	case p.Candidates() == 0:
		return OutcomeNoCandidates
	case len(p.Created) == 0:
		return OutcomeNothingNew
	default:
		return OutcomeHasNew
	}
}

// Plan expands policy over users and classifies every candidate against the
// existing assignments for templateID and month. It never writes.
func Plan(users []*models.User, policy Policy, templateID, month string, existing []*models.Assignment) *AssignmentPlan {
	have := make(map[models.AssignmentKey]struct{}, len(existing))
	for _, a := range existing {
		if a != nil {
			have[a.Key()] = struct{}{}
		}
	}
	pairs, excluded := policy.Expand(users)
	plan := &AssignmentPlan{
		TemplateID:    templateID,
		Month:         month,
		Created:       []Pair{},
		AlreadyExists: []Pair{},
		Excluded:      excluded,
	}
	for _, p := range pairs {
		key := models.AssignmentKey{TemplateID: templateID, RespondentID: p.Respondent.ID, TargetID: p.Target.ID, Month: month}
		if _, ok := have[key]; ok {
			plan.AlreadyExists = append(plan.AlreadyExists, p)
		} else {
			plan.Created = append(plan.Created, p)
		}
	}
	return plan
}
