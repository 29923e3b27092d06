package models

import (
	"regexp"
	"time"
)

// Role is the access role of an academy member.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleTrainer  Role = "TRAINER"
	RolePlayer   Role = "PLAYER"
	RoleGuardian Role = "GUARDIAN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RolePlayer, RoleGuardian:
		return true
	}
	return false
}

// User is an academy member. A PLAYER may point at its coach through
// TrainerID; a GUARDIAN may point at its child through PlayerID.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Mobile    string    `json:"mobile,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      Role      `json:"role"`
	TrainerID string    `json:"trainerId,omitempty"`
	PlayerID  string    `json:"playerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type QuestionType string

const (
	QuestionRating         QuestionType = "RATING"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
)

// Option is one choice of a MULTIPLE_CHOICE question.
type Option struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	ArText string  `json:"arText,omitempty"`
	Value  float64 `json:"value"`
}

// Question is weighted as a percentage of its category. ScaleMax declares
// the top of the answer scale; zero means the scale is inferred.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	ArText   string       `json:"arText,omitempty"`
	Weight   float64      `json:"weight"`
	Type     QuestionType `json:"type"`
	ScaleMax float64      `json:"scaleMax,omitempty"`
	Options  []Option     `json:"options,omitempty"`
}

// Category is weighted as a percentage of its template.
type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ArName    string     `json:"arName,omitempty"`
	Weight    float64    `json:"weight"`
	Questions []Question `json:"questions"`
}

// Template is a reusable questionnaire definition.
type Template struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ArName        string     `json:"arName,omitempty"`
	Description   string     `json:"description,omitempty"`
	ArDescription string     `json:"arDescription,omitempty"`
	Categories    []Category `json:"categories"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Question looks up a question by id across all categories.
func (t *Template) Question(id string) (*Question, *Category) {
	for ci := range t.Categories {
		c := &t.Categories[ci]
		for qi := range c.Questions {
			if c.Questions[qi].ID == id {
				return &c.Questions[qi], c
			}
		}
	}
	return nil, nil
}

type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "PENDING"
	StatusCompleted AssignmentStatus = "COMPLETED"
)

// AssignmentKey identifies one unit of evaluation work. At most one
// Assignment and one Response may exist per key.
type AssignmentKey struct {
	TemplateID   string
	RespondentID string
	TargetID     string
	Month        string
}

// Assignment obliges RespondentID to evaluate TargetID with TemplateID in Month.
type Assignment struct {
	ID           string           `json:"id"`
	TemplateID   string           `json:"templateId"`
	AssignerID   string           `json:"assignerId"`
	RespondentID string           `json:"respondentId"`
	TargetID     string           `json:"targetId"`
	Month        string           `json:"month"`
	Status       AssignmentStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func (a *Assignment) Key() AssignmentKey {
	return AssignmentKey{TemplateID: a.TemplateID, RespondentID: a.RespondentID, TargetID: a.TargetID, Month: a.Month}
}

// Response is one respondent's scored answers about one target for one month.
type Response struct {
	ID             string             `json:"id"`
	TemplateID     string             `json:"templateId"`
	UserID         string             `json:"userId"`
	TargetPlayerID string             `json:"targetPlayerId"`
	Month          string             `json:"month"`
	Date           time.Time          `json:"date"`
	Answers        map[string]float64 `json:"answers"`
	WeightedScore  int                `json:"weightedScore"`
}

func (r *Response) Key() AssignmentKey {
	return AssignmentKey{TemplateID: r.TemplateID, RespondentID: r.UserID, TargetID: r.TargetPlayerID, Month: r.Month}
}

// AuditEntry records an administrative action.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a YYYY-MM month id.
func ValidMonth(s string) bool { return monthPattern.MatchString(s) }

// MonthOf formats t as a YYYY-MM month id in UTC.
func MonthOf(t time.Time) string { return t.UTC().Format("2006-01") }
