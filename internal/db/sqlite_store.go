package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/soaringjerry/FootPulse/internal/api"
	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

// SQLiteStore persists the academy in a single SQLite file. The unique
// indexes on assignments and responses enforce one row per evaluation key.
type SQLiteStore struct {
	db *sql.DB
}

var _ api.Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database file at path. SQLite has a
// single writer, so the pool is capped at one connection.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		log.Warn().Err(err).Str("value", v).Msg("sqlite store: bad timestamp")
	}
	return t
}

func nullString(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, name, email, pass_hash, mobile, avatar, role, trainer_id, player_id, created_at`

func scanUser(sc rowScanner) (*models.User, error) {
	var (
		u                                   models.User
		mobile, avatar, trainerID, playerID sql.NullString
		role, created                       string
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.PassHash, &mobile, &avatar, &role, &trainerID, &playerID, &created); err != nil {
		return nil, err
	}
	u.Mobile = mobile.String
	u.Avatar = avatar.String
	u.Role = models.Role(role)
	u.TrainerID = trainerID.String
	u.PlayerID = playerID.String
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLiteStore) queryUser(where string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	return s.queryUser("id = ?", id)
}

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	return s.queryUser("email = ?", strings.ToLower(email))
}

func (s *SQLiteStore) ListUsers() ([]*models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddUser(u *models.User) error {
	if u == nil {
		return errors.New("user required")
	}
	_, err := s.db.Exec(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PassHash, nullString(u.Mobile), nullString(u.Avatar),
		string(u.Role), nullString(u.TrainerID), nullString(u.PlayerID), formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return services.NewConflictError("user or email exists")
	}
	return err
}

func (s *SQLiteStore) SetPassword(id string, hash []byte) error {
	res, err := s.db.Exec(`UPDATE users SET pass_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

const templateColumns = `id, name, ar_name, description, ar_description, categories, created_at`

func scanTemplate(sc rowScanner) (*models.Template, error) {
	var (
		t                    models.Template
		arName, desc, arDesc sql.NullString
		categories, created  string
	)
	if err := sc.Scan(&t.ID, &t.Name, &arName, &desc, &arDesc, &categories, &created); err != nil {
		return nil, err
	}
	t.ArName = arName.String
	t.Description = desc.String
	t.ArDescription = arDesc.String
	t.CreatedAt = parseTime(created)
	if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
		return nil, fmt.Errorf("decode categories of %s: %w", t.ID, err)
	}
	return &t, nil
}

func (s *SQLiteStore) AddTemplate(t *models.Template) error {
	if t == nil {
		return errors.New("template required")
	}
	categories, err := json.Marshal(t.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, nullString(t.ArName), nullString(t.Description), nullString(t.ArDescription),
		string(categories), formatTime(t.CreatedAt))
	if isUniqueViolation(err) {
		return services.NewConflictError("template exists")
	}
	return err
}

func (s *SQLiteStore) GetTemplate(id string) (*models.Template, error) {
	t, err := scanTemplate(s.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteStore) ListTemplates() ([]*models.Template, error) {
	rows, err := s.db.Query(`SELECT ` + templateColumns + ` FROM templates ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	var out []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const assignmentColumns = `id, template_id, assigner_id, respondent_id, target_id, month, status, created_at`

func scanAssignment(sc rowScanner) (*models.Assignment, error) {
	var (
		a               models.Assignment
		assigner        sql.NullString
		status, created string
	)
	if err := sc.Scan(&a.ID, &a.TemplateID, &assigner, &a.RespondentID, &a.TargetID, &a.Month, &status, &created); err != nil {
		return nil, err
	}
	a.AssignerID = assigner.String
	a.Status = models.AssignmentStatus(status)
	a.CreatedAt = parseTime(created)
	return &a, nil
}

func (s *SQLiteStore) ListAssignments() ([]*models.Assignment, error) {
	rows, err := s.db.Query(`SELECT ` + assignmentColumns + ` FROM assignments ORDER BY month, id`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAssignment(id string) (*models.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRow(`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// AddAssignments inserts the batch in one transaction. Rows whose key (or id)
// is already taken are skipped by the unique index; a key that already has a
// response is written as COMPLETED.
func (s *SQLiteStore) AddAssignments(as []*models.Assignment) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO assignments (` + assignmentColumns + `)
		SELECT ?, ?, ?, ?, ?, ?,
			CASE WHEN EXISTS (SELECT 1 FROM responses
				WHERE template_id = ? AND user_id = ? AND target_player_id = ? AND month = ?)
			THEN ? ELSE ? END, ?
		WHERE true
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, a := range as {
		if a == nil {
			continue
		}
		res, err := stmt.Exec(a.ID, a.TemplateID, nullString(a.AssignerID), a.RespondentID, a.TargetID, a.Month,
			a.TemplateID, a.RespondentID, a.TargetID, a.Month,
			string(models.StatusCompleted), string(a.Status), formatTime(a.CreatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert assignment %s: %w", a.ID, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteAssignment removes the assignment and, when it was completed, the
// response that completed it.
func (s *SQLiteStore) DeleteAssignment(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	a, err := scanAssignment(tx.QueryRow(`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return services.NewNotFoundError("assignment not found")
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM assignments WHERE id = ?`, id); err != nil {
		return err
	}
	if a.Status == models.StatusCompleted {
		if _, err := tx.Exec(`DELETE FROM responses WHERE template_id = ? AND user_id = ? AND target_player_id = ? AND month = ?`,
			a.TemplateID, a.RespondentID, a.TargetID, a.Month); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const responseColumns = `id, template_id, user_id, target_player_id, month, date, answers, weighted_score`

func scanResponse(sc rowScanner) (*models.Response, error) {
	var (
		r             models.Response
		date, answers string
	)
	if err := sc.Scan(&r.ID, &r.TemplateID, &r.UserID, &r.TargetPlayerID, &r.Month, &date, &answers, &r.WeightedScore); err != nil {
		return nil, err
	}
	r.Date = parseTime(date)
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", r.ID, err)
	}
	return &r, nil
}

func (s *SQLiteStore) ListResponses() ([]*models.Response, error) {
	rows, err := s.db.Query(`SELECT ` + responseColumns + ` FROM responses ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	var out []*models.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SubmitResponse stores r and completes the matching assignment, if any,
// in one transaction.
func (s *SQLiteStore) SubmitResponse(r *models.Response) (*models.Assignment, error) {
	if r == nil {
		return nil, errors.New("response required")
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	_, err = tx.Exec(`INSERT INTO responses (`+responseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TemplateID, r.UserID, r.TargetPlayerID, r.Month, formatTime(r.Date), string(answers), r.WeightedScore)
	if isUniqueViolation(err) {
		return nil, services.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	key := []any{r.TemplateID, r.UserID, r.TargetPlayerID, r.Month}
	if _, err := tx.Exec(`UPDATE assignments SET status = ? WHERE template_id = ? AND respondent_id = ? AND target_id = ? AND month = ?`,
		append([]any{string(models.StatusCompleted)}, key...)...); err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	a, err := scanAssignment(tx.QueryRow(`SELECT `+assignmentColumns+` FROM assignments WHERE template_id = ? AND respondent_id = ? AND target_id = ? AND month = ?`, key...))
	if errors.Is(err, sql.ErrNoRows) {
		a, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) AddAudit(e models.AuditEntry) error {
	_, err := s.db.Exec(`INSERT INTO audit_log (time, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		formatTime(e.Time), e.Actor, e.Action, nullString(e.Target), nullString(e.Note))
	return err
}

// ListAudit returns the newest entries first; limit <= 0 means all.
func (s *SQLiteStore) ListAudit(limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT time, actor, action, target, note FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e            models.AuditEntry
			ts           string
			target, note sql.NullString
		)
		if err := rows.Scan(&ts, &e.Actor, &e.Action, &target, &note); err != nil {
			return nil, err
		}
		e.Time = parseTime(ts)
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}
