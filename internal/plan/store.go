// Package plan persists lesson plans per teacher account.
package plan

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"giaoan/internal/lesson"
)

// Limits on stored plans.
const (
	MaxTitleLength  = 300
	MaxContentBytes = 1 << 20
)

// ErrNotFound is returned when a plan does not exist or belongs to another user.
var ErrNotFound = errors.New("lesson plan not found")

// Record is a stored lesson plan.
type Record struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Plan      lesson.Plan `json:"plan"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Summary is the list view of a stored plan.
type Summary struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Grade       string    `json:"grade"`
	LessonTitle string    `json:"lesson_title"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store provides CRUD over the lesson_plans table.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Validate checks the limits a plan must satisfy before it is stored.
func Validate(p lesson.Plan) error {
	title := strings.TrimSpace(p.LessonTitle)
	if title == "" {
		return fmt.Errorf("lesson title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("lesson title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

func encodeContent(c lesson.Content) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	if len(data) > MaxContentBytes {
		return "", fmt.Errorf("content exceeds %d bytes", MaxContentBytes)
	}
	return string(data), nil
}

// Create stores a new plan for userID.
func (s *Store) Create(userID string, p lesson.Plan) (*Record, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	content, err := encodeContent(p.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      p,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.Exec(
		`INSERT INTO lesson_plans (id, user_id, subject, grade, teacher_name, lesson_title, duration, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, userID, p.Subject, p.Grade, p.TeacherName, strings.TrimSpace(p.LessonTitle), p.Duration,
		content, now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert lesson plan: %w", err)
	}
	rec.Plan.LessonTitle = strings.TrimSpace(p.LessonTitle)
	log.Printf("[Plan] created %s for user %s", rec.ID, userID)
	return rec, nil
}

// Get returns a plan by ID regardless of owner.
func (s *Store) Get(id string) (*Record, error) {
	return s.scanOne(
		`SELECT id, user_id, subject, grade, teacher_name, lesson_title, duration, content, created_at, updated_at
		 FROM lesson_plans WHERE id = ?`, id)
}

// GetForUser returns a plan by ID if it belongs to userID.
func (s *Store) GetForUser(userID, id string) (*Record, error) {
	return s.scanOne(
		`SELECT id, user_id, subject, grade, teacher_name, lesson_title, duration, content, created_at, updated_at
		 FROM lesson_plans WHERE id = ? AND user_id = ?`, id, userID)
}

func (s *Store) scanOne(query string, args ...any) (*Record, error) {
	var rec Record
	var content, createdAt, updatedAt string
	err := s.db.QueryRow(query, args...).Scan(
		&rec.ID, &rec.UserID, &rec.Plan.Subject, &rec.Plan.Grade, &rec.Plan.TeacherName,
		&rec.Plan.LessonTitle, &rec.Plan.Duration, &content, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lesson plan: %w", err)
	}
	rec.Plan.Content, err = lesson.DecodeContent([]byte(content))
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// List returns summaries of the user's plans, most recently updated first.
func (s *Store) List(userID string) ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT id, subject, grade, lesson_title, updated_at FROM lesson_plans
		 WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list lesson plans: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var updatedAt string
		if err := rows.Scan(&sum.ID, &sum.Subject, &sum.Grade, &sum.LessonTitle, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan lesson plan: %w", err)
		}
		sum.UpdatedAt = parseTime(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Update replaces a plan owned by userID.
func (s *Store) Update(userID, id string, p lesson.Plan) (*Record, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	content, err := encodeContent(p.Content)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(
		`UPDATE lesson_plans SET subject = ?, grade = ?, teacher_name = ?, lesson_title = ?, duration = ?, content = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Subject, p.Grade, p.TeacherName, strings.TrimSpace(p.LessonTitle), p.Duration, content,
		now.Format(time.RFC3339), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update lesson plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetForUser(userID, id)
}

// Delete removes a plan owned by userID.
func (s *Store) Delete(userID, id string) error {
	res, err := s.db.Exec(`DELETE FROM lesson_plans WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete lesson plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	log.Printf("[Plan] deleted %s", id)
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
