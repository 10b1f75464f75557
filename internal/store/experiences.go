package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when an experience id is unknown
var ErrNotFound = errors.New("experience not found")

// ExperienceStore provides access to the experience records, the
// source of truth for what should be indexed.
type ExperienceStore struct {
	db *DB
}

// NewExperienceStore creates a new experience store
func NewExperienceStore(db *DB) *ExperienceStore {
	return &ExperienceStore{db: db}
}

// GetByID fetches a single experience with its rounds and questions
func (s *ExperienceStore) GetByID(ctx context.Context, id string) (*Experience, error) {
	row := s.db.sqlDB.QueryRowContext(ctx, `
		SELECT id, company_name, role, interview_year, interview_month,
		       offer_status, difficulty_level, overall_experience,
		       preparation_time, tips, resources_used, college, status, created_at
		FROM experiences
		WHERE id = ?`, id)

	exp, err := scanExperience(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch experience %s: %w", id, err)
	}

	if err := s.loadRounds(ctx, exp); err != nil {
		return nil, err
	}
	if err := s.loadQuestions(ctx, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// ListApproved fetches all approved experiences with rounds and
// questions attached, newest first.
func (s *ExperienceStore) ListApproved(ctx context.Context) ([]*Experience, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT id, company_name, role, interview_year, interview_month,
		       offer_status, difficulty_level, overall_experience,
		       preparation_time, tips, resources_used, college, status, created_at
		FROM experiences
		WHERE status = ?
		ORDER BY created_at DESC`, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved experiences: %w", err)
	}
	defer rows.Close()

	var out []*Experience
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experience: %w", err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiences: %w", err)
	}

	for _, exp := range out {
		if err := s.loadRounds(ctx, exp); err != nil {
			return nil, err
		}
		if err := s.loadQuestions(ctx, exp); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// ListByCompany fetches approved experiences whose company name
// contains the given substring, case-insensitively.
func (s *ExperienceStore) ListByCompany(ctx context.Context, company string) ([]string, error) {
	pattern := "%" + strings.ToLower(company) + "%"
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT id FROM experiences
		WHERE status = ? AND LOWER(company_name) LIKE ?`, StatusApproved, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences by company: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// ListByYear fetches approved experience ids for a specific year
func (s *ExperienceStore) ListByYear(ctx context.Context, year int) ([]string, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT id FROM experiences
		WHERE status = ? AND interview_year = ?`, StatusApproved, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences by year: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// Create inserts an experience with its rounds and questions in a
// single transaction. Used for seeding and tests.
func (s *ExperienceStore) Create(ctx context.Context, exp *Experience) error {
	if exp.ID == "" {
		return fmt.Errorf("experience id is required")
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now().UTC()
	}
	if exp.Status == "" {
		exp.Status = StatusApproved
	}

	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO experiences
			(id, company_name, role, interview_year, interview_month,
			 offer_status, difficulty_level, overall_experience,
			 preparation_time, tips, resources_used, college, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.CompanyName, exp.Role, exp.InterviewYear, exp.InterviewMonth,
		exp.OfferStatus, exp.DifficultyLevel, exp.OverallExperience,
		exp.PreparationTime, exp.Tips, exp.ResourcesUsed, exp.College,
		exp.Status, exp.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to insert experience: %w", err)
	}

	for _, r := range exp.Rounds {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO interview_rounds
				(experience_id, round_number, round_type, round_name,
				 duration_minutes, mode, description, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			exp.ID, r.RoundNumber, r.RoundType, r.RoundName,
			r.DurationMinutes, r.Mode, r.Description, r.Difficulty,
		); err != nil {
			return fmt.Errorf("failed to insert round %d: %w", r.RoundNumber, err)
		}
	}

	for i, q := range exp.Questions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions
				(experience_id, question_text, question_type, topic,
				 subtopic, difficulty, answer_approach, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			exp.ID, q.QuestionText, q.QuestionType, q.Topic,
			q.Subtopic, q.Difficulty, q.AnswerApproach, q.Tags,
		); err != nil {
			return fmt.Errorf("failed to insert question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit experience: %w", err)
	}

	return nil
}

// Delete removes an experience and its related rows
func (s *ExperienceStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.sqlDB.ExecContext(ctx, "DELETE FROM experiences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete experience: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ExperienceStore) loadRounds(ctx context.Context, exp *Experience) error {
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT round_number, round_type, round_name, duration_minutes,
		       mode, description, difficulty
		FROM interview_rounds
		WHERE experience_id = ?
		ORDER BY round_number`, exp.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch rounds for %s: %w", exp.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r InterviewRound
		var name, mode, desc sql.NullString
		var duration, difficulty sql.NullInt64
		if err := rows.Scan(&r.RoundNumber, &r.RoundType, &name, &duration, &mode, &desc, &difficulty); err != nil {
			return fmt.Errorf("failed to scan round: %w", err)
		}
		r.RoundName = name.String
		r.DurationMinutes = int(duration.Int64)
		r.Mode = mode.String
		r.Description = desc.String
		r.Difficulty = int(difficulty.Int64)
		exp.Rounds = append(exp.Rounds, r)
	}
	return rows.Err()
}

func (s *ExperienceStore) loadQuestions(ctx context.Context, exp *Experience) error {
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT question_text, question_type, topic, subtopic,
		       difficulty, answer_approach, tags
		FROM questions
		WHERE experience_id = ?`, exp.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch questions for %s: %w", exp.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		var qtype, topic, subtopic, approach, tags sql.NullString
		var difficulty sql.NullInt64
		if err := rows.Scan(&q.QuestionText, &qtype, &topic, &subtopic, &difficulty, &approach, &tags); err != nil {
			return fmt.Errorf("failed to scan question: %w", err)
		}
		q.QuestionType = qtype.String
		q.Topic = topic.String
		q.Subtopic = subtopic.String
		q.Difficulty = int(difficulty.Int64)
		q.AnswerApproach = approach.String
		q.Tags = tags.String
		exp.Questions = append(exp.Questions, q)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperience(row rowScanner) (*Experience, error) {
	var exp Experience
	var month, difficulty sql.NullInt64
	var offer, overall, prep, tips, resources, college sql.NullString
	var createdAt string

	if err := row.Scan(
		&exp.ID, &exp.CompanyName, &exp.Role, &exp.InterviewYear, &month,
		&offer, &difficulty, &overall, &prep, &tips, &resources, &college,
		&exp.Status, &createdAt,
	); err != nil {
		return nil, err
	}

	exp.InterviewMonth = int(month.Int64)
	exp.OfferStatus = offer.String
	exp.DifficultyLevel = int(difficulty.Int64)
	exp.OverallExperience = overall.String
	exp.PreparationTime = prep.String
	exp.Tips = tips.String
	exp.ResourcesUsed = resources.String
	exp.College = college.String
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		exp.CreatedAt = ts
	}

	return &exp, nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
