package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"geo_checkin_bot/internal/domain/student"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

const studentColumns = `id, telegram_id, first_name, last_name, program, intake_year, block_term, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*student.Student, error) {
	s := &student.Student{}
	err := row.Scan(&s.ID, &s.TelegramID, &s.FirstName, &s.LastName, &s.Program, &s.IntakeYear, &s.BlockTerm, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *PostgresStudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `INSERT INTO students (telegram_id, first_name, last_name, program, intake_year, block_term, is_active)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.TelegramID, s.FirstName, s.LastName, s.Program, s.IntakeYear, s.BlockTerm, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return student.ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE telegram_id = $1`
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, student.ErrNotFound
		}
		return nil, fmt.Errorf("error getting student by Telegram ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `UPDATE students
               SET first_name = $1, last_name = $2, program = $3, intake_year = $4, block_term = $5, is_active = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, s.FirstName, s.LastName, s.Program, s.IntakeYear, s.BlockTerm, s.IsActive, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.ErrNotFound
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) ListActive(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE is_active = TRUE ORDER BY first_name, last_name`
	return r.list(ctx, query, "active students")
}

func (r *PostgresStudentRepository) ListAll(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY id`
	return r.list(ctx, query, "all students")
}

func (r *PostgresStudentRepository) list(ctx context.Context, query, what string) ([]*student.Student, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return students, nil
}
