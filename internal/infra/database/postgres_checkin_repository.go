// internal/infra/database/postgres_checkin_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"geo_checkin_bot/internal/domain/checkin"
)

// PostgresCheckInRepository is the remote persistence provider for check-ins.
type PostgresCheckInRepository struct {
	db *sql.DB
}

func NewPostgresCheckInRepository(db *sql.DB) *PostgresCheckInRepository {
	return &PostgresCheckInRepository{db: db}
}

// Both write paths bind the payload in this order.
func payloadArgs(p checkin.Payload) []any {
	return []any{
		p.SubjectID, p.Timestamp, p.SessionKind, p.TargetID, p.TargetName,
		p.Latitude, p.Longitude, p.Accuracy, p.LocationName,
		p.Program, p.Block, p.IntakeYear, p.DeviceID, p.IsVerified,
		p.CourseID, p.SubjectName,
	}
}

// SubmitCheckIn calls the atomic server-side procedure.
func (r *PostgresCheckInRepository) SubmitCheckIn(ctx context.Context, p checkin.Payload) error {
	query := `SELECT submit_check_in($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if _, err := r.db.ExecContext(ctx, query, payloadArgs(p)...); err != nil {
		return fmt.Errorf("error calling submit_check_in: %w", err)
	}
	return nil
}

// InsertCheckInDirect writes the same payload straight into check_ins.
func (r *PostgresCheckInRepository) InsertCheckInDirect(ctx context.Context, p checkin.Payload) error {
	query := `INSERT INTO check_ins (student_id, checked_in_at, session_type, target_id, target_name,
                   latitude, longitude, accuracy, location_name,
                   program, block, intake_year, device_id, is_verified,
                   course_id, student_name)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if _, err := r.db.ExecContext(ctx, query, payloadArgs(p)...); err != nil {
		return fmt.Errorf("error inserting check-in: %w", err)
	}
	return nil
}

func (r *PostgresCheckInRepository) QueryCheckInHistory(ctx context.Context, subjectID string, limit int) ([]checkin.HistoryRecord, error) {
	query := `SELECT checked_in_at, session_type, target_name, location_name, is_verified
               FROM check_ins WHERE student_id = $1
               ORDER BY checked_in_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying check-in history: %w", err)
	}
	defer rows.Close()

	records := make([]checkin.HistoryRecord, 0, limit)
	for rows.Next() {
		var (
			rec          checkin.HistoryRecord
			kind         string
			locationName sql.NullString
		)
		if err := rows.Scan(&rec.Timestamp, &kind, &rec.TargetName, &locationName, &rec.IsVerified); err != nil {
			return nil, fmt.Errorf("error scanning check-in history: %w", err)
		}
		rec.Kind = checkin.SessionKind(kind)
		rec.LocationName = locationName.String
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-in history: %w", err)
	}
	return records, nil
}
