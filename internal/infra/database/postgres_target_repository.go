package database

import (
	"context"
	"database/sql"
	"fmt"

	"geo_checkin_bot/internal/domain/checkin"
)

// Every target query selects id, name, latitude, longitude, block_term, course_id
// and filters on program ($1), intake year ($2) and block ($3).
const (
	clinicalAreasQuery = `SELECT a.id::text, a.name, a.latitude, a.longitude, a.block_term, NULL::text
               FROM clinical_areas a
               WHERE a.program = $1 AND a.intake_year = $2 AND (a.block_term IS NULL OR a.block_term = $3)`

	clinicalRotationsQuery = `SELECT r.id::text, l.name, l.latitude, l.longitude, r.block_term, NULL::text
               FROM clinical_rotations r
               LEFT JOIN clinical_locations l ON l.id = r.location_id
               WHERE r.program = $1 AND r.intake_year = $2 AND (r.block_term IS NULL OR r.block_term = $3)`

	classSessionsQuery = `SELECT s.id::text, s.name, s.latitude, s.longitude, s.block_term, s.course_id::text
               FROM class_sessions s
               WHERE s.program = $1 AND s.intake_year = $2 AND (s.block_term IS NULL OR s.block_term = $3)`

	courseVenuesQuery = `SELECT c.id::text, c.name, v.latitude, v.longitude, c.block_term, c.id::text
               FROM courses c
               LEFT JOIN lecture_venues v ON v.id = c.venue_id
               WHERE c.program = $1 AND c.intake_year = $2 AND (c.block_term IS NULL OR c.block_term = $3)`
)

// PostgresTargetRepository reads the clinical area and class catalogs.
type PostgresTargetRepository struct {
	db *sql.DB
}

func NewPostgresTargetRepository(db *sql.DB) *PostgresTargetRepository {
	return &PostgresTargetRepository{db: db}
}

func (r *PostgresTargetRepository) ListTargets(ctx context.Context, kind checkin.SessionKind, cohort checkin.Cohort) ([]checkin.Target, error) {
	switch kind {
	case checkin.SessionKindClinical:
		return r.query(ctx, clinicalAreasQuery, kind, cohort)
	case checkin.SessionKindClass:
		return r.query(ctx, classSessionsQuery, kind, cohort)
	}
	return nil, fmt.Errorf("unknown session kind %q", kind)
}

func (r *PostgresTargetRepository) ListMappedTargets(ctx context.Context, kind checkin.SessionKind, cohort checkin.Cohort) ([]checkin.Target, error) {
	switch kind {
	case checkin.SessionKindClinical:
		return r.query(ctx, clinicalRotationsQuery, kind, cohort)
	case checkin.SessionKindClass:
		return r.query(ctx, courseVenuesQuery, kind, cohort)
	}
	return nil, fmt.Errorf("unknown session kind %q", kind)
}

func (r *PostgresTargetRepository) query(ctx context.Context, query string, kind checkin.SessionKind, cohort checkin.Cohort) ([]checkin.Target, error) {
	rows, err := r.db.QueryContext(ctx, query, cohort.Program, cohort.IntakeYear, cohort.BlockTerm)
	if err != nil {
		return nil, fmt.Errorf("error listing %s targets: %w", kind, err)
	}
	defer rows.Close()

	targets := make([]checkin.Target, 0)
	for rows.Next() {
		var (
			t         checkin.Target
			name      sql.NullString
			lat, lon  sql.NullFloat64
			blockTerm sql.NullString
			courseID  sql.NullString
		)
		if err := rows.Scan(&t.ID, &name, &lat, &lon, &blockTerm, &courseID); err != nil {
			return nil, fmt.Errorf("error scanning %s target: %w", kind, err)
		}
		t.Kind = kind
		t.Name = name.String
		t.BlockTerm = blockTerm.String
		if lat.Valid && lon.Valid {
			t.Latitude = &lat.Float64
			t.Longitude = &lon.Float64
		}
		if courseID.Valid {
			t.CourseID = &courseID.String
		}
		targets = append(targets, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s targets: %w", kind, err)
	}
	return targets, nil
}
