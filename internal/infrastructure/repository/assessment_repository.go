package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	domainerrors "github.com/careverify/clinic-trust-engine/internal/domain/errors"
)

// AssessmentRepository persists completed risk assessments to PostgreSQL.
// The table doubles as the audit trail and as labeled history for future
// retraining runs.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// Save inserts one assessment. Assessments are append-only; a rescore of
// the same clinic produces a new row.
func (r *AssessmentRepository) Save(ctx context.Context, clinicName string, a *assessment.RiskAssessment) error {
	flagsJSON, err := json.Marshal(a.RiskFlags)
	if err != nil {
		return fmt.Errorf("marshaling risk flags: %w", err)
	}

	query := `
		INSERT INTO risk_assessments (
			id, clinic_name, risk_score, risk_level, account_status,
			risk_flags, confidence, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, clinicName, a.RiskScore, string(a.RiskLevel), string(a.AccountStatus),
		flagsJSON, a.Confidence, a.ModelVersion, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting risk assessment: %w", err)
	}
	return nil
}

// GetByID fetches a single assessment.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*assessment.RiskAssessment, error) {
	query := `
		SELECT id, risk_score, risk_level, account_status,
		       risk_flags, confidence, model_version, created_at
		FROM risk_assessments
		WHERE id = $1
	`
	a, err := scanAssessment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerrors.NewNotFoundError("assessment")
		}
		return nil, fmt.Errorf("querying risk assessment: %w", err)
	}
	return a, nil
}

// RecentByClinic returns a clinic's newest assessments, newest first.
func (r *AssessmentRepository) RecentByClinic(ctx context.Context, clinicName string, limit int) ([]*assessment.RiskAssessment, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, risk_score, risk_level, account_status,
		       risk_flags, confidence, model_version, created_at
		FROM risk_assessments
		WHERE clinic_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, clinicName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent assessments: %w", err)
	}
	defer rows.Close()

	var out []*assessment.RiskAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*assessment.RiskAssessment, error) {
	var a assessment.RiskAssessment
	var level, status string
	var flagsJSON []byte

	err := row.Scan(
		&a.ID, &a.RiskScore, &level, &status,
		&flagsJSON, &a.Confidence, &a.ModelVersion, &a.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	a.RiskLevel = assessment.RiskLevel(level)
	a.AccountStatus = assessment.AccountStatus(status)
	if err := json.Unmarshal(flagsJSON, &a.RiskFlags); err != nil {
		a.RiskFlags = []string{}
	}
	return &a, nil
}
