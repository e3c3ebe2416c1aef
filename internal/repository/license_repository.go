package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nimbushq/nimbus-backend/internal/types"
)

// License is an instance-wide license used by self-managed
// deployments that have no per-tenant billing relation.
type License struct {
	ID         string
	Key        string
	PlanKey    string
	ValidUntil time.Time
	CreatedAt  time.Time
}

// PlanFeatures maps a license plan key to the features it unlocks.
var PlanFeatures = map[string][]string{
	types.PlanFree:     {},
	types.PlanStandard: {"teams", "invite_emails", "api_access"},
	types.PlanEnterprise: {
		"teams", "invite_emails", "api_access",
		"sso", "audit_log", "priority_support",
	},
}

type LicenseRepository interface {
	Create(ctx context.Context, license *License) error
	// FirstValid returns the first license still valid right now, or
	// nil when the instance is unlicensed.
	FirstValid(ctx context.Context) (*License, error)
}

type pgLicenseRepository struct {
	db Querier
}

func NewLicenseRepository(db Querier) LicenseRepository {
	return &pgLicenseRepository{db: db}
}

func (r *pgLicenseRepository) Create(ctx context.Context, license *License) error {
	query := `
		INSERT INTO licenses (key, plan_key, valid_until)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, license.Key, license.PlanKey, license.ValidUntil).
		Scan(&license.ID, &license.CreatedAt)
}

func (r *pgLicenseRepository) FirstValid(ctx context.Context) (*License, error) {
	query := `
		SELECT id, key, plan_key, valid_until, created_at
		FROM licenses
		WHERE valid_until > NOW()
		ORDER BY created_at
		LIMIT 1
	`
	license := &License{}
	err := r.db.QueryRow(ctx, query).Scan(
		&license.ID, &license.Key, &license.PlanKey, &license.ValidUntil, &license.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return license, nil
}
