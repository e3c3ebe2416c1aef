package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// OrganizationBilling is the tenant-attached billing relation. A nil
// PlanKey means the relation exists but no subscription is active
// (present-but-none); a missing row means no billing relation at all.
type OrganizationBilling struct {
	OrganizationID    string
	PlanKey           *string
	AvailableFeatures []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// GetPlanKey returns the active plan key, or "" when none is active.
func (b *OrganizationBilling) GetPlanKey() string {
	if b.PlanKey == nil {
		return ""
	}
	return *b.PlanKey
}

type BillingRepository interface {
	Upsert(ctx context.Context, billing *OrganizationBilling) error
	FindByOrganization(ctx context.Context, organizationID string) (*OrganizationBilling, error)
	Delete(ctx context.Context, organizationID string) error
}

type pgBillingRepository struct {
	db Querier
}

func NewBillingRepository(db Querier) BillingRepository {
	return &pgBillingRepository{db: db}
}

func (r *pgBillingRepository) Upsert(ctx context.Context, billing *OrganizationBilling) error {
	query := `
		INSERT INTO organization_billing (organization_id, plan_key, available_features)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id)
		DO UPDATE SET plan_key = EXCLUDED.plan_key,
		              available_features = EXCLUDED.available_features,
		              updated_at = NOW()
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		billing.OrganizationID, billing.PlanKey, billing.AvailableFeatures,
	).Scan(&billing.CreatedAt, &billing.UpdatedAt)
}

func (r *pgBillingRepository) FindByOrganization(ctx context.Context, organizationID string) (*OrganizationBilling, error) {
	query := `
		SELECT organization_id, plan_key, available_features, created_at, updated_at
		FROM organization_billing WHERE organization_id = $1
	`
	billing := &OrganizationBilling{}
	err := r.db.QueryRow(ctx, query, organizationID).Scan(
		&billing.OrganizationID, &billing.PlanKey, &billing.AvailableFeatures,
		&billing.CreatedAt, &billing.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return billing, nil
}

func (r *pgBillingRepository) Delete(ctx context.Context, organizationID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM organization_billing WHERE organization_id = $1`, organizationID)
	return err
}
