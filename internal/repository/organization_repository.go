package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type Organization struct {
	ID              string
	Name            string
	SetupComplete   bool
	Personalization map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindByUserID(ctx context.Context, userID string) ([]*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) error
}

type pgOrganizationRepository struct {
	db Querier
}

func NewOrganizationRepository(db Querier) OrganizationRepository {
	return &pgOrganizationRepository{db: db}
}

func marshalPersonalization(p map[string]any) ([]byte, error) {
	if p == nil {
		p = map[string]any{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal personalization: %w", err)
	}
	return data, nil
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	org := &Organization{}
	var personalization []byte
	err := row.Scan(
		&org.ID, &org.Name, &org.SetupComplete, &personalization,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(personalization, &org.Personalization); err != nil {
		return nil, fmt.Errorf("unmarshal personalization: %w", err)
	}
	return org, nil
}

func (r *pgOrganizationRepository) Create(ctx context.Context, org *Organization) error {
	personalization, err := marshalPersonalization(org.Personalization)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO organizations (name, setup_complete, personalization)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		org.Name, org.SetupComplete, personalization,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *pgOrganizationRepository) FindByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, setup_complete, personalization, created_at, updated_at
		FROM organizations WHERE id = $1
	`
	return scanOrganization(r.db.QueryRow(ctx, query, id))
}

func (r *pgOrganizationRepository) FindByUserID(ctx context.Context, userID string) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.setup_complete, o.personalization, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY o.name
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *pgOrganizationRepository) Update(ctx context.Context, org *Organization) error {
	personalization, err := marshalPersonalization(org.Personalization)
	if err != nil {
		return err
	}
	query := `
		UPDATE organizations
		SET name = $2, setup_complete = $3, personalization = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRow(ctx, query,
		org.ID, org.Name, org.SetupComplete, personalization,
	).Scan(&org.UpdatedAt)
}

func (r *pgOrganizationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}
