package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nimbushq/nimbus-backend/internal/types"
)

type Membership struct {
	ID             string
	OrganizationID string
	UserID         string
	Level          types.MembershipLevel
	JoinedAt       time.Time
	UpdatedAt      time.Time
	User           *User
}

type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	FindByID(ctx context.Context, id string) (*Membership, error)
	FindByOrganizationAndUser(ctx context.Context, organizationID, userID string) (*Membership, error)
	FindByOrganization(ctx context.Context, organizationID string) ([]*Membership, error)
	UpdateLevel(ctx context.Context, id string, level types.MembershipLevel) error
	Delete(ctx context.Context, id string) error
	CountOwners(ctx context.Context, organizationID string) (int, error)
	ExistsWithEmail(ctx context.Context, organizationID, email string) (bool, error)
}

type pgMembershipRepository struct {
	db Querier
}

func NewMembershipRepository(db Querier) MembershipRepository {
	return &pgMembershipRepository{db: db}
}

const membershipColumns = `id, organization_id, user_id, level, joined_at, updated_at`

func scanMembership(row pgx.Row) (*Membership, error) {
	m := &Membership{}
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.UserID, &m.Level, &m.JoinedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMembershipRepository) Create(ctx context.Context, m *Membership) error {
	if m.Level == 0 {
		m.Level = types.LevelMember
	}
	query := `
		INSERT INTO memberships (organization_id, user_id, level)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at, updated_at
	`
	return r.db.QueryRow(ctx, query, m.OrganizationID, m.UserID, m.Level).
		Scan(&m.ID, &m.JoinedAt, &m.UpdatedAt)
}

func (r *pgMembershipRepository) FindByID(ctx context.Context, id string) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	return scanMembership(r.db.QueryRow(ctx, query, id))
}

func (r *pgMembershipRepository) FindByOrganizationAndUser(ctx context.Context, organizationID, userID string) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships WHERE organization_id = $1 AND user_id = $2
	`
	return scanMembership(r.db.QueryRow(ctx, query, organizationID, userID))
}

func (r *pgMembershipRepository) FindByOrganization(ctx context.Context, organizationID string) ([]*Membership, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.level, m.joined_at, m.updated_at,
		       u.id, u.email, u.first_name, u.current_organization_id, u.current_team_id
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at
	`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m := &Membership{User: &User{}}
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.UserID, &m.Level, &m.JoinedAt, &m.UpdatedAt,
			&m.User.ID, &m.User.Email, &m.User.FirstName,
			&m.User.CurrentOrganizationID, &m.User.CurrentTeamID,
		); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *pgMembershipRepository) UpdateLevel(ctx context.Context, id string, level types.MembershipLevel) error {
	query := `
		UPDATE memberships SET level = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, level)
	return err
}

func (r *pgMembershipRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	return err
}

func (r *pgMembershipRepository) CountOwners(ctx context.Context, organizationID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM memberships
		WHERE organization_id = $1 AND level = $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, organizationID, types.LevelOwner).Scan(&count)
	return count, err
}

// ExistsWithEmail reports whether any member of the organization has
// the given email address, regardless of user id.
func (r *pgMembershipRepository) ExistsWithEmail(ctx context.Context, organizationID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM memberships m
			JOIN users u ON u.id = m.user_id
			WHERE m.organization_id = $1 AND lower(u.email) = lower($2)
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, organizationID, email).Scan(&exists)
	return exists, err
}
