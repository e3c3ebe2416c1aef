package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nimbushq/nimbus-backend/internal/types"
)

type Invite struct {
	ID                  string
	OrganizationID      string
	TargetEmail         *string
	FirstName           string
	CreatedByID         *string
	EmailingAttemptMade bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsExpiredAt reports whether the invite is older than the validity
// window at the given instant. Created exactly at the cutoff counts as
// expired.
func (i *Invite) IsExpiredAt(now time.Time) bool {
	return !i.CreatedAt.After(now.AddDate(0, 0, -types.InviteDaysValidity))
}

// IsExpired is IsExpiredAt against the wall clock.
func (i *Invite) IsExpired() bool {
	return i.IsExpiredAt(time.Now())
}

type InviteRepository interface {
	Create(ctx context.Context, invite *Invite) error
	FindByID(ctx context.Context, id string) (*Invite, error)
	FindByOrganization(ctx context.Context, organizationID string) ([]*Invite, error)
	FindActiveByOrganization(ctx context.Context, organizationID string, since time.Time) ([]*Invite, error)
	FindUnattempted(ctx context.Context, since time.Time) ([]*Invite, error)
	MarkEmailingAttempt(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteByTargetEmail(ctx context.Context, email string) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type pgInviteRepository struct {
	db Querier
}

func NewInviteRepository(db Querier) InviteRepository {
	return &pgInviteRepository{db: db}
}

const inviteColumns = `id, organization_id, target_email, first_name, created_by_id, emailing_attempt_made, created_at, updated_at`

func scanInvite(row pgx.Row) (*Invite, error) {
	invite := &Invite{}
	err := row.Scan(
		&invite.ID, &invite.OrganizationID, &invite.TargetEmail, &invite.FirstName,
		&invite.CreatedByID, &invite.EmailingAttemptMade,
		&invite.CreatedAt, &invite.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invite, nil
}

func collectInvites(rows pgx.Rows) ([]*Invite, error) {
	defer rows.Close()
	var invites []*Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (r *pgInviteRepository) Create(ctx context.Context, invite *Invite) error {
	query := `
		INSERT INTO invites (organization_id, target_email, first_name, created_by_id, emailing_attempt_made)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		invite.OrganizationID, invite.TargetEmail, invite.FirstName,
		invite.CreatedByID, invite.EmailingAttemptMade,
	).Scan(&invite.ID, &invite.CreatedAt, &invite.UpdatedAt)
}

func (r *pgInviteRepository) FindByID(ctx context.Context, id string) (*Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`
	return scanInvite(r.db.QueryRow(ctx, query, id))
}

func (r *pgInviteRepository) FindByOrganization(ctx context.Context, organizationID string) ([]*Invite, error) {
	query := `
		SELECT ` + inviteColumns + ` FROM invites
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	return collectInvites(rows)
}

// FindActiveByOrganization returns invites created at or after the
// given cutoff, i.e. the ones that are still redeemable.
func (r *pgInviteRepository) FindActiveByOrganization(ctx context.Context, organizationID string, since time.Time) ([]*Invite, error) {
	query := `
		SELECT ` + inviteColumns + ` FROM invites
		WHERE organization_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, organizationID, since)
	if err != nil {
		return nil, err
	}
	return collectInvites(rows)
}

// FindUnattempted returns invites created at or after the cutoff whose
// invite email has not been attempted yet.
func (r *pgInviteRepository) FindUnattempted(ctx context.Context, since time.Time) ([]*Invite, error) {
	query := `
		SELECT ` + inviteColumns + ` FROM invites
		WHERE emailing_attempt_made = FALSE AND target_email IS NOT NULL AND created_at >= $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	return collectInvites(rows)
}

func (r *pgInviteRepository) MarkEmailingAttempt(ctx context.Context, id string) error {
	query := `
		UPDATE invites SET emailing_attempt_made = TRUE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *pgInviteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invites WHERE id = $1`, id)
	return err
}

// DeleteByTargetEmail removes every invite bound to the email address,
// case-insensitively and across all organizations.
func (r *pgInviteRepository) DeleteByTargetEmail(ctx context.Context, email string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invites WHERE lower(target_email) = lower($1)`, email)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgInviteRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invites WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}
