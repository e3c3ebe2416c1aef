package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so
// the same repository code runs inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a function against a transaction-scoped set of
// repositories. The transaction commits if fn returns nil and rolls
// back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(r *Repositories) error) error
}

// Repositories bundles every repository plus the transactor.
type Repositories struct {
	Tx Transactor

	UserRepo         UserRepository
	OrganizationRepo OrganizationRepository
	TeamRepo         TeamRepository
	MembershipRepo   MembershipRepository
	InviteRepo       InviteRepository
	BillingRepo      BillingRepository
	LicenseRepo      LicenseRepository
}

// NewRepositories wires the PostgreSQL-backed repositories.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	r := newQuerierRepositories(pool)
	r.Tx = &pgTransactor{pool: pool}
	return r
}

func newQuerierRepositories(q Querier) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(q),
		OrganizationRepo: NewOrganizationRepository(q),
		TeamRepo:         NewTeamRepository(q),
		MembershipRepo:   NewMembershipRepository(q),
		InviteRepo:       NewInviteRepository(q),
		BillingRepo:      NewBillingRepository(q),
		LicenseRepo:      NewLicenseRepository(q),
	}
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txRepos := newQuerierRepositories(tx)
	// Already inside a transaction; nested calls reuse it.
	txRepos.Tx = passthroughTransactor{repos: txRepos}

	if err := fn(txRepos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type passthroughTransactor struct {
	repos *Repositories
}

func (t passthroughTransactor) WithinTx(ctx context.Context, fn func(r *Repositories) error) error {
	return fn(t.repos)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation, i.e. a concurrent request raced past an
// application-level check.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
