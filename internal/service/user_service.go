package service

import (
	"context"

	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

type UserService interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	Update(ctx context.Context, user *repository.User) error

	// JoinOrganization creates a member-level membership and points the
	// user's current organization and team at the joined tenant.
	JoinOrganization(ctx context.Context, userID, organizationID string) (*repository.Membership, error)
}

type userService struct {
	repos *repository.Repositories
}

func NewUserService(repos *repository.Repositories) UserService {
	return &userService{repos: repos}
}

func (s *userService) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return s.repos.UserRepo.FindByID(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return s.repos.UserRepo.FindByEmail(ctx, email)
}

func (s *userService) Update(ctx context.Context, user *repository.User) error {
	return s.repos.UserRepo.Update(ctx, user)
}

func (s *userService) JoinOrganization(ctx context.Context, userID, organizationID string) (*repository.Membership, error) {
	var membership *repository.Membership
	err := s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		user, err := r.UserRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		membership, err = joinOrganization(ctx, r, user, organizationID, types.LevelMember)
		return err
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return membership, nil
}

// joinOrganization is the single path through which a user becomes a
// member: membership row plus current-organization/current-team
// pointers, all against the caller's repositories.
func joinOrganization(ctx context.Context, r *repository.Repositories, user *repository.User, organizationID string, level types.MembershipLevel) (*repository.Membership, error) {
	membership := &repository.Membership{
		OrganizationID: organizationID,
		UserID:         user.ID,
		Level:          level,
	}
	if err := r.MembershipRepo.Create(ctx, membership); err != nil {
		return nil, err
	}

	user.CurrentOrganizationID = &organizationID
	teams, err := r.TeamRepo.FindByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if len(teams) > 0 {
		user.CurrentTeamID = &teams[0].ID
	} else {
		user.CurrentTeamID = nil
	}
	if err := r.UserRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return membership, nil
}
