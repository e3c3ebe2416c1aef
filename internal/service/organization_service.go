package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/socket"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

// BootstrapParams carries everything needed to set up a new tenant.
type BootstrapParams struct {
	// UserID of the future owner. Empty means no membership is
	// created, which system and test setups rely on.
	UserID          string
	Name            string
	Personalization map[string]any
	TeamName        string
}

type OrganizationService interface {
	// Bootstrap atomically creates an organization, its default team
	// and, when a user is given, an owner membership plus the user's
	// current-organization/current-team pointers.
	Bootstrap(ctx context.Context, params BootstrapParams) (*repository.Organization, *repository.Membership, *repository.Team, error)

	GetByID(ctx context.Context, id string) (*repository.Organization, error)
	ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error)
	Update(ctx context.Context, org *repository.Organization) error
	Delete(ctx context.Context, id string) error

	IsOnboardingActive(ctx context.Context, id string) (bool, error)
	CompleteOnboarding(ctx context.Context, id string) (*repository.Organization, error)

	// ActiveInvites returns the organization's invites created within
	// the validity window.
	ActiveInvites(ctx context.Context, id string) ([]*repository.Invite, error)
}

type organizationService struct {
	repos       *repository.Repositories
	broadcaster *socket.Broadcaster
	now         func() time.Time
}

func NewOrganizationService(repos *repository.Repositories, broadcaster *socket.Broadcaster) OrganizationService {
	return &organizationService{repos: repos, broadcaster: broadcaster, now: time.Now}
}

func (s *organizationService) Bootstrap(ctx context.Context, params BootstrapParams) (*repository.Organization, *repository.Membership, *repository.Team, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, nil, nil, fmt.Errorf("%w: organization name required", ErrInvalidInput)
	}
	teamName := params.TeamName
	if strings.TrimSpace(teamName) == "" {
		teamName = "Default Project"
	}

	var (
		org        *repository.Organization
		membership *repository.Membership
		team       *repository.Team
	)
	err := s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		org = &repository.Organization{
			Name:            params.Name,
			SetupComplete:   true,
			Personalization: params.Personalization,
		}
		if err := r.OrganizationRepo.Create(ctx, org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		team = &repository.Team{OrganizationID: org.ID, Name: teamName}
		if err := r.TeamRepo.Create(ctx, team); err != nil {
			return fmt.Errorf("create default team: %w", err)
		}

		if params.UserID == "" {
			return nil
		}

		user, err := r.UserRepo.FindByID(ctx, params.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		membership = &repository.Membership{
			OrganizationID: org.ID,
			UserID:         user.ID,
			Level:          types.LevelOwner,
		}
		if err := r.MembershipRepo.Create(ctx, membership); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		user.CurrentOrganizationID = &org.ID
		user.CurrentTeamID = &team.ID
		return r.UserRepo.Update(ctx, user)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return org, membership, team, nil
}

func (s *organizationService) GetByID(ctx context.Context, id string) (*repository.Organization, error) {
	return s.repos.OrganizationRepo.FindByID(ctx, id)
}

func (s *organizationService) ListForUser(ctx context.Context, userID string) ([]*repository.Organization, error) {
	return s.repos.OrganizationRepo.FindByUserID(ctx, userID)
}

func (s *organizationService) Update(ctx context.Context, org *repository.Organization) error {
	if err := s.repos.OrganizationRepo.Update(ctx, org); err != nil {
		return err
	}
	if s.broadcaster != nil {
		s.broadcaster.OrganizationUpdated(org.ID, org.Name)
	}
	return nil
}

// Delete removes an organization. The consistency pass runs for every
// membership before the row goes away, so no user keeps pointers into
// a tenant that no longer exists.
func (s *organizationService) Delete(ctx context.Context, id string) error {
	return s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		memberships, err := r.MembershipRepo.FindByOrganization(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			if err := deleteMembership(ctx, r, m); err != nil {
				return err
			}
		}
		return r.OrganizationRepo.Delete(ctx, id)
	})
}

func (s *organizationService) IsOnboardingActive(ctx context.Context, id string) (bool, error) {
	org, err := s.repos.OrganizationRepo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if org == nil {
		return false, ErrNotFound
	}
	return !org.SetupComplete, nil
}

func (s *organizationService) CompleteOnboarding(ctx context.Context, id string) (*repository.Organization, error) {
	org, err := s.repos.OrganizationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	org.SetupComplete = true
	if err := s.repos.OrganizationRepo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) ActiveInvites(ctx context.Context, id string) ([]*repository.Invite, error) {
	cutoff := s.now().AddDate(0, 0, -types.InviteDaysValidity)
	return s.repos.InviteRepo.FindActiveByOrganization(ctx, id, cutoff)
}
