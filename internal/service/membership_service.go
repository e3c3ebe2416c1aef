package service

import (
	"context"
	"fmt"

	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/socket"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

type MembershipService interface {
	GetByID(ctx context.Context, id string) (*repository.Membership, error)
	GetByOrganizationAndUser(ctx context.Context, organizationID, userID string) (*repository.Membership, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*repository.Membership, error)

	// ValidateUpdate checks whether the actor may change the target's
	// level (when newLevel is non-nil) or edit the target at all.
	// Granting ownership demotes the actor to admin as a side effect,
	// persisted immediately.
	ValidateUpdate(ctx context.Context, actor, target *repository.Membership, newLevel *types.MembershipLevel) error

	// UpdateLevel runs ValidateUpdate and persists the target's new level.
	UpdateLevel(ctx context.Context, actorUserID, membershipID string, newLevel types.MembershipLevel) (*repository.Membership, error)

	// Remove deletes a membership after clearing the affected user's
	// dangling current-organization/current-team pointers.
	Remove(ctx context.Context, actorUserID, membershipID string) error
}

type membershipService struct {
	repos       *repository.Repositories
	broadcaster *socket.Broadcaster
}

func NewMembershipService(repos *repository.Repositories, broadcaster *socket.Broadcaster) MembershipService {
	return &membershipService{repos: repos, broadcaster: broadcaster}
}

func (s *membershipService) GetByID(ctx context.Context, id string) (*repository.Membership, error) {
	return s.repos.MembershipRepo.FindByID(ctx, id)
}

func (s *membershipService) GetByOrganizationAndUser(ctx context.Context, organizationID, userID string) (*repository.Membership, error) {
	return s.repos.MembershipRepo.FindByOrganizationAndUser(ctx, organizationID, userID)
}

func (s *membershipService) ListByOrganization(ctx context.Context, organizationID string) ([]*repository.Membership, error) {
	return s.repos.MembershipRepo.FindByOrganization(ctx, organizationID)
}

func (s *membershipService) ValidateUpdate(ctx context.Context, actor, target *repository.Membership, newLevel *types.MembershipLevel) error {
	return validateMembershipUpdate(ctx, s.repos, actor, target, newLevel)
}

// validateMembershipUpdate enforces the permission rules in order. It
// runs against whatever repositories it is handed, so callers can pass
// transaction-scoped ones.
func validateMembershipUpdate(ctx context.Context, r *repository.Repositories, actor, target *repository.Membership, newLevel *types.MembershipLevel) error {
	if newLevel != nil {
		if target.ID == actor.ID {
			return types.PermissionDenied("You can't change your own access level.")
		}
		if *newLevel == types.LevelOwner {
			if actor.Level != types.LevelOwner {
				return types.PermissionDenied("You can only pass on organization ownership if you're its owner.")
			}
			// Ownership is exclusive: passing it on demotes the
			// current owner to admin within the same operation.
			actor.Level = types.LevelAdmin
			if err := r.MembershipRepo.UpdateLevel(ctx, actor.ID, actor.Level); err != nil {
				return fmt.Errorf("demote previous owner: %w", err)
			}
		} else if *newLevel > actor.Level {
			return types.PermissionDenied("You can only change access level of others to lower or equal to your current one.")
		}
	}
	if target.ID != actor.ID {
		if target.OrganizationID != actor.OrganizationID {
			return types.PermissionDenied("You both need to belong to the same organization.")
		}
		if actor.Level < types.LevelAdmin {
			return types.PermissionDenied("You can only edit others if you are an admin.")
		}
		if target.Level > actor.Level {
			return types.PermissionDenied("You can only edit others with level lower or equal to you.")
		}
	}
	return nil
}

func (s *membershipService) UpdateLevel(ctx context.Context, actorUserID, membershipID string, newLevel types.MembershipLevel) (*repository.Membership, error) {
	if !newLevel.IsValid() {
		return nil, fmt.Errorf("%w: invalid membership level %d", ErrInvalidInput, newLevel)
	}

	var updated *repository.Membership
	err := s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		target, err := r.MembershipRepo.FindByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}
		actor, err := r.MembershipRepo.FindByOrganizationAndUser(ctx, target.OrganizationID, actorUserID)
		if err != nil {
			return err
		}
		if actor == nil {
			return types.PermissionDenied("You both need to belong to the same organization.")
		}
		if err := validateMembershipUpdate(ctx, r, actor, target, &newLevel); err != nil {
			return err
		}
		if err := r.MembershipRepo.UpdateLevel(ctx, target.ID, newLevel); err != nil {
			return err
		}
		target.Level = newLevel
		updated = target
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			// Concurrent ownership grant lost the race.
			return nil, ErrConflict
		}
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.MemberLevelUpdated(updated.OrganizationID, updated.UserID, updated.Level.String())
	}
	return updated, nil
}

func (s *membershipService) Remove(ctx context.Context, actorUserID, membershipID string) error {
	var removed *repository.Membership
	err := s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		target, err := r.MembershipRepo.FindByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrNotFound
		}
		// Leaving the organization yourself is always allowed; removing
		// someone else goes through the same rules as an edit.
		if target.UserID != actorUserID {
			actor, err := r.MembershipRepo.FindByOrganizationAndUser(ctx, target.OrganizationID, actorUserID)
			if err != nil {
				return err
			}
			if actor == nil {
				return types.PermissionDenied("You both need to belong to the same organization.")
			}
			if err := validateMembershipUpdate(ctx, r, actor, target, nil); err != nil {
				return err
			}
		}
		if err := deleteMembership(ctx, r, target); err != nil {
			return err
		}
		removed = target
		return nil
	})
	if err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.MemberRemoved(removed.OrganizationID, removed.UserID)
	}
	return nil
}

// deleteMembership clears the affected user's dangling pointers, then
// deletes the membership row. Every deletion path must go through it,
// including organization deletion.
func deleteMembership(ctx context.Context, r *repository.Repositories, m *repository.Membership) error {
	if err := ensureMembershipConsistency(ctx, r, m); err != nil {
		return err
	}
	return r.MembershipRepo.Delete(ctx, m.ID)
}

// ensureMembershipConsistency resets the user's current organization
// and current team when they point into the organization the user is
// about to leave.
func ensureMembershipConsistency(ctx context.Context, r *repository.Repositories, m *repository.Membership) error {
	user, err := r.UserRepo.FindByID(ctx, m.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	saveUser := false
	if user.CurrentOrganizationID != nil && *user.CurrentOrganizationID == m.OrganizationID {
		user.CurrentOrganizationID = nil
		saveUser = true
	}
	if user.CurrentTeamID != nil {
		team, err := r.TeamRepo.FindByID(ctx, *user.CurrentTeamID)
		if err != nil {
			return err
		}
		if team != nil && team.OrganizationID == m.OrganizationID {
			user.CurrentTeamID = nil
			saveUser = true
		}
	}
	if saveUser {
		return r.UserRepo.Update(ctx, user)
	}
	return nil
}
