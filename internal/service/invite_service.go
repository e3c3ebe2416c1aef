package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nimbushq/nimbus-backend/internal/email"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/socket"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

type InviteService interface {
	// Create issues an invite on behalf of an admin or owner of the
	// organization and attempts to deliver the invite email.
	Create(ctx context.Context, organizationID, creatorUserID, targetEmail, firstName string) (*repository.Invite, error)

	GetByID(ctx context.Context, id string) (*repository.Invite, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*repository.Invite, error)
	Delete(ctx context.Context, organizationID, actorUserID, inviteID string) error

	// Validate checks an invite against a candidate user and/or email.
	// Failures carry one of the closed validation codes.
	Validate(ctx context.Context, invite *repository.Invite, user *repository.User, emailAddr string) error

	// Use redeems the invite: the user joins the organization as a
	// member and every invite bound to the same email address, in any
	// organization, is deleted.
	Use(ctx context.Context, inviteID, userID string, prevalidated bool) (*repository.Membership, error)
}

type inviteService struct {
	repos       *repository.Repositories
	emailSvc    *email.Service
	broadcaster *socket.Broadcaster
	now         func() time.Time
}

func NewInviteService(repos *repository.Repositories, emailSvc *email.Service, broadcaster *socket.Broadcaster) InviteService {
	return &inviteService{repos: repos, emailSvc: emailSvc, broadcaster: broadcaster, now: time.Now}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (s *inviteService) Create(ctx context.Context, organizationID, creatorUserID, targetEmail, firstName string) (*repository.Invite, error) {
	if strings.TrimSpace(targetEmail) == "" {
		return nil, fmt.Errorf("%w: target email required", ErrInvalidInput)
	}
	targetEmail = normalizeEmail(targetEmail)

	creator, err := s.repos.MembershipRepo.FindByOrganizationAndUser(ctx, organizationID, creatorUserID)
	if err != nil {
		return nil, err
	}
	if creator == nil || creator.Level < types.LevelAdmin {
		return nil, types.PermissionDenied("Only organization admins can invite new members.")
	}

	org, err := s.repos.OrganizationRepo.FindByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}

	invite := &repository.Invite{
		OrganizationID: organizationID,
		TargetEmail:    &targetEmail,
		FirstName:      firstName,
		CreatedByID:    &creatorUserID,
	}
	if err := s.repos.InviteRepo.Create(ctx, invite); err != nil {
		return nil, err
	}

	s.attemptInviteEmail(ctx, invite, org.Name)

	if s.broadcaster != nil {
		s.broadcaster.InviteCreated(organizationID, targetEmail)
	}
	return invite, nil
}

// attemptInviteEmail delivers the invite email and records that an
// attempt was made. Without an email service the flag stays false so
// the scheduler can retry once SMTP is configured.
func (s *inviteService) attemptInviteEmail(ctx context.Context, invite *repository.Invite, organizationName string) {
	if s.emailSvc == nil || invite.TargetEmail == nil {
		return
	}
	if err := s.emailSvc.SendInvite(organizationName, *invite.TargetEmail, invite.FirstName, invite.ID); err != nil {
		log.Printf("[Invite] Failed to send invite email for %s: %v", invite.ID, err)
	}
	if err := s.repos.InviteRepo.MarkEmailingAttempt(ctx, invite.ID); err != nil {
		log.Printf("[Invite] Failed to record emailing attempt for %s: %v", invite.ID, err)
	} else {
		invite.EmailingAttemptMade = true
	}
}

func (s *inviteService) GetByID(ctx context.Context, id string) (*repository.Invite, error) {
	return s.repos.InviteRepo.FindByID(ctx, id)
}

func (s *inviteService) ListByOrganization(ctx context.Context, organizationID string) ([]*repository.Invite, error) {
	return s.repos.InviteRepo.FindByOrganization(ctx, organizationID)
}

func (s *inviteService) Delete(ctx context.Context, organizationID, actorUserID, inviteID string) error {
	actor, err := s.repos.MembershipRepo.FindByOrganizationAndUser(ctx, organizationID, actorUserID)
	if err != nil {
		return err
	}
	if actor == nil || actor.Level < types.LevelAdmin {
		return types.PermissionDenied("Only organization admins can revoke invites.")
	}
	invite, err := s.repos.InviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite == nil || invite.OrganizationID != organizationID {
		return ErrNotFound
	}
	return s.repos.InviteRepo.Delete(ctx, inviteID)
}

func (s *inviteService) Validate(ctx context.Context, invite *repository.Invite, user *repository.User, emailAddr string) error {
	return s.validate(ctx, s.repos, invite, user, emailAddr)
}

func (s *inviteService) validate(ctx context.Context, r *repository.Repositories, invite *repository.Invite, user *repository.User, emailAddr string) error {
	candidateEmail := emailAddr
	if candidateEmail == "" && user != nil {
		candidateEmail = user.Email
	}

	if candidateEmail != "" && invite.TargetEmail != nil && !strings.EqualFold(candidateEmail, *invite.TargetEmail) {
		return types.InviteValidation(types.CodeInvalidRecipient, fmt.Sprintf(
			"This invite is intended for another email address: %s. You tried to sign up with %s.",
			types.MaskEmail(*invite.TargetEmail), types.MaskEmail(candidateEmail),
		))
	}

	if invite.IsExpiredAt(s.now()) {
		return types.InviteValidation(types.CodeExpired,
			"This invite has expired. Please ask your admin for a new one.")
	}

	if user != nil {
		existing, err := r.MembershipRepo.FindByOrganizationAndUser(ctx, invite.OrganizationID, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return types.InviteValidation(types.CodeUserAlreadyMember,
				"You already are a member of this organization.")
		}
	}

	if invite.TargetEmail != nil {
		// The same person may have signed up under a different account
		// id; the email check catches that race.
		taken, err := r.MembershipRepo.ExistsWithEmail(ctx, invite.OrganizationID, *invite.TargetEmail)
		if err != nil {
			return err
		}
		if taken {
			return types.InviteValidation(types.CodeExistingEmailAddress,
				"Another user with this email address already belongs to this organization.")
		}
	}
	return nil
}

func (s *inviteService) Use(ctx context.Context, inviteID, userID string, prevalidated bool) (*repository.Membership, error) {
	var membership *repository.Membership
	var organizationID string

	err := s.repos.Tx.WithinTx(ctx, func(r *repository.Repositories) error {
		invite, err := r.InviteRepo.FindByID(ctx, inviteID)
		if err != nil {
			return err
		}
		if invite == nil {
			return ErrNotFound
		}
		user, err := r.UserRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		if !prevalidated {
			if err := s.validate(ctx, r, invite, user, ""); err != nil {
				return err
			}
		}

		membership, err = joinOrganization(ctx, r, user, invite.OrganizationID, types.LevelMember)
		if err != nil {
			return err
		}
		organizationID = invite.OrganizationID

		// Sweep every invite for this address so a sibling invite
		// cannot be redeemed against the now-filled slot.
		if invite.TargetEmail != nil {
			if _, err := r.InviteRepo.DeleteByTargetEmail(ctx, *invite.TargetEmail); err != nil {
				return err
			}
			return nil
		}
		return r.InviteRepo.Delete(ctx, invite.ID)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.MemberAdded(organizationID, userID)
	}
	return membership, nil
}
