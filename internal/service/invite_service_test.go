package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

func newInviteServiceAt(repos *repository.Repositories, now time.Time) *inviteService {
	svc := NewInviteService(repos, nil, nil).(*inviteService)
	svc.now = func() time.Time { return now }
	return svc
}

func requireInviteCode(t *testing.T, err error, code string) {
	t.Helper()
	var inviteErr *types.InviteValidationError
	require.True(t, errors.As(err, &inviteErr), "expected invite validation error, got %v", err)
	assert.Equal(t, code, inviteErr.Code)
}

func TestInviteCreate_RequiresAdmin(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewInviteService(repos, nil, nil)

	org := f.addOrg("Acme")
	member := f.addUser("member@acme.io", "M")
	f.addMembership(org.ID, member.ID, types.LevelMember)

	_, err := svc.Create(context.Background(), org.ID, member.ID, "new@acme.io", "New")
	requirePermissionDenied(t, err, "admins")
}

func TestInviteCreate_NormalizesEmail(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewInviteService(repos, nil, nil)

	org := f.addOrg("Acme")
	admin := f.addUser("admin@acme.io", "A")
	f.addMembership(org.ID, admin.ID, types.LevelAdmin)

	invite, err := svc.Create(context.Background(), org.ID, admin.ID, "  Robin.Doe@Acme.IO ", "Robin")
	require.NoError(t, err)
	require.NotNil(t, invite.TargetEmail)
	assert.Equal(t, "robin.doe@acme.io", *invite.TargetEmail)
	require.NotNil(t, invite.CreatedByID)
	assert.Equal(t, admin.ID, *invite.CreatedByID)

	// Without SMTP configured no delivery attempt is recorded, so the
	// scheduler can pick the invite up later.
	assert.False(t, invite.EmailingAttemptMade)
}

func TestInviteCreate_EmptyEmailRejected(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewInviteService(repos, nil, nil)

	org := f.addOrg("Acme")
	admin := f.addUser("admin@acme.io", "A")
	f.addMembership(org.ID, admin.ID, types.LevelAdmin)

	_, err := svc.Create(context.Background(), org.ID, admin.ID, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInviteValidate_WrongRecipientMasksBothAddresses(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	err := svc.Validate(context.Background(), invite, nil, "stranger@other.io")
	requireInviteCode(t, err, types.CodeInvalidRecipient)
	assert.Contains(t, err.Error(), "r***n@acme.io")
	assert.Contains(t, err.Error(), "s******r@other.io")
	assert.NotContains(t, err.Error(), "robin@acme.io")
}

func TestInviteValidate_RecipientMatchIsCaseInsensitive(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	assert.NoError(t, svc.Validate(context.Background(), invite, nil, "ROBIN@ACME.IO"))
}

func TestInviteValidate_ExpiryBoundary(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	cutoff := now.AddDate(0, 0, -types.InviteDaysValidity)

	// Created exactly at the cutoff counts as expired.
	atCutoff := f.addInvite(org.ID, "a@acme.io", cutoff)
	err := svc.Validate(context.Background(), atCutoff, nil, "a@acme.io")
	requireInviteCode(t, err, types.CodeExpired)

	// A microsecond newer is still valid.
	justInside := f.addInvite(org.ID, "b@acme.io", cutoff.Add(time.Microsecond))
	assert.NoError(t, svc.Validate(context.Background(), justInside, nil, "b@acme.io"))

	// A microsecond older is expired.
	justOutside := f.addInvite(org.ID, "c@acme.io", cutoff.Add(-time.Microsecond))
	err = svc.Validate(context.Background(), justOutside, nil, "c@acme.io")
	requireInviteCode(t, err, types.CodeExpired)
}

func TestInviteValidate_UserAlreadyMember(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	user := f.addUser("robin@acme.io", "Robin")
	f.addMembership(org.ID, user.ID, types.LevelMember)
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	err := svc.Validate(context.Background(), invite, user, "")
	requireInviteCode(t, err, types.CodeUserAlreadyMember)
}

func TestInviteValidate_EmailAlreadyTakenByAnotherAccount(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	existing := f.addUser("robin@acme.io", "Robin")
	f.addMembership(org.ID, existing.ID, types.LevelMember)
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	// A second account signing up against the same invite address.
	err := svc.Validate(context.Background(), invite, nil, "robin@acme.io")
	requireInviteCode(t, err, types.CodeExistingEmailAddress)
}

func TestInviteUse_JoinsAndSweepsInvitesAcrossOrganizations(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	acme := f.addOrg("Acme")
	globex := f.addOrg("Globex")
	user := f.addUser("robin@acme.io", "Robin")

	team := &repository.Team{OrganizationID: acme.ID, Name: "Default Project"}
	require.NoError(t, repos.TeamRepo.Create(context.Background(), team))

	invite := f.addInvite(acme.ID, "robin@acme.io", now)
	// Sibling invites for the same address, with different casing and
	// in another organization, must all be swept on use.
	sibling := f.addInvite(acme.ID, "ROBIN@ACME.IO", now)
	crossOrg := f.addInvite(globex.ID, "Robin@Acme.io", now)
	unrelated := f.addInvite(acme.ID, "other@acme.io", now)

	membership, err := svc.Use(context.Background(), invite.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, types.LevelMember, membership.Level)
	assert.Equal(t, acme.ID, membership.OrganizationID)

	require.NotNil(t, f.users[user.ID].CurrentOrganizationID)
	assert.Equal(t, acme.ID, *f.users[user.ID].CurrentOrganizationID)
	require.NotNil(t, f.users[user.ID].CurrentTeamID)
	assert.Equal(t, team.ID, *f.users[user.ID].CurrentTeamID)

	assert.NotContains(t, f.invites, invite.ID)
	assert.NotContains(t, f.invites, sibling.ID)
	assert.NotContains(t, f.invites, crossOrg.ID)
	assert.Contains(t, f.invites, unrelated.ID)
}

func TestInviteUse_PrevalidatedDuplicateMembershipConflicts(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	user := f.addUser("robin@acme.io", "Robin")
	f.addMembership(org.ID, user.ID, types.LevelMember)
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	// Skipping validation means the storage constraint is the last
	// line of defense.
	_, err := svc.Use(context.Background(), invite.ID, user.ID, true)
	assert.ErrorIs(t, err, ErrConflict)

	// The sweep inside the failed transaction must not stick.
	assert.Contains(t, f.invites, invite.ID)
}

func TestInviteUse_ValidationFailureRollsBack(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := newInviteServiceAt(repos, now)

	org := f.addOrg("Acme")
	user := f.addUser("someone@else.io", "S")
	invite := f.addInvite(org.ID, "robin@acme.io", now)

	_, err := svc.Use(context.Background(), invite.ID, user.ID, false)
	requireInviteCode(t, err, types.CodeInvalidRecipient)

	assert.Contains(t, f.invites, invite.ID)
	assert.Empty(t, f.memberships)
}

func TestInviteUse_NotFound(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewInviteService(repos, nil, nil)
	user := f.addUser("robin@acme.io", "Robin")

	_, err := svc.Use(context.Background(), "missing", user.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInviteDelete_RequiresAdminOfSameOrganization(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewInviteService(repos, nil, nil)

	acme := f.addOrg("Acme")
	globex := f.addOrg("Globex")
	admin := f.addUser("admin@acme.io", "A")
	member := f.addUser("member@acme.io", "M")
	f.addMembership(acme.ID, admin.ID, types.LevelAdmin)
	f.addMembership(acme.ID, member.ID, types.LevelMember)

	invite := f.addInvite(acme.ID, "new@acme.io", time.Now())
	foreign := f.addInvite(globex.ID, "new@globex.io", time.Now())

	err := svc.Delete(context.Background(), acme.ID, member.ID, invite.ID)
	requirePermissionDenied(t, err, "admins")

	// Admins cannot reach across into another organization's invites.
	err = svc.Delete(context.Background(), acme.ID, admin.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), acme.ID, admin.ID, invite.ID))
	assert.NotContains(t, f.invites, invite.ID)
}
