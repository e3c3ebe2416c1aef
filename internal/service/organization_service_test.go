package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

func TestBootstrap_CreatesOrgTeamAndOwnerMembership(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	user := f.addUser("founder@acme.io", "F")

	org, membership, team, err := svc.Bootstrap(context.Background(), BootstrapParams{
		UserID: user.ID,
		Name:   "Acme",
		Personalization: map[string]any{
			"role_at_organization": "engineering",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", org.Name)
	assert.True(t, org.SetupComplete)
	assert.Equal(t, "engineering", org.Personalization["role_at_organization"])

	assert.Equal(t, "Default Project", team.Name)
	assert.Equal(t, org.ID, team.OrganizationID)

	require.NotNil(t, membership)
	assert.Equal(t, types.LevelOwner, membership.Level)
	assert.Equal(t, user.ID, membership.UserID)

	require.NotNil(t, f.users[user.ID].CurrentOrganizationID)
	assert.Equal(t, org.ID, *f.users[user.ID].CurrentOrganizationID)
	require.NotNil(t, f.users[user.ID].CurrentTeamID)
	assert.Equal(t, team.ID, *f.users[user.ID].CurrentTeamID)
}

func TestBootstrap_CustomTeamName(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)
	user := f.addUser("founder@acme.io", "F")

	_, _, team, err := svc.Bootstrap(context.Background(), BootstrapParams{
		UserID:   user.ID,
		Name:     "Acme",
		TeamName: "Platform",
	})
	require.NoError(t, err)
	assert.Equal(t, "Platform", team.Name)
}

func TestBootstrap_WithoutUserSkipsMembership(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	org, membership, team, err := svc.Bootstrap(context.Background(), BootstrapParams{
		Name: "Acme",
	})
	require.NoError(t, err)
	require.NotNil(t, org)
	require.NotNil(t, team)
	assert.Nil(t, membership)
	assert.Empty(t, f.memberships)
}

func TestBootstrap_EmptyNameRejected(t *testing.T) {
	repos, _ := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	_, _, _, err := svc.Bootstrap(context.Background(), BootstrapParams{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBootstrap_TeamFailureRollsBackOrganization(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)
	user := f.addUser("founder@acme.io", "F")

	f.teamCreateErr = errors.New("insert failed")

	_, _, _, err := svc.Bootstrap(context.Background(), BootstrapParams{
		UserID: user.ID,
		Name:   "Acme",
	})
	require.Error(t, err)

	assert.Empty(t, f.orgs)
	assert.Empty(t, f.teams)
	assert.Empty(t, f.memberships)
}

func TestBootstrap_MembershipFailureRollsBackEverything(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)
	user := f.addUser("founder@acme.io", "F")

	f.membershipCreateErr = errors.New("insert failed")

	_, _, _, err := svc.Bootstrap(context.Background(), BootstrapParams{
		UserID: user.ID,
		Name:   "Acme",
	})
	require.Error(t, err)

	assert.Empty(t, f.orgs)
	assert.Empty(t, f.teams)
	assert.Nil(t, f.users[user.ID].CurrentOrganizationID)
}

func TestBootstrap_UnknownUserRollsBack(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	_, _, _, err := svc.Bootstrap(context.Background(), BootstrapParams{
		UserID: "missing",
		Name:   "Acme",
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.orgs)
}

func TestOrganizationDelete_ClearsEveryMembersPointers(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	org := f.addOrg("Acme")
	owner := f.addUser("owner@acme.io", "O")
	member := f.addUser("member@acme.io", "M")
	ownerM := f.addMembership(org.ID, owner.ID, types.LevelOwner)
	memberM := f.addMembership(org.ID, member.ID, types.LevelMember)
	owner.CurrentOrganizationID = &org.ID
	member.CurrentOrganizationID = &org.ID

	require.NoError(t, svc.Delete(context.Background(), org.ID))

	assert.NotContains(t, f.orgs, org.ID)
	assert.NotContains(t, f.memberships, ownerM.ID)
	assert.NotContains(t, f.memberships, memberM.ID)
	assert.Nil(t, f.users[owner.ID].CurrentOrganizationID)
	assert.Nil(t, f.users[member.ID].CurrentOrganizationID)
}

func TestOnboardingLifecycle(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewOrganizationService(repos, nil)

	org := f.addOrg("Acme")
	org.SetupComplete = false

	active, err := svc.IsOnboardingActive(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, active)

	updated, err := svc.CompleteOnboarding(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, updated.SetupComplete)

	active, err = svc.IsOnboardingActive(context.Background(), org.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestActiveInvites_FiltersExpired(t *testing.T) {
	repos, f := newTestRepos()
	now := time.Now()
	svc := NewOrganizationService(repos, nil).(*organizationService)
	svc.now = func() time.Time { return now }

	org := f.addOrg("Acme")
	fresh := f.addInvite(org.ID, "fresh@acme.io", now.Add(-time.Hour))
	f.addInvite(org.ID, "stale@acme.io", now.AddDate(0, 0, -types.InviteDaysValidity))

	invites, err := svc.ActiveInvites(context.Background(), org.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, fresh.ID, invites[0].ID)
}
