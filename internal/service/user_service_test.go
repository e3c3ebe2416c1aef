package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

func TestJoinOrganization_SetsPointers(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewUserService(repos)

	org := f.addOrg("Acme")
	user := f.addUser("lin@acme.io", "Lin")
	team := &repository.Team{OrganizationID: org.ID, Name: "Default Project"}
	require.NoError(t, repos.TeamRepo.Create(context.Background(), team))

	membership, err := svc.JoinOrganization(context.Background(), user.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, types.LevelMember, membership.Level)

	require.NotNil(t, f.users[user.ID].CurrentOrganizationID)
	assert.Equal(t, org.ID, *f.users[user.ID].CurrentOrganizationID)
	require.NotNil(t, f.users[user.ID].CurrentTeamID)
	assert.Equal(t, team.ID, *f.users[user.ID].CurrentTeamID)
}

func TestJoinOrganization_WithoutTeamsLeavesTeamUnset(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewUserService(repos)

	org := f.addOrg("Acme")
	user := f.addUser("lin@acme.io", "Lin")

	_, err := svc.JoinOrganization(context.Background(), user.ID, org.ID)
	require.NoError(t, err)

	require.NotNil(t, f.users[user.ID].CurrentOrganizationID)
	assert.Nil(t, f.users[user.ID].CurrentTeamID)
}

func TestJoinOrganization_DuplicateMembershipConflicts(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewUserService(repos)

	org := f.addOrg("Acme")
	user := f.addUser("lin@acme.io", "Lin")
	f.addMembership(org.ID, user.ID, types.LevelMember)

	_, err := svc.JoinOrganization(context.Background(), user.ID, org.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestJoinOrganization_UnknownUser(t *testing.T) {
	repos, f := newTestRepos()
	svc := NewUserService(repos)
	org := f.addOrg("Acme")

	_, err := svc.JoinOrganization(context.Background(), "missing", org.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
