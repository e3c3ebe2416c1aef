package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

// fixture is the shared in-memory store behind the fake repositories.
// The fakes mirror the Postgres constraints that the services rely on,
// in particular the unique (organization, user) membership pair and
// the single-owner-per-organization index.
type fixture struct {
	users         map[string]*repository.User
	refreshTokens map[string]*repository.RefreshToken
	orgs          map[string]*repository.Organization
	teams         map[string]*repository.Team
	teamOrder     []string
	memberships   map[string]*repository.Membership
	invites       map[string]*repository.Invite
	billing       map[string]*repository.OrganizationBilling
	licenses      []*repository.License

	seq int

	// Injectable failures.
	teamCreateErr       error
	membershipCreateErr error
}

func newFixture() *fixture {
	return &fixture{
		users:         make(map[string]*repository.User),
		refreshTokens: make(map[string]*repository.RefreshToken),
		orgs:          make(map[string]*repository.Organization),
		teams:         make(map[string]*repository.Team),
		memberships:   make(map[string]*repository.Membership),
		invites:       make(map[string]*repository.Invite),
		billing:       make(map[string]*repository.OrganizationBilling),
	}
}

func (f *fixture) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// newTestRepos wires the fakes into a Repositories value the services
// accept, with a snapshotting transactor that rolls the store back
// when the transactional closure fails.
func newTestRepos() (*repository.Repositories, *fixture) {
	f := newFixture()
	repos := &repository.Repositories{
		UserRepo:         &fakeUserRepo{f},
		OrganizationRepo: &fakeOrgRepo{f},
		TeamRepo:         &fakeTeamRepo{f},
		MembershipRepo:   &fakeMembershipRepo{f},
		InviteRepo:       &fakeInviteRepo{f},
		BillingRepo:      &fakeBillingRepo{f},
		LicenseRepo:      &fakeLicenseRepo{f},
	}
	repos.Tx = &fakeTransactor{f: f, repos: repos}
	return repos, f
}

// ============================================
// Transactor
// ============================================

type fakeTransactor struct {
	f     *fixture
	repos *repository.Repositories
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	snap := t.f.snapshot()
	if err := fn(t.repos); err != nil {
		t.f.restore(snap)
		return err
	}
	return nil
}

func (f *fixture) snapshot() *fixture {
	snap := newFixture()
	snap.seq = f.seq
	for k, v := range f.users {
		c := *v
		snap.users[k] = &c
	}
	for k, v := range f.refreshTokens {
		c := *v
		snap.refreshTokens[k] = &c
	}
	for k, v := range f.orgs {
		c := *v
		snap.orgs[k] = &c
	}
	for k, v := range f.teams {
		c := *v
		snap.teams[k] = &c
	}
	snap.teamOrder = append([]string(nil), f.teamOrder...)
	for k, v := range f.memberships {
		c := *v
		snap.memberships[k] = &c
	}
	for k, v := range f.invites {
		c := *v
		snap.invites[k] = &c
	}
	for k, v := range f.billing {
		c := *v
		snap.billing[k] = &c
	}
	snap.licenses = append([]*repository.License(nil), f.licenses...)
	return snap
}

func (f *fixture) restore(snap *fixture) {
	f.seq = snap.seq
	f.users = snap.users
	f.refreshTokens = snap.refreshTokens
	f.orgs = snap.orgs
	f.teams = snap.teams
	f.teamOrder = snap.teamOrder
	f.memberships = snap.memberships
	f.invites = snap.invites
	f.billing = snap.billing
	f.licenses = snap.licenses
}

// ============================================
// Users
// ============================================

type fakeUserRepo struct{ f *fixture }

func (r *fakeUserRepo) Create(ctx context.Context, user *repository.User) error {
	for _, u := range r.f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return uniqueViolation("users_email_key")
		}
	}
	user.ID = r.f.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.f.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return r.f.users[id], nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range r.f.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *repository.User) error {
	if _, ok := r.f.users[user.ID]; !ok {
		return fmt.Errorf("user %s not found", user.ID)
	}
	user.UpdatedAt = time.Now()
	r.f.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(ctx context.Context, rt *repository.RefreshToken) error {
	rt.ID = r.f.nextID("rt")
	rt.CreatedAt = time.Now()
	r.f.refreshTokens[rt.Token] = rt
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	return r.f.refreshTokens[token], nil
}

func (r *fakeUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(r.f.refreshTokens, token)
	return nil
}

// ============================================
// Organizations
// ============================================

type fakeOrgRepo struct{ f *fixture }

func (r *fakeOrgRepo) Create(ctx context.Context, org *repository.Organization) error {
	org.ID = r.f.nextID("org")
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	r.f.orgs[org.ID] = org
	return nil
}

func (r *fakeOrgRepo) FindByID(ctx context.Context, id string) (*repository.Organization, error) {
	return r.f.orgs[id], nil
}

func (r *fakeOrgRepo) FindByUserID(ctx context.Context, userID string) ([]*repository.Organization, error) {
	var out []*repository.Organization
	for _, m := range r.f.memberships {
		if m.UserID == userID {
			if org, ok := r.f.orgs[m.OrganizationID]; ok {
				out = append(out, org)
			}
		}
	}
	return out, nil
}

func (r *fakeOrgRepo) Update(ctx context.Context, org *repository.Organization) error {
	if _, ok := r.f.orgs[org.ID]; !ok {
		return fmt.Errorf("organization %s not found", org.ID)
	}
	org.UpdatedAt = time.Now()
	r.f.orgs[org.ID] = org
	return nil
}

func (r *fakeOrgRepo) Delete(ctx context.Context, id string) error {
	delete(r.f.orgs, id)
	return nil
}

// ============================================
// Teams
// ============================================

type fakeTeamRepo struct{ f *fixture }

func (r *fakeTeamRepo) Create(ctx context.Context, team *repository.Team) error {
	if r.f.teamCreateErr != nil {
		return r.f.teamCreateErr
	}
	team.ID = r.f.nextID("team")
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	r.f.teams[team.ID] = team
	r.f.teamOrder = append(r.f.teamOrder, team.ID)
	return nil
}

func (r *fakeTeamRepo) FindByID(ctx context.Context, id string) (*repository.Team, error) {
	return r.f.teams[id], nil
}

func (r *fakeTeamRepo) FindByOrganization(ctx context.Context, organizationID string) ([]*repository.Team, error) {
	var out []*repository.Team
	for _, id := range r.f.teamOrder {
		if t, ok := r.f.teams[id]; ok && t.OrganizationID == organizationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) Update(ctx context.Context, team *repository.Team) error {
	if _, ok := r.f.teams[team.ID]; !ok {
		return fmt.Errorf("team %s not found", team.ID)
	}
	team.UpdatedAt = time.Now()
	r.f.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id string) error {
	delete(r.f.teams, id)
	return nil
}

// ============================================
// Memberships
// ============================================

type fakeMembershipRepo struct{ f *fixture }

func (r *fakeMembershipRepo) Create(ctx context.Context, m *repository.Membership) error {
	if r.f.membershipCreateErr != nil {
		return r.f.membershipCreateErr
	}
	if m.Level == 0 {
		m.Level = types.LevelMember
	}
	for _, existing := range r.f.memberships {
		if existing.OrganizationID == m.OrganizationID && existing.UserID == m.UserID {
			return uniqueViolation("memberships_organization_id_user_id_key")
		}
		if existing.OrganizationID == m.OrganizationID && m.Level == types.LevelOwner && existing.Level == types.LevelOwner {
			return uniqueViolation("only_one_owner_per_organization")
		}
	}
	m.ID = r.f.nextID("membership")
	m.JoinedAt = time.Now()
	m.UpdatedAt = m.JoinedAt
	r.f.memberships[m.ID] = m
	return nil
}

func (r *fakeMembershipRepo) FindByID(ctx context.Context, id string) (*repository.Membership, error) {
	return r.f.memberships[id], nil
}

func (r *fakeMembershipRepo) FindByOrganizationAndUser(ctx context.Context, organizationID, userID string) (*repository.Membership, error) {
	for _, m := range r.f.memberships {
		if m.OrganizationID == organizationID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) FindByOrganization(ctx context.Context, organizationID string) ([]*repository.Membership, error) {
	var out []*repository.Membership
	for _, m := range r.f.memberships {
		if m.OrganizationID == organizationID {
			m.User = r.f.users[m.UserID]
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) UpdateLevel(ctx context.Context, id string, level types.MembershipLevel) error {
	m, ok := r.f.memberships[id]
	if !ok {
		return fmt.Errorf("membership %s not found", id)
	}
	if level == types.LevelOwner {
		for _, other := range r.f.memberships {
			if other.ID != id && other.OrganizationID == m.OrganizationID && other.Level == types.LevelOwner {
				return uniqueViolation("only_one_owner_per_organization")
			}
		}
	}
	m.Level = level
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeMembershipRepo) Delete(ctx context.Context, id string) error {
	delete(r.f.memberships, id)
	return nil
}

func (r *fakeMembershipRepo) CountOwners(ctx context.Context, organizationID string) (int, error) {
	count := 0
	for _, m := range r.f.memberships {
		if m.OrganizationID == organizationID && m.Level == types.LevelOwner {
			count++
		}
	}
	return count, nil
}

func (r *fakeMembershipRepo) ExistsWithEmail(ctx context.Context, organizationID, email string) (bool, error) {
	for _, m := range r.f.memberships {
		if m.OrganizationID != organizationID {
			continue
		}
		if u, ok := r.f.users[m.UserID]; ok && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// ============================================
// Invites
// ============================================

type fakeInviteRepo struct{ f *fixture }

func (r *fakeInviteRepo) Create(ctx context.Context, invite *repository.Invite) error {
	invite.ID = r.f.nextID("invite")
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	invite.UpdatedAt = invite.CreatedAt
	r.f.invites[invite.ID] = invite
	return nil
}

func (r *fakeInviteRepo) FindByID(ctx context.Context, id string) (*repository.Invite, error) {
	return r.f.invites[id], nil
}

func (r *fakeInviteRepo) FindByOrganization(ctx context.Context, organizationID string) ([]*repository.Invite, error) {
	var out []*repository.Invite
	for _, i := range r.f.invites {
		if i.OrganizationID == organizationID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) FindActiveByOrganization(ctx context.Context, organizationID string, since time.Time) ([]*repository.Invite, error) {
	var out []*repository.Invite
	for _, i := range r.f.invites {
		if i.OrganizationID == organizationID && i.CreatedAt.After(since) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) FindUnattempted(ctx context.Context, since time.Time) ([]*repository.Invite, error) {
	var out []*repository.Invite
	for _, i := range r.f.invites {
		if !i.EmailingAttemptMade && i.CreatedAt.After(since) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) MarkEmailingAttempt(ctx context.Context, id string) error {
	i, ok := r.f.invites[id]
	if !ok {
		return fmt.Errorf("invite %s not found", id)
	}
	i.EmailingAttemptMade = true
	return nil
}

func (r *fakeInviteRepo) Delete(ctx context.Context, id string) error {
	delete(r.f.invites, id)
	return nil
}

func (r *fakeInviteRepo) DeleteByTargetEmail(ctx context.Context, email string) (int, error) {
	count := 0
	for id, i := range r.f.invites {
		if i.TargetEmail != nil && strings.EqualFold(*i.TargetEmail, email) {
			delete(r.f.invites, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeInviteRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	count := 0
	for _, i := range r.f.invites {
		if i.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// ============================================
// Billing and licenses
// ============================================

type fakeBillingRepo struct{ f *fixture }

func (r *fakeBillingRepo) Upsert(ctx context.Context, billing *repository.OrganizationBilling) error {
	if existing, ok := r.f.billing[billing.OrganizationID]; ok {
		billing.CreatedAt = existing.CreatedAt
	} else {
		billing.CreatedAt = time.Now()
	}
	billing.UpdatedAt = time.Now()
	r.f.billing[billing.OrganizationID] = billing
	return nil
}

func (r *fakeBillingRepo) FindByOrganization(ctx context.Context, organizationID string) (*repository.OrganizationBilling, error) {
	return r.f.billing[organizationID], nil
}

func (r *fakeBillingRepo) Delete(ctx context.Context, organizationID string) error {
	delete(r.f.billing, organizationID)
	return nil
}

type fakeLicenseRepo struct{ f *fixture }

func (r *fakeLicenseRepo) Create(ctx context.Context, license *repository.License) error {
	for _, l := range r.f.licenses {
		if l.Key == license.Key {
			return uniqueViolation("licenses_key_key")
		}
	}
	license.ID = r.f.nextID("license")
	license.CreatedAt = time.Now()
	r.f.licenses = append(r.f.licenses, license)
	return nil
}

func (r *fakeLicenseRepo) FirstValid(ctx context.Context) (*repository.License, error) {
	now := time.Now()
	for _, l := range r.f.licenses {
		if l.ValidUntil.After(now) {
			return l, nil
		}
	}
	return nil, nil
}

// ============================================
// Scenario helpers
// ============================================

// addUser stores a user directly in the fixture.
func (f *fixture) addUser(email, firstName string) *repository.User {
	u := &repository.User{
		ID:        f.nextID("user"),
		Email:     email,
		FirstName: firstName,
		CreatedAt: time.Now(),
	}
	f.users[u.ID] = u
	return u
}

// addOrg stores an organization directly in the fixture.
func (f *fixture) addOrg(name string) *repository.Organization {
	o := &repository.Organization{
		ID:            f.nextID("org"),
		Name:          name,
		SetupComplete: true,
		CreatedAt:     time.Now(),
	}
	f.orgs[o.ID] = o
	return o
}

// addMembership stores a membership directly in the fixture, bypassing
// the uniqueness checks so tests can build any starting state.
func (f *fixture) addMembership(orgID, userID string, level types.MembershipLevel) *repository.Membership {
	m := &repository.Membership{
		ID:             f.nextID("membership"),
		OrganizationID: orgID,
		UserID:         userID,
		Level:          level,
		JoinedAt:       time.Now(),
	}
	f.memberships[m.ID] = m
	return m
}

// addInvite stores an invite created at the given time.
func (f *fixture) addInvite(orgID string, targetEmail string, createdAt time.Time) *repository.Invite {
	i := &repository.Invite{
		ID:             f.nextID("invite"),
		OrganizationID: orgID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if targetEmail != "" {
		i.TargetEmail = &targetEmail
	}
	f.invites[i.ID] = i
	return i
}
