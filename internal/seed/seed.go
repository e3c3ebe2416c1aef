// internal/seed/seed.go
package seed

import (
	"context"
	"log"
	"time"

	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
	"golang.org/x/crypto/bcrypt"
)

func SeedData(repos *repository.Repositories) {
	ctx := context.Background()

	existing, _ := repos.UserRepo.FindByEmail(ctx, "ada@nimbushq.io")
	if existing != nil {
		log.Println("[Seed] Data already exists, skipping...")
		return
	}

	log.Println("[Seed] 🌱 Creating initial data...")

	password, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	// 1. ADA - Organization owner
	ada := &repository.User{
		Email:     "ada@nimbushq.io",
		Password:  string(password),
		FirstName: "Ada",
	}
	repos.UserRepo.Create(ctx, ada)

	// 2. GRACE - Admin
	grace := &repository.User{
		Email:     "grace@nimbushq.io",
		Password:  string(password),
		FirstName: "Grace",
	}
	repos.UserRepo.Create(ctx, grace)

	// 3. LIN - Regular member
	lin := &repository.User{
		Email:     "lin@nimbushq.io",
		Password:  string(password),
		FirstName: "Lin",
	}
	repos.UserRepo.Create(ctx, lin)

	log.Printf("✅ Created 3 users: Ada (owner), Grace (admin), Lin (member)")

	// Ada's organization with a default team
	org := &repository.Organization{
		Name:          "Nimbus HQ",
		SetupComplete: false,
		Personalization: map[string]any{
			"role_at_organization": "engineering",
		},
	}
	repos.OrganizationRepo.Create(ctx, org)

	team := &repository.Team{
		OrganizationID: org.ID,
		Name:           "Default Project",
	}
	repos.TeamRepo.Create(ctx, team)

	repos.MembershipRepo.Create(ctx, &repository.Membership{
		OrganizationID: org.ID,
		UserID:         ada.ID,
		Level:          types.LevelOwner,
	})
	repos.MembershipRepo.Create(ctx, &repository.Membership{
		OrganizationID: org.ID,
		UserID:         grace.ID,
		Level:          types.LevelAdmin,
	})
	repos.MembershipRepo.Create(ctx, &repository.Membership{
		OrganizationID: org.ID,
		UserID:         lin.ID,
		Level:          types.LevelMember,
	})

	for _, u := range []*repository.User{ada, grace, lin} {
		u.CurrentOrganizationID = &org.ID
		u.CurrentTeamID = &team.ID
		repos.UserRepo.Update(ctx, u)
	}

	log.Printf("✅ Created organization %q with team %q and 3 memberships", org.Name, team.Name)

	// A pending invite for a fourth person
	targetEmail := "mary@nimbushq.io"
	repos.InviteRepo.Create(ctx, &repository.Invite{
		OrganizationID: org.ID,
		TargetEmail:    &targetEmail,
		FirstName:      "Mary",
		CreatedByID:    &ada.ID,
	})
	log.Printf("✅ Created pending invite for %s", targetEmail)

	// A development license so enterprise features resolve locally
	repos.LicenseRepo.Create(ctx, &repository.License{
		Key:        "dev-license-key",
		PlanKey:    types.PlanEnterprise,
		ValidUntil: time.Now().AddDate(1, 0, 0),
	})
	log.Println("✅ Created development license (enterprise, 1 year)")

	log.Println("[Seed] 🎉 Initial data ready")
}
