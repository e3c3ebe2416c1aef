package service

import (
	"errors"

	"github.com/nimbushq/nimbus-backend/internal/config"
	"github.com/nimbushq/nimbus-backend/internal/db"
	"github.com/nimbushq/nimbus-backend/internal/email"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/socket"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	User         UserService
	Organization OrganizationService
	Membership   MembershipService
	Invite       InviteService
	Billing      BillingService
	Broadcaster  *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	EmailSvc    *email.Service
	Cache       *db.RedisDB
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	billingService := NewBillingService(deps.Repos, deps.Cache)

	return &Services{
		Auth:         NewAuthService(deps.Config, deps.Repos.UserRepo),
		User:         NewUserService(deps.Repos),
		Organization: NewOrganizationService(deps.Repos, deps.Broadcaster),
		Membership:   NewMembershipService(deps.Repos, deps.Broadcaster),
		Invite:       NewInviteService(deps.Repos, deps.EmailSvc, deps.Broadcaster),
		Billing:      billingService,
		Broadcaster:  deps.Broadcaster,
	}
}
