package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbushq/nimbus-backend/internal/models"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/service"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Organization *OrganizationHandler
	Membership   *MembershipHandler
	Invite       *InviteHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth},
		User:         &UserHandler{userService: services.User},
		Organization: &OrganizationHandler{orgService: services.Organization, membershipService: services.Membership, billingService: services.Billing},
		Membership:   &MembershipHandler{membershipService: services.Membership},
		Invite:       &InviteHandler{inviteService: services.Invite, userService: services.User, membershipService: services.Membership},
	}
}

// respondServiceError translates service errors into HTTP responses.
func respondServiceError(c *gin.Context, err error) {
	var permErr *types.PermissionDeniedError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, gin.H{"error": permErr.Reason})
		return
	}

	var inviteErr *types.InviteValidationError
	if errors.As(err, &inviteErr) {
		c.JSON(http.StatusBadRequest, gin.H{"code": inviteErr.Code, "error": inviteErr.Message})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting change, please retry"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		FirstName:             u.FirstName,
		CurrentOrganizationID: u.CurrentOrganizationID,
		CurrentTeamID:         u.CurrentTeamID,
		CreatedAt:             u.CreatedAt,
	}
}

func toOrganizationResponse(o *repository.Organization) models.OrganizationResponse {
	return models.OrganizationResponse{
		ID:              o.ID,
		Name:            o.Name,
		SetupComplete:   o.SetupComplete,
		Personalization: o.Personalization,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toTeamResponse(t *repository.Team) models.TeamResponse {
	return models.TeamResponse{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		Name:           t.Name,
		CreatedAt:      t.CreatedAt,
	}
}

func toMembershipResponse(m *repository.Membership) models.MembershipResponse {
	resp := models.MembershipResponse{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Level:          int(m.Level),
		LevelName:      m.Level.String(),
		JoinedAt:       m.JoinedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.User != nil {
		user := toUserResponse(m.User)
		resp.User = &user
	}
	return resp
}

func toInviteResponse(i *repository.Invite) models.InviteResponse {
	return models.InviteResponse{
		ID:                  i.ID,
		OrganizationID:      i.OrganizationID,
		TargetEmail:         i.TargetEmail,
		FirstName:           i.FirstName,
		CreatedByID:         i.CreatedByID,
		EmailingAttemptMade: i.EmailingAttemptMade,
		IsExpired:           i.IsExpiredAt(time.Now()),
		CreatedAt:           i.CreatedAt,
	}
}
