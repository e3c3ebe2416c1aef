package models

import "time"

// ============================================
// Auth DTOs
// ============================================

type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,min=1"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// ============================================
// User DTOs
// ============================================

type UserResponse struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	FirstName             string    `json:"firstName"`
	CurrentOrganizationID *string   `json:"currentOrganizationId,omitempty"`
	CurrentTeamID         *string   `json:"currentTeamId,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"firstName,omitempty"`
}

// ============================================
// Organization DTOs
// ============================================

type CreateOrganizationRequest struct {
	Name            string         `json:"name" binding:"required,min=1"`
	TeamName        string         `json:"teamName,omitempty"`
	Personalization map[string]any `json:"personalization,omitempty"`
}

type UpdateOrganizationRequest struct {
	Name            *string         `json:"name,omitempty"`
	Personalization *map[string]any `json:"personalization,omitempty"`
}

type OrganizationResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	SetupComplete   bool           `json:"setupComplete"`
	Personalization map[string]any `json:"personalization,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type BootstrapResponse struct {
	Organization OrganizationResponse `json:"organization"`
	Team         TeamResponse         `json:"team"`
	Membership   MembershipResponse   `json:"membership"`
}

type TeamResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ============================================
// Membership DTOs
// ============================================

type MembershipResponse struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	UserID         string        `json:"userId"`
	Level          int           `json:"level"`
	LevelName      string        `json:"levelName"`
	JoinedAt       time.Time     `json:"joinedAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	User           *UserResponse `json:"user,omitempty"`
}

type UpdateMembershipRequest struct {
	Level int `json:"level" binding:"required"`
}

// ============================================
// Invite DTOs
// ============================================

type CreateInviteRequest struct {
	TargetEmail string `json:"targetEmail" binding:"required,email"`
	FirstName   string `json:"firstName,omitempty"`
}

type InviteResponse struct {
	ID                  string    `json:"id"`
	OrganizationID      string    `json:"organizationId"`
	TargetEmail         *string   `json:"targetEmail,omitempty"`
	FirstName           string    `json:"firstName,omitempty"`
	CreatedByID         *string   `json:"createdById,omitempty"`
	EmailingAttemptMade bool      `json:"emailingAttemptMade"`
	IsExpired           bool      `json:"isExpired"`
	CreatedAt           time.Time `json:"createdAt"`
}

type UseInviteRequest struct {
	// Prevalidated skips re-validation when the client already called
	// the validate endpoint for this invite.
	Prevalidated bool `json:"prevalidated,omitempty"`
}

// ============================================
// Billing DTOs
// ============================================

type SetBillingRequest struct {
	PlanKey           *string  `json:"planKey"`
	AvailableFeatures []string `json:"availableFeatures,omitempty"`
}

type BillingResponse struct {
	Plan              string   `json:"plan"`
	Realm             string   `json:"realm"`
	AvailableFeatures []string `json:"availableFeatures"`
}

type AddLicenseRequest struct {
	Key        string    `json:"key" binding:"required"`
	PlanKey    string    `json:"planKey" binding:"required"`
	ValidUntil time.Time `json:"validUntil" binding:"required"`
}

type LicenseResponse struct {
	ID         string    `json:"id"`
	PlanKey    string    `json:"planKey"`
	ValidUntil time.Time `json:"validUntil"`
	CreatedAt  time.Time `json:"createdAt"`
}
