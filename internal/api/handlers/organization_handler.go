package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbushq/nimbus-backend/internal/api/middleware"
	"github.com/nimbushq/nimbus-backend/internal/models"
	"github.com/nimbushq/nimbus-backend/internal/service"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

// ============================================
// Organization Handler
// ============================================

type OrganizationHandler struct {
	orgService        service.OrganizationService
	membershipService service.MembershipService
	billingService    service.BillingService
}

// requireLevel checks that the requester belongs to the organization
// with at least the given level. It writes the error response itself.
func (h *OrganizationHandler) requireLevel(c *gin.Context, organizationID, userID string, minLevel types.MembershipLevel) bool {
	membership, err := h.membershipService.GetByOrganizationAndUser(c.Request.Context(), organizationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return false
	}
	if membership == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return false
	}
	if membership.Level < minLevel {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient access level"})
		return false
	}
	return true
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, membership, team, err := h.orgService.Bootstrap(c.Request.Context(), service.BootstrapParams{
		UserID:          userID,
		Name:            req.Name,
		TeamName:        req.TeamName,
		Personalization: req.Personalization,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.BootstrapResponse{
		Organization: toOrganizationResponse(org),
		Team:         toTeamResponse(team),
		Membership:   toMembershipResponse(membership),
	})
}

func (h *OrganizationHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	orgs, err := h.orgService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list organizations"})
		return
	}

	response := make([]models.OrganizationResponse, len(orgs))
	for i, o := range orgs {
		response[i] = toOrganizationResponse(o)
	}
	c.JSON(http.StatusOK, response)
}

func (h *OrganizationHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelMember) {
		return
	}

	org, err := h.orgService.GetByID(c.Request.Context(), orgID)
	if err != nil || org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, toOrganizationResponse(org))
}

func (h *OrganizationHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelAdmin) {
		return
	}

	var req models.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, err := h.orgService.GetByID(c.Request.Context(), orgID)
	if err != nil || org == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Personalization != nil {
		org.Personalization = *req.Personalization
	}

	if err := h.orgService.Update(c.Request.Context(), org); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrganizationResponse(org))
}

func (h *OrganizationHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelOwner) {
		return
	}

	if err := h.orgService.Delete(c.Request.Context(), orgID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted"})
}

func (h *OrganizationHandler) Onboarding(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelMember) {
		return
	}

	active, err := h.orgService.IsOnboardingActive(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"onboardingActive": active})
}

func (h *OrganizationHandler) CompleteOnboarding(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelAdmin) {
		return
	}

	org, err := h.orgService.CompleteOnboarding(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrganizationResponse(org))
}

func (h *OrganizationHandler) ActiveInvites(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelMember) {
		return
	}

	invites, err := h.orgService.ActiveInvites(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response := make([]models.InviteResponse, len(invites))
	for i, inv := range invites {
		response[i] = toInviteResponse(inv)
	}
	c.JSON(http.StatusOK, response)
}

// ============================================
// Billing
// ============================================

func (h *OrganizationHandler) GetBilling(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelMember) {
		return
	}

	plan, realm, err := h.billingService.BillingPlanDetails(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	features, err := h.billingService.AvailableFeatures(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if features == nil {
		features = []string{}
	}

	c.JSON(http.StatusOK, models.BillingResponse{
		Plan:              plan,
		Realm:             realm,
		AvailableFeatures: features,
	})
}

func (h *OrganizationHandler) SetBilling(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelAdmin) {
		return
	}

	var req models.SetBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.billingService.SetBilling(c.Request.Context(), orgID, req.PlanKey, req.AvailableFeatures); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Billing updated"})
}

func (h *OrganizationHandler) ListFeatures(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	if !h.requireLevel(c, orgID, userID, types.LevelMember) {
		return
	}

	features, err := h.billingService.AvailableFeatures(c.Request.Context(), orgID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if features == nil {
		features = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"availableFeatures": features})
}

func (h *OrganizationHandler) AddLicense(c *gin.Context) {
	if _, ok := middleware.RequireUserID(c); !ok {
		return
	}

	var req models.AddLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	license, err := h.billingService.AddLicense(c.Request.Context(), req.Key, req.PlanKey, req.ValidUntil)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.LicenseResponse{
		ID:         license.ID,
		PlanKey:    license.PlanKey,
		ValidUntil: license.ValidUntil,
		CreatedAt:  license.CreatedAt,
	})
}
