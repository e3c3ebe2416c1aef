package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimbushq/nimbus-backend/internal/api/middleware"
	"github.com/nimbushq/nimbus-backend/internal/models"
	"github.com/nimbushq/nimbus-backend/internal/service"
)

// ============================================
// Invite Handler
// ============================================

type InviteHandler struct {
	inviteService     service.InviteService
	userService       service.UserService
	membershipService service.MembershipService
}

func (h *InviteHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	var req models.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := h.inviteService.Create(c.Request.Context(), orgID, userID, req.TargetEmail, req.FirstName)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toInviteResponse(invite))
}

func (h *InviteHandler) ListByOrganization(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")

	requester, err := h.membershipService.GetByOrganizationAndUser(c.Request.Context(), orgID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
		return
	}
	if requester == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	invites, err := h.inviteService.ListByOrganization(c.Request.Context(), orgID)
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

// Validate checks an invite for the current visitor. It works without
// authentication so the signup page can pre-validate, but uses the
// logged-in user when present.
func (h *InviteHandler) Validate(c *gin.Context) {
	inviteID := c.Param("id")
	emailAddr := c.Query("email")

	invite, err := h.inviteService.GetByID(c.Request.Context(), inviteID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if invite == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
		return
	}

	if userID := middleware.GetUserID(c); userID != "" {
		u, err := h.userService.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		if err := h.inviteService.Validate(c.Request.Context(), invite, u, emailAddr); err != nil {
			respondServiceError(c, err)
			return
		}
	} else {
		if err := h.inviteService.Validate(c.Request.Context(), invite, nil, emailAddr); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "invite": toInviteResponse(invite)})
}

// Accept consumes an invite for the authenticated user and joins them
// to the organization as a member.
func (h *InviteHandler) Accept(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	inviteID := c.Param("id")

	var req models.UseInviteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	membership, err := h.inviteService.Use(c.Request.Context(), inviteID, userID, req.Prevalidated)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMembershipResponse(membership))
}

func (h *InviteHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	orgID := c.Param("id")
	inviteID := c.Param("inviteId")

	if err := h.inviteService.Delete(c.Request.Context(), orgID, userID, inviteID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invite deleted"})
}
