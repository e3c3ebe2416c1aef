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
// Membership Handler
// ============================================

type MembershipHandler struct {
	membershipService service.MembershipService
}

func (h *MembershipHandler) ListByOrganization(c *gin.Context) {
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

	memberships, err := h.membershipService.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		return
	}

	response := make([]models.MembershipResponse, len(memberships))
	for i, m := range memberships {
		response[i] = toMembershipResponse(m)
	}
	c.JSON(http.StatusOK, response)
}

func (h *MembershipHandler) UpdateLevel(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	membershipID := c.Param("membershipId")

	var req models.UpdateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	membership, err := h.membershipService.UpdateLevel(c.Request.Context(), userID, membershipID, types.MembershipLevel(req.Level))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMembershipResponse(membership))
}

func (h *MembershipHandler) Remove(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	membershipID := c.Param("membershipId")

	if err := h.membershipService.Remove(c.Request.Context(), userID, membershipID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
