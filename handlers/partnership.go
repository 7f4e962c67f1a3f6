package handlers

import (
	"github.com/gin-gonic/gin"

	"relbox/middleware"
	"relbox/models"
	"relbox/relationship"
	"relbox/utils"
)

type UpdatePartnershipRequest struct {
	Status     models.RelationshipStatus `json:"status" binding:"required"`
	PartnerIDs []string                  `json:"partner_ids"`
	LookingFor []string                  `json:"looking_for"`
}

func (h *Handler) GetMyPartnership(c *gin.Context) {
	state, err := h.Partnership.GetState(c.Request.Context(), middleware.GetUserID(c), models.Visibility(c.Param("visibility")))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, state)
}

func (h *Handler) UpdateMyPartnership(c *gin.Context) {
	var req UpdatePartnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	state, err := h.Partnership.UpdateState(c.Request.Context(), middleware.GetUserID(c), models.Visibility(c.Param("visibility")),
		relationship.UpdateRequest{
			Status:     req.Status,
			PartnerIDs: req.PartnerIDs,
			LookingFor: req.LookingFor,
		})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, state)
}

// GetUserPartnership shows another account's state. Public states are open
// to any signed-in user; private ones only to the owner and their friends.
func (h *Handler) GetUserPartnership(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.GetUserID(c)
	target := c.Param("user_id")
	visibility := models.Visibility(c.Param("visibility"))

	if visibility == models.VisibilityPrivate && viewer != target &&
		h.Resolver.Resolve(ctx, viewer, target) != models.Friends {
		utils.Forbidden(c, "private relationship status is visible to friends only")
		return
	}

	if _, found, err := h.Accounts.GetUser(ctx, target); err != nil {
		respondError(c, err)
		return
	} else if !found {
		utils.NotFound(c, "user not found")
		return
	}
	state, err := h.Partnership.GetState(ctx, target, visibility)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, state)
}
