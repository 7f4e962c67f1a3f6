package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"relbox/middleware"
	"relbox/models"
	"relbox/utils"
)

const maxSearchResults = 20

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, found, err := h.Accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		utils.NotFound(c, "user not found")
		return
	}

	utils.Success(c, user.ToResponse())
}

// SearchUsers finds accounts to befriend or list as partners.
func (h *Handler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.BadRequest(c, "search query is required")
		return
	}

	limit := maxSearchResults
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchResults)
	}

	users, err := h.Accounts.SearchUsers(c.Request.Context(), query, middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *u.ToResponse())
	}
	utils.Success(c, out)
}
