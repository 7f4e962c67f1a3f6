package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"relbox/middleware"
	"relbox/models"
	"relbox/utils"
)

type FriendRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) GetFriends(c *gin.Context) {
	userID := middleware.GetUserID(c)

	edges, err := h.Friends.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	friends := make([]models.FriendWithUser, 0, len(edges))
	for _, edge := range edges {
		friendID := edge.Other(userID)
		user, found, err := h.Accounts.GetUser(c.Request.Context(), friendID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !found {
			logrus.WithFields(logrus.Fields{
				"function":  "GetFriends",
				"edge_id":   edge.ID,
				"friend_id": friendID,
			}).Warn("Friendship references a missing account")
			continue
		}
		friends = append(friends, models.FriendWithUser{Friendship: edge, Friend: *user.ToResponse()})
	}

	utils.Success(c, friends)
}

func (h *Handler) GetFriendRequests(c *gin.Context) {
	requests, err := h.Friends.Requests(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, requests)
}

func (h *Handler) GetFriendStatus(c *gin.Context) {
	target := c.Param("user_id")
	status := h.Resolver.Resolve(c.Request.Context(), middleware.GetUserID(c), target)
	utils.Success(c, gin.H{"user_id": target, "status": status})
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	edge, err := h.Friends.Request(c.Request.Context(), middleware.GetUserID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Created(c, edge)
}

func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	edge, err := h.Friends.Accept(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, edge)
}

func (h *Handler) DeclineFriendRequest(c *gin.Context) {
	if err := h.Friends.Decline(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, nil)
}

func (h *Handler) DeleteFriend(c *gin.Context) {
	if err := h.Friends.Remove(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, nil)
}
