package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"relbox/models"
	"relbox/store"
	"relbox/utils"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.InternalError(c, "failed to hash password")
		return
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}
	now := time.Now().UTC()
	user := models.User{
		ID:        utils.GenerateUUID(),
		Username:  req.Username,
		Nickname:  nickname,
		Password:  string(hashedPassword),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Accounts.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.Conflict(c, "username already exists")
			return
		}
		respondError(c, err)
		return
	}

	h.issueToken(c, user, true)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, found, err := h.Accounts.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.Unauthorized(c, "invalid username or password")
		return
	}

	h.issueToken(c, user, false)
}

func (h *Handler) issueToken(c *gin.Context, user models.User, created bool) {
	token, err := utils.GenerateToken(h.JWTSecret, user.ID, h.TokenTTL)
	if err != nil {
		utils.InternalError(c, "failed to generate token")
		return
	}

	resp := AuthResponse{Token: token, User: *user.ToResponse()}
	if created {
		utils.Created(c, resp)
		return
	}
	utils.Success(c, resp)
}
