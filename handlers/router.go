package handlers

import (
	"github.com/gin-gonic/gin"

	"relbox/middleware"
)

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORSMiddleware(allowedOrigins))

	r.GET("/health", h.Health)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	authed := middleware.AuthMiddleware(h.JWTSecret)

	users := r.Group("/api/users")
	users.Use(authed)
	{
		users.GET("/me", h.GetCurrentUser)
		users.GET("/search", h.SearchUsers)
		users.GET("/:user_id/partnership/:visibility", h.GetUserPartnership)
	}

	friends := r.Group("/api/friends")
	friends.Use(authed)
	{
		friends.GET("", h.GetFriends)
		friends.GET("/requests", h.GetFriendRequests)
		friends.GET("/status/:user_id", h.GetFriendStatus)
		friends.POST("/request", h.SendFriendRequest)
		friends.POST("/:id/accept", h.AcceptFriendRequest)
		friends.POST("/:id/decline", h.DeclineFriendRequest)
		friends.DELETE("/:id", h.DeleteFriend)
	}

	partnership := r.Group("/api/partnership")
	partnership.Use(authed)
	{
		partnership.GET("/:visibility", h.GetMyPartnership)
		partnership.PUT("/:visibility", h.UpdateMyPartnership)
	}

	return r
}
