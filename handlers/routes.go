package handlers

import (
	"net/http"
	"topper-backend/config"
	"topper-backend/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the public reveal/sender API and the organiser API.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", func(c *gin.Context) {
		name := "topper-backend"
		if config.AppConfig != nil {
			name = config.AppConfig.AppName
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": name,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	// ==========================================
	// PUBLIC API (reveal pages and senders)
	// ==========================================
	public := r.Group("/api/v1")
	{
		public.GET("/organisers", h.ListOrganisers)
		public.GET("/stories", h.ListStories)
		public.GET("/all-stories", h.ListStories)
		public.GET("/stories/:id", h.GetStory)
		public.GET("/stories/:id/contributions", h.GetStoryBundle)
		public.GET("/toppers/:code", h.GetTopperBundle)
		public.GET("/senders", h.ListSenders)
		public.GET("/story-senders", h.ListStorySenders)

		public.POST("/invitations/accept", h.AcceptInvitation)
		public.POST("/contributions", h.SubmitContribution)
		public.POST("/contributions/upload", h.UploadContribution)
	}

	// ==========================================
	// ORGANISER API (authenticated)
	// ==========================================
	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired())
	{
		api.GET("/me", h.GetProfile)
		api.PUT("/me/fcm-token", h.UpdateFCMToken)

		// Stories
		api.POST("/stories", h.CreateStory)
		api.PUT("/stories/:id", h.UpdateStory)
		api.DELETE("/stories/:id", h.DeleteStory)
		api.GET("/my-stories", h.ListMyStories)

		// Invitations
		api.POST("/stories/:id/invitations", h.InviteSender)
		api.GET("/stories/:id/invitations", h.ListStoryInvitations)
		api.POST("/invitations/:id/send", h.SendInvitation)
		api.POST("/invitations/:id/revoke", h.RevokeInvitation)
		api.POST("/invitations/:id/remind", h.RemindInvitation)
		api.DELETE("/invitations/:id", h.DeleteInvitation)

		// Moderation
		api.PATCH("/contributions/:id/moderation", h.ModerateContribution)
	}
}
