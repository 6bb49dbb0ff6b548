package handlers

import (
	"net/http"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
)

type UpdateFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// GET /api/v1/me
func (h *Handler) GetProfile(c *gin.Context) {
	organiser, err := h.Organisers.Get(c.Request.Context(), utils.GetCurrentOrganiserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", organiser.ToResponse())
}

// PUT /api/v1/me/fcm-token
func (h *Handler) UpdateFCMToken(c *gin.Context) {
	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := h.Organisers.UpdateFCMToken(c.Request.Context(), utils.GetCurrentOrganiserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "FCM token updated", nil)
}

// GET /api/v1/organisers
func (h *Handler) ListOrganisers(c *gin.Context) {
	organisers, err := h.Organisers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]models.OrganiserResponse, len(organisers))
	for i := range organisers {
		resp[i] = organisers[i].ToResponse()
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// GET /api/v1/senders
func (h *Handler) ListSenders(c *gin.Context) {
	senders, err := h.Senders.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]models.SenderResponse, len(senders))
	for i := range senders {
		resp[i] = senders[i].ToResponse()
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}
