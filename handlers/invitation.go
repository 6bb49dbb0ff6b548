package handlers

import (
	"net/http"
	"time"
	"topper-backend/models"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
)

func invitationResponses(invitations []models.StorySender) []models.StorySenderResponse {
	resp := make([]models.StorySenderResponse, len(invitations))
	for i := range invitations {
		resp[i] = invitations[i].ToResponse()
	}
	return resp
}

// POST /api/v1/stories/:id/invitations
func (h *Handler) InviteSender(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	var req models.InviteSenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	inv, err := h.Invitations.InviteByEmail(c.Request.Context(), utils.GetCurrentOrganiserID(c), storyID, req.Email, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Sender invited", inv.ToResponse())
}

// GET /api/v1/stories/:id/invitations
func (h *Handler) ListStoryInvitations(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	story, err := h.Stories.Get(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if story.OrganiserID != utils.GetCurrentOrganiserID(c) {
		utils.ErrorResponse(c, http.StatusForbidden, "Story belongs to another organiser")
		return
	}

	invitations, err := h.Invitations.ListForStory(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", invitationResponses(invitations))
}

// GET /api/v1/story-senders
func (h *Handler) ListStorySenders(c *gin.Context) {
	invitations, err := h.Invitations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", invitationResponses(invitations))
}

// POST /api/v1/invitations/:id/send
func (h *Handler) SendInvitation(c *gin.Context) {
	invitationID, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	var req models.SendInvitationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
	}
	ttl := h.InvitationTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	inv, err := h.Invitations.Send(c.Request.Context(), utils.GetCurrentOrganiserID(c), invitationID, ttl)
	if err != nil {
		if inv != nil && respondPartial(c, err, inv.ToResponse()) {
			return
		}
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", inv.ToResponse())
}

// POST /api/v1/invitations/:id/revoke
func (h *Handler) RevokeInvitation(c *gin.Context) {
	invitationID, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	if _, err := h.Invitations.CheckOwner(c.Request.Context(), utils.GetCurrentOrganiserID(c), invitationID); err != nil {
		respondError(c, err)
		return
	}
	inv, err := h.Invitations.Revoke(c.Request.Context(), invitationID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation revoked", inv.ToResponse())
}

// POST /api/v1/invitations/:id/remind
func (h *Handler) RemindInvitation(c *gin.Context) {
	invitationID, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	inv, err := h.Invitations.RemindAndNotify(c.Request.Context(), utils.GetCurrentOrganiserID(c), invitationID)
	if err != nil {
		if inv != nil && respondPartial(c, err, inv.ToResponse()) {
			return
		}
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Reminder recorded", inv.ToResponse())
}

// DELETE /api/v1/invitations/:id
func (h *Handler) DeleteInvitation(c *gin.Context) {
	invitationID, ok := paramUUID(c, "id", "invitation")
	if !ok {
		return
	}

	if err := h.Invitations.Delete(c.Request.Context(), utils.GetCurrentOrganiserID(c), invitationID); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation deleted", nil)
}

// POST /api/v1/invitations/accept
func (h *Handler) AcceptInvitation(c *gin.Context) {
	var req models.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	inv, err := h.Invitations.Accept(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Invitation accepted", inv.ToResponse())
}
