package handlers

import (
	"net/http"
	"strings"
	"topper-backend/models"
	"topper-backend/services"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
)

const invitationTokenHeader = "X-Invitation-Token"

// POST /api/v1/contributions
func (h *Handler) SubmitContribution(c *gin.Context) {
	var req models.SubmitContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	contribution, err := h.Contributions.SubmitWithToken(c.Request.Context(), c.GetHeader(invitationTokenHeader), services.SubmitInput{
		Kind:           req.Kind,
		MediaURL:       req.MediaURL,
		YouTubeVideoID: req.YouTubeVideoID,
		Content:        req.Content,
		Caption:        req.Caption,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Contribution received", contribution)
}

// POST /api/v1/contributions/upload (multipart: file, kind, caption)
func (h *Handler) UploadContribution(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.BadRequest(c, "file could not be read")
		return
	}
	defer file.Close()

	var caption *string
	if v := strings.TrimSpace(c.PostForm("caption")); v != "" {
		caption = &v
	}

	contribution, err := h.Contributions.Upload(c.Request.Context(), c.GetHeader(invitationTokenHeader), services.UploadInput{
		Kind:        models.ContributionKind(c.PostForm("kind")),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
		Caption:     caption,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Contribution uploaded", contribution)
}

// PATCH /api/v1/contributions/:id/moderation
func (h *Handler) ModerateContribution(c *gin.Context) {
	contributionID, ok := paramUint(c, "id", "contribution")
	if !ok {
		return
	}

	var req models.ModerateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	contribution, err := h.Contributions.Moderate(c.Request.Context(), utils.GetCurrentOrganiserID(c), contributionID, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Contribution moderated", contribution)
}
