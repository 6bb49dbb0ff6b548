package handlers

import (
	"net/http"
	"topper-backend/models"
	"topper-backend/services"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
)

// POST /api/v1/stories
func (h *Handler) CreateStory(c *gin.Context) {
	var req models.CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	revealDate, err := services.ParseRevealDate(req.RevealDate)
	if err != nil {
		respondError(c, err)
		return
	}

	story, err := h.Stories.Create(c.Request.Context(), utils.GetCurrentOrganiserID(c), services.CreateStoryInput{
		Title:            req.Title,
		MainMessage:      req.MainMessage,
		RevealDate:       revealDate,
		QRCodeURL:        req.QRCodeURL,
		TopperIdentifier: req.TopperIdentifier,
		MaxSenders:       req.MaxSenders,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Story created", story)
}

// PUT /api/v1/stories/:id
func (h *Handler) UpdateStory(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	var req models.UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	in := services.UpdateStoryInput{
		Title:       req.Title,
		MainMessage: req.MainMessage,
		QRCodeURL:   req.QRCodeURL,
		MaxSenders:  req.MaxSenders,
	}
	if req.RevealDate != nil {
		revealDate, err := services.ParseRevealDate(*req.RevealDate)
		if err != nil {
			respondError(c, err)
			return
		}
		in.RevealDate = &revealDate
	}

	story, err := h.Stories.Update(c.Request.Context(), utils.GetCurrentOrganiserID(c), storyID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Story updated", story)
}

// DELETE /api/v1/stories/:id
func (h *Handler) DeleteStory(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	if err := h.Stories.Delete(c.Request.Context(), utils.GetCurrentOrganiserID(c), storyID); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Story deleted", nil)
}

// GET /api/v1/stories/:id
func (h *Handler) GetStory(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	story, err := h.Stories.Get(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", story)
}

// GET /api/v1/stories
func (h *Handler) ListStories(c *gin.Context) {
	stories, err := h.Stories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", stories)
}

// GET /api/v1/my-stories
func (h *Handler) ListMyStories(c *gin.Context) {
	stories, err := h.Stories.ListByOrganiser(c.Request.Context(), utils.GetCurrentOrganiserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", stories)
}

// GET /api/v1/stories/:id/contributions
func (h *Handler) GetStoryBundle(c *gin.Context) {
	storyID, ok := paramUUID(c, "id", "story")
	if !ok {
		return
	}

	bundle, err := h.Reveal.GetStoryBundle(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", bundle)
}

// GET /api/v1/toppers/:code
func (h *Handler) GetTopperBundle(c *gin.Context) {
	bundle, err := h.Reveal.GetBundleByTopper(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", bundle)
}
