package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"
	"topper-backend/services"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler holds the services behind every route.
type Handler struct {
	Organisers    *services.OrganiserService
	Senders       *services.SenderService
	Stories       *services.StoryService
	Invitations   *services.InvitationService
	Contributions *services.ContributionService
	Reveal        *services.RevealService

	// InvitationTTL applies when a send request does not choose one.
	InvitationTTL time.Duration
}

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:            http.StatusNotFound,
	services.KindTokenNotFound:       http.StatusNotFound,
	services.KindDuplicateInvitation: http.StatusConflict,
	services.KindDuplicateTopper:     http.StatusConflict,
	services.KindDuplicateEmail:      http.StatusConflict,
	services.KindCapacityExceeded:    http.StatusConflict,
	services.KindInvalidState:        http.StatusConflict,
	services.KindTokenExpired:        http.StatusGone,
	services.KindValidation:          http.StatusBadRequest,
	services.KindUnauthorized:        http.StatusUnauthorized,
	services.KindForbidden:           http.StatusForbidden,
	services.KindNotificationFailure: http.StatusAccepted,
	services.KindStorageFailure:      http.StatusInternalServerError,
}

// respondError writes a service error with its kind. Storage failures never
// expose the underlying driver message.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		log.Printf("❌ Unexpected error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.InternalError(c, "Something went wrong")
		return
	}

	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := svcErr.Message
	if svcErr.Kind == services.KindStorageFailure {
		log.Printf("❌ Storage failure on %s %s: %v", c.Request.Method, c.FullPath(), svcErr.Err)
		message = "A storage error occurred, please try again"
	}

	utils.KindErrorResponse(c, status, string(svcErr.Kind), message, svcErr.Fields)
}

// respondPartial is for operations whose main write landed but whose
// notification did not.
func respondPartial(c *gin.Context, err error, data interface{}) bool {
	if !errors.Is(err, services.ErrNotificationFailure) {
		return false
	}
	var svcErr *services.Error
	errors.As(err, &svcErr)
	c.JSON(http.StatusAccepted, utils.APIResponse{
		Success: true,
		Message: svcErr.Message,
		Data:    data,
		Kind:    string(svcErr.Kind),
	})
	return true
}

func paramUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(c.Param(name))
	if err != nil {
		utils.BadRequest(c, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func paramUint(c *gin.Context, name, label string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		utils.BadRequest(c, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}
