package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/models"
)

// APIError defines the standard error envelope.
// Example: { "error": { "code": "lost_claim_race", "message": "...", "job_id": "7" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// JSONError sends a structured error response.
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.JSON(status, errorResponse{Error: APIError{Code: code, Message: msg}})
}

func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, "bad_request", msg)
}

func Internal(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusInternalServerError, "internal_error", msg)
}

// statusForKind maps the core error taxonomy onto HTTP statuses.
var statusForKind = map[models.ErrorKind]int{
	models.KindInvalidState:      http.StatusConflict,
	models.KindStaleConflict:     http.StatusConflict,
	models.KindLostClaimRace:     http.StatusConflict,
	models.KindPermissionDenied:  http.StatusForbidden,
	models.KindDeleted:           http.StatusGone,
	models.KindTimeout:           http.StatusGatewayTimeout,
	models.KindTransactionFailed: http.StatusBadGateway,
}

// ActionFailed renders a classified action error, falling back to 500 for
// anything unclassified (which would be a bug in the core).
func ActionFailed(ctx *gin.Context, err error) {
	var ae *models.ActionError
	if !errors.As(err, &ae) {
		Internal(ctx, err.Error())
		return
	}
	status, ok := statusForKind[ae.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	ctx.JSON(status, errorResponse{Error: APIError{
		Code:    string(ae.Kind),
		Message: err.Error(),
		JobID:   ae.JobID,
		Actor:   ae.Actor,
	}})
}
