// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shiftroute/internal/modules/aiusage"
	"shiftroute/internal/modules/history"
	"shiftroute/internal/modules/planner"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts route IDs as issued by the planner (UUIDs).
func isValidID(v string) bool {
	return uuid.Validate(v) == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePlannerError maps planner failures; anything but a bad request is
// reported as a generic computation failure.
func writePlannerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, planner.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("planner request failed")
		writeError(c, http.StatusInternalServerError, planner.ErrComputation.Error())
	}
}

func writeHistoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, history.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, aiusage.ErrQuotaExceeded):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("history request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
