// README: Route history handlers: list and fetch the caller's stored routes, and brief one with the LLM.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shiftroute/internal/ai"
	"shiftroute/internal/http/middleware"
	"shiftroute/internal/modules/history"
	"shiftroute/internal/types"
)

const briefingTimeout = 20 * time.Second

type History interface {
	List(ctx context.Context, owner types.ID, limit int) ([]history.Summary, error)
	Get(ctx context.Context, owner, id types.ID) (*history.Entry, error)
}

// Quota charges one briefing to a caller and gives it back when the
// briefing could not be produced.
type Quota interface {
	UseBriefing(ctx context.Context, uid string) error
	RefundBriefing(ctx context.Context, uid string) error
}

// HistoryHandler serves stored routes. Any dependency may be nil when the
// matching backend is not configured.
type HistoryHandler struct {
	history History
	briefer ai.Briefer
	quota   Quota
}

func NewHistoryHandler(h History, briefer ai.Briefer, quota Quota) *HistoryHandler {
	return &HistoryHandler{history: h, briefer: briefer, quota: quota}
}

// List handles GET /api/routes.
func (h *HistoryHandler) List(c *gin.Context) {
	if h.history == nil {
		writeError(c, http.StatusServiceUnavailable, "route history is not configured")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	routes, err := h.history.List(c.Request.Context(), types.ID(middleware.CallerUID(c)), limit)
	if err != nil {
		writeHistoryError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"routes": routes})
}

// Get handles GET /api/routes/:id.
func (h *HistoryHandler) Get(c *gin.Context) {
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, e)
}

// Brief handles POST /api/routes/:id/briefing.
func (h *HistoryHandler) Brief(c *gin.Context) {
	if h.briefer == nil {
		writeError(c, http.StatusServiceUnavailable, "briefings are not configured")
		return
	}
	e, ok := h.lookup(c)
	if !ok {
		return
	}
	uid := middleware.CallerUID(c)
	if h.quota != nil {
		if err := h.quota.UseBriefing(c.Request.Context(), uid); err != nil {
			writeHistoryError(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), briefingTimeout)
	defer cancel()
	b, err := h.briefer.Brief(ctx, e.Route)
	if err != nil {
		_ = c.Error(err)
		h.refund(c, uid)
		writeError(c, http.StatusBadGateway, "briefing failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"routeId": e.ID, "briefing": b})
}

func (h *HistoryHandler) refund(c *gin.Context, uid string) {
	if h.quota == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()
	if err := h.quota.RefundBriefing(ctx, uid); err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("failed to refund briefing")
	}
}

func (h *HistoryHandler) lookup(c *gin.Context) (*history.Entry, bool) {
	if h.history == nil {
		writeError(c, http.StatusServiceUnavailable, "route history is not configured")
		return nil, false
	}
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid route id")
		return nil, false
	}
	e, err := h.history.Get(c.Request.Context(), types.ID(middleware.CallerUID(c)), types.ID(id))
	if err != nil {
		writeHistoryError(c, err)
		return nil, false
	}
	return e, true
}
