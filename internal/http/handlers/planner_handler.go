// README: Planner handlers: route optimization, drop-off evaluation and pickup recommendation.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiftroute/internal/http/middleware"
	"shiftroute/internal/modules/planner"
	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

// Planner is the subset of planner.Service the handlers call.
type Planner interface {
	OptimizeRoute(ctx context.Context, req planner.OptimizeRequest) (route.Route, error)
	EvaluateDropoffs(ctx context.Context, req planner.EvaluateRequest) ([]planner.DropoffEvaluation, error)
	RecommendPickups(ctx context.Context, req planner.RecommendRequest) (planner.PickupRecommendation, error)
}

type PlannerHandler struct {
	planner Planner
}

func NewPlannerHandler(p Planner) *PlannerHandler {
	return &PlannerHandler{planner: p}
}

// Optimize handles POST /api/routes/optimize.
func (h *PlannerHandler) Optimize(c *gin.Context) {
	var req planner.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Owner = types.ID(middleware.CallerUID(c))

	r, err := h.planner.OptimizeRoute(c.Request.Context(), req)
	if err != nil {
		writePlannerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

// Evaluate handles POST /api/dropoffs/evaluate.
func (h *PlannerHandler) Evaluate(c *gin.Context) {
	var req planner.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ranked, err := h.planner.EvaluateDropoffs(c.Request.Context(), req)
	if err != nil {
		writePlannerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"candidates": ranked})
}

// Recommend handles POST /api/pickups/recommend.
func (h *PlannerHandler) Recommend(c *gin.Context) {
	var req planner.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	rec, err := h.planner.RecommendPickups(c.Request.Context(), req)
	if err != nil {
		writePlannerError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rec)
}
