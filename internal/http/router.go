// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiftroute/internal/ai"
	"shiftroute/internal/http/handlers"
	"shiftroute/internal/http/middleware"
	"shiftroute/internal/infra"
)

type RouterDeps struct {
	Planner  handlers.Planner
	History  handlers.History
	Briefer  ai.Briefer
	Quota    handlers.Quota
	Verifier infra.TokenVerifier
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	plannerHandler := handlers.NewPlannerHandler(deps.Planner)
	api.POST("/routes/optimize", plannerHandler.Optimize)
	api.POST("/dropoffs/evaluate", plannerHandler.Evaluate)
	api.POST("/pickups/recommend", plannerHandler.Recommend)

	historyHandler := handlers.NewHistoryHandler(deps.History, deps.Briefer, deps.Quota)
	api.GET("/routes", historyHandler.List)
	api.GET("/routes/:id", historyHandler.Get)
	api.POST("/routes/:id/briefing", historyHandler.Brief)

	return r
}
