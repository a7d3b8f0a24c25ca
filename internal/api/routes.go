package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the /v1 endpoints:
//
//	POST /v1/simulate - depletion risk of one plan
//	POST /v1/solve    - savings needed for a target risk
//	POST /v1/sweep    - required savings along one factor
//	POST /v1/cascade  - risk curves over starting assets
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/simulate", h.HandleSimulate)
	rg.POST("/solve", h.HandleSolve)
	rg.POST("/sweep", h.HandleSweep)
	rg.POST("/cascade", h.HandleCascade)
}

// NewRouter builds the engine with health and metrics endpoints.
// A nil metrics handler leaves /metrics unregistered.
func NewRouter(h *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", h.HandleHealth)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	RegisterRoutes(router.Group("/v1"), h)
	return router
}
