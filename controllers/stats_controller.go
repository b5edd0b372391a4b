package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/connectbuzz/connectbuzz/middleware"
	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

// ClientCounter reports how many realtime connections are open.
type ClientCounter interface {
	Clients() int
}

// StatsController exposes counters and the health check.
type StatsController struct {
	content *services.ContentService
	relay   ClientCounter
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(content *services.ContentService, relay ClientCounter) *StatsController {
	return &StatsController{content: content, relay: relay}
}

// TotalPosts answers the estimated post count as a bare number.
func (s *StatsController) TotalPosts(ctx *gin.Context) {
	n, err := s.content.Count(ctx.Request.Context())
	if err != nil {
		middleware.RespondError(ctx, err)
		return
	}
	utils.Success(ctx, n)
}

// Health reports liveness along with the number of connected realtime clients.
func (s *StatsController) Health(ctx *gin.Context) {
	out := gin.H{"status": "ok"}
	if s.relay != nil {
		out["realtime_clients"] = s.relay.Clients()
	}
	utils.Success(ctx, out)
}
