// Package v1 is the JSON HTTP surface of the session service.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/mindwell-app/mindwell/chat"
	"github.com/mindwell-app/mindwell/internal/profile"
	"github.com/mindwell-app/mindwell/server/auth"
	"github.com/mindwell-app/mindwell/server/metrics"
	"github.com/mindwell-app/mindwell/store"
)

// APIV1Service wires the HTTP handlers to the store and the orchestrator.
type APIV1Service struct {
	Profile      *profile.Profile
	Store        *store.Store
	Orchestrator *chat.Orchestrator
	Metrics      *metrics.Metrics

	turnLimiter *turnLimiter
}

// NewAPIV1Service creates the v1 service.
func NewAPIV1Service(profile *profile.Profile, st *store.Store, orchestrator *chat.Orchestrator, m *metrics.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:      profile,
		Store:        st,
		Orchestrator: orchestrator,
		Metrics:      m,
		turnLimiter:  newTurnLimiter(profile.TurnRatePerMinute),
	}
}

// RegisterRoutes registers all authenticated routes on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("", auth.Middleware(s.Store, s.Profile.Secret))
	g.GET("/sessions", s.ListSessions)
	g.POST("/turn", s.SubmitTurn, s.turnLimiter.middleware())
	g.PATCH("/sessions/:id", s.RenameSession)
	g.DELETE("/sessions/:id", s.DeleteSession)
}
