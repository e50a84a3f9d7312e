package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/agents"
	"github.com/flowdeck/flowdeck/pkg/flows"
	"github.com/flowdeck/flowdeck/pkg/groups"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/middleware"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/schedules"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// Server is the HTTP API server.
type Server struct {
	router *mux.Router

	contextHandlers  *ContextHandlers
	groupHandlers    *GroupHandlers
	adminHandlers    *AdminHandlers
	agentHandlers    *AgentHandlers
	flowHandlers     *FlowHandlers
	scheduleHandlers *ScheduleHandlers
}

// Deps carries everything the server wires together.
type Deps struct {
	Builder   *tenantctx.Builder
	Users     identity.Store
	Groups    *groups.Service
	Agents    *agents.Service
	Flows     *flows.Service
	Schedules *schedules.Service
	Redis     *redis.Client
	Metrics   *observability.Metrics
	Logger    *observability.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		contextHandlers:  NewContextHandlers(),
		groupHandlers:    NewGroupHandlers(deps.Groups),
		adminHandlers:    NewAdminHandlers(deps.Users, deps.Groups),
		agentHandlers:    NewAgentHandlers(deps.Agents),
		flowHandlers:     NewFlowHandlers(deps.Flows),
		scheduleHandlers: NewScheduleHandlers(deps.Schedules),
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(middleware.RequestIDMiddleware)
	if deps.Metrics != nil {
		s.router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	s.router.Use(middleware.NewRateLimitMiddleware(deps.Redis).Handler)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	idmw := middleware.NewIdentityMiddleware(deps.Builder, deps.Metrics, deps.Logger)
	v1.Use(idmw.Handler)

	s.contextHandlers.RegisterRoutes(v1)
	s.groupHandlers.RegisterRoutes(v1)
	s.adminHandlers.RegisterRoutes(v1)
	s.agentHandlers.RegisterRoutes(v1)
	s.flowHandlers.RegisterRoutes(v1)
	s.scheduleHandlers.RegisterRoutes(v1)
}

// Router exposes the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}
