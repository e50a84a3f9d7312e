package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/agents"
	"github.com/flowdeck/flowdeck/pkg/httputil"
)

// AgentHandlers handles agent HTTP requests.
type AgentHandlers struct {
	agents *agents.Service
}

// NewAgentHandlers creates a new AgentHandlers.
func NewAgentHandlers(service *agents.Service) *AgentHandlers {
	return &AgentHandlers{agents: service}
}

// RegisterRoutes registers agent routes.
func (h *AgentHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/agents", h.CreateAgent).Methods("POST")
	router.HandleFunc("/agents", h.ListAgents).Methods("GET")
	router.HandleFunc("/agents/{id}", h.GetAgent).Methods("GET")
	router.HandleFunc("/agents/{id}", h.UpdateAgent).Methods("PUT")
	router.HandleFunc("/agents/{id}", h.DeleteAgent).Methods("DELETE")
}

type agentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateAgent registers an agent in the caller's active tenant.
func (h *AgentHandlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	a := &agents.Agent{
		Name:        req.Name,
		Description: req.Description,
		Endpoint:    req.Endpoint,
		Status:      agents.AgentStatus(req.Status),
	}
	if err := h.agents.Create(r.Context(), a); err != nil {
		writeAgentError(w, err)
		return
	}
	httputil.WriteCreated(w, a)
}

// ListAgents returns the active tenant's agents.
func (h *AgentHandlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.agents.List(r.Context(), limit, offset)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"agents": list})
}

// GetAgent returns one agent.
func (h *AgentHandlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.agents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAgentError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// UpdateAgent modifies one agent.
func (h *AgentHandlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	a := &agents.Agent{
		ID:          mux.Vars(r)["id"],
		Name:        req.Name,
		Description: req.Description,
		Endpoint:    req.Endpoint,
		Status:      agents.AgentStatus(req.Status),
	}
	if err := h.agents.Update(r.Context(), a); err != nil {
		writeAgentError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// DeleteAgent removes one agent.
func (h *AgentHandlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeAgentError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func writeAgentError(w http.ResponseWriter, err error) {
	if errors.Is(err, agents.ErrAlreadyExists) {
		httputil.WriteConflict(w, err.Error())
		return
	}
	httputil.WriteAuthzError(w, err)
}
