package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/flows"
	"github.com/flowdeck/flowdeck/pkg/httputil"
)

// FlowHandlers handles flow HTTP requests.
type FlowHandlers struct {
	flows *flows.Service
}

// NewFlowHandlers creates a new FlowHandlers.
func NewFlowHandlers(service *flows.Service) *FlowHandlers {
	return &FlowHandlers{flows: service}
}

// RegisterRoutes registers flow routes.
func (h *FlowHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/flows", h.CreateFlow).Methods("POST")
	router.HandleFunc("/flows", h.ListFlows).Methods("GET")
	router.HandleFunc("/flows/{id}", h.GetFlow).Methods("GET")
	router.HandleFunc("/flows/{id}", h.UpdateFlow).Methods("PUT")
	router.HandleFunc("/flows/{id}", h.DeleteFlow).Methods("DELETE")
}

type flowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Definition  string `json:"definition,omitempty"`
	Status      string `json:"status,omitempty"`
}

// CreateFlow adds a flow to the caller's active tenant.
func (h *FlowHandlers) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	f := &flows.Flow{
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Status:      flows.FlowStatus(req.Status),
	}
	if err := h.flows.Create(r.Context(), f); err != nil {
		writeFlowError(w, err)
		return
	}
	httputil.WriteCreated(w, f)
}

// ListFlows returns the active tenant's flows, optionally filtered by the
// status query parameter.
func (h *FlowHandlers) ListFlows(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := flows.FlowStatus(r.URL.Query().Get("status"))
	list, err := h.flows.List(r.Context(), status, limit, offset)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"flows": list})
}

// GetFlow returns one flow.
func (h *FlowHandlers) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, err := h.flows.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFlowError(w, err)
		return
	}
	httputil.WriteSuccess(w, f)
}

// UpdateFlow modifies one flow.
func (h *FlowHandlers) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var req flowRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	f := &flows.Flow{
		ID:          mux.Vars(r)["id"],
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Status:      flows.FlowStatus(req.Status),
	}
	if err := h.flows.Update(r.Context(), f); err != nil {
		writeFlowError(w, err)
		return
	}
	httputil.WriteSuccess(w, f)
}

// DeleteFlow removes one flow.
func (h *FlowHandlers) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := h.flows.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFlowError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func writeFlowError(w http.ResponseWriter, err error) {
	if errors.Is(err, flows.ErrAlreadyExists) {
		httputil.WriteConflict(w, err.Error())
		return
	}
	httputil.WriteAuthzError(w, err)
}
