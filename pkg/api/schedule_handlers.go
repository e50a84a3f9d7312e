package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/httputil"
	"github.com/flowdeck/flowdeck/pkg/schedules"
)

// ScheduleHandlers handles schedule HTTP requests.
type ScheduleHandlers struct {
	schedules *schedules.Service
}

// NewScheduleHandlers creates a new ScheduleHandlers.
func NewScheduleHandlers(service *schedules.Service) *ScheduleHandlers {
	return &ScheduleHandlers{schedules: service}
}

// RegisterRoutes registers schedule routes.
func (h *ScheduleHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/schedules", h.CreateSchedule).Methods("POST")
	router.HandleFunc("/schedules", h.ListSchedules).Methods("GET")
	router.HandleFunc("/schedules/{id}", h.GetSchedule).Methods("GET")
	router.HandleFunc("/schedules/{id}", h.UpdateSchedule).Methods("PUT")
	router.HandleFunc("/schedules/{id}", h.DeleteSchedule).Methods("DELETE")
}

type scheduleRequest struct {
	FlowID   string `json:"flow_id"`
	CronExpr string `json:"cron_expr"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// CreateSchedule adds a cron trigger for a flow.
func (h *ScheduleHandlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.FlowID, "flow_id") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CronExpr, "cron_expr") {
		return
	}

	sched := &schedules.Schedule{
		FlowID:   req.FlowID,
		CronExpr: req.CronExpr,
	}
	if err := h.schedules.Create(r.Context(), sched); err != nil {
		writeScheduleError(w, err)
		return
	}
	httputil.WriteCreated(w, sched)
}

// ListSchedules returns the active tenant's schedules.
func (h *ScheduleHandlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.schedules.List(r.Context(), limit, offset)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"schedules": list})
}

// GetSchedule returns one schedule.
func (h *ScheduleHandlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.schedules.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	httputil.WriteSuccess(w, sched)
}

// UpdateSchedule modifies a schedule's expression or enabled state.
func (h *ScheduleHandlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CronExpr, "cron_expr") {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sched := &schedules.Schedule{
		ID:       mux.Vars(r)["id"],
		CronExpr: req.CronExpr,
		Enabled:  enabled,
	}
	if err := h.schedules.Update(r.Context(), sched); err != nil {
		writeScheduleError(w, err)
		return
	}
	httputil.WriteSuccess(w, sched)
}

// DeleteSchedule removes one schedule.
func (h *ScheduleHandlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.schedules.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeScheduleError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func writeScheduleError(w http.ResponseWriter, err error) {
	if errors.Is(err, schedules.ErrInvalidCron) {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	httputil.WriteAuthzError(w, err)
}
