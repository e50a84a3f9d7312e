package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/groups"
	"github.com/flowdeck/flowdeck/pkg/httputil"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// AdminHandlers handles the system-admin-only surface: team creation, user
// listing, and admin flag management.
type AdminHandlers struct {
	users  identity.Store
	groups *groups.Service
}

// NewAdminHandlers creates a new AdminHandlers.
func NewAdminHandlers(users identity.Store, groupService *groups.Service) *AdminHandlers {
	return &AdminHandlers{users: users, groups: groupService}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireSystemAdmin)

	admin.HandleFunc("/groups", h.CreateTeam).Methods("POST")
	admin.HandleFunc("/groups", h.ListTeams).Methods("GET")
	admin.HandleFunc("/users", h.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}/system-admin", h.SetSystemAdmin).Methods("PUT")
}

// requireSystemAdmin gates the whole subtree on the user-level flag rather
// than any tenant role.
func (h *AdminHandlers) requireSystemAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantctx.FromContext(r.Context())
		if !ok {
			httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
			return
		}
		if !tc.IsSystemAdmin() {
			httputil.WriteForbidden(w, "system admin required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createTeamRequest struct {
	ID          string `json:"id,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateTeam creates a team tenant.
func (h *AdminHandlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	g, err := h.groups.CreateTeam(r.Context(), req.ID, req.Domain, req.Name, req.Description)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteCreated(w, g)
}

// ListTeams returns all team tenants.
func (h *AdminHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	teams, err := h.groups.ListTeams(r.Context(), limit, offset)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"groups": teams})
}

// ListUsers returns all users.
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteAuthzError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"users": users})
}

type systemAdminRequest struct {
	Grant bool `json:"grant"`
}

// SetSystemAdmin grants or revokes the system-wide admin flag.
func (h *AdminHandlers) SetSystemAdmin(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req systemAdminRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.users.SetSystemAdmin(r.Context(), userID, req.Grant); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteAuthzError(w, err)
		return
	}

	eventType := audit.EventTypeAdminGrant
	if !req.Grant {
		eventType = audit.EventTypeAdminRevoke
	}
	tc, _ := tenantctx.FromContext(r.Context())
	audit.Record(r.Context(), &audit.Event{
		EventType:    eventType,
		Status:       audit.EventStatusSuccess,
		UserID:       tc.UserID(),
		ResourceType: "user",
		ResourceID:   userID,
	})
	httputil.WriteSuccess(w, map[string]string{"status": "updated"})
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = httputil.ParseQueryInt(r, "limit", 50)
	offset, _ = httputil.ParseQueryInt(r, "offset", 0)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
