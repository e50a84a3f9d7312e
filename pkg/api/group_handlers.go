package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/groups"
	"github.com/flowdeck/flowdeck/pkg/httputil"
	"github.com/flowdeck/flowdeck/pkg/identity"
	"github.com/flowdeck/flowdeck/pkg/membership"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// GroupHandlers handles tenant and roster HTTP requests.
type GroupHandlers struct {
	groups *groups.Service
}

// NewGroupHandlers creates a new GroupHandlers.
func NewGroupHandlers(service *groups.Service) *GroupHandlers {
	return &GroupHandlers{groups: service}
}

// RegisterRoutes registers group routes.
func (h *GroupHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/groups/{id}", h.GetGroup).Methods("GET")
	router.HandleFunc("/groups/{id}/members", h.ListMembers).Methods("GET")
	router.HandleFunc("/groups/{id}/members", h.AddMember).Methods("POST")
	router.HandleFunc("/groups/{id}/members/{user_id}", h.UpdateMember).Methods("PUT")
	router.HandleFunc("/groups/{id}/members/{user_id}", h.RemoveMember).Methods("DELETE")
}

// visibleGroup resolves {id} and applies the anti-enumeration policy: groups
// outside the caller's authorized set read as not found.
func (h *GroupHandlers) visibleGroup(w http.ResponseWriter, r *http.Request) (*tenantctx.Context, string, bool) {
	tc, ok := tenantctx.FromContext(r.Context())
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
		return nil, "", false
	}
	groupID := mux.Vars(r)["id"]
	if err := authz.SameTenantOrNotFound(tc, groupID, "group"); err != nil {
		httputil.WriteAuthzError(w, err)
		return nil, "", false
	}
	return tc, groupID, true
}

// requireGroupAdmin additionally demands that the group is the caller's
// active tenant with an admin role. Roster mutations run under the active
// tenant's resolved role, never a role recomputed ad hoc.
func (h *GroupHandlers) requireGroupAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	tc, groupID, ok := h.visibleGroup(w, r)
	if !ok {
		return "", false
	}
	if err := authz.RequireActiveTenant(tc, groupID, "group"); err != nil {
		httputil.WriteAuthzError(w, err)
		return "", false
	}
	if err := authz.Require(tc, authz.RoleAdmin); err != nil {
		httputil.WriteAuthzError(w, err)
		return "", false
	}
	return groupID, true
}

// GetGroup returns a group visible to the caller.
func (h *GroupHandlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	_, groupID, ok := h.visibleGroup(w, r)
	if !ok {
		return
	}

	g, err := h.groups.Get(r.Context(), groupID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteSuccess(w, g)
}

// ListMembers returns the group's roster.
func (h *GroupHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, groupID, ok := h.visibleGroup(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMembers(r.Context(), groupID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"members": members})
}

type memberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember adds a user to the roster.
func (h *GroupHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireGroupAdmin(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "user_id") {
		return
	}
	role, valid := authz.ParseRole(req.Role)
	if !valid {
		httputil.WriteValidationError(w, "invalid role: "+req.Role)
		return
	}

	if err := h.groups.AddMember(r.Context(), groupID, req.UserID, role); err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteCreated(w, map[string]string{"status": "added"})
}

// UpdateMember changes a member's role.
func (h *GroupHandlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireGroupAdmin(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["user_id"]

	var req memberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, valid := authz.ParseRole(req.Role)
	if !valid {
		httputil.WriteValidationError(w, "invalid role: "+req.Role)
		return
	}

	if err := h.groups.UpdateMemberRole(r.Context(), groupID, userID, role); err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": "updated"})
}

// RemoveMember removes a user from the roster.
func (h *GroupHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.requireGroupAdmin(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["user_id"]

	if err := h.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		writeGroupError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, groups.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, membership.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, groups.ErrAlreadyExists):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, groups.ErrReservedID),
		errors.Is(err, groups.ErrInvalidRole),
		errors.Is(err, groups.ErrNotTeam):
		httputil.WriteValidationError(w, err.Error())
	default:
		httputil.WriteAuthzError(w, err)
	}
}
