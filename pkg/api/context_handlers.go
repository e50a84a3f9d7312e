package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/httputil"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// ContextHandlers exposes the caller's resolved tenant binding.
type ContextHandlers struct{}

// NewContextHandlers creates a new ContextHandlers.
func NewContextHandlers() *ContextHandlers {
	return &ContextHandlers{}
}

// RegisterRoutes registers identity introspection routes.
func (h *ContextHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me", h.WhoAmI).Methods("GET")
	router.HandleFunc("/me/tenants", h.ListTenants).Methods("GET")
}

// whoAmIResponse mirrors the request's tenant context. The authorized list
// only ever contains the caller's own tenants, so returning it leaks nothing.
type whoAmIResponse struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	Domain        string     `json:"domain"`
	Tenant        string     `json:"tenant"`
	EffectiveRole authz.Role `json:"effective_role"`
	IsSystemAdmin bool       `json:"is_system_admin"`
	Authorized    []string   `json:"authorized_tenants"`
}

// WhoAmI returns the caller's identity and active tenant binding.
func (h *ContextHandlers) WhoAmI(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantctx.FromContext(r.Context())
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
		return
	}

	httputil.WriteSuccess(w, whoAmIResponse{
		UserID:        tc.UserID(),
		Email:         tc.Email(),
		Domain:        tc.Domain(),
		Tenant:        tc.Primary(),
		EffectiveRole: tc.EffectiveRole(),
		IsSystemAdmin: tc.IsSystemAdmin(),
		Authorized:    tc.AuthorizedTenants(),
	})
}

// ListTenants returns the caller's authorized tenant ids.
func (h *ContextHandlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenantctx.FromContext(r.Context())
	if !ok {
		httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"tenants": tc.AuthorizedTenants(),
		"primary": tc.Primary(),
	})
}
