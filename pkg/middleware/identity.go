package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/flowdeck/flowdeck/pkg/audit"
	"github.com/flowdeck/flowdeck/pkg/authz"
	"github.com/flowdeck/flowdeck/pkg/httputil"
	"github.com/flowdeck/flowdeck/pkg/observability"
	"github.com/flowdeck/flowdeck/pkg/tenant"
	"github.com/flowdeck/flowdeck/pkg/tenantctx"
)

// Identity headers set by the trusted edge proxy. The proxy strips any
// client-supplied values before forwarding, so their presence here is
// authoritative.
const (
	HeaderForwardedEmail       = "X-Forwarded-Email"
	HeaderForwardedAccessToken = "X-Forwarded-Access-Token"
	HeaderTenantID             = "X-Tenant-Id"
	HeaderTenantDomain         = "X-Tenant-Domain"
)

// IdentityMiddleware resolves the forwarded identity into a tenant context
// and installs it on the request. Requests that cannot be resolved never
// reach the wrapped handler.
type IdentityMiddleware struct {
	builder *tenantctx.Builder
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewIdentityMiddleware creates the identity resolution middleware.
func NewIdentityMiddleware(builder *tenantctx.Builder, metrics *observability.Metrics, logger *observability.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{
		builder: builder,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler wraps an HTTP handler with identity and tenant-context resolution.
func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		email := r.Header.Get(HeaderForwardedEmail)
		accessToken := r.Header.Get(HeaderForwardedAccessToken)

		// An explicit tenant id wins; a bare domain selects that team's
		// derived tenant.
		requested := r.Header.Get(HeaderTenantID)
		if requested == "" {
			if domain := r.Header.Get(HeaderTenantDomain); domain != "" {
				requested = tenant.TeamID(domain)
			}
		}

		start := time.Now()
		tc, err := m.builder.Build(ctx, email, accessToken, requested)
		elapsed := time.Since(start)

		if err != nil {
			m.observeFailure(r, email, requested, err, elapsed)
			httputil.WriteAuthzError(w, err)
			return
		}

		if m.metrics != nil {
			m.metrics.ObserveContextBuild("success", elapsed)
		}

		ctx = tenantctx.Install(ctx, tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *IdentityMiddleware) observeFailure(r *http.Request, email, requested string, err error, elapsed time.Duration) {
	ctx := r.Context()

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		if m.metrics != nil {
			m.metrics.ObserveContextBuild("unauthenticated", elapsed)
		}
		audit.Record(ctx, &audit.Event{
			EventType: audit.EventTypeUnauthenticated,
			Status:    audit.EventStatusDenied,
			Method:    r.Method,
			Path:      r.URL.Path,
			Message:   "request missing forwarded identity",
		})

	case authz.IsAccessDenied(err):
		if m.metrics != nil {
			m.metrics.ObserveContextBuild("denied", elapsed)
			m.metrics.AccessDeniedTotal.WithLabelValues("tenant").Inc()
		}
		audit.Record(ctx, &audit.Event{
			EventType: audit.EventTypeTenantDenied,
			Status:    audit.EventStatusDenied,
			Email:     email,
			GroupID:   requested,
			Method:    r.Method,
			Path:      r.URL.Path,
			Message:   "requested tenant not in authorized set",
		})

	case authz.IsStoreUnavailable(err):
		if m.metrics != nil {
			m.metrics.ObserveContextBuild("store_error", elapsed)
		}
		m.logger.WithError(err).Error("tenant context build failed: store unavailable")

	default:
		if m.metrics != nil {
			m.metrics.ObserveContextBuild("error", elapsed)
		}
		m.logger.WithError(err).WithField("email", email).Error("tenant context build failed")
	}
}

// RequireRole gates a route on the caller's effective role in the active
// tenant. It runs after IdentityMiddleware and writes the usual authorization
// error responses itself.
func RequireRole(metrics *observability.Metrics, allowed ...authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenantctx.FromContext(r.Context())
			if !ok {
				httputil.WriteAuthzError(w, authz.ErrUnauthenticated)
				return
			}

			if err := authz.Require(tc, allowed...); err != nil {
				if metrics != nil {
					metrics.AccessDeniedTotal.WithLabelValues("role").Inc()
				}
				audit.Record(r.Context(), &audit.Event{
					EventType: audit.EventTypeRoleDenied,
					Status:    audit.EventStatusDenied,
					UserID:    tc.UserID(),
					GroupID:   tc.Primary(),
					Method:    r.Method,
					Path:      r.URL.Path,
					Message:   "effective role below required role",
				})
				httputil.WriteAuthzError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
