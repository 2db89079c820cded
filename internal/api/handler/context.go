package handler

import (
	"net/http"

	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/auth"
)

// principal returns the caller identity set by the auth middleware. It
// writes a 401 and reports false when the request is unauthenticated.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok || p.TenantID == "" {
		response.Unauthorized(w, r, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}
