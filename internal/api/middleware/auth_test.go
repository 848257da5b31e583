package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khelzone/gameroom/internal/api/middleware"
)

// roleRouter builds a minimal engine with the role injected into the context
// ahead of the back-office gate, standing in for JWTMiddleware.
func roleRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping",
		func(c *gin.Context) { c.Set(middleware.CtxRole, role) },
		middleware.BackofficeMiddleware(),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

// TestBackofficeMiddleware_StaffRoles verifies every staff tier passes the
// gate, including the read-only tier.
func TestBackofficeMiddleware_StaffRoles(t *testing.T) {
	for _, role := range []string{"admin", "finance", "ops", "readonly"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		roleRouter(role).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("role %q: status = %d, want 200", role, rr.Code)
		}
	}
}

// TestBackofficeMiddleware_RejectsPlayers verifies standard players and
// unknown roles are refused.
func TestBackofficeMiddleware_RejectsPlayers(t *testing.T) {
	for _, role := range []string{"user", "", "superadmin"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		roleRouter(role).ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Errorf("role %q: status = %d, want 403", role, rr.Code)
		}
	}
}
