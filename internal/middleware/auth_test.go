package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/config"
	"carpool/internal/domain"
)

func roleGateRouter(role string, allowed func(domain.Role) bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/guarded", func(c *gin.Context) {
		if role != "" {
			c.Set(ContextRole, role)
		}
	}, RequireRole(allowed), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		role     string
		allowed  func(domain.Role) bool
		wantCode int
	}{
		{"passenger may book", string(domain.RolePassenger), domain.Role.CanBook, http.StatusNoContent},
		{"both may book", string(domain.RoleBoth), domain.Role.CanBook, http.StatusNoContent},
		{"driver may not book", string(domain.RoleDriver), domain.Role.CanBook, http.StatusForbidden},
		{"driver may publish", string(domain.RoleDriver), domain.Role.CanDrive, http.StatusNoContent},
		{"passenger may not publish", string(domain.RolePassenger), domain.Role.CanDrive, http.StatusForbidden},
		{"missing role is rejected", "", domain.Role.CanBook, http.StatusForbidden},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := roleGateRouter(tc.role, tc.allowed)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			router.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Errorf("expected status %d, got %d", tc.wantCode, w.Code)
			}
		})
	}
}

func TestAuthMiddleware_TokenRoleReachesRoleGate(t *testing.T) {
	t.Parallel()

	cfg := &config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour}
	token, err := GenerateToken(&domain.User{ID: "user-1", Role: domain.RoleDriver}, cfg)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bookings", AuthMiddleware(cfg), RequireRole(domain.Role.CanBook), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected a driver token to be rejected with 403, got %d", w.Code)
	}
}
