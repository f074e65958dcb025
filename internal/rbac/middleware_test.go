package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"claims-dialer/internal/auth"

	"github.com/gin-gonic/gin"
)

func doRequest(t *testing.T, role string, mw gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
		}
		c.Next()
	})
	r.GET("/x", mw, func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole(t *testing.T) {
	mw := RequireAnyRole(RoleTelemarketer, RoleAgent)

	if got := doRequest(t, RoleTelemarketer, mw); got != http.StatusOK {
		t.Fatalf("telemarketer: expected 200, got %d", got)
	}
	if got := doRequest(t, RoleAdmin, mw); got != http.StatusOK {
		t.Fatalf("admin bypass: expected 200, got %d", got)
	}
	if got := doRequest(t, "viewer", mw); got != http.StatusForbidden {
		t.Fatalf("viewer: expected 403, got %d", got)
	}
	if got := doRequest(t, "", mw); got != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", got)
	}
}
