package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"cybershield/internal/models"
	"cybershield/internal/service"
)

func signToken(t *testing.T, userID int64, isAdmin bool, expiresAt time.Time) string {
	t.Helper()
	claims := &models.Claims{
		UserID:   userID,
		Username: "alice",
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.GetJWTSecret())
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := r.Group("/", AuthMiddleware(zap.NewNop()))
	auth.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	auth.GET("/admin", AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newProtectedRouter()
	token := signToken(t, 7, false, time.Now().Add(time.Hour))

	if w := get(r, "/me", "Bearer "+token); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"not a token", "Bearer garbage"},
		{"expired", "Bearer " + signToken(t, 7, false, time.Now().Add(-time.Hour))},
	}
	for _, tt := range tests {
		if w := get(r, "/me", tt.authorization); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestAdminOnly(t *testing.T) {
	r := newProtectedRouter()

	user := signToken(t, 7, false, time.Now().Add(time.Hour))
	if w := get(r, "/admin", "Bearer "+user); w.Code != http.StatusForbidden {
		t.Errorf("non-admin: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	admin := signToken(t, 1, true, time.Now().Add(time.Hour))
	if w := get(r, "/admin", "Bearer "+admin); w.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want %d", w.Code, http.StatusOK)
	}
}
