package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-service/common/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, roles ...string) (*gin.Engine, *auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(tokens)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		p, err := GetPrincipal(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": p.UserID, "role": p.Role, "uid": c.GetString(UserContextKey)})
	})
	router.GET("/private", handlers...)
	return router, tokens
}

func get(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAuthMiddleware(t *testing.T) {
	router, tokens := newRouter(t)

	t.Run("Missing token - 401", func(t *testing.T) {
		recorder := get(router, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.JSONEq(t, `{"message":"Not authorized, no token"}`, recorder.Body.String())
	})

	t.Run("Wrong scheme - 401", func(t *testing.T) {
		recorder := get(router, "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Forged token - 401", func(t *testing.T) {
		other, err := auth.NewTokenService("other-secret", time.Hour)
		require.NoError(t, err)
		token, _, err := other.Generate(auth.Principal{UserID: "u1", Role: "user"})
		require.NoError(t, err)

		recorder := get(router, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "token failed")
	})

	t.Run("Valid token - 200", func(t *testing.T) {
		token, _, err := tokens.Generate(auth.Principal{UserID: "u1", Email: "u1@example.com", Role: "seller"})
		require.NoError(t, err)

		recorder := get(router, "Bearer "+token)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"user":"u1","role":"seller","uid":"u1"}`, recorder.Body.String())
	})
}

func TestRequireRoles(t *testing.T) {
	router, tokens := newRouter(t, "seller", "admin")

	buyer, _, err := tokens.Generate(auth.Principal{UserID: "u1", Role: "user"})
	require.NoError(t, err)
	recorder := get(router, "Bearer "+buyer)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "insufficient role")

	admin, _, err := tokens.Generate(auth.Principal{UserID: "a1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "Bearer "+admin).Code)
}

func TestRequireRoles_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/private", RequireRoles("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
}
