package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-service/common/auth"
	"marketplace-service/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	buyerID  = "64b000000000000000000001"
	sellerID = "64b000000000000000000002"
	adminID  = "64b000000000000000000003"
)

var (
	buyer  = auth.Principal{UserID: buyerID, Email: "buyer@example.com", Role: "user"}
	seller = auth.Principal{UserID: sellerID, Email: "seller@example.com", Role: "seller"}
	admin  = auth.Principal{UserID: adminID, Email: "admin@example.com", Role: "admin"}
)

// newRouter returns an engine that authenticates every request as p.
func newRouter(p auth.Principal) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.PrincipalContextKey, p)
		c.Next()
	})
	return router
}

func perform(router *gin.Engine, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func performJSON(router *gin.Engine, method, path, payload string) *httptest.ResponseRecorder {
	return perform(router, method, path, bytes.NewBufferString(payload), "application/json")
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}
