package middleware

import (
	"errors"
	"net/http"
	"strings"

	"marketplace-service/common/auth"
	apperrors "marketplace-service/common/errors"

	"github.com/gin-gonic/gin"
)

const PrincipalContextKey = "principal"

// UserContextKey is read by the access log.
const UserContextKey = "userID"

// TokenValidator turns a bearer token into the caller's principal.
type TokenValidator interface {
	Validate(token string) (auth.Principal, error)
}

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and stores the principal on
// the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apperrors.Abort(c, apperrors.ErrMissingToken)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token format"})
			return
		}

		principal, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			apperrors.Abort(c, apperrors.ErrInvalidToken)
			return
		}
		c.Set(PrincipalContextKey, principal)
		c.Set(UserContextKey, principal.UserID)
		c.Next()
	}
}

// RequireRoles lets the request through only when the principal holds one of roles. It must run after
// AuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := GetPrincipal(c)
		if err != nil {
			apperrors.Abort(c, apperrors.ErrUnauthorized)
			return
		}
		if !principal.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied: insufficient role"})
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) (auth.Principal, error) {
	if val, ok := c.Get(PrincipalContextKey); ok {
		if p, ok := val.(auth.Principal); ok && p.UserID != "" {
			return p, nil
		}
	}
	return auth.Principal{}, errors.New("principal not found in context")
}
