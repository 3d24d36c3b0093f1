package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/apperr"
	"smartattendance/internal/model"
)

const ctxIdentityKey = "identity"

// RequireAuth enforces bearer JWT tokens signed with HS256. A missing or
// unparseable credential is 401; a credential that fails verification is 403.
func RequireAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			abort(c, apperr.Unauthenticated("missing bearer token"))
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		if tokenStr == "" {
			abort(c, apperr.Unauthenticated("missing bearer token"))
			return
		}
		id, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			if errors.Is(err, errMalformed) {
				abort(c, apperr.Unauthenticated("malformed token"))
				return
			}
			abort(c, apperr.Forbidden("invalid or expired token"))
			return
		}
		c.Set(ctxIdentityKey, id)
		c.Next()
	}
}

// RequireRole allows only the given roles through. Must run after RequireAuth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			abort(c, apperr.Unauthenticated("missing identity"))
			return
		}
		if err := Require(id, roles...); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

// Require is the capability check used at the top of role-gated operations.
func Require(id Identity, roles ...model.Role) error {
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("access denied")
}

// FromContext returns the identity stored by RequireAuth.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), apperr.Body(err))
}
