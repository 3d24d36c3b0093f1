package httpapi

import (
	"github.com/gin-gonic/gin"

	"smartattendance/internal/apperr"
	"smartattendance/internal/auth"
	"smartattendance/internal/model"
)

// fail writes err. Domain errors are expected and not logged.
func (h *handler) fail(c *gin.Context, err error) {
	if !apperr.IsDomain(err) {
		h.log.Error("request failed", err, map[string]any{
			"method": c.Request.Method,
			"route":  c.FullPath(),
		})
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), apperr.Body(err))
}

func (h *handler) badRequest(c *gin.Context, msg string) {
	h.fail(c, apperr.Invalid(msg))
}

// identity returns the authenticated caller; routes under RequireAuth always have one.
func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c)
	return id
}

// selfOrStaff lets students and parents read only their own data.
func selfOrStaff(id auth.Identity, userID string) error {
	if id.UserID == userID || id.Role == model.RoleTeacher || id.Role == model.RoleAdmin {
		return nil
	}
	return apperr.Forbidden("access denied")
}
