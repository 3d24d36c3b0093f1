package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/apperr"
	"smartattendance/internal/assignment"
	"smartattendance/internal/classroom"
	"smartattendance/internal/model"
	"smartattendance/internal/notify"
	"smartattendance/internal/user"
)

// GET /api/notifications/:userId
func (h *handler) listNotifications(c *gin.Context) {
	userID := c.Param("userId")
	id := identity(c)
	if id.UserID != userID && id.Role != model.RoleAdmin {
		h.fail(c, apperr.Forbidden("access denied"))
		return
	}
	list, err := h.svc.Notifications.ListForUser(c.Request.Context(), userID, notify.DefaultListLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PUT /api/notifications/:id/read
func (h *handler) markNotificationRead(c *gin.Context) {
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// GET /api/users?role=&class=
func (h *handler) listUsers(c *gin.Context) {
	var f user.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		h.badRequest(c, "invalid query")
		return
	}
	users, err := h.svc.Users.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /api/users/:id/children
func (h *handler) listChildren(c *gin.Context) {
	parentID := c.Param("id")
	if err := selfOrStaff(identity(c), parentID); err != nil {
		h.fail(c, err)
		return
	}
	children, err := h.svc.Users.Children(c.Request.Context(), parentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}

// isParentOf reports whether the caller is a parent of studentID.
func (h *handler) isParentOf(c *gin.Context, studentID string) bool {
	id := identity(c)
	if id.Role != model.RoleParent {
		return false
	}
	children, err := h.svc.Users.Children(c.Request.Context(), id.UserID)
	if err != nil {
		return false
	}
	for _, ch := range children {
		if ch.ID == studentID {
			return true
		}
	}
	return false
}

// POST /api/assignments (JSON, or multipart with an optional "file" field)
func (h *handler) createAssignment(c *gin.Context) {
	var (
		req  assignment.CreateInput
		file *assignment.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			h.badRequest(c, "invalid form")
			return
		}
		if fh, err := c.FormFile("file"); err == nil {
			if fh.Size > assignment.MaxFileSize {
				h.badRequest(c, "file must be between 1 byte and 10MB")
				return
			}
			f, err := fh.Open()
			if err != nil {
				h.badRequest(c, "unreadable file")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				h.badRequest(c, "unreadable file")
				return
			}
			file = &assignment.Upload{Filename: fh.Filename, Data: data}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	a, err := h.svc.Assignments.Create(c.Request.Context(), identity(c).UserID, req, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// GET /api/assignments/class/:class
func (h *handler) listAssignments(c *gin.Context) {
	list, err := h.svc.Assignments.ListForClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/classes
func (h *handler) createClass(c *gin.Context) {
	var req classroom.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	cls, err := h.svc.Classes.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

// GET /api/classes
func (h *handler) listClasses(c *gin.Context) {
	list, err := h.svc.Classes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
