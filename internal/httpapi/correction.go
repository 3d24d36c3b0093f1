package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/correction"
)

// POST /api/correction-requests
func (h *handler) fileCorrection(c *gin.Context) {
	var req correction.FileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	cr, err := h.svc.Corrections.File(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cr)
}

// GET /api/correction-requests/student/:id
func (h *handler) listStudentCorrections(c *gin.Context) {
	studentID := c.Param("id")
	if err := selfOrStaff(identity(c), studentID); err != nil && !h.isParentOf(c, studentID) {
		h.fail(c, err)
		return
	}
	views, err := h.svc.Corrections.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GET /api/admin/correction-requests
func (h *handler) listAllCorrections(c *gin.Context) {
	views, err := h.svc.Corrections.ListAll(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// PUT /api/admin/correction-requests/:id
func (h *handler) resolveCorrection(c *gin.Context) {
	var req correction.ResolveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	cr, err := h.svc.Corrections.Resolve(c.Request.Context(), identity(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}
