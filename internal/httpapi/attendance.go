package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/attendance"
	"smartattendance/internal/model"
)

// POST /api/attendance
func (h *handler) recordBatch(c *gin.Context) {
	var req attendance.BatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	recs, err := h.svc.Attendance.RecordBatch(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "count": len(recs)})
}

// GET /api/attendance/student/:id
func (h *handler) listAttendance(c *gin.Context) {
	studentID := c.Param("id")
	if err := selfOrStaff(identity(c), studentID); err != nil && !h.isParentOf(c, studentID) {
		h.fail(c, err)
		return
	}
	views, err := h.svc.Attendance.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// POST /api/attendance/face-recognition
func (h *handler) recordFace(c *gin.Context) {
	var req attendance.FaceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	rec, err := h.svc.Attendance.RecordFaceRecognition(c.Request.Context(), identity(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "attendance": rec})
}

// POST /api/attendance/qr-code
func (h *handler) recordQR(c *gin.Context) {
	var req attendance.QRInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	id := identity(c)
	if id.Role == model.RoleStudent {
		if req.StudentID == "" {
			req.StudentID = id.UserID
		}
		if err := selfOrStaff(id, req.StudentID); err != nil {
			h.fail(c, err)
			return
		}
	}
	rec, err := h.svc.Attendance.RecordQR(c.Request.Context(), id.UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully", "attendance": rec})
}

// POST /api/qr-code/generate
func (h *handler) generateQR(c *gin.Context) {
	var req attendance.GenerateQRInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid json")
		return
	}
	data, err := h.svc.Attendance.GenerateQR(identity(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qrData": data})
}

// GET /api/qr-code/image?data=&size=
func (h *handler) qrImage(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		h.badRequest(c, "data is required")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := attendance.RenderQR(data, size)
	if err != nil {
		h.badRequest(c, "data cannot be encoded as a QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/analytics/attendance/:class?startDate=&endDate=
func (h *handler) analytics(c *gin.Context) {
	var from, to *time.Time
	if s, e := c.Query("startDate"), c.Query("endDate"); s != "" || e != "" {
		start, err1 := time.ParseInLocation("2006-01-02", s, time.UTC)
		end, err2 := time.ParseInLocation("2006-01-02", e, time.UTC)
		if err1 != nil || err2 != nil {
			h.badRequest(c, "startDate and endDate must both be YYYY-MM-DD")
			return
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		from, to = &start, &end
	}
	stats, err := h.svc.Attendance.Analytics(c.Request.Context(), c.Param("class"), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
