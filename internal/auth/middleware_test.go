package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartattendance/internal/apperr"
	"smartattendance/internal/model"
)

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", RequireAuth(testKey, testIssuer))
	g.GET("/me", func(c *gin.Context) {
		id, _ := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role})
	})
	g.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r http.Handler, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r := newGuardedRouter()
	student, err := Issue("s1", model.RoleStudent, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	expired, err := Issue("s1", model.RoleStudent, testIssuer, testKey, -time.Second)
	require.NoError(t, err)

	rec := doGet(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), string(apperr.CodeUnauthenticated))

	rec = doGet(r, "/me", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doGet(r, "/me", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doGet(r, "/me", "Bearer "+expired.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGet(r, "/me", "Bearer "+student.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"s1","role":"student"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newGuardedRouter()
	student, err := Issue("s1", model.RoleStudent, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	admin, err := Issue("a1", model.RoleAdmin, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	rec := doGet(r, "/admin", "Bearer "+student.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied")

	rec = doGet(r, "/admin", "bearer "+admin.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequire(t *testing.T) {
	id := Identity{UserID: "t1", Role: model.RoleTeacher}
	assert.NoError(t, Require(id, model.RoleTeacher, model.RoleAdmin))
	err := Require(id, model.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}
