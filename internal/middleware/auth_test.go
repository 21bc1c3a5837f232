package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(GetJWTSecret())
	require.NoError(t, err)
	return signed
}

// newGuardedRouter seeds one role with leave.decide and wires both guard
// styles in front of a trivial handler.
func newGuardedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-signing-key")

	dsn := "file:" + t.TempDir() + "/test.db?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.Permission{}))

	decide := model.Permission{Code: "leave.decide", Name: "Decide leave requests", Group: "leave"}
	require.NoError(t, db.Create(&decide).Error)
	require.NoError(t, db.Create(&model.Role{
		Name:        model.RoleHR,
		IsSystem:    true,
		Permissions: []model.Permission{decide},
	}).Error)
	require.NoError(t, db.Create(&model.Role{Name: model.RoleCashier, IsSystem: true}).Error)

	InitPermissionMiddleware(db)
	ClearPermissionCache("")

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router := gin.New()
	router.GET("/audit", RequireRole(model.RoleAdmin, model.RoleSupervisor), ok)
	router.GET("/decide", RequirePermission("leave.decide"), ok)
	return router
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	router := newGuardedRouter(t)

	assert.Equal(t, http.StatusOK, get(router, "/audit", signToken(t, model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/audit", signToken(t, model.RoleCashier)).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/audit", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/audit", "not-a-jwt").Code)
}

func TestRequirePermission(t *testing.T) {
	router := newGuardedRouter(t)

	// hr carries leave.decide; cashier does not.
	assert.Equal(t, http.StatusOK, get(router, "/decide", signToken(t, model.RoleHR)).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/decide", signToken(t, model.RoleCashier)).Code)
}

func TestRequirePermissionCacheInvalidation(t *testing.T) {
	router := newGuardedRouter(t)
	token := signToken(t, model.RoleCashier)

	// Prime the cache with cashier's empty grant set, then widen the role.
	assert.Equal(t, http.StatusForbidden, get(router, "/decide", token).Code)

	var role model.Role
	require.NoError(t, permDB.Where("name = ?", model.RoleCashier).First(&role).Error)
	var decide model.Permission
	require.NoError(t, permDB.Where("code = ?", "leave.decide").First(&decide).Error)
	require.NoError(t, permDB.Model(&role).Association("Permissions").Append(&decide))

	// The stale cache still answers until it is cleared.
	assert.Equal(t, http.StatusForbidden, get(router, "/decide", token).Code)

	ClearPermissionCache(model.RoleCashier)
	assert.Equal(t, http.StatusOK, get(router, "/decide", token).Code)
}
