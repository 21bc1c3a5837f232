package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// authAs stubs the JWT middleware by planting the actor directly in the
// request context.
func authAs(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func newLeaveRouter(t *testing.T, role string) (*gin.Engine, service.LeaveService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + t.TempDir() + "/test.db?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.AuditLog{},
		&model.LeaveRequest{},
		&model.AttendanceRecord{},
		&model.IdempotencyRecord{},
	))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	txManager := repository.NewTransactionManager(db)
	propagator := workflow.NewPropagator(txManager, repository.NewIdempotencyRepository(db), workflow.NopPublisher{}, log)
	leaveService := service.NewLeaveService(
		repository.NewLeaveRepository(db),
		repository.NewAttendanceRepository(db),
		repository.NewAuditRepository(db),
		txManager,
		propagator,
	)

	h := NewLeaveHandler(leaveService)
	router := gin.New()
	router.Use(authAs(uuid.NewString(), role))
	router.POST("/api/leave-requests", h.CreateLeaveRequest)
	router.GET("/api/leave-requests/:id", h.GetLeaveRequest)
	router.POST("/api/leave-requests/:id/decide", h.Decide)

	return router, leaveService
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndDecideLeaveRequest(t *testing.T) {
	router, _ := newLeaveRouter(t, model.RoleSupervisor)

	rec := doJSON(t, router, http.MethodPost, "/api/leave-requests", gin.H{
		"staff_id":   uuid.NewString(),
		"reason":     "medical",
		"days":       2,
		"start_date": "2026-09-07",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data service.LeaveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	assert.Equal(t, model.LeaveStatusPending, created.Data.Status)

	rec = doJSON(t, router, http.MethodPost, "/api/leave-requests/"+created.Data.ID+"/decide", gin.H{
		"status":  model.LeaveStatusApprovedBySupervisor,
		"remarks": "covered by team",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/leave-requests/"+created.Data.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		Data service.LeaveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, model.LeaveStatusApprovedBySupervisor, fetched.Data.Status)
	assert.Equal(t, "covered by team", fetched.Data.SupervisorRemarks)
}

func TestDecideWrongRoleIsForbidden(t *testing.T) {
	router, leaveService := newLeaveRouter(t, model.RoleHR)

	leave, err := leaveService.CreateLeaveRequest(
		httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		uuid.NewString(),
		service.CreateLeaveRequestDTO{StaffID: uuid.NewString(), Reason: "trip", Days: 1},
	)
	require.NoError(t, err)

	// HR cannot drive the supervisor edge.
	rec := doJSON(t, router, http.MethodPost, "/api/leave-requests/"+leave.ID+"/decide", gin.H{
		"status": model.LeaveStatusApprovedBySupervisor,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecideIllegalTransitionIsConflict(t *testing.T) {
	router, leaveService := newLeaveRouter(t, model.RoleAdmin)

	leave, err := leaveService.CreateLeaveRequest(
		httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		uuid.NewString(),
		service.CreateLeaveRequestDTO{StaffID: uuid.NewString(), Reason: "trip", Days: 1},
	)
	require.NoError(t, err)

	// Admin approval straight from pending skips two stages.
	rec := doJSON(t, router, http.MethodPost, "/api/leave-requests/"+leave.ID+"/decide", gin.H{
		"status": model.LeaveStatusAdminApproved,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDecideUnknownRequestIsNotFound(t *testing.T) {
	router, _ := newLeaveRouter(t, model.RoleSupervisor)

	rec := doJSON(t, router, http.MethodPost, "/api/leave-requests/"+uuid.NewString()+"/decide", gin.H{
		"status": model.LeaveStatusApprovedBySupervisor,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
