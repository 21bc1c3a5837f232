package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeaveHandler struct {
	leaveService service.LeaveService
}

func NewLeaveHandler(leaveService service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService}
}

func (h *LeaveHandler) RegisterRoutes(router *gin.RouterGroup) {
	leaves := router.Group("/api/leave-requests")
	{
		leaves.POST("", middleware.RequirePermission("leave.write"), h.CreateLeaveRequest)
		leaves.GET("", middleware.RequirePermission("leave.read"), h.ListLeaveRequests)
		leaves.GET("/:id", middleware.RequirePermission("leave.read"), h.GetLeaveRequest)
		leaves.POST("/:id/decide", middleware.RequirePermission("leave.decide"), h.Decide)
	}

	attendance := router.Group("/api/attendance")
	attendance.Use(middleware.RequirePermission("attendance.read"))
	{
		attendance.GET("", h.ListAttendance)
	}
}

// CreateLeaveRequest handles POST /api/leave-requests
// @Summary      Create leave request
// @Description  Opens a new leave request in pending status
// @Tags         leave
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateLeaveRequestDTO  true  "Leave Request Payload"
// @Success      201      {object}  response.Response{data=service.LeaveResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/leave-requests [post]
func (h *LeaveHandler) CreateLeaveRequest(c *gin.Context) {
	var req service.CreateLeaveRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := actorFromContext(c)
	leave, err := h.leaveService.CreateLeaveRequest(c.Request.Context(), actorID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, leave))
}

// ListLeaveRequests handles GET /api/leave-requests
// @Summary      List leave requests
// @Description  Retrieves paginated leave requests, filterable by status and staff
// @Tags         leave
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status"
// @Param        staff_id  query     string  false  "Filter by staff"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/leave-requests [get]
func (h *LeaveHandler) ListLeaveRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.LeaveFilter{
		Status:  c.Query("status"),
		StaffID: c.Query("staff_id"),
		Page:    params.Page,
		Limit:   params.Limit,
	}

	leaves, total, err := h.leaveService.ListLeaveRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch leave requests"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"leave_requests": leaves,
		"total":          total,
		"page":           params.Page,
		"limit":          params.Limit,
	}))
}

// GetLeaveRequest handles GET /api/leave-requests/:id
// @Summary      Get leave request
// @Tags         leave
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leave Request ID"
// @Success      200  {object}  response.Response{data=service.LeaveResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/leave-requests/{id} [get]
func (h *LeaveHandler) GetLeaveRequest(c *gin.Context) {
	leave, err := h.leaveService.GetLeaveRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, leave))
}

// Decide handles POST /api/leave-requests/:id/decide
// @Summary      Decide a leave request
// @Description  Drives one approval-chain edge; the caller's role must match the stage
// @Tags         leave
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Leave Request ID"
// @Param        payload  body      service.DecideLeaveDTO  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=workflow.Applied}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/leave-requests/{id}/decide [post]
func (h *LeaveHandler) Decide(c *gin.Context) {
	var req service.DecideLeaveDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, role := actorFromContext(c)
	applied, err := h.leaveService.Decide(c.Request.Context(), c.Param("id"), actorID, role, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, applied))
}

// ListAttendance handles GET /api/attendance
// @Summary      List attendance records
// @Tags         leave
// @Produce      json
// @Security     BearerAuth
// @Param        staff_id  query     string  false  "Filter by staff"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/attendance [get]
func (h *LeaveHandler) ListAttendance(c *gin.Context) {
	params := pagination.Parse(c)
	records, total, err := h.leaveService.ListAttendance(c.Request.Context(), c.Query("staff_id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch attendance"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
