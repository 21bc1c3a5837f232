package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type HousekeepingHandler struct {
	hkService service.HousekeepingService
}

func NewHousekeepingHandler(hkService service.HousekeepingService) *HousekeepingHandler {
	return &HousekeepingHandler{hkService: hkService}
}

func (h *HousekeepingHandler) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/api/housekeeping-tasks")
	{
		tasks.POST("", middleware.RequirePermission("housekeeping.write"), h.CreateTask)
		tasks.GET("", middleware.RequirePermission("housekeeping.read"), h.ListTasks)
		tasks.GET("/:id", middleware.RequirePermission("housekeeping.read"), h.GetTask)
		tasks.POST("/:id/advance", middleware.RequirePermission("housekeeping.write"), h.Advance)
	}

	rooms := router.Group("/api/rooms")
	{
		rooms.POST("", middleware.RequirePermission("housekeeping.write"), h.CreateRoom)
		rooms.GET("", middleware.RequirePermission("housekeeping.read"), h.ListRooms)
		rooms.GET("/:id/service-records", middleware.RequirePermission("housekeeping.read"), h.ListServiceRecords)
	}
}

// CreateTask handles POST /api/housekeeping-tasks
// @Summary      Create housekeeping task
// @Description  Opens a cleaning cycle and flags the room cleaning_required
// @Tags         housekeeping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateHousekeepingTaskDTO  true  "Task Payload"
// @Success      201      {object}  response.Response{data=model.HousekeepingTask}
// @Failure      404      {object}  response.Response
// @Router       /api/housekeeping-tasks [post]
func (h *HousekeepingHandler) CreateTask(c *gin.Context) {
	var req service.CreateHousekeepingTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := actorFromContext(c)
	task, err := h.hkService.CreateTask(c.Request.Context(), actorID, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// ListTasks handles GET /api/housekeeping-tasks
func (h *HousekeepingHandler) ListTasks(c *gin.Context) {
	params := pagination.Parse(c)
	tasks, total, err := h.hkService.ListTasks(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch tasks"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetTask handles GET /api/housekeeping-tasks/:id
func (h *HousekeepingHandler) GetTask(c *gin.Context) {
	task, err := h.hkService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// Advance handles POST /api/housekeeping-tasks/:id/advance
// @Summary      Advance housekeeping task
// @Description  Moves the task one step; reaching cleaned frees the room and writes a service record
// @Tags         housekeeping
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Task ID"
// @Param        payload  body      service.AdvanceHousekeepingDTO  true  "Advance Payload"
// @Success      200      {object}  response.Response{data=workflow.Applied}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/housekeeping-tasks/{id}/advance [post]
func (h *HousekeepingHandler) Advance(c *gin.Context) {
	var req service.AdvanceHousekeepingDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, role := actorFromContext(c)
	applied, err := h.hkService.Advance(c.Request.Context(), c.Param("id"), actorID, role, req)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, applied))
}

// CreateRoom handles POST /api/rooms
func (h *HousekeepingHandler) CreateRoom(c *gin.Context) {
	var req service.CreateRoomDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	room, err := h.hkService.CreateRoom(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, room))
}

// ListRooms handles GET /api/rooms
func (h *HousekeepingHandler) ListRooms(c *gin.Context) {
	params := pagination.Parse(c)
	rooms, total, err := h.hkService.ListRooms(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch rooms"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// ListServiceRecords handles GET /api/rooms/:id/service-records
func (h *HousekeepingHandler) ListServiceRecords(c *gin.Context) {
	records, err := h.hkService.ListServiceRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, records))
}
