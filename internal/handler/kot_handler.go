package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type KOTHandler struct {
	kotService service.KOTService
}

func NewKOTHandler(kotService service.KOTService) *KOTHandler {
	return &KOTHandler{kotService: kotService}
}

func (h *KOTHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/kot-orders")
	{
		orders.POST("", middleware.RequirePermission("kot.write"), h.CreateOrder)
		orders.GET("", middleware.RequirePermission("kot.read"), h.ListOrders)
		orders.GET("/:id", middleware.RequirePermission("kot.read"), h.GetOrder)
		orders.POST("/:id/close", middleware.RequirePermission("kot.settle"), h.Close)
		orders.POST("/:id/cancel", middleware.RequirePermission("kot.settle"), h.Cancel)
	}

	items := router.Group("/api/kot-items")
	items.Use(middleware.RequirePermission("kot.write"))
	{
		items.POST("/:id/advance", h.AdvanceItem)
	}

	tables := router.Group("/api/tables")
	{
		tables.POST("", middleware.RequirePermission("kot.write"), h.CreateTable)
		tables.GET("", middleware.RequirePermission("kot.read"), h.ListTables)
	}
}

// CreateOrder handles POST /api/kot-orders
// @Summary      Create kitchen order
// @Description  Opens a kitchen order ticket; dine_in orders claim their table
// @Tags         kot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateKOTOrderDTO  true  "Order Payload"
// @Success      201      {object}  response.Response{data=model.KOTOrder}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/kot-orders [post]
func (h *KOTHandler) CreateOrder(c *gin.Context) {
	var req service.CreateKOTOrderDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := actorFromContext(c)
	order, err := h.kotService.CreateOrder(c.Request.Context(), actorID, req)
	if err != nil {
		if errors.Is(err, service.ErrTableOccupied) {
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders handles GET /api/kot-orders
// @Summary      List kitchen orders
// @Tags         kot
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/kot-orders [get]
func (h *KOTHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	orders, total, err := h.kotService.ListOrders(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch orders"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// GetOrder handles GET /api/kot-orders/:id
// @Summary      Get kitchen order
// @Tags         kot
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.KOTOrder}
// @Failure      404  {object}  response.Response
// @Router       /api/kot-orders/{id} [get]
func (h *KOTHandler) GetOrder(c *gin.Context) {
	order, err := h.kotService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Close handles POST /api/kot-orders/:id/close
// @Summary      Close kitchen order
// @Description  Settles the bill into a register and frees the table
// @Tags         kot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Order ID"
// @Param        payload  body      service.CloseKOTOrderDTO   true  "Settlement Payload"
// @Success      200      {object}  response.Response{data=workflow.Applied}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/kot-orders/{id}/close [post]
func (h *KOTHandler) Close(c *gin.Context) {
	var req service.CloseKOTOrderDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, role := actorFromContext(c)
	applied, err := h.kotService.Close(c.Request.Context(), c.Param("id"), actorID, role, req)
	if err != nil {
		if errors.Is(err, service.ErrItemsPending) {
			c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, err.Error()))
			return
		}
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, applied))
}

// Cancel handles POST /api/kot-orders/:id/cancel
// @Summary      Cancel kitchen order
// @Description  Terminates the ticket and frees the table; no money moves
// @Tags         kot
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=workflow.Applied}
// @Failure      409  {object}  response.Response
// @Router       /api/kot-orders/{id}/cancel [post]
func (h *KOTHandler) Cancel(c *gin.Context) {
	actorID, role := actorFromContext(c)
	applied, err := h.kotService.Cancel(c.Request.Context(), c.Param("id"), actorID, role)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, applied))
}

type advanceItemRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdvanceItem handles POST /api/kot-items/:id/advance
// @Summary      Advance a kitchen item
// @Description  Moves an item one step along pending → in_progress → ready → served
// @Tags         kot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Item ID"
// @Param        payload  body      advanceItemRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.KOTItem}
// @Failure      409      {object}  response.Response
// @Router       /api/kot-items/{id}/advance [post]
func (h *KOTHandler) AdvanceItem(c *gin.Context) {
	var req advanceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.kotService.AdvanceItem(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

type createTableRequest struct {
	TableNo string `json:"table_no" binding:"required"`
}

// CreateTable handles POST /api/tables
func (h *KOTHandler) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	table, err := h.kotService.CreateTable(c.Request.Context(), req.TableNo)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, table))
}

// ListTables handles GET /api/tables
func (h *KOTHandler) ListTables(c *gin.Context) {
	tables, err := h.kotService.ListTables(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch tables"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tables))
}
