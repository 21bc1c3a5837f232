package handler

import (
	"errors"
	"net/http"

	"backend/internal/ledger"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
}

func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	registers := router.Group("/api/registers")
	{
		registers.POST("", middleware.RequirePermission("ledger.write"), h.CreateRegister)
		registers.GET("", middleware.RequirePermission("ledger.read"), h.ListRegisters)
		registers.GET("/:id", middleware.RequirePermission("ledger.read"), h.GetRegister)
		registers.POST("/:id/credit", middleware.RequirePermission("ledger.write"), h.Credit)
		registers.GET("/:id/transactions", middleware.RequirePermission("ledger.read"), h.ListTransactions)
		registers.GET("/:id/reconcile", middleware.RequirePermission("ledger.reconcile"), h.Reconcile)
	}
}

type createRegisterRequest struct {
	Name           string `json:"name" binding:"required"`
	OpeningBalance string `json:"opening_balance"`
}

type creditRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	ReferenceID string `json:"reference_id"`
}

// CreateRegister handles POST /api/registers
// @Summary      Open a cash register
// @Description  Creates a register; a non-zero opening balance becomes the first ledger row
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      createRegisterRequest  true  "Register Payload"
// @Success      201      {object}  response.Response{data=model.CashRegister}
// @Failure      400      {object}  response.Response
// @Router       /api/registers [post]
func (h *LedgerHandler) CreateRegister(c *gin.Context) {
	var req createRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		parsed, err := decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid opening_balance"))
			return
		}
		opening = parsed
	}

	actorID, _ := actorFromContext(c)
	register, err := h.ledgerService.CreateRegister(c.Request.Context(), actorID, req.Name, opening)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, register))
}

// ListRegisters handles GET /api/registers
func (h *LedgerHandler) ListRegisters(c *gin.Context) {
	params := pagination.Parse(c)
	registers, total, err := h.ledgerService.ListRegisters(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch registers"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"registers": registers,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// GetRegister handles GET /api/registers/:id
func (h *LedgerHandler) GetRegister(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid register id"))
		return
	}

	register, err := h.ledgerService.GetRegister(c.Request.Context(), id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, register))
}

// Credit handles POST /api/registers/:id/credit
// @Summary      Credit or debit a register
// @Description  Applies a signed amount; balance update and ledger row commit together
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Register ID"
// @Param        payload  body      creditRequest  true  "Credit Payload"
// @Success      200      {object}  response.Response{data=ledger.CreditResult}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/registers/{id}/credit [post]
func (h *LedgerHandler) Credit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid register id"))
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid amount"))
		return
	}

	actorID, _ := actorFromContext(c)
	result, err := h.ledgerService.Credit(c.Request.Context(), actorID, id, amount, req.Reason, req.ReferenceID)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
			return
		}
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListTransactions handles GET /api/registers/:id/transactions
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid register id"))
		return
	}

	params := pagination.Parse(c)
	txns, total, err := h.ledgerService.ListTransactions(c.Request.Context(), id, params.Page, params.Limit)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}

// Reconcile handles GET /api/registers/:id/reconcile
// @Summary      Reconcile register balance
// @Description  Recomputes the balance from the transaction log; a drift is reported, never repaired
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Register ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/registers/{id}/reconcile [get]
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid register id"))
		return
	}

	actorID, _ := actorFromContext(c)
	report, err := h.ledgerService.Reconcile(c.Request.Context(), actorID, id)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
