package handler

import (
	"errors"
	"net/http"
	"strings"

	"backend/internal/ledger"
	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeWorkflowError maps domain errors to HTTP statuses:
//
//	403  role not allowed to drive the edge
//	409  illegal transition, or a concurrent writer won (retryable)
//	404  entity missing
//	500  propagation failure (rolled back) or inconsistent state (alarm)
func writeWorkflowError(c *gin.Context, err error) {
	var unauthorized *workflow.UnauthorizedTransitionError
	var illegal *workflow.IllegalTransitionError
	var inconsistent *workflow.InconsistentStateError
	var propagation *workflow.PropagationError

	switch {
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.As(err, &illegal):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, workflow.ErrStaleEntity), errors.Is(err, ledger.ErrLedgerContention):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, ledger.ErrRegisterNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.As(err, &inconsistent):
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	case errors.As(err, &propagation):
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	default:
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	}
}

// actorFromContext reads the authenticated user id and role set by the auth
// middleware.
func actorFromContext(c *gin.Context) (id string, role string) {
	if v, ok := c.Get("userID"); ok {
		id, _ = v.(string)
	}
	if v, ok := c.Get("userRole"); ok {
		role, _ = v.(string)
	}
	return id, role
}
