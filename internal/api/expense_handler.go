// Package api 提供支出记录相关的HTTP API处理器。
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/middleware"
	"github.com/LeonQiao/resell_ledger/internal/resp"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// ExpenseHandler 支出记录相关的HTTP处理器
type ExpenseHandler struct {
	expenseService service.ExpenseService
	logger         *zap.Logger
}

// NewExpenseHandler 创建支出处理器实例
func NewExpenseHandler(expenseService service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// Create 创建支出记录
// POST /api/v1/expenses
func (h *ExpenseHandler) Create(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	expense, err := h.expenseService.CreateExpense(user, &req)
	if err != nil {
		h.writeExpenseError(c, err, "create expense failed")
		return
	}

	resp.WriteJSON(c.Writer, http.StatusCreated, resp.CodeOK, "created", expense, reqID, "")
}

// Get 获取支出详情
// GET /api/v1/expenses/:id
func (h *ExpenseHandler) Get(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpense(user.ID, id)
	if err != nil {
		h.writeExpenseError(c, err, "get expense failed")
		return
	}

	resp.OK(c.Writer, expense, reqID, "")
}

// Update 更新支出记录
// PUT /api/v1/expenses/:id
func (h *ExpenseHandler) Update(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req domain.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	expense, err := h.expenseService.UpdateExpense(user.ID, id, &req)
	if err != nil {
		h.writeExpenseError(c, err, "update expense failed")
		return
	}

	resp.OK(c.Writer, expense, reqID, "")
}

// Delete 删除支出记录
// DELETE /api/v1/expenses/:id
func (h *ExpenseHandler) Delete(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.expenseService.DeleteExpense(user.ID, id); err != nil {
		h.writeExpenseError(c, err, "delete expense failed")
		return
	}

	resp.OK[any](c.Writer, nil, reqID, "")
}

// List 获取支出列表
// GET /api/v1/expenses
func (h *ExpenseHandler) List(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	req := parseExpenseListQuery(c)
	result, err := h.expenseService.ListExpenses(user.ID, req)
	if err != nil {
		h.logger.Error("list expenses failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "list expenses failed", reqID, "")
		return
	}

	resp.OK(c.Writer, result, reqID, "")
}

// writeExpenseError 将支出业务错误映射为HTTP响应
func (h *ExpenseHandler) writeExpenseError(c *gin.Context, err error, fallback string) {
	reqID := middleware.RequestIDFrom(c)

	switch {
	case errors.Is(err, service.ErrExpenseNotFound):
		resp.Error(c.Writer, http.StatusNotFound, resp.CodeInvalidParam, "expense not found", reqID, "")
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrSaleNotFound):
		resp.Error(c.Writer, http.StatusUnprocessableEntity, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, service.ErrInvalidInput):
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// parseExpenseListQuery 解析支出列表查询参数
func parseExpenseListQuery(c *gin.Context) *domain.ExpenseListRequest {
	req := &domain.ExpenseListRequest{}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		req.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 && pageSize <= 100 {
		req.PageSize = pageSize
	}
	if category := c.Query("category"); category != "" {
		v := domain.ExpenseCategory(category)
		req.Category = &v
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		req.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		req.To = &to
	}

	return req
}
