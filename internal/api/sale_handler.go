// Package api 提供销售记录相关的HTTP API处理器。
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

// SaleHandler 销售记录相关的HTTP处理器
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler 创建销售处理器实例
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// Create 创建销售记录
// POST /api/v1/sales
func (h *SaleHandler) Create(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	sale, err := h.saleService.CreateSale(user.ID, &req)
	if err != nil {
		h.writeSaleError(c, err, "create sale failed")
		return
	}

	resp.WriteJSON(c.Writer, http.StatusCreated, resp.CodeOK, "created", sale, reqID, "")
}

// Get 获取销售详情
// GET /api/v1/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(user.ID, id)
	if err != nil {
		h.writeSaleError(c, err, "get sale failed")
		return
	}

	resp.OK(c.Writer, sale, reqID, "")
}

// Update 更新销售记录
// PUT /api/v1/sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req domain.UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	sale, err := h.saleService.UpdateSale(user.ID, id, &req)
	if err != nil {
		h.writeSaleError(c, err, "update sale failed")
		return
	}

	resp.OK(c.Writer, sale, reqID, "")
}

// UpdateStatus 执行销售状态迁移
// PUT /api/v1/sales/:id/status
func (h *SaleHandler) UpdateStatus(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req domain.UpdateSaleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	sale, err := h.saleService.UpdateSaleStatus(user.ID, id, &req)
	if err != nil {
		h.writeSaleError(c, err, "update sale status failed")
		return
	}

	resp.OK(c.Writer, sale, reqID, "")
}

// Delete 删除销售记录（仅pending状态）
// DELETE /api/v1/sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.saleService.DeleteSale(user.ID, id); err != nil {
		h.writeSaleError(c, err, "delete sale failed")
		return
	}

	resp.OK[any](c.Writer, nil, reqID, "")
}

// List 获取销售列表
// GET /api/v1/sales
func (h *SaleHandler) List(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	req := parseSaleListQuery(c)
	result, err := h.saleService.ListSales(user.ID, req)
	if err != nil {
		h.logger.Error("list sales failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "list sales failed", reqID, "")
		return
	}

	resp.OK(c.Writer, result, reqID, "")
}

// writeSaleError 将销售业务错误映射为HTTP响应
func (h *SaleHandler) writeSaleError(c *gin.Context, err error, fallback string) {
	reqID := middleware.RequestIDFrom(c)

	switch {
	case errors.Is(err, service.ErrSaleNotFound):
		resp.Error(c.Writer, http.StatusNotFound, resp.CodeInvalidParam, "sale not found", reqID, "")
	case errors.Is(err, service.ErrProductNotFound):
		resp.Error(c.Writer, http.StatusUnprocessableEntity, resp.CodeInvalidParam, "referenced product not found", reqID, "")
	case errors.Is(err, service.ErrProductArchived):
		resp.Error(c.Writer, http.StatusUnprocessableEntity, resp.CodeInvalidParam, "referenced product is archived", reqID, "")
	case errors.Is(err, service.ErrInsufficientInventory):
		resp.Error(c.Writer, http.StatusUnprocessableEntity, resp.CodeInvalidParam, "sale quantity exceeds inventory", reqID, "")
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrSaleTerminal),
		errors.Is(err, service.ErrSaleNotPending):
		resp.Error(c.Writer, http.StatusConflict, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, domain.ErrInvalidState):
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// parseSaleListQuery 解析销售列表查询参数
func parseSaleListQuery(c *gin.Context) *domain.SaleListRequest {
	req := &domain.SaleListRequest{}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		req.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 && pageSize <= 100 {
		req.PageSize = pageSize
	}
	if status := c.Query("status"); status != "" {
		v := domain.SaleStatus(status)
		req.Status = &v
	}
	if platform := c.Query("platform"); platform != "" {
		v := domain.SalePlatform(platform)
		req.Platform = &v
	}
	if productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64); err == nil && productID > 0 {
		req.ProductID = &productID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		req.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		req.To = &to
	}

	return req
}
