// Package api 提供商品相关的HTTP API处理器。
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeonQiao/resell_ledger/internal/domain"
	"github.com/LeonQiao/resell_ledger/internal/middleware"
	"github.com/LeonQiao/resell_ledger/internal/resp"
	"github.com/LeonQiao/resell_ledger/internal/service"
)

// ProductHandler 商品相关的HTTP处理器
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler 创建商品处理器实例
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		reqID := middleware.RequestIDFrom(c)
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid id", reqID, "")
		return 0, false
	}
	return id, true
}

// requireUser 读取认证用户；认证中间件缺失时写入401
func requireUser(c *gin.Context) (*domain.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		reqID := middleware.RequestIDFrom(c)
		resp.Error(c.Writer, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return nil, false
	}
	return user, true
}

// Create 创建商品
// POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	product, err := h.productService.CreateProduct(user, &req)
	if err != nil {
		h.writeProductError(c, err, "create product failed")
		return
	}

	resp.WriteJSON(c.Writer, http.StatusCreated, resp.CodeOK, "created", product, reqID, "")
}

// Get 获取商品详情
// GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(user.ID, id)
	if err != nil {
		h.writeProductError(c, err, "get product failed")
		return
	}

	resp.OK(c.Writer, product, reqID, "")
}

// Update 更新商品
// PUT /api/v1/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req domain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	product, err := h.productService.UpdateProduct(user.ID, id, &req)
	if err != nil {
		h.writeProductError(c, err, "update product failed")
		return
	}

	resp.OK(c.Writer, product, reqID, "")
}

// Archive 归档商品（软删除）
// DELETE /api/v1/products/:id
func (h *ProductHandler) Archive(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	product, err := h.productService.ArchiveProduct(user.ID, id)
	if err != nil {
		h.writeProductError(c, err, "archive product failed")
		return
	}

	resp.OK(c.Writer, product, reqID, "")
}

// List 获取商品列表
// GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	req := parseProductListQuery(c)
	result, err := h.productService.ListProducts(user.ID, req)
	if err != nil {
		h.logger.Error("list products failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "list products failed", reqID, "")
		return
	}

	resp.OK(c.Writer, result, reqID, "")
}

// Import 批量导入商品
// POST /api/v1/products/import
func (h *ProductHandler) Import(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req domain.ImportProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if len(req.Products) > 500 {
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, "import batch too large (max 500)", reqID, "")
		return
	}

	result, err := h.productService.ImportProducts(user, &req)
	if err != nil {
		h.writeProductError(c, err, "import products failed")
		return
	}

	resp.OK(c.Writer, result, reqID, "")
}

// Overview 获取库存总览统计
// GET /api/v1/products/overview
func (h *ProductHandler) Overview(c *gin.Context) {
	reqID := middleware.RequestIDFrom(c)

	user, ok := requireUser(c)
	if !ok {
		return
	}

	overview, err := h.productService.GetInventoryOverview(user.ID)
	if err != nil {
		h.logger.Error("inventory overview failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "inventory overview failed", reqID, "")
		return
	}

	resp.OK(c.Writer, overview, reqID, "")
}

// writeProductError 将商品业务错误映射为HTTP响应
func (h *ProductHandler) writeProductError(c *gin.Context, err error, fallback string) {
	reqID := middleware.RequestIDFrom(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		resp.Error(c.Writer, http.StatusNotFound, resp.CodeInvalidParam, "product not found", reqID, "")
	case errors.Is(err, service.ErrProductLimit):
		resp.Error(c.Writer, http.StatusForbidden, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, service.ErrProductArchived):
		resp.Error(c.Writer, http.StatusConflict, resp.CodeInvalidParam, "product is archived", reqID, "")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrNegativeQuantity),
		errors.Is(err, domain.ErrInvalidState):
		resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// parseProductListQuery 解析商品列表查询参数
func parseProductListQuery(c *gin.Context) *domain.ProductListRequest {
	req := &domain.ProductListRequest{}

	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		req.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil && pageSize > 0 && pageSize <= 100 {
		req.PageSize = pageSize
	}
	if category := c.Query("category"); category != "" {
		v := domain.ProductCategory(category)
		req.Category = &v
	}
	if status := c.Query("status"); status != "" {
		v := domain.ProductStatus(status)
		req.Status = &v
	}
	if archived := c.Query("archived"); archived != "" {
		v := archived == "true"
		req.Archived = &v
	}
	if keyword := c.Query("keyword"); keyword != "" {
		req.Keyword = &keyword
	}
	if sortBy := c.Query("sort_by"); sortBy != "" {
		req.SortBy = &sortBy
	}
	if sortOrder := c.Query("sort_order"); sortOrder != "" {
		req.SortOrder = &sortOrder
	}

	return req
}
