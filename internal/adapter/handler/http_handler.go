package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/core/domain"
	"github.com/rl1809/sales/internal/core/service"
)

// SaleService is the set of sale use cases exposed over the transports.
type SaleService interface {
	CreateSale(ctx context.Context, cmd service.CreateSaleCommand) (int64, error)
	UpdateSale(ctx context.Context, routeSaleID int64, cmd service.UpdateSaleCommand) (bool, error)
	CancelSale(ctx context.Context, saleID int64) (bool, error)
	CompleteSale(ctx context.Context, saleID int64) (bool, error)
	DeleteSale(ctx context.Context, saleID int64) (bool, error)
	GetSale(ctx context.Context, saleID int64) (*domain.SaleView, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleView, error)
}

type CatalogService interface {
	CreateCustomer(ctx context.Context, name string) (uuid.UUID, error)
	RenameCustomer(ctx context.Context, id uuid.UUID, name string) error
	ListCustomers(ctx context.Context, name string) ([]domain.Customer, error)
	CreateBranch(ctx context.Context, name string) (uuid.UUID, error)
	RenameBranch(ctx context.Context, id uuid.UUID, name string) error
	ListBranches(ctx context.Context, name string) ([]domain.Branch, error)
	CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error)
	ListProducts(ctx context.Context, name string) ([]domain.Product, error)
}

type HTTPHandler struct {
	sales   SaleService
	catalog CatalogService
	logger  *zap.Logger
}

type SaleItemHTTPRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type SaleHTTPRequest struct {
	SaleID     int64                 `json:"sale_id"`
	CustomerID uuid.UUID             `json:"customer_id"`
	BranchID   uuid.UUID             `json:"branch_id"`
	Items      []SaleItemHTTPRequest `json:"items"`
}

type NamedHTTPRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type HTTPResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  []service.Failure `json:"errors,omitempty"`
}

func NewHTTPHandler(sales SaleService, catalog CatalogService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{sales: sales, catalog: catalog, logger: logger}
}

// Register binds every route on r.
func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.POST("/sales", h.CreateSale)
	api.GET("/sales", h.ListSales)
	api.GET("/sales/:id", h.GetSale)
	api.PUT("/sales/:id", h.UpdateSale)
	api.DELETE("/sales/:id", h.DeleteSale)
	api.POST("/sales/:id/cancel", h.CancelSale)
	api.POST("/sales/:id/complete", h.CompleteSale)

	api.POST("/customers", h.CreateCustomer)
	api.GET("/customers", h.ListCustomers)
	api.PUT("/customers/:id", h.RenameCustomer)
	api.POST("/branches", h.CreateBranch)
	api.GET("/branches", h.ListBranches)
	api.PUT("/branches/:id", h.RenameBranch)
	api.POST("/products", h.CreateProduct)
	api.GET("/products", h.ListProducts)
}

func (h *HTTPHandler) CreateSale(c *gin.Context) {
	var req SaleHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}

	id, err := h.sales.CreateSale(c.Request.Context(), service.CreateSaleCommand{
		CustomerID: req.CustomerID,
		BranchID:   req.BranchID,
		Items:      itemInputs(req.Items),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, HTTPResponse{
		Success: true,
		Message: "Sale created successfully",
		Data:    gin.H{"id": id},
	})
}

func (h *HTTPHandler) GetSale(c *gin.Context) {
	id, ok := h.saleID(c)
	if !ok {
		return
	}

	view, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, HTTPResponse{Success: true, Message: "Sale retrieved successfully", Data: view})
}

func (h *HTTPHandler) ListSales(c *gin.Context) {
	filter := domain.SaleFilter{
		CustomerName: c.Query("customer"),
		BranchName:   c.Query("branch"),
	}
	filter.SaleID, _ = strconv.ParseInt(c.Query("sale_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	filter = filter.Normalize()

	views, err := h.sales.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if views == nil {
		views = []domain.SaleView{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      views,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *HTTPHandler) UpdateSale(c *gin.Context) {
	id, ok := h.saleID(c)
	if !ok {
		return
	}

	var req SaleHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return
	}

	updated, err := h.sales.UpdateSale(c.Request.Context(), id, service.UpdateSaleCommand{
		SaleID:     req.SaleID,
		CustomerID: req.CustomerID,
		BranchID:   req.BranchID,
		Items:      itemInputs(req.Items),
	})
	h.writeMutation(c, updated, err)
}

func (h *HTTPHandler) CancelSale(c *gin.Context) {
	id, ok := h.saleID(c)
	if !ok {
		return
	}
	done, err := h.sales.CancelSale(c.Request.Context(), id)
	h.writeMutation(c, done, err)
}

func (h *HTTPHandler) CompleteSale(c *gin.Context) {
	id, ok := h.saleID(c)
	if !ok {
		return
	}
	done, err := h.sales.CompleteSale(c.Request.Context(), id)
	h.writeMutation(c, done, err)
}

func (h *HTTPHandler) DeleteSale(c *gin.Context) {
	id, ok := h.saleID(c)
	if !ok {
		return
	}
	done, err := h.sales.DeleteSale(c.Request.Context(), id)
	h.writeMutation(c, done, err)
}

func (h *HTTPHandler) CreateCustomer(c *gin.Context) {
	var req NamedHTTPRequest
	if !h.bindNamed(c, &req) {
		return
	}
	id, err := h.catalog.CreateCustomer(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, HTTPResponse{Success: true, Message: "Customer created successfully", Data: gin.H{"id": id}})
}

func (h *HTTPHandler) ListCustomers(c *gin.Context) {
	customers, err := h.catalog.ListCustomers(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	data := make([]gin.H, 0, len(customers))
	for _, cu := range customers {
		data = append(data, gin.H{"id": cu.ID, "name": cu.Name})
	}
	c.JSON(http.StatusOK, HTTPResponse{Success: true, Data: data})
}

func (h *HTTPHandler) RenameCustomer(c *gin.Context) {
	h.rename(c, "customerId", h.catalog.RenameCustomer)
}

func (h *HTTPHandler) RenameBranch(c *gin.Context) {
	h.rename(c, "branchId", h.catalog.RenameBranch)
}

func (h *HTTPHandler) rename(c *gin.Context, field string, rename func(context.Context, uuid.UUID, string) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, HTTPResponse{
			Message: "invalid id",
			Errors:  []service.Failure{{Field: field, Message: "The ID must be a valid UUID"}},
		})
		return
	}
	var req NamedHTTPRequest
	if !h.bindNamed(c, &req) {
		return
	}
	if err := rename(c.Request.Context(), id, req.Name); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) CreateBranch(c *gin.Context) {
	var req NamedHTTPRequest
	if !h.bindNamed(c, &req) {
		return
	}
	id, err := h.catalog.CreateBranch(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, HTTPResponse{Success: true, Message: "Branch created successfully", Data: gin.H{"id": id}})
}

func (h *HTTPHandler) ListBranches(c *gin.Context) {
	branches, err := h.catalog.ListBranches(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	data := make([]gin.H, 0, len(branches))
	for _, b := range branches {
		data = append(data, gin.H{"id": b.ID, "name": b.Name})
	}
	c.JSON(http.StatusOK, HTTPResponse{Success: true, Data: data})
}

func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req NamedHTTPRequest
	if !h.bindNamed(c, &req) {
		return
	}
	id, err := h.catalog.CreateProduct(c.Request.Context(), req.Name, req.Price)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, HTTPResponse{Success: true, Message: "Product created successfully", Data: gin.H{"id": id}})
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	data := make([]gin.H, 0, len(products))
	for _, p := range products {
		data = append(data, gin.H{"id": p.ID, "name": p.Name, "price": p.Price})
	}
	c.JSON(http.StatusOK, HTTPResponse{Success: true, Data: data})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) bindNamed(c *gin.Context, req *NamedHTTPRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		c.JSON(http.StatusBadRequest, HTTPResponse{Message: "invalid request body"})
		return false
	}
	return true
}

func (h *HTTPHandler) saleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, HTTPResponse{
			Message: "invalid sale id",
			Errors:  []service.Failure{{Field: "saleId", Message: "The sale ID must be provided"}},
		})
		return 0, false
	}
	return id, true
}

// writeMutation answers 204 when the change was persisted.
func (h *HTTPHandler) writeMutation(c *gin.Context, done bool, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !done {
		c.JSON(http.StatusConflict, HTTPResponse{Message: "no changes were applied to the sale"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, HTTPResponse{Message: "Validation failed", Errors: verr.Failures})
	case errors.Is(err, service.ErrSaleNotFound):
		c.JSON(http.StatusNotFound, HTTPResponse{Message: "Sale not found"})
	case errors.Is(err, service.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, HTTPResponse{Message: "Customer not found"})
	case errors.Is(err, service.ErrBranchNotFound):
		c.JSON(http.StatusNotFound, HTTPResponse{Message: "Branch not found"})
	case errors.Is(err, service.ErrSaleConflict):
		c.JSON(http.StatusConflict, HTTPResponse{Message: err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg, ok := notPersistedMessage(err)
		if !ok {
			msg = "internal error"
		}
		c.JSON(http.StatusInternalServerError, HTTPResponse{Message: msg})
	}
}

// notPersisted lists the errors of a commit that wrote nothing, with the
// message callers are shown for each.
var notPersisted = []struct {
	err     error
	message string
}{
	{service.ErrSaleNotCreated, "Sale not created"},
	{service.ErrSaleNotUpdated, "Sale not updated"},
	{service.ErrCustomerNotCreated, "Customer not created"},
	{service.ErrCustomerNotUpdated, "Customer not updated"},
	{service.ErrBranchNotCreated, "Branch not created"},
	{service.ErrBranchNotUpdated, "Branch not updated"},
	{service.ErrProductNotCreated, "Product not created"},
}

func notPersistedMessage(err error) (string, bool) {
	for _, np := range notPersisted {
		if errors.Is(err, np.err) {
			return np.message, true
		}
	}
	return "", false
}

func itemInputs(items []SaleItemHTTPRequest) []service.SaleItemInput {
	inputs := make([]service.SaleItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, service.SaleItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return inputs
}
