package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/service"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// OrderHandler handles order and fulfillment HTTP endpoints.
type OrderHandler struct {
	orderService       *service.OrderService
	fulfillmentService *service.FulfillmentService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orderService *service.OrderService, fulfillmentService *service.FulfillmentService) *OrderHandler {
	return &OrderHandler{orderService: orderService, fulfillmentService: fulfillmentService}
}

// findOrderRequest is the storefront fulfillment payload.
type findOrderRequest struct {
	OrderID    string `json:"order_id" binding:"required"`
	ItemName   string `json:"item_name" binding:"required"`
	OS         string `json:"os"`
	Version    string `json:"version"`
	ItemAmount int    `json:"item_amount" binding:"omitempty,min=1"`
}

type processOrderRequest struct {
	OrderID      string `json:"order_id" binding:"required"`
	ItemName     string `json:"item_name" binding:"required"`
	OS           string `json:"os"`
	Version      string `json:"version"`
	LicenseCount int    `json:"license_count" binding:"omitempty,min=1"`
	Status       string `json:"status"`
}

// fulfillmentResponse is the flat contract consumed by the storefront
// integration; it is deliberately not wrapped in the standard envelope.
type fulfillmentResponse struct {
	Message      string   `json:"message"`
	Item         string   `json:"item"`
	OrderID      *string  `json:"order_id"`
	DownloadLink *string  `json:"download_link"`
	Licenses     []string `json:"licenses"`
}

// FindOrder handles POST /orders/find: the primary fulfillment path with
// the link-only fallback when stock runs out.
func (h *OrderHandler) FindOrder(c *gin.Context) {
	var req findOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	result, err := h.fulfillmentService.FindOrder(c.Request.Context(), service.FindOrderRequest{
		OrderID:    req.OrderID,
		ItemName:   req.ItemName,
		OS:         req.OS,
		Version:    req.Version,
		ItemAmount: req.ItemAmount,
	})
	if err != nil {
		h.writeFulfillmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, fulfillmentResponse{
		Message:      fulfillmentMessage(result.Outcome),
		Item:         result.Item,
		OrderID:      result.OrderID,
		DownloadLink: result.DownloadLink,
		Licenses:     result.Licenses,
	})
}

// ProcessOrder handles POST /orders/process: fulfillment without the
// link-only fallback; a missing version or empty pool is a hard failure.
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	var req processOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	result, err := h.fulfillmentService.ProcessOrder(c.Request.Context(), service.ProcessOrderRequest{
		OrderID:      req.OrderID,
		ItemName:     req.ItemName,
		OS:           req.OS,
		Version:      req.Version,
		LicenseCount: req.LicenseCount,
	})
	if err != nil {
		h.writeFulfillmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, fulfillmentResponse{
		Message:      fulfillmentMessage(result.Outcome),
		Item:         result.Item,
		OrderID:      result.OrderID,
		DownloadLink: result.DownloadLink,
		Licenses:     result.Licenses,
	})
}

func (h *OrderHandler) writeFulfillmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrSoftwareNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Software not found"})
	case errors.Is(err, utils.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Software version not found"})
	case errors.Is(err, utils.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Insufficient license stock"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process order"})
	}
}

func fulfillmentMessage(o service.Outcome) string {
	switch o {
	case service.OutcomeNoLicenseRequired:
		return "Software does not require a license"
	case service.OutcomeVersionNotFound:
		return "Software version not found"
	case service.OutcomeLinkOnly:
		return "License out of stock, download link provided"
	default:
		return "Order processed successfully"
	}
}

// GetOrders returns all orders with their licenses.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	orders, err := h.orderService.GetAll()
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get orders")
		return
	}
	utils.Success(c, 200, "Orders retrieved successfully", gin.H{"orders": orders})
}

// GetOrder returns one order by id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid order id")
		return
	}

	order, err := h.orderService.GetByID(id)
	if err != nil {
		if errors.Is(err, utils.ErrOrderNotFound) {
			utils.Error(c, 404, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get order")
		return
	}
	utils.Success(c, 200, "Order retrieved successfully", gin.H{"order": order})
}

type orderRequest struct {
	OrderID      string `json:"order_id"`
	ItemName     string `json:"item_name" binding:"required"`
	OS           string `json:"os"`
	Version      string `json:"version"`
	LicenseCount int    `json:"license_count"`
	Status       string `json:"status"`
}

// CreateOrder records a manual order entry without touching the pool.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	order := models.Order{
		OrderID:      req.OrderID,
		ItemName:     req.ItemName,
		OS:           req.OS,
		Version:      req.Version,
		LicenseCount: req.LicenseCount,
		Status:       models.OrderStatus(req.Status),
	}
	if err := h.orderService.Create(&order); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create order")
		return
	}
	utils.Success(c, 201, "Order created successfully", gin.H{"order": order})
}

// UpdateOrder updates an order's fields.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid order id")
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.OrderID == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "order_id is required")
		return
	}

	order := models.Order{
		ID:           id,
		OrderID:      req.OrderID,
		ItemName:     req.ItemName,
		OS:           req.OS,
		Version:      req.Version,
		LicenseCount: req.LicenseCount,
		Status:       models.OrderStatus(req.Status),
	}
	if err := h.orderService.Update(&order); err != nil {
		if errors.Is(err, utils.ErrOrderNotFound) {
			utils.Error(c, 404, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update order")
		return
	}
	utils.Success(c, 200, "Order updated successfully", gin.H{"order": order})
}

// DeleteOrder releases every license the order holds and removes the order.
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.Error(c, 400, "INVALID_ID", "Invalid order id")
		return
	}

	released, err := h.fulfillmentService.ReleaseOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrOrderNotFound) {
			utils.Error(c, 404, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete order")
		return
	}
	utils.Success(c, 200, "Order deleted successfully", gin.H{"released_licenses": released})
}

// GetUsage returns per-software order counts for a date range.
func (h *OrderHandler) GetUsage(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	usage, err := h.orderService.Usage(c.Request.Context(), start, end)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 200, "Usage retrieved successfully", gin.H{"usage": usage})
}

// CountOrders returns the number of orders created in a date range.
func (h *OrderHandler) CountOrders(c *gin.Context) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "start_date and end_date are required")
		return
	}

	count, err := h.orderService.Count(start, end)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	utils.Success(c, 200, "Order count retrieved successfully", gin.H{"count": count})
}
