package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/internal/model"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/service"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// OrderHandler handles service order HTTP requests
type OrderHandler struct {
	orders  *service.OrderService
	billing *service.BillingService
	tracer  tracing.Tracer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, billing *service.BillingService, tracer tracing.Tracer) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		billing: billing,
		tracer:  tracer,
	}
}

// HandleCreateOrder opens a new service order
func (h *OrderHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c, &req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// HandleGetOrder returns one order by ID
func (h *OrderHandler) HandleGetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleListOrders lists orders with query filters
func (h *OrderHandler) HandleListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		State:        model.OrderState(c.Query("state")),
		Priority:     model.OrderPriority(c.Query("priority")),
		CustomerID:   c.Query("customer_id"),
		TechnicianID: c.Query("technician_id"),
		EquipmentID:  c.Query("equipment_id"),
	}
	if filter.State != "" && !filter.State.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
		return
	}

	orders, err := h.orders.ListOrders(c, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// HandleGetOrderLogs returns the audit trail for an order
func (h *OrderHandler) HandleGetOrderLogs(c *gin.Context) {
	logs, err := h.orders.GetOrderLogs(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// HandleAssign schedules an order onto a technician
func (h *OrderHandler) HandleAssign(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-assign-order")
	defer h.tracer.EndTransaction(txn)

	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Assign(c, c.Param("id"), &req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RescheduleRequest adds an optional reason to the schedule payload
type RescheduleRequest struct {
	service.AssignRequest
	Reason string `json:"reason"`
}

// HandleReschedule moves an assigned order to a new slot
func (h *OrderHandler) HandleReschedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reschedule-order")
	defer h.tracer.EndTransaction(txn)

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Reschedule(c, c.Param("id"), &req.AssignRequest, req.Reason)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleBatchAssign assigns a batch of orders
func (h *OrderHandler) HandleBatchAssign(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-batch-assign")
	defer h.tracer.EndTransaction(txn)

	var req struct {
		Items []service.BatchAssignItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.orders.BatchAssign(c, req.Items)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HandleStart marks the order in progress
func (h *OrderHandler) HandleStart(c *gin.Context) {
	order, err := h.orders.Start(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleRequestApproval submits the diagnosis for customer approval
func (h *OrderHandler) HandleRequestApproval(c *gin.Context) {
	var req service.RequestApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.RequestApproval(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleAccept records customer approval
func (h *OrderHandler) HandleAccept(c *gin.Context) {
	order, err := h.orders.Accept(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleReject records customer rejection
func (h *OrderHandler) HandleReject(c *gin.Context) {
	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Reject(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleComplete closes out the order and triggers invoicing
func (h *OrderHandler) HandleComplete(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-complete-order")
	defer h.tracer.EndTransaction(txn)

	var req service.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Complete(c, c.Param("id"), &req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	// Invoice generation failure never fails the completion, the sweep
	// picks it up later
	if _, err := h.billing.GenerateForOrder(c, order.UUID); err != nil {
		log.Warn().Err(err).Str("order_id", order.UUID).Msg("invoice generation deferred to sweep")
	}

	c.JSON(http.StatusOK, order)
}

// HandleCancel cancels the order
func (h *OrderHandler) HandleCancel(c *gin.Context) {
	var req service.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Cancel(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleAddLine attaches a refaction line
func (h *OrderHandler) HandleAddLine(c *gin.Context) {
	var req service.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	line, err := h.orders.AddLine(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

// HandleRemoveLine detaches a refaction line
func (h *OrderHandler) HandleRemoveLine(c *gin.Context) {
	if err := h.orders.RemoveLine(c, c.Param("id"), c.Param("lineId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGetInvoice returns the invoice generated for an order
func (h *OrderHandler) HandleGetInvoice(c *gin.Context) {
	order, err := h.orders.GetOrder(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.InvoiceID == nil {
		respondError(c, repository.ErrNotFound)
		return
	}

	invoice, err := h.billing.GetInvoice(c, *order.InvoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// HandleSearch runs a full-text search over orders
func (h *OrderHandler) HandleSearch(c *gin.Context) {
	text := c.Query("q")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	docs, err := h.orders.SearchOrders(c, text, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": docs, "count": len(docs)})
}

// RegisterRoutes registers the handler's routes
func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.HandleCreateOrder)
		orders.GET("", h.HandleListOrders)
		orders.POST("/assign-batch", h.HandleBatchAssign)
		orders.GET("/search", h.HandleSearch)
		orders.GET("/:id", h.HandleGetOrder)
		orders.GET("/:id/logs", h.HandleGetOrderLogs)
		orders.GET("/:id/invoice", h.HandleGetInvoice)
		orders.POST("/:id/assign", h.HandleAssign)
		orders.POST("/:id/reschedule", h.HandleReschedule)
		orders.POST("/:id/start", h.HandleStart)
		orders.POST("/:id/request-approval", h.HandleRequestApproval)
		orders.POST("/:id/accept", h.HandleAccept)
		orders.POST("/:id/reject", h.HandleReject)
		orders.POST("/:id/complete", h.HandleComplete)
		orders.POST("/:id/cancel", h.HandleCancel)
		orders.POST("/:id/lines", h.HandleAddLine)
		orders.DELETE("/:id/lines/:lineId", h.HandleRemoveLine)
	}
}
