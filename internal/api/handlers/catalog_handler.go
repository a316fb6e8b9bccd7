package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/fieldservice/internal/service"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// CatalogHandler handles customer, equipment and reference data requests
type CatalogHandler struct {
	catalog *service.CatalogService
	billing *service.BillingService
	tracer  tracing.Tracer
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *service.CatalogService, billing *service.BillingService, tracer tracing.Tracer) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		billing: billing,
		tracer:  tracer,
	}
}

// HandleCreateCustomer creates a customer
func (h *CatalogHandler) HandleCreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.catalog.CreateCustomer(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// HandleUpdateCustomer updates a customer
func (h *CatalogHandler) HandleUpdateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.catalog.UpdateCustomer(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// HandleGetCustomer returns a customer by ID
func (h *CatalogHandler) HandleGetCustomer(c *gin.Context) {
	customer, err := h.catalog.GetCustomer(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// HandleListCustomers lists customers
func (h *CatalogHandler) HandleListCustomers(c *gin.Context) {
	customers, err := h.catalog.ListCustomers(c, c.Query("service_clients") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "count": len(customers)})
}

// HandleListCustomerEquipment lists a customer's equipment
func (h *CatalogHandler) HandleListCustomerEquipment(c *gin.Context) {
	equipment, err := h.catalog.ListCustomerEquipment(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": equipment, "count": len(equipment)})
}

// HandleListCustomerInvoices lists a customer's invoices
func (h *CatalogHandler) HandleListCustomerInvoices(c *gin.Context) {
	invoices, err := h.billing.ListCustomerInvoices(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// HandleCreateEquipment registers equipment
func (h *CatalogHandler) HandleCreateEquipment(c *gin.Context) {
	var req service.EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	equipment, err := h.catalog.CreateEquipment(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, equipment)
}

// HandleGetEquipment returns equipment by ID
func (h *CatalogHandler) HandleGetEquipment(c *gin.Context) {
	equipment, err := h.catalog.GetEquipment(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

// HandleCreateServiceType creates a service type
func (h *CatalogHandler) HandleCreateServiceType(c *gin.Context) {
	var req service.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serviceType, err := h.catalog.CreateServiceType(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serviceType)
}

// HandleListServiceTypes lists active service types
func (h *CatalogHandler) HandleListServiceTypes(c *gin.Context) {
	serviceTypes, err := h.catalog.ListServiceTypes(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_types": serviceTypes, "count": len(serviceTypes)})
}

// HandleCreateProduct creates a product
func (h *CatalogHandler) HandleCreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.catalog.CreateProduct(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// HandleListProducts lists products
func (h *CatalogHandler) HandleListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// RegisterRoutes registers the handler's routes
func (h *CatalogHandler) RegisterRoutes(router *gin.Engine) {
	customers := router.Group("/customers")
	{
		customers.POST("", h.HandleCreateCustomer)
		customers.GET("", h.HandleListCustomers)
		customers.GET("/:id", h.HandleGetCustomer)
		customers.PUT("/:id", h.HandleUpdateCustomer)
		customers.GET("/:id/equipment", h.HandleListCustomerEquipment)
		customers.GET("/:id/invoices", h.HandleListCustomerInvoices)
	}

	equipment := router.Group("/equipment")
	{
		equipment.POST("", h.HandleCreateEquipment)
		equipment.GET("/:id", h.HandleGetEquipment)
	}

	router.POST("/service-types", h.HandleCreateServiceType)
	router.GET("/service-types", h.HandleListServiceTypes)
	router.POST("/products", h.HandleCreateProduct)
	router.GET("/products", h.HandleListProducts)
}
