package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/fieldservice/internal/service"
	"example.com/backstage/services/fieldservice/internal/tracing"
)

// TechnicianHandler handles technician and availability requests
type TechnicianHandler struct {
	catalog  *service.CatalogService
	registry *service.RegistryService
	tracer   tracing.Tracer
}

// NewTechnicianHandler creates a new technician handler
func NewTechnicianHandler(catalog *service.CatalogService, registry *service.RegistryService, tracer tracing.Tracer) *TechnicianHandler {
	return &TechnicianHandler{
		catalog:  catalog,
		registry: registry,
		tracer:   tracer,
	}
}

// HandleCreateTechnician registers a technician
func (h *TechnicianHandler) HandleCreateTechnician(c *gin.Context) {
	var req service.TechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	technician, err := h.catalog.CreateTechnician(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, technician)
}

// HandleUpdateTechnician updates a technician
func (h *TechnicianHandler) HandleUpdateTechnician(c *gin.Context) {
	var req service.TechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	technician, err := h.catalog.UpdateTechnician(c, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, technician)
}

// HandleGetTechnician returns a technician by ID
func (h *TechnicianHandler) HandleGetTechnician(c *gin.Context) {
	technician, err := h.catalog.GetTechnician(c, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, technician)
}

// HandleListTechnicians lists technicians
func (h *TechnicianHandler) HandleListTechnicians(c *gin.Context) {
	technicians, err := h.catalog.ListTechnicians(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": technicians, "count": len(technicians)})
}

func parseDay(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// HandleGetSlots returns the technician's free slots for a day
func (h *TechnicianHandler) HandleGetSlots(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-technician-slots")
	defer h.tracer.EndTransaction(txn)

	day, ok := parseDay(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter required, format 2006-01-02"})
		return
	}

	slots, err := h.registry.AvailableSlots(c, c.Param("id"), day)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "count": len(slots)})
}

// HandleGetWorkload returns a technician's workload over a date range
func (h *TechnicianHandler) HandleGetWorkload(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().AddDate(0, 0, -30).Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", time.Now().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	workload, err := h.registry.GetWorkload(c, c.Param("id"), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workload)
}

// HandleFindAvailable lists technicians with free slots on a day
func (h *TechnicianHandler) HandleFindAvailable(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter required, format 2006-01-02"})
		return
	}

	available, err := h.registry.FindAvailable(c, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available, "count": len(available)})
}

// RegisterRoutes registers the handler's routes
func (h *TechnicianHandler) RegisterRoutes(router *gin.Engine) {
	technicians := router.Group("/technicians")
	{
		technicians.POST("", h.HandleCreateTechnician)
		technicians.GET("", h.HandleListTechnicians)
		technicians.GET("/available", h.HandleFindAvailable)
		technicians.GET("/:id", h.HandleGetTechnician)
		technicians.PUT("/:id", h.HandleUpdateTechnician)
		technicians.GET("/:id/slots", h.HandleGetSlots)
		technicians.GET("/:id/workload", h.HandleGetWorkload)
	}
}
