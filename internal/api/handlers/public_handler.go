package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/fieldservice/internal/service"
)

// PublicHandler serves the unauthenticated portal views linked from QR
// codes and notification emails
type PublicHandler struct {
	orders  *service.OrderService
	catalog *service.CatalogService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(orders *service.OrderService, catalog *service.CatalogService) *PublicHandler {
	return &PublicHandler{
		orders:  orders,
		catalog: catalog,
	}
}

// HandleOrderStatus returns the portal view of an order by number
func (h *PublicHandler) HandleOrderStatus(c *gin.Context) {
	status, err := h.orders.GetPublicStatus(c, c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleEquipmentLookup resolves a QR lookup key to the equipment card
func (h *PublicHandler) HandleEquipmentLookup(c *gin.Context) {
	card, err := h.catalog.LookupEquipment(c, c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// RegisterRoutes registers the handler's routes
func (h *PublicHandler) RegisterRoutes(router *gin.Engine) {
	public := router.Group("/public")
	{
		public.GET("/service/:number", h.HandleOrderStatus)
		public.GET("/equipment/:key", h.HandleEquipmentLookup)
	}
}
