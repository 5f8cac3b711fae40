package main

import (
	"net/http"
	"strconv"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type createShipmentRequest struct {
	OrderID          int64  `json:"order_id"`
	RecipientName    string `json:"recipient_name"`
	RecipientAddress string `json:"recipient_address"`
	RecipientPhone   string `json:"recipient_phone"`
}

type shipmentStatusRequest struct {
	Status      string  `json:"status"`
	Location    *string `json:"location"`
	Description string  `json:"description"`
}

func registerShipmentRoutes(g *echo.Group, ss *services.ShipmentService) {
	// PUBLIC tracking lookup by number
	g.GET("/tracking/:number", func(c echo.Context) error {
		sh, hist, err := ss.TrackByNumber(c.Request().Context(), c.Param("number"))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"shipment": sh, "tracking": hist})
	})

	p := g.Group("/shipments")
	p.Use(middleware.JWTMiddleware())

	// CREATE shipment for a paid order (admin)
	p.POST("", middleware.AdminOnly(func(c echo.Context) error {
		req := new(createShipmentRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if req.RecipientName == "" || req.RecipientAddress == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "recipient name and address required"})
		}
		sh, err := ss.Create(c.Request().Context(), req.OrderID, req.RecipientName, req.RecipientAddress, req.RecipientPhone)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, sh)
	}))

	// ADVANCE shipment status (admin)
	p.PUT("/:id/status", middleware.AdminOnly(func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shipment id"})
		}
		req := new(shipmentStatusRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := ss.UpdateStatus(c.Request().Context(), id, req.Status, req.Location, req.Description); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
	}))

	// MY order's shipment
	p.GET("/order/:orderid", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		orderID, err := strconv.ParseInt(c.Param("orderid"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}
		sh, hist, err := ss.TrackForOrder(c.Request().Context(), orderID, claims.UserID, middleware.IsAdmin(c))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"shipment": sh, "tracking": hist})
	})
}
