package main

import (
	"net/http"
	"strconv"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type checkoutRequest struct {
	VoucherCode string `json:"voucher_code"`
}

func registerOrderRoutes(g *echo.Group, osvc *services.OrderService) {
	p := g.Group("/orders")
	p.Use(middleware.JWTMiddleware())

	// CHECKOUT: cart -> Pending order
	p.POST("/checkout", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		req := new(checkoutRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		result, err := osvc.Checkout(c.Request().Context(), claims.UserID, req.VoucherCode)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, result)
	})

	// LIST my orders
	p.GET("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		orders, err := osvc.ListForUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, orders)
	})

	// GET one order
	p.GET("/:id", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}
		order, err := osvc.Get(c.Request().Context(), id, claims.UserID, middleware.IsAdmin(c))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, order)
	})

	// CANCEL before payment
	p.POST("/:id/cancel", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}
		if err := osvc.Cancel(c.Request().Context(), id, claims.UserID); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
	})
}
