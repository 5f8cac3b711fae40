package main

import (
	"net/http"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type validateVoucherRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

func registerVoucherRoutes(g *echo.Group, vs *services.VoucherService) {
	p := g.Group("/vouchers")
	p.Use(middleware.JWTMiddleware())

	p.GET("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		vouchers, err := vs.ListForUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, vouchers)
	})

	// VALIDATE a code against a subtotal before checkout
	p.POST("/validate", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		req := new(validateVoucherRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		v, discount, err := vs.Validate(c.Request().Context(), req.Code, claims.UserID, decimal.NewFromFloat(req.Subtotal))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"voucher":  v,
			"discount": discount.InexactFloat64(),
		})
	})
}
