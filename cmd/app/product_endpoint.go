package main

import (
	"net/http"
	"strconv"

	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerProductRoutes(g *echo.Group, ps *services.ProductService) {
	p := g.Group("/products")

	p.GET("", func(c echo.Context) error {
		products, err := ps.List(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, products)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
		}
		product, err := ps.Get(c.Request().Context(), id)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, product)
	})
}
