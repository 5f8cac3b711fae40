package main

import (
	"net/http"
	"strconv"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type subscribeRequest struct {
	PlanID int64 `json:"plan_id"`
}

func registerMembershipRoutes(g *echo.Group, ms *services.MembershipService) {
	p := g.Group("/memberships")

	// PLANS are public
	p.GET("/plans", func(c echo.Context) error {
		plans, err := ms.ListPlans(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, plans)
	})

	auth := p.Group("")
	auth.Use(middleware.JWTMiddleware())

	// SUBSCRIBE: creates a Pending membership awaiting payment
	auth.POST("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		req := new(subscribeRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		id, err := ms.Subscribe(c.Request().Context(), claims.UserID, req.PlanID)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, echo.Map{"membership_id": id})
	})

	// MY memberships, with the active one picked out
	auth.GET("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		all, err := ms.ListForUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		active, err := ms.ActiveForUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"active": active, "memberships": all})
	})

	auth.GET("/:id", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid membership id"})
		}
		m, err := ms.Get(c.Request().Context(), id, claims.UserID, middleware.IsAdmin(c))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, m)
	})
}
