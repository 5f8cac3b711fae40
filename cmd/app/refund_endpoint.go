package main

import (
	"net/http"
	"strconv"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type refundRequest struct {
	OrderID     int64   `json:"order_id"`
	Reason      string  `json:"reason"`
	Description *string `json:"description"`
}

type refundDecisionRequest struct {
	Note *string `json:"note"`
}

type refundCompleteRequest struct {
	Method string  `json:"method"`
	Ref    *string `json:"ref"`
}

func registerRefundRoutes(g *echo.Group, rs *services.RefundService) {
	p := g.Group("/refunds")
	p.Use(middleware.JWTMiddleware())

	// REQUEST a refund for a paid order
	p.POST("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		req := new(refundRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if req.Reason == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
		}
		id, err := rs.Request(c.Request().Context(), claims.UserID, req.OrderID, req.Reason, req.Description)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusCreated, echo.Map{"refund_id": id})
	})

	// MY refunds
	p.GET("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		refunds, err := rs.ListForUser(c.Request().Context(), claims.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, refunds)
	})

	// ALL refunds (admin queue)
	p.GET("/all", middleware.AdminOnly(func(c echo.Context) error {
		refunds, err := rs.ListAll(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, refunds)
	}))

	p.GET("/:id", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
		}
		f, err := rs.Get(c.Request().Context(), id, claims.UserID, middleware.IsAdmin(c))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, f)
	})

	// WITHDRAW my pending refund
	p.POST("/:id/cancel", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
		}
		if err := rs.Cancel(c.Request().Context(), claims.UserID, id); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
	})

	// ADMIN decisions
	p.POST("/:id/approve", middleware.AdminOnly(func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
		}
		req := new(refundDecisionRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := rs.Approve(c.Request().Context(), claims.UserID, id, req.Note); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "approved"})
	}))

	p.POST("/:id/reject", middleware.AdminOnly(func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
		}
		req := new(refundDecisionRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := rs.Reject(c.Request().Context(), claims.UserID, id, req.Note); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "rejected"})
	}))

	p.POST("/:id/complete", middleware.AdminOnly(func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refund id"})
		}
		req := new(refundCompleteRequest)
		if err := c.Bind(req); err != nil || req.Method == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		if err := rs.Complete(c.Request().Context(), claims.UserID, id, req.Method, req.Ref); err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "completed"})
	}))
}
