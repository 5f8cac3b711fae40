package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"HBMartAPI/internal/middleware"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
)

type startPaymentRequest struct {
	Method string `json:"method"`
}

// registerPaymentRoutes mounts the pay/status/finish trio for one payable
// kind under its resource prefix, e.g. /api/orders/:id/pay.
func registerPaymentRoutes(g *echo.Group, prefix, kind string, ps *services.PaymentService) {
	p := g.Group("/" + prefix + "/:id/pay")

	// FINISH: provider redirect target, public. Possession of the
	// correlation token is the credential here; the browser coming back
	// from the gateway has no JWT.
	p.GET("/finish", func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		token := c.QueryParam("out_trade_no")
		if token == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "out_trade_no required"})
		}
		payable, err := ps.FindByToken(c.Request().Context(), token)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		if payable.Kind != kind || payable.ID != id {
			return c.JSON(http.StatusConflict, echo.Map{"error": "out_trade_no not match this payable"})
		}
		paid, err := ps.Finish(c.Request().Context(), kind, id, payable.UserID, false, token)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"paid": paid})
	})

	auth := p.Group("")
	auth.Use(middleware.JWTMiddleware())

	// START a payment attempt
	auth.POST("", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		req := new(startPaymentRequest)
		if err := c.Bind(req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
		}
		result, err := ps.Start(c.Request().Context(), kind, id, claims.UserID, middleware.IsAdmin(c), req.Method)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, result)
	})

	// POLL status; confirms the payment when the provider says paid
	auth.GET("/status", func(c echo.Context) error {
		claims := middleware.GetClaims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		result, err := ps.CheckStatus(c.Request().Context(), kind, id, claims.UserID, middleware.IsAdmin(c), c.QueryParam("out_trade_no"))
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, statusBody(result))
	})
}

// registerNetsRoutes mounts the public QR page data and the SSE status
// stream. Both are keyed by the correlation token the paying browser holds.
func registerNetsRoutes(g *echo.Group, ps *services.PaymentService) {
	n := g.Group("/nets")

	n.GET("/qr", func(c echo.Context) error {
		token := c.QueryParam("out_trade_no")
		if token == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "out_trade_no required"})
		}
		payable, err := ps.FindByToken(c.Request().Context(), token)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}
		if payable.Paid {
			return c.JSON(http.StatusOK, echo.Map{"paid": true})
		}
		if ps.Sessions == nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "nets payments not configured"})
		}
		sess, err := ps.Sessions.GetOrCreate(c.Request().Context(), token, payable.Amount)
		if err != nil {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"paid":              false,
			"qr_code":           sess.QRCodeBase64,
			"txn_retrieval_ref": sess.TxnRetrievalRef,
			"sse_url": fmt.Sprintf("/api/nets/sse/payment-status/%s?out_trade_no=%s",
				sess.TxnRetrievalRef, token),
		})
	})

	n.GET("/sse/payment-status/:ref", func(c echo.Context) error {
		token := c.QueryParam("out_trade_no")
		if token == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "out_trade_no required"})
		}
		payable, err := ps.FindByToken(c.Request().Context(), token)
		if err != nil {
			return c.JSON(errStatus(err), echo.Map{"error": err.Error()})
		}

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)

		ps.StreamStatus(c.Request().Context(), payable, func(st *services.StatusResult) error {
			body, err := json.Marshal(statusBody(st))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", body); err != nil {
				return err
			}
			res.Flush()
			return nil
		})
		return nil
	})
}

// statusBody flattens a status result with its effect extras into one JSON
// object.
func statusBody(st *services.StatusResult) echo.Map {
	body := echo.Map{"paid": st.Paid}
	if st.RawStatus != "" {
		body["raw_status"] = st.RawStatus
	}
	if st.Error != "" {
		body["error"] = st.Error
	}
	for k, v := range st.Extra {
		body[k] = v
	}
	return body
}
