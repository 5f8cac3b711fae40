package main

import (
	"errors"
	"log"
	"net/http"
	"os"

	"HBMartAPI/external/alipay"
	"HBMartAPI/external/nets"
	"HBMartAPI/external/paypal"

	"HBMartAPI/internal/db"
	"HBMartAPI/internal/payments"
	"HBMartAPI/internal/repository"
	"HBMartAPI/internal/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect()
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	// ======================
	// PAYMENT PROVIDERS
	// ======================
	// A provider with missing credentials is skipped, not fatal: the rest of
	// the store still runs and Start() rejects the method cleanly.
	registry := payments.NewRegistry()

	var sessions *payments.SessionStore
	if ali, err := alipay.NewClient(); err != nil {
		logger.Warn("alipay disabled", zap.Error(err))
	} else {
		registry.Register(payments.MethodAlipay, ali)
	}
	if pp, err := paypal.NewClient(); err != nil {
		logger.Warn("paypal disabled", zap.Error(err))
	} else {
		registry.Register(payments.MethodPayPal, pp)
	}
	if nq, err := nets.NewClient(); err != nil {
		logger.Warn("nets disabled", zap.Error(err))
	} else {
		sessions = payments.NewSessionStore(nq)
		nq.SetSessionStore(sessions)
		registry.Register(payments.MethodNETS, nq)
	}

	// ======================
	// REPOSITORIES
	// ======================
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	voucherRepo := repository.NewVoucherRepository(pool)
	refundRepo := repository.NewRefundRepository(pool)
	shipmentRepo := repository.NewShipmentRepository(pool)

	// ======================
	// SERVICES
	// ======================
	productSvc := services.NewProductService(productRepo)
	cartSvc := services.NewCartService(cartRepo, productRepo)
	voucherSvc := services.NewVoucherService(voucherRepo)
	orderSvc := services.NewOrderService(orderRepo, cartRepo, productRepo, voucherSvc, logger)
	membershipSvc := services.NewMembershipService(membershipRepo, voucherRepo, logger)
	refundSvc := services.NewRefundService(refundRepo, orderRepo, productRepo, voucherRepo, logger)
	shipmentSvc := services.NewShipmentService(shipmentRepo, orderRepo, logger)

	paymentSvc := services.NewPaymentService(registry, sessions, logger)
	paymentSvc.RegisterPayable(services.PayableOrder, &services.OrderPayableStore{Repo: orderRepo}, nil)
	paymentSvc.RegisterPayable(services.PayableMembership, &services.MembershipPayableStore{Repo: membershipRepo}, membershipSvc.OnPaid)

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	api := e.Group("/api")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerProductRoutes(api, productSvc)
	registerCartRoutes(api, cartSvc)
	registerOrderRoutes(api, orderSvc)
	registerPaymentRoutes(api, "orders", services.PayableOrder, paymentSvc)
	registerPaymentRoutes(api, "memberships", services.PayableMembership, paymentSvc)
	registerNetsRoutes(api, paymentSvc)
	registerMembershipRoutes(api, membershipSvc)
	registerVoucherRoutes(api, voucherSvc)
	registerRefundRoutes(api, refundSvc)
	registerShipmentRoutes(api, shipmentSvc)

	// ======================
	// SERVER
	// ======================
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

// errStatus maps service errors onto HTTP statuses; anything unrecognized is
// the caller's fault until proven otherwise.
func errStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrTokenMismatch):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
