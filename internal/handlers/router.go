package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the gateway's HTTP routes.
func NewRouter(
	checkoutH *CheckoutHandler,
	paymentH *PaymentHandler,
	tokenH *TokenHandler,
	diagnosticsH *DiagnosticsHandler,
	healthH http.HandlerFunc,
	requestTimeout time.Duration,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", healthH)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", checkoutH.HandleSession)
			r.Post("/widget-result", checkoutH.HandleWidgetResult)
			r.Post("/await", checkoutH.HandleAwait)
			r.Post("/complete", checkoutH.HandleComplete)
			r.Post("/log", diagnosticsH.HandleLog)
			r.Post("/orders/{orderID}/nonce", func(w http.ResponseWriter, req *http.Request) {
				checkoutH.HandleNonce(w, req, chi.URLParam(req, "orderID"))
			})
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Post("/charge", func(w http.ResponseWriter, req *http.Request) {
				paymentH.HandleCharge(w, req, chi.URLParam(req, "orderID"))
			})
			r.Post("/capture", func(w http.ResponseWriter, req *http.Request) {
				paymentH.HandleCapture(w, req, chi.URLParam(req, "orderID"))
			})
			r.Post("/refund", func(w http.ResponseWriter, req *http.Request) {
				paymentH.HandleRefund(w, req, chi.URLParam(req, "orderID"))
			})
		})

		r.Route("/customers/{customerID}/tokens", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				tokenH.HandleList(w, req, chi.URLParam(req, "customerID"))
			})
			r.Delete("/{tokenID}", func(w http.ResponseWriter, req *http.Request) {
				tokenH.HandleDelete(w, req, chi.URLParam(req, "customerID"), chi.URLParam(req, "tokenID"))
			})
		})
	})

	return r
}
