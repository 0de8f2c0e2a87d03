package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/ec-order-core/internal/api/middleware"
	"github.com/example/ec-order-core/internal/auth"
)

type RouterConfig struct {
	Handlers   *Handlers
	JWTService *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	handlers := cfg.Handlers

	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	requireAdmin := middleware.RequireRole(RoleAdmin)

	mux.HandleFunc("/healthz", handlers.Health)

	// Orders
	mux.Handle("/orders", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListOrders(w, r)
		case http.MethodPost:
			handlers.PlaceOrder(w, r)
		default:
			respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})))

	mux.Handle("/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/status") && r.Method == http.MethodPut:
			requireAdmin(http.HandlerFunc(handlers.UpdateOrderStatus)).ServeHTTP(w, r)
		case r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})))

	// Payments
	mux.Handle("/payments/order", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handlers.CreatePayment(w, r)
	})))

	mux.Handle("/payments/verify", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondMessage(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handlers.VerifyPayment(w, r)
	})))

	return withLogging(mux)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
