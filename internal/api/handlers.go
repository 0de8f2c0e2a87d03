package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/ec-order-core/internal/api/middleware"
	"github.com/example/ec-order-core/internal/command"
	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
	"github.com/example/ec-order-core/internal/infrastructure/store"
	"github.com/example/ec-order-core/internal/payment"
	"github.com/example/ec-order-core/internal/query"
)

const RoleAdmin = "admin"

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	devMode      bool
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, devMode bool) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		devMode:      devMode,
	}
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.PlaceOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims, _ := middleware.GetUserFromContext(r.Context())
	cmd.UserID = claims.UserID
	cmd.UserEmail = claims.Email

	placed, err := h.cmdHandler.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "order": placed})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")

	detail, err := h.queryHandler.OrderByID(r.Context(), id)
	if err != nil {
		h.respondBusinessError(w, err)
		return
	}

	// Users can only access their own orders; admins can access all
	if detail.Order.UserID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		respondMessage(w, http.StatusForbidden, "forbidden")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "order": detail})
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !isAdmin(r) {
		// Non-admins only ever see their own order history.
		filter.UserID = middleware.GetUserID(r.Context())
	}

	page, err := h.queryHandler.ListOrders(r.Context(), filter)
	if err != nil {
		h.respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  page.Orders,
		"total":   page.Total,
		"pages":   page.Pages,
	})
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/status")

	var cmd command.UpdateOrderStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.OrderID = id

	updated, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		h.respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "order": updated})
}

// Payment Handlers

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreatePayment
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())
	cmd.Admin = isAdmin(r)

	gatewayOrder, err := h.cmdHandler.CreatePayment(r.Context(), cmd)
	if err != nil {
		h.respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"gateway_order_id": gatewayOrder.GatewayOrderID,
		"amount":           gatewayOrder.Amount,
		"currency":         gatewayOrder.Currency,
	})
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var cmd command.VerifyPayment
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		cmd.UserEmail = claims.Email
	}

	if err := h.cmdHandler.VerifyPayment(r.Context(), cmd); err != nil {
		h.respondBusinessError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "verified": true})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// respondBusinessError maps domain sentinels onto the HTTP error taxonomy.
// Unknown errors surface as 500 with the detail suppressed outside dev mode.
func (h *Handlers) respondBusinessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, coupon.ErrCouponNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payment.ErrNotOrderOwner):
		respondMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrShippingAddressMissing),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponNotYetValid),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponLimitReached),
		errors.Is(err, coupon.ErrCouponMinOrderNotMet),
		errors.Is(err, coupon.ErrCouponPerUserLimitReached),
		errors.Is(err, payment.ErrSignatureMismatch),
		errors.Is(err, payment.ErrPaymentNotPending),
		errors.Is(err, payment.ErrMissingGatewayData):
		respondMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		message := "internal server error"
		if h.devMode {
			message = err.Error()
		}
		respondMessage(w, http.StatusInternalServerError, message)
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func parseOrderFilter(r *http.Request) (store.OrderFilter, error) {
	q := r.URL.Query()
	filter := store.OrderFilter{
		Status:        order.Status(q.Get("status")),
		PaymentStatus: order.PaymentStatus(q.Get("payment_status")),
	}
	if filter.Status != "" && !order.ValidStatus(filter.Status) {
		return filter, errors.New("unknown status filter")
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, errors.New("invalid page")
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid from date")
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid to date")
		}
		filter.To = to
	}
	return filter, nil
}

// isAdmin checks if the current user has admin role
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == RoleAdmin
}
