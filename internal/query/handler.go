package query

import (
	"context"
	"log"

	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/infrastructure/store"
)

// ItemProjection is an order line joined with the product's current state.
// Snapshot fields (Price) come from the order; Name/CurrentPrice reflect the
// product as it is now.
type ItemProjection struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"`
	Size         string `json:"size,omitempty"`
	Color        string `json:"color,omitempty"`
	CurrentPrice int64  `json:"current_price,omitempty"`
	InStock      bool   `json:"in_stock"`
}

// OrderDetail is the read model for a single order.
type OrderDetail struct {
	Order *order.Order     `json:"order"`
	Items []ItemProjection `json:"items"`
}

// OrderPage is the paginated admin listing.
type OrderPage struct {
	Orders []*order.Order `json:"orders"`
	Total  int            `json:"total"`
	Pages  int            `json:"pages"`
}

type Handler struct {
	orders   store.OrderStore
	products store.ProductStore
}

func NewHandler(orders store.OrderStore, products store.ProductStore) *Handler {
	return &Handler{orders: orders, products: products}
}

// OrderByID returns the order with product projections for its items.
func (h *Handler) OrderByID(ctx context.Context, id string) (*OrderDetail, error) {
	o, err := h.orders.OrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.products.ProductsByIDs(ctx, ids)
	if err != nil {
		// Projections are best effort; the order itself is authoritative.
		log.Printf("[Query] Product projection failed for order %s: %v", id, err)
		products = nil
	}

	detail := &OrderDetail{Order: o, Items: make([]ItemProjection, 0, len(o.Items))}
	for _, item := range o.Items {
		projection := ItemProjection{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Size:      item.Size,
			Color:     item.Color,
		}
		if p, ok := products[item.ProductID]; ok {
			projection.Name = p.Name
			projection.CurrentPrice = p.Price
			projection.InStock = p.Stock > 0
		}
		detail.Items = append(detail.Items, projection)
	}
	return detail, nil
}

// ListOrders returns a filtered page of orders with the total page count.
func (h *Handler) ListOrders(ctx context.Context, filter store.OrderFilter) (*OrderPage, error) {
	orders, total, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*order.Order{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	pages := (total + limit - 1) / limit

	return &OrderPage{Orders: orders, Total: total, Pages: pages}, nil
}
