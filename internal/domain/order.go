package domain

import "time"

// ============================================================
// Orders — a pharmacy-priced, accepted quote
// ============================================================

// Order is as returned by the upstream order endpoints.
type Order struct {
	ID            int64           `json:"id"`
	QuoteID       int64           `json:"quoteId"`
	PharmacyID    int64           `json:"pharmacyId"`
	CreateDate    time.Time       `json:"createDate"`
	UpdateDate    time.Time       `json:"updateDate"`
	Status        string          `json:"status"`
	ShippingCost  float64         `json:"shippingCost"`
	DiscountValue float64         `json:"discountValue"`
	Items         []OrderLineItem `json:"items"`
}

// OrderLineItem is one priced compound entry. Ignore excludes the item from
// the computed total without deleting it.
type OrderLineItem struct {
	ID                 int64   `json:"id,omitempty"`
	QuoteItemID        int64   `json:"quoteItemId"`
	MainCompoundName   string  `json:"mainCompoundName,omitempty"`
	PharmaceuticalForm string  `json:"pharmaceuticalForm,omitempty"`
	UnitPrice          float64 `json:"unitPrice"`
	TotalQuantity      int     `json:"totalQuantity"`
	Ignore             bool    `json:"ignore"`
}

// CreateOrderRequest is the body for POST /v1/orders.
type CreateOrderRequest struct {
	QuoteID       int64           `json:"quoteId"`
	ShippingCost  float64         `json:"shippingCost"`
	DiscountValue float64         `json:"discountValue"`
	Total         float64         `json:"total"`
	Items         []OrderLineItem `json:"items"`
}

// OrderTotalRequest is the body for POST /v1/orders/preview-total.
type OrderTotalRequest struct {
	ShippingCost  float64         `json:"shippingCost"`
	DiscountValue float64         `json:"discountValue"`
	Items         []OrderLineItem `json:"items"`
}

// OrderTotalResponse carries the computed total. Display carries the
// 2-fraction-digit rendering; Total keeps the unrounded stored value.
type OrderTotalResponse struct {
	Total   float64 `json:"total"`
	Display string  `json:"display"`
}
