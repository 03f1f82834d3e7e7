package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

// OrderStatus is the lifecycle state of an order as exported by the
// order system. Values are matched case-insensitively on load.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusFulfilled OrderStatus = "fulfilled"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
)

func (os OrderStatus) String() string {
	return string(os)
}

// ParseOrderStatus normalizes a raw status cell to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPlaced:
		return StatusPlaced, nil
	case StatusFulfilled:
		return StatusFulfilled, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusReturned:
		return StatusReturned, nil
	}
	return "", fmt.Errorf("dataset: unknown order status %q", s)
}

// RefundStatus is the processing state of a return's refund.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundCompleted RefundStatus = "completed"
)

func (rs RefundStatus) String() string {
	return string(rs)
}

// ParseRefundStatus normalizes a raw refund status cell to a RefundStatus.
func ParseRefundStatus(s string) (RefundStatus, error) {
	switch RefundStatus(strings.ToLower(strings.TrimSpace(s))) {
	case RefundPending:
		return RefundPending, nil
	case RefundApproved:
		return RefundApproved, nil
	case RefundRejected:
		return RefundRejected, nil
	case RefundCompleted:
		return RefundCompleted, nil
	}
	return "", fmt.Errorf("dataset: unknown refund status %q", s)
}

type Customer struct {
	ID            string    `json:"id" validate:"required"`
	SignupDate    time.Time `json:"signup_date" validate:"required"`
	SignupChannel string    `json:"signup_channel"`
	Segment       string    `json:"segment"`
	City          string    `json:"city" validate:"required"`
}

type Order struct {
	ID             string      `json:"id" validate:"required"`
	CustomerID     string      `json:"customer_id" validate:"required"`
	OrderDate      time.Time   `json:"order_date" validate:"required"`
	Status         OrderStatus `json:"status" validate:"required"`
	Channel        string      `json:"channel" validate:"required"`
	PaymentMethod  string      `json:"payment_method"`
	CouponCode     string      `json:"coupon_code,omitempty"`
	DiscountAmount float64     `json:"discount_amount" validate:"gte=0"`
	TotalRevenue   float64     `json:"total_revenue" validate:"gte=0"`
}

type OrderItem struct {
	OrderID     string  `json:"order_id" validate:"required"`
	ProductID   string  `json:"product_id" validate:"required"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	LineRevenue float64 `json:"line_revenue" validate:"gte=0"`
}

type FulfillmentEvent struct {
	OrderID            string    `json:"order_id" validate:"required"`
	WarehouseID        string    `json:"warehouse_id"`
	DeliveryPartnerID  string    `json:"delivery_partner_id"`
	PromisedDate       time.Time `json:"promised_date" validate:"required"`
	ActualDeliveryDate time.Time `json:"actual_delivery_date" validate:"required"`
	DelayReason        string    `json:"delay_reason,omitempty"`
	DeliveryZone       string    `json:"delivery_zone"`
}

type Return struct {
	OrderID      string       `json:"order_id" validate:"required"`
	Reason       string       `json:"reason"`
	RefundStatus RefundStatus `json:"refund_status" validate:"required"`
	RefundAmount float64      `json:"refund_amount" validate:"gte=0"`
	ReturnDate   time.Time    `json:"return_date" validate:"required"`
}

// Dataset is the full set of tables for one session. It is loaded once
// and never mutated afterwards; Version changes on every load and keys
// downstream memoization.
type Dataset struct {
	Customers   []Customer
	Orders      []Order
	Items       []OrderItem
	Fulfillment []FulfillmentEvent
	Returns     []Return

	Version uuid.UUID
	// Warnings counts rows skipped for data-quality reasons during load.
	Warnings int
}
