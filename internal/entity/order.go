package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of a checkout attempt.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is the durable record of a checkout attempt against the payment gateway.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                int64       `bun:",pk,autoincrement" json:"id"`
	BuyOrder          string      `bun:"buy_order,notnull,unique" json:"buy_order"`
	SessionID         string      `bun:"session_id,notnull" json:"session_id"`
	Token             string      `bun:"token,nullzero,unique" json:"token"`
	TotalAmount       int64       `bun:"total_amount,notnull" json:"total_amount"`
	Status            OrderStatus `bun:"status,notnull" json:"status"`
	PaymentType       string      `bun:"payment_type,notnull" json:"payment_type"`
	UserID            *int64      `bun:"user_id" json:"user_id,omitempty"`
	GuestEmail        *string     `bun:"guest_email" json:"guest_email,omitempty"`
	GuestAddress      *string     `bun:"guest_address" json:"guest_address,omitempty"`
	ResponseCode      *int        `bun:"response_code" json:"response_code,omitempty"`
	VCI               *string     `bun:"vci" json:"vci,omitempty"`
	AuthorizationCode *string     `bun:"authorization_code" json:"authorization_code,omitempty"`
	GatewayStatus     *string     `bun:"gateway_status" json:"gateway_status,omitempty"`
	CreatedAt         time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time   `bun:"updated_at,nullzero" json:"updated_at"`
}

// Owner reconstructs the attribution stored on the order.
func (o *Order) Owner() Owner {
	if o.UserID != nil {
		return AuthenticatedOwner{UserID: *o.UserID}
	}
	guest := GuestOwner{}
	if o.GuestEmail != nil {
		guest.Email = *o.GuestEmail
	}
	if o.GuestAddress != nil {
		guest.Address = *o.GuestAddress
	}
	return guest
}

// SetOwner stores the owner on the order, clearing the columns of the other variant.
func (o *Order) SetOwner(owner Owner) {
	o.UserID, o.GuestEmail, o.GuestAddress = nil, nil, nil
	switch v := owner.(type) {
	case AuthenticatedOwner:
		id := v.UserID
		o.UserID = &id
	case GuestOwner:
		email, address := v.Email, v.Address
		o.GuestEmail = &email
		if address != "" {
			o.GuestAddress = &address
		}
	}
}

// PaymentAudit carries the processor fields retained when an order resolves.
type PaymentAudit struct {
	GatewayStatus     string
	ResponseCode      *int
	VCI               string
	AuthorizationCode string
}
