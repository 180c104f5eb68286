package dto

import "time"

// OrderResponse represents an order as exposed via transport layers. Guest contact details
// are never echoed back.
type OrderResponse struct {
	BuyOrder     string    `json:"buy_order"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	PaymentType  string    `json:"payment_type"`
	Guest        bool      `json:"guest"`
	ResponseCode *int      `json:"response_code,omitempty"`
	VCI          *string   `json:"vci,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
