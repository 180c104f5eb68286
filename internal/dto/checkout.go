package dto

// CheckoutItem is a cart line priced server-side.
type CheckoutItem struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id,omitempty"`
	Quantity    int64 `json:"quantity"`
}

// CheckoutRequest starts a payment. Registered users send a bearer credential; guests send
// their contact details instead.
type CheckoutRequest struct {
	TotalAmount  int64          `json:"total_amount"`
	GuestEmail   string         `json:"guest_email,omitempty"`
	GuestAddress string         `json:"guest_address,omitempty"`
	ReturnURL    string         `json:"return_url,omitempty"`
	Items        []CheckoutItem `json:"items,omitempty"`
}

// CheckoutResponse tells the client where to send the payer.
type CheckoutResponse struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	BuyOrder string `json:"buy_order"`
}

// CardDetail is the masked card the processor reports.
type CardDetail struct {
	CardNumber string `json:"card_number"`
}

// ConfirmResponse relays the gateway commit payload to the result page, plus the
// ledger's verdict for the order.
type ConfirmResponse struct {
	Status            string      `json:"status"`
	Amount            int64       `json:"amount"`
	BuyOrder          string      `json:"buy_order"`
	SessionID         string      `json:"session_id,omitempty"`
	VCI               string      `json:"vci,omitempty"`
	ResponseCode      *int        `json:"response_code,omitempty"`
	AuthorizationCode string      `json:"authorization_code,omitempty"`
	PaymentTypeCode   string      `json:"payment_type_code,omitempty"`
	CardDetail        *CardDetail `json:"card_detail,omitempty"`
	OrderStatus       string      `json:"order_status"`
}
