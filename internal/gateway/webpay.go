package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/storefront/internal/config"
)

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

var gatewayTracer = otel.Tracer("github.com/Additional-Code/storefront/gateway")

// Webpay talks to the Transbank Webpay Plus REST API.
type Webpay struct {
	baseURL      string
	commerceCode string
	apiKey       string
	timeout      time.Duration
	http         *http.Client
}

// NewWebpay builds a Webpay Plus client. Each call is bounded by cfg.Timeout, or by
// DefaultTimeout when none is set.
func NewWebpay(cfg config.Gateway) *Webpay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webpay{
		baseURL:      cfg.BaseURL,
		commerceCode: cfg.CommerceCode,
		apiKey:       cfg.APIKey,
		timeout:      timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

type createRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type commitResponse struct {
	VCI               string `json:"vci"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
	BuyOrder          string `json:"buy_order"`
	SessionID         string `json:"session_id"`
	AuthorizationCode string `json:"authorization_code"`
	PaymentTypeCode   string `json:"payment_type_code"`
	ResponseCode      *int   `json:"response_code"`
	CardDetail        struct {
		CardNumber string `json:"card_number"`
	} `json:"card_detail"`
}

type errorResponse struct {
	ErrorMessage string `json:"error_message"`
}

// CreateTransaction registers a transaction and returns the payer redirect target.
func (w *Webpay) CreateTransaction(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ctx, span := gatewayTracer.Start(ctx, "Webpay.CreateTransaction", trace.WithAttributes(
		attribute.String("order.buy_order", req.BuyOrder),
		attribute.Int64("order.amount", req.Amount),
	))
	defer span.End()

	var res createResponse
	err := w.do(ctx, http.MethodPost, transactionsPath, createRequest{
		BuyOrder:  req.BuyOrder,
		SessionID: req.SessionID,
		Amount:    req.Amount,
		ReturnURL: req.ReturnURL,
	}, &res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	if res.Token == "" || res.URL == "" {
		err := &Error{Kind: ErrUnavailable, Message: "create response missing token or url"}
		span.SetStatus(codes.Error, "malformed response")
		return nil, err
	}
	return &CreateResult{URL: res.URL, Token: res.Token}, nil
}

// CommitTransaction finalises a transaction. A declined payment is a normal result.
func (w *Webpay) CommitTransaction(ctx context.Context, token string) (*CommitResult, error) {
	ctx, span := gatewayTracer.Start(ctx, "Webpay.CommitTransaction")
	defer span.End()
	return w.transaction(ctx, span, http.MethodPut, token)
}

// TransactionStatus reads a transaction without committing it.
func (w *Webpay) TransactionStatus(ctx context.Context, token string) (*CommitResult, error) {
	ctx, span := gatewayTracer.Start(ctx, "Webpay.TransactionStatus")
	defer span.End()
	return w.transaction(ctx, span, http.MethodGet, token)
}

func (w *Webpay) transaction(ctx context.Context, span trace.Span, method, token string) (*CommitResult, error) {
	if token == "" {
		return nil, &Error{Kind: ErrRejected, Message: "token is required"}
	}

	var res commitResponse
	if err := w.do(ctx, method, transactionsPath+"/"+url.PathEscape(token), nil, &res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction call failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.status", res.Status))

	return &CommitResult{
		Status:            res.Status,
		Amount:            res.Amount,
		BuyOrder:          res.BuyOrder,
		SessionID:         res.SessionID,
		VCI:               res.VCI,
		ResponseCode:      res.ResponseCode,
		AuthorizationCode: res.AuthorizationCode,
		PaymentTypeCode:   res.PaymentTypeCode,
		CardNumber:        res.CardDetail.CardNumber,
	}, nil
}

func (w *Webpay) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode webpay request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build webpay request: %w", err)
	}
	req.Header.Set("Tbk-Api-Key-Id", w.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", w.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return &Error{Kind: ErrUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: ErrUnavailable, HTTPStatus: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(raw, &apiErr)
		kind := ErrUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			kind = ErrRejected
		}
		return &Error{Kind: kind, HTTPStatus: resp.StatusCode, Message: apiErr.ErrorMessage}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: ErrUnavailable, HTTPStatus: resp.StatusCode, Err: fmt.Errorf("decode webpay response: %w", err)}
	}
	return nil
}

// IsTimeout reports whether err came from the client deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
