// Package payment implements the checkout.Gateway collaborator against the
// Stripe PaymentIntents API.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/eminaliyev/gift-api/internal/domain/checkout"
)

const defaultBaseURL = "https://api.stripe.com"

var _ checkout.Gateway = (*StripeGateway)(nil)

// StripeGateway charges customers by creating confirmed PaymentIntents.
// The checkout idempotency key is forwarded as Stripe's Idempotency-Key
// header, so a retried checkout can never double-charge.
type StripeGateway struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
}

// NewStripeGateway creates a gateway using the given secret key.
// baseURL overrides the Stripe API host; empty means production.
func NewStripeGateway(secretKey, baseURL string) *StripeGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &StripeGateway{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		secretKey:  secretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Charge creates and immediately confirms a PaymentIntent against the
// customer's stored payment method. Gateway rejections come back as
// *checkout.PaymentError; transport failures as plain errors.
func (g *StripeGateway) Charge(ctx context.Context, req checkout.ChargeRequest) (*checkout.Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	form.Set("payment_method", req.BillingProfile)
	form.Set("confirm", "true")
	for k, v := range req.Metadata {
		if v != "" {
			form.Set("metadata["+k+"]", v)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "post payment intent")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	var intent intentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, errors.Wrapf(err, "decode response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		pe := &checkout.PaymentError{
			Code:    "payment_failed",
			Message: fmt.Sprintf("gateway returned status %d", resp.StatusCode),
		}
		if intent.Error != nil {
			pe.Code = intent.Error.Code
			pe.Message = intent.Error.Message
		}
		return nil, pe
	}

	if intent.Status != "succeeded" {
		return nil, &checkout.PaymentError{
			Code:    "intent_" + intent.Status,
			Message: "payment intent not completed: " + intent.Status,
		}
	}

	return &checkout.Charge{ID: intent.ID}, nil
}
