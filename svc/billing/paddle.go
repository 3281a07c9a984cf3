package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"

	"github.com/virlhq/virl/pkg/planlimits"
)

// SignatureHeader carries Paddle's webhook signature.
const SignatureHeader = "Paddle-Signature"

type transactionCreator interface {
	CreateTransaction(ctx context.Context, req *paddle.CreateTransactionRequest) (*paddle.Transaction, error)
}

// PaddleProvider implements Provider with the Paddle Billing API.
type PaddleProvider struct {
	transactions transactionCreator
	verifier     *paddle.WebhookVerifier
	now          func() time.Time
}

func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: paddle API key and webhook secret are required", ErrInvalidConfig)
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox", "":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: unknown paddle environment %q", ErrInvalidConfig, cfg.Environment)
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &PaddleProvider{
		transactions: client.TransactionsClient,
		verifier:     paddle.NewWebhookVerifier(cfg.WebhookSecret),
		now:          time.Now,
	}, nil
}

// CreateCheckout creates a transaction for one unit of the price and returns
// its hosted checkout URL. The workspace ID travels in custom data so
// subscription webhooks can be routed back to it.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" || req.WorkspaceID == uuid.Nil {
		return nil, fmt.Errorf("%w: price and workspace are required", ErrCheckoutFailed)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})
	txReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{"workspace_id": req.WorkspaceID.String()},
	}
	if req.CustomerID != "" {
		txReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	tx, err := p.transactions.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}
	if tx.Checkout == nil || tx.Checkout.URL == nil {
		return nil, fmt.Errorf("%w: paddle returned no checkout URL", ErrCheckoutFailed)
	}

	return &CheckoutLink{
		URL:           *tx.Checkout.URL,
		TransactionID: tx.ID,
		ExpiresAt:     p.now().Add(24 * time.Hour).UTC(),
	}, nil
}

type paddleWebhook struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		ID         string         `json:"id"`
		Status     string         `json:"status"`
		CustomerID string         `json:"customer_id"`
		CustomData map[string]any `json:"custom_data"`
		Items      []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"items"`
		CurrentBillingPeriod *struct {
			StartsAt string `json:"starts_at"`
			EndsAt   string `json:"ends_at"`
		} `json:"current_billing_period"`
		CanceledAt *string `json:"canceled_at"`
	} `json:"data"`
}

// ParseWebhook verifies the Paddle-Signature header and decodes a subscription event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/billing/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	req.Header.Set(SignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}
	return decodePaddleEvent(payload)
}

func decodePaddleEvent(payload []byte) (*Event, error) {
	var raw paddleWebhook
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	ev := &Event{
		ID:             raw.EventID,
		Type:           EventType(raw.EventType),
		SubscriptionID: raw.Data.ID,
		CustomerID:     raw.Data.CustomerID,
		Status:         raw.Data.Status,
	}
	if occurred, err := planlimits.ParseExpiry(raw.OccurredAt); err == nil && occurred != nil {
		ev.OccurredAt = *occurred
	}
	if len(raw.Data.Items) > 0 {
		ev.PriceID = raw.Data.Items[0].Price.ID
	}
	if id, ok := raw.Data.CustomData["workspace_id"].(string); ok {
		wsID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: workspace_id %q: %v", ErrInvalidPayload, id, err)
		}
		ev.WorkspaceID = wsID
	}

	var err error
	if raw.Data.CurrentBillingPeriod != nil {
		if ev.PeriodEndsAt, err = planlimits.ParseExpiry(raw.Data.CurrentBillingPeriod.EndsAt); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
	}
	if raw.Data.CanceledAt != nil {
		if ev.CanceledAt, err = planlimits.ParseExpiry(*raw.Data.CanceledAt); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
	}
	return ev, nil
}
