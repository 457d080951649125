package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flexprice/reconciler/internal/config"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/httpclient"
	"github.com/flexprice/reconciler/internal/idempotency"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	pathGrantForPrice  = "/v1/grants/price"
	pathRecordPurchase = "/v1/grants/purchase"
	pathGrantTrial     = "/v1/grants/trial"

	headerIdempotencyKey = "Idempotency-Key"
)

// Client talks to the token ledger service. Every request carries an
// Idempotency-Key; the ledger answers 409 for a key it already applied.
type Client struct {
	http    httpclient.Client
	baseURL string
	apiKey  string
	keys    *idempotency.Generator
	logger  *logger.Logger
}

var _ interfaces.TokenLedger = (*Client)(nil)

func NewClient(cfg *config.Configuration, http httpclient.Client, logger *logger.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(cfg.TokenLedger.BaseURL, "/"),
		apiKey:  cfg.TokenLedger.APIKey,
		keys:    idempotency.NewGenerator(),
		logger:  logger,
	}
}

type priceGrantRequest struct {
	UserID         string `json:"user_id"`
	PriceID        string `json:"price_id"`
	SubscriptionID string `json:"subscription_id"`
	Cycle          int    `json:"cycle"`
}

type purchaseGrantRequest struct {
	UserID   string            `json:"user_id"`
	Amount   decimal.Decimal   `json:"amount"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type trialGrantRequest struct {
	UserID string `json:"user_id"`
}

// GrantForPrice grants one billing cycle of the tokens configured for a price.
// The key covers the subscription and cycle so each renewal grants once.
func (c *Client) GrantForPrice(ctx context.Context, userID, priceID, subscriptionID string, cycle int) error {
	key := c.keys.GenerateKey(idempotency.ScopeTierGrant, map[string]interface{}{
		"subscription_id": subscriptionID,
		"price_id":        priceID,
		"cycle":           cycle,
	})
	return c.post(ctx, pathGrantForPrice, key, priceGrantRequest{
		UserID:         userID,
		PriceID:        priceID,
		SubscriptionID: subscriptionID,
		Cycle:          cycle,
	})
}

func (c *Client) RecordPurchase(ctx context.Context, grant interfaces.PurchaseGrant) error {
	if grant.IdempotencyKey == "" {
		return ierr.NewError("purchase grant requires an idempotency key").
			WithHint("Token purchases must be keyed to their checkout").
			Mark(ierr.ErrValidation)
	}
	return c.post(ctx, pathRecordPurchase, grant.IdempotencyKey, purchaseGrantRequest{
		UserID:   grant.UserID,
		Amount:   grant.Amount,
		Source:   grant.Source,
		Metadata: grant.Metadata,
	})
}

func (c *Client) GrantTrial(ctx context.Context, userID, idempotencyKey string) error {
	return c.post(ctx, pathGrantTrial, idempotencyKey, trialGrantRequest{UserID: userID})
}

func (c *Client) post(ctx context.Context, path, key string, body any) error {
	if c.baseURL == "" {
		return ierr.NewError("token ledger is not configured").
			WithHint("Set token_ledger.base_url").
			Mark(ierr.ErrConfiguration)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode ledger request").
			Mark(ierr.ErrSystem)
	}

	headers := map[string]string{headerIdempotencyKey: key}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	_, err = c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + path,
		Headers: headers,
		Body:    payload,
	})
	if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusConflict {
		c.logger.Debugw("ledger already applied grant", "path", path, "idempotency_key", key)
		return nil
	}
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Token ledger request %s failed", path).
			WithReportableDetails(map[string]any{"idempotency_key": key}).
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}
