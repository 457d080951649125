package v1

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/domain/webhook"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/metrics"
	"github.com/flexprice/reconciler/internal/service"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/gin-gonic/gin"
)

const unverifiedEventType = "unverified"

// EventVerifier authenticates a raw provider payload
type EventVerifier interface {
	Verify(payload []byte, signature string) (*webhook.Event, error)
}

// WebhookHandler handles inbound provider webhooks
type WebhookHandler struct {
	config     *config.Configuration
	verifier   EventVerifier
	dispatcher service.WebhookDispatcher
	logger     *logger.Logger
}

func NewWebhookHandler(
	config *config.Configuration,
	verifier EventVerifier,
	dispatcher service.WebhookDispatcher,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleStripeWebhook verifies and dispatches a Stripe event.
// 400 on a bad signature, 500 on a misconfigured secret or an internal
// dispatch failure so the provider redelivers, 200 otherwise.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	start := time.Now()
	eventType := unverifiedEventType
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if h.config.Server.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.Server.MaxBodyBytes)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "error", err)
		status = http.StatusBadRequest
		c.JSON(status, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := h.verifier.Verify(body, c.GetHeader(types.HeaderStripeSignature))
	if err != nil {
		status = ierr.HTTPStatusFromErr(err)
		if status == http.StatusInternalServerError {
			h.logger.Errorw("webhook verifier is misconfigured", "error", err)
			c.JSON(status, gin.H{"error": "webhook endpoint misconfigured"})
			return
		}
		status = http.StatusBadRequest
		c.JSON(status, gin.H{"error": "invalid signature"})
		return
	}
	eventType = string(event.Type)

	ctx := types.SetEvent(c.Request.Context(), event.ID, event.Type)
	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		h.logger.Errorw("failed to process webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
			"request_id", types.GetRequestID(ctx),
			"error", err,
		)
		status = http.StatusInternalServerError
		c.JSON(status, gin.H{"error": "failed to process webhook"})
		return
	}

	c.JSON(status, gin.H{"received": true})
}
