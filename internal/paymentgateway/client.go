package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	paymentgatewaytypes "github.com/jarvis4everyone/jarvis-backend/internal/core/datamodel/paymentgateway"
)

const tracerName = "github.com/jarvis4everyone/jarvis-backend/internal/paymentgateway"

// ErrGatewayUnavailable is returned when the gateway cannot be reached after
// every retry.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// StatusError is a non-retryable error response from the gateway.
type StatusError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *StatusError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("razorpay returned status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("razorpay returned status %d", e.StatusCode)
}

type Config struct {
	APIURL         string
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	RequestTimeout time.Duration
	MaxRetries     uint64
	RetryBaseDelay time.Duration
}

// Client talks to the Razorpay orders API.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	maxRetries    uint64
	baseDelay     time.Duration
	httpClient    *http.Client
	tracer        trace.Tracer
	logger        *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseDelay := config.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &Client{
		baseURL:       strings.TrimRight(config.APIURL, "/"),
		keyID:         config.KeyID,
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
		maxRetries:    config.MaxRetries,
		baseDelay:     baseDelay,
		httpClient:    &http.Client{Timeout: timeout},
		tracer:        otel.Tracer(tracerName),
		logger:        logger,
	}
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order with the gateway. Network errors, 5xx and
// 429 responses are retried with exponential backoff; the waits end early
// when ctx is cancelled.
func (c *Client) CreateOrder(ctx context.Context, req *paymentgatewaytypes.OrderRequest) (*paymentgatewaytypes.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "razorpay.CreateOrder", trace.WithAttributes(
		attribute.Int64("payment.amount_minor", req.Amount),
		attribute.String("payment.currency", req.Currency),
		attribute.String("payment.receipt", req.Receipt),
	))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	var (
		order   *paymentgatewaytypes.Order
		attempt int
	)
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		o, err := c.postOrder(ctx, body)
		if err == nil {
			order = o
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !isRetryableStatus(statusErr.StatusCode) {
			return err
		}

		c.logger.Warn("razorpay order request failed, retrying",
			"attempt", attempt,
			"receipt", req.Receipt,
			"error", err)
		return retry.RetryableError(err)
	})
	span.SetAttributes(attribute.Int("payment.attempts", attempt))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !isRetryableStatus(statusErr.StatusCode) {
			c.logger.Error("razorpay rejected order", "status", statusErr.StatusCode, "description", statusErr.Description)
			return nil, err
		}
		c.logger.Error("razorpay unreachable", "attempts", attempt, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	c.logger.Info("razorpay order created",
		"order_id", order.ID,
		"amount", order.Amount,
		"currency", order.Currency,
		"attempts", attempt)
	span.SetAttributes(attribute.String("payment.order_id", order.ID))
	return order, nil
}

func (c *Client) postOrder(ctx context.Context, body []byte) (*paymentgatewaytypes.Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errResp paymentgatewaytypes.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil {
			statusErr.Code = errResp.Error.Code
			statusErr.Description = errResp.Error.Description
		}
		return nil, statusErr
	}

	var order paymentgatewaytypes.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay response is missing the order id")
	}
	return &order, nil
}

func isRetryableStatus(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
