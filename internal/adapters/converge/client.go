package converge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
	gwhttp "github.com/derekgallardo01/converge-gateway/pkg/http"
	"github.com/derekgallardo01/converge-gateway/pkg/observability"
	"github.com/derekgallardo01/converge-gateway/pkg/resilience"
)

// Config holds the Converge client configuration.
type Config struct {
	Environment Environment
	Credentials Credentials

	// MaxRetries bounds retries of transport-level failures. Processor
	// replies, including declines, are never retried.
	MaxRetries int

	Timeouts *resilience.TimeoutConfig
	Breaker  BreakerConfig

	// Endpoints overrides the environment's endpoint pair. Used by tests
	// and local processor stubs.
	Endpoints *Endpoints

	// MerchantEmail receives receipt copies when set.
	MerchantEmail string
}

// Client talks to the Converge endpoints. It implements ports.ProcessorAPI.
//
// Two HTTP clients exist because the endpoint families have different
// network requirements: the transaction endpoint enforces a merchant IPv4
// whitelist, the hosted payments endpoint does not.
type Client struct {
	cfg       Config
	endpoints Endpoints
	builder   *RequestBuilder

	txnClient    *http.Client
	hostedClient *http.Client

	breaker *Breaker
	backoff resilience.BackoffStrategy
	logger  *zap.Logger
}

// NewClient creates a Converge client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeouts == nil {
		cfg.Timeouts = resilience.DefaultTimeoutConfig()
	}
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}
	endpoints := EndpointsFor(cfg.Environment)
	if cfg.Endpoints != nil {
		endpoints = *cfg.Endpoints
	}
	return &Client{
		cfg:          cfg,
		endpoints:    endpoints,
		builder:      &RequestBuilder{MerchantEmail: cfg.MerchantEmail},
		txnClient:    gwhttp.NewHTTPClient(gwhttp.TransactionClientConfig(), cfg.Timeouts.ExternalAPI),
		hostedClient: gwhttp.NewHTTPClient(gwhttp.HostedPaymentsClientConfig(), cfg.Timeouts.ExternalAPI),
		breaker:      NewBreaker(cfg.Breaker),
		backoff:      resilience.DefaultExponentialBackoff(),
		logger:       logger,
	}
}

// Builder exposes the request builder for callers that need the checkout
// field set without sending anything (hosted payment form data).
func (c *Client) Builder() *RequestBuilder {
	return c.builder
}

// Endpoints returns the resolved endpoint pair.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// SessionToken requests a Hosted Payments session token. The token is bound
// to the operation and amount it was requested with; changing either
// invalidates it.
func (c *Client) SessionToken(ctx context.Context, op domain.Operation, amount decimal.Decimal) (*domain.SessionToken, error) {
	// Tokenize-only sessions carry no amount; everything else binds the
	// token to the exact amount the widget will move.
	amt := ""
	if op.IsPayment() {
		amt = FormatAmount(amount)
	}
	body := EncodeSessionToken(c.cfg.Credentials, op, amt)

	start := time.Now()
	var token string
	err := c.breaker.Call(func() error {
		reqCtx, cancel := c.cfg.Timeouts.RetryAttemptContext(ctx)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoints.HostedPaymentsURL, strings.NewReader(body))
		if err != nil {
			return domain.NewTransportError("building session token request", err)
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.hostedClient.Do(httpReq)
		if err != nil {
			return domain.NewTransportError("session token request failed", err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return domain.NewTransportError("reading session token response", err)
		}

		// Converge does not distinguish failure modes here: bad
		// credentials, an unregistered merchant, and a missing permission
		// all come back as a non-200.
		if resp.StatusCode != http.StatusOK {
			observability.RecordSessionTokenFailure()
			return &domain.GatewayError{
				Kind:        domain.ErrorKindTransport,
				Message:     fmt.Sprintf("session token endpoint returned HTTP %d", resp.StatusCode),
				UserMessage: domain.RegistrationErrorMessage,
			}
		}

		token = strings.TrimSpace(string(payload))
		if token == "" {
			observability.RecordSessionTokenFailure()
			return domain.NewTransportError("session token response was empty", nil)
		}
		return nil
	})
	observability.RecordRequestDuration("hosted_payments", string(op), time.Since(start))

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			err = domain.NewTransportError("processor unavailable", err)
		}
		c.logger.Warn("session token request failed",
			zap.String("operation", string(op)),
			zap.Error(err))
		return nil, err
	}

	c.logger.Debug("session token issued",
		zap.String("operation", string(op)),
		zap.String("amount", amt))
	return &domain.SessionToken{Value: token, Operation: op, Amount: amt}, nil
}

func (c *Client) Authorize(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Payment(domain.OperationAuthorize, order, tc))
}

func (c *Client) Charge(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Payment(domain.OperationCharge, order, tc))
}

func (c *Client) Capture(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Capture(order, tc))
}

func (c *Client) Refund(ctx context.Context, order *domain.Order, tc *domain.TransactionContext, amount decimal.Decimal) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Refund(order, tc, amount))
}

func (c *Client) Void(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Void(order, tc))
}

func (c *Client) CheckDebit(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Payment(domain.OperationEcheckDebit, order, tc))
}

func (c *Client) Tokenize(ctx context.Context, order *domain.Order) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.Tokenize(order))
}

func (c *Client) UpdateToken(ctx context.Context, order *domain.Order, tokenID string) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.UpdateToken(order, tokenID))
}

func (c *Client) DeleteToken(ctx context.Context, tokenID string) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.DeleteToken(tokenID))
}

func (c *Client) QueryToken(ctx context.Context, tokenID string) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.QueryToken(tokenID))
}

func (c *Client) QueryTransaction(ctx context.Context, transactionID string) (*domain.TransactionResponse, error) {
	return c.send(ctx, c.builder.QueryTransaction(transactionID))
}

// send posts a request to the transaction endpoint, retrying transport
// failures, and validates the decoded response. Anything the processor
// answered, declines included, is final and never retried.
func (c *Client) send(ctx context.Context, req *domain.TransactionRequest) (*domain.TransactionResponse, error) {
	body, err := EncodeTransaction(c.cfg.Credentials, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var resp *domain.TransactionResponse
	err = c.breaker.Call(func() error {
		var lastErr error
		for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
			if attempt > 0 {
				delay := c.backoff.NextDelay(attempt - 1)
				c.logger.Debug("retrying converge request",
					zap.String("operation", string(req.Operation)),
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay))
				select {
				case <-ctx.Done():
					return domain.NewTransportError("request cancelled", ctx.Err())
				case <-time.After(delay):
				}
			}

			resp, lastErr = c.post(ctx, body)
			if lastErr == nil {
				return nil
			}
			if !domain.IsKind(lastErr, domain.ErrorKindTransport) {
				return lastErr
			}
		}
		return lastErr
	})
	observability.RecordRequestDuration("transaction", string(req.Operation), time.Since(start))

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			err = domain.NewTransportError("processor unavailable", err)
		}
		observability.RecordTransaction(string(req.Operation), "error")
		c.logger.Warn("converge request failed",
			zap.String("operation", string(req.Operation)),
			zap.Error(err))
		return nil, err
	}

	return c.validate(req, resp)
}

// post performs one attempt against the transaction endpoint.
func (c *Client) post(ctx context.Context, body string) (*domain.TransactionResponse, error) {
	reqCtx, cancel := c.cfg.Timeouts.RetryAttemptContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoints.TransactionURL, strings.NewReader(body))
	if err != nil {
		return nil, domain.NewTransportError("building transaction request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.txnClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransportError("transaction request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, domain.NewTransportError(fmt.Sprintf("transaction endpoint returned HTTP %d", httpResp.StatusCode), nil)
	}

	return DecodeTransaction(io.LimitReader(httpResp.Body, 1<<20))
}

// validate applies the response contract: error-family replies become
// processor errors, the anomaly sentinel becomes an anomaly error, and
// everything else is handed to the caller to judge via Approved.
func (c *Client) validate(req *domain.TransactionRequest, resp *domain.TransactionResponse) (*domain.TransactionResponse, error) {
	op := string(req.Operation)

	if resp.HasError() {
		pe := ClassifyError(resp.ErrorCode, resp.ErrorMessage)
		observability.RecordTransaction(op, "error")
		c.logger.Info("converge returned error",
			zap.String("operation", op),
			zap.String("error_code", resp.ErrorCode),
			zap.String("error_name", resp.ErrorName))
		ge := domain.NewProcessorError(resp.ErrorCode, resp.ErrorMessage)
		ge.Err = pe
		return resp, ge
	}

	if resp.IsAnomaly() {
		observability.RecordTransaction(op, "error")
		c.logger.Warn("converge anomaly response detected",
			zap.String("operation", op),
			zap.String("transaction_id", resp.TransactionID))
		return resp, domain.NewAnomalyError("response carries the known anomaly sentinel values")
	}

	outcome := "declined"
	switch {
	case resp.Approved():
		outcome = "approved"
	case resp.Held():
		outcome = "held"
	}
	observability.RecordTransaction(op, outcome)

	c.logger.Info("converge transaction completed",
		zap.String("operation", op),
		zap.String("outcome", outcome),
		zap.String("transaction_id", resp.TransactionID),
		zap.String("result", resp.Result))
	return resp, nil
}
