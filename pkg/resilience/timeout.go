package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the gateway's timeout hierarchy, outermost to
// innermost:
//
//	HTTP Handler (60s)
//	  Checkout Service (50s)
//	    Converge API call (30s)
//	      Single retry attempt (10s)
//
// Each layer completes before its parent times out, so a slow Converge call
// fails as a Converge timeout rather than a dropped client connection.
// The widget wait sits outside this chain: the customer is interacting with
// the processor's iframe, so it gets its own, much longer budget.
type TimeoutConfig struct {
	// Handler layer
	HTTPHandler time.Duration

	// Service layer
	Service time.Duration

	// WidgetResult bounds how long an attempt waits for the hosted widget
	// to report back before the attempt fails.
	WidgetResult time.Duration

	// External API timeouts (adapters)
	ExternalAPI time.Duration // full Converge call including retries
	SingleRetry time.Duration // individual retry attempt
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 60 * time.Second,

		// must be < HTTPHandler
		Service: 50 * time.Second,

		WidgetResult: 10 * time.Minute,

		ExternalAPI: 30 * time.Second,
		SingleRetry: 10 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:  5 * time.Second,
		Service:      4 * time.Second,
		WidgetResult: 500 * time.Millisecond,
		ExternalAPI:  2 * time.Second,
		SingleRetry:  1 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// WidgetContext creates a context bounding the wait for a widget result
func (tc *TimeoutConfig) WidgetContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.WidgetResult)
}

// ExternalAPIContext creates a context for Converge calls
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}

// RetryAttemptContext creates a context for a single retry attempt
func (tc *TimeoutConfig) RetryAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleRetry)
}
