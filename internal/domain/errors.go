package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures by what the caller should do with
// them: transport and anomaly failures get a generic user message, processor
// declines surface the processor's own wording, validation failures point at
// the caller, and reconciliation failures abort the attempt outright.
type ErrorKind string

const (
	ErrorKindTransport      ErrorKind = "transport"
	ErrorKindProcessor      ErrorKind = "processor"
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindReconciliation ErrorKind = "reconciliation"
	ErrorKindAnomaly        ErrorKind = "anomaly"
)

// GenericDeclineMessage is shown to customers when the real failure must not
// leak: transport faults, anomalies, configuration problems.
const GenericDeclineMessage = "An error occurred, please try again or try an alternate form of payment."

// RegistrationErrorMessage covers every non-200 from the session token
// endpoint; Converge does not distinguish bad credentials from a merchant
// account without Hosted Payments enabled.
const RegistrationErrorMessage = "Unable to obtain a payment session. Please verify the merchant account is registered for hosted payments and the credentials are correct."

// GatewayError is the error type every layer of the gateway returns. Kind
// drives handling, Code carries the processor error code when there is one,
// and UserMessage is the only text safe to show a customer.
type GatewayError struct {
	Kind        ErrorKind
	Code        string
	Message     string
	UserMessage string
	Err         error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// UserSafe returns the message to surface to a customer, falling back to the
// generic decline wording when no explicit user message was set.
func (e *GatewayError) UserSafe() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return GenericDeclineMessage
}

func NewTransportError(msg string, err error) *GatewayError {
	return &GatewayError{Kind: ErrorKindTransport, Message: msg, UserMessage: GenericDeclineMessage, Err: err}
}

// NewProcessorError wraps a processor-reported failure. Decline messages are
// shown verbatim; Converge wordings are already customer facing.
func NewProcessorError(code, msg string) *GatewayError {
	return &GatewayError{Kind: ErrorKindProcessor, Code: code, Message: msg, UserMessage: msg}
}

func NewValidationError(msg string) *GatewayError {
	return &GatewayError{Kind: ErrorKindValidation, Message: msg, UserMessage: GenericDeclineMessage}
}

func NewReconciliationError(msg string) *GatewayError {
	return &GatewayError{Kind: ErrorKindReconciliation, Message: msg, UserMessage: GenericDeclineMessage}
}

func NewAnomalyError(msg string) *GatewayError {
	return &GatewayError{Kind: ErrorKindAnomaly, Message: msg, UserMessage: GenericDeclineMessage}
}

// IsKind reports whether err is a GatewayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// ErrorCode extracts the processor error code from err, or "" when err is
// not a processor error.
func ErrorCode(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// UserMessage extracts the customer-safe message from err, defaulting to the
// generic decline wording for errors that carry none.
func UserMessage(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.UserSafe()
	}
	return GenericDeclineMessage
}

var (
	ErrOrderNotFound = &GatewayError{Kind: ErrorKindValidation, Message: "order not found", UserMessage: GenericDeclineMessage}
	ErrTokenNotFound = &GatewayError{Kind: ErrorKindValidation, Message: "payment token not found", UserMessage: GenericDeclineMessage}
	ErrInvalidNonce  = &GatewayError{Kind: ErrorKindValidation, Message: "invalid or expired checkout nonce", UserMessage: GenericDeclineMessage}
	ErrWidgetTimeout = &GatewayError{Kind: ErrorKindTransport, Message: "timed out waiting for the payment widget result", UserMessage: GenericDeclineMessage}
)
