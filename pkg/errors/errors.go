// Package errors classifies processor failures so callers can decide
// between retrying, surfacing the decline, or paging an operator.
package errors

import (
	"fmt"
)

// ErrorCategory groups processor error codes by how the gateway should react.
type ErrorCategory string

const (
	CategoryDeclined          ErrorCategory = "declined"
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	CategoryInvalidCard       ErrorCategory = "invalid_card"
	CategoryExpiredCard       ErrorCategory = "expired_card"
	CategoryFraud             ErrorCategory = "fraud"
	CategoryReferral          ErrorCategory = "referral"
	CategoryTokenError        ErrorCategory = "token_error"
	CategoryMerchantConfig    ErrorCategory = "merchant_config"
	CategorySystemError       ErrorCategory = "system_error"
	CategoryNetworkError      ErrorCategory = "network_error"
	CategoryInvalidRequest    ErrorCategory = "invalid_request"
)

// ProcessorError carries a processor failure with enough context to log,
// classify, and decide whether the customer may retry.
type ProcessorError struct {
	// Code is the processor's error code (Converge errorCode).
	Code string
	// Message is the internal description of the failure.
	Message string
	// ProcessorMessage is the processor's own wording, safe to show for
	// declines.
	ProcessorMessage string
	Category         ErrorCategory
	// Retriable marks failures where resubmitting the same request can
	// succeed (network faults, processor-side timeouts).
	Retriable bool
}

func (e *ProcessorError) Error() string {
	if e.ProcessorMessage != "" {
		return fmt.Sprintf("%s: %s (processor: %s)", e.Code, e.Message, e.ProcessorMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a ProcessorError.
func New(code, message string, category ErrorCategory, retriable bool) *ProcessorError {
	return &ProcessorError{
		Code:      code,
		Message:   message,
		Category:  category,
		Retriable: retriable,
	}
}

// Retriable reports whether the error is a ProcessorError marked retriable.
func Retriable(err error) bool {
	pe, ok := err.(*ProcessorError)
	return ok && pe.Retriable
}
