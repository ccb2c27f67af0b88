package checkout

import (
	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// ChargePolicy selects what a successful checkout does with the funds:
// capture immediately or authorize for a later capture.
type ChargePolicy string

const (
	ChargeImmediately ChargePolicy = "charge"
	AuthorizeOnly     ChargePolicy = "authorize"
)

// PaymentMethod is the customer's chosen payment instrument family.
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodEcheck PaymentMethod = "echeck"
)

// OperationFor decides the Converge operation for a checkout attempt.
//
// The decision happens before the session token is requested, because the
// token is bound to one operation and amount: an explicit tokenize request
// wins, then tokenize when no upfront payment is due, then the charge policy
// picks between sale and auth-only. Echeck has no authorize step; it always
// debits.
func OperationFor(order *domain.Order, method PaymentMethod, policy ChargePolicy, tokenize bool) domain.Operation {
	if tokenize {
		return domain.OperationTokenize
	}
	if !order.RequiresUpfrontPayment() {
		return domain.OperationTokenize
	}
	if method == MethodEcheck {
		return domain.OperationEcheckDebit
	}
	if policy == AuthorizeOnly {
		return domain.OperationAuthorize
	}
	return domain.OperationCharge
}
