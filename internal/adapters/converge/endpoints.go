package converge

import (
	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// Environment selects the Converge endpoint set.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentDemo       Environment = "demo"
)

// IsProduction reports whether e targets the live processor. Anything other
// than the production literal resolves to the demo endpoints, so a
// misconfigured environment can never reach live money movement.
func (e Environment) IsProduction() bool {
	return e == EnvironmentProduction
}

// Endpoints is a resolved Converge endpoint pair. The transaction endpoint
// serves every XML operation; the hosted payments endpoint only issues
// session tokens.
type Endpoints struct {
	TransactionURL    string
	HostedPaymentsURL string
}

const (
	productionTransactionURL    = "https://api.convergepay.com/VirtualMerchant/processxml.do"
	productionHostedPaymentsURL = "https://api.convergepay.com/hosted-payments/transaction_token"

	demoTransactionURL    = "https://api.demo.convergepay.com/VirtualMerchantDemo/processxml.do"
	demoHostedPaymentsURL = "https://api.demo.convergepay.com/hosted-payments/transaction_token"
)

// EndpointsFor resolves the endpoint pair for an environment.
func EndpointsFor(env Environment) Endpoints {
	if env.IsProduction() {
		return Endpoints{
			TransactionURL:    productionTransactionURL,
			HostedPaymentsURL: productionHostedPaymentsURL,
		}
	}
	return Endpoints{
		TransactionURL:    demoTransactionURL,
		HostedPaymentsURL: demoHostedPaymentsURL,
	}
}

// URLFor returns the endpoint an operation posts to. Session token requests
// are the only traffic to the hosted payments endpoint.
func (e Endpoints) URLFor(op domain.Operation) string {
	if op.IsHosted() {
		return e.HostedPaymentsURL
	}
	return e.TransactionURL
}
