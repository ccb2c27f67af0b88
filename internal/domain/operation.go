package domain

// Operation identifies a Converge transaction type (ssl_transaction_type).
type Operation string

const (
	// Credit card operations
	OperationAuthorize Operation = "ccauthonly"
	OperationCharge    Operation = "ccsale"
	OperationCapture   Operation = "cccomplete"
	OperationRefund    Operation = "ccreturn"
	OperationVoid      Operation = "ccvoid"

	// Echeck (ACH) operations
	OperationEcheckDebit Operation = "ecspurchase"

	// Token operations
	OperationTokenize    Operation = "ccgettoken"
	OperationUpdateToken Operation = "ccupdatetoken"
	OperationDeleteToken Operation = "ccdeletetoken"
	OperationQueryToken  Operation = "ccquerytoken"

	// End-of-day transaction query
	OperationQuery Operation = "txnquery"

	// OperationSessionToken is not a Converge transaction type of its own; it
	// marks a request for a Hosted Payments session token, which is bound to
	// one of the operations above via its ssl_transaction_type field.
	OperationSessionToken Operation = "sessiontoken"
)

// IsPayment reports whether the operation moves money and therefore requires
// an amount.
func (o Operation) IsPayment() bool {
	switch o {
	case OperationAuthorize, OperationCharge, OperationCapture, OperationRefund, OperationEcheckDebit:
		return true
	}
	return false
}

// IsTokenManagement reports whether the operation manipulates a stored
// payment token rather than a transaction.
func (o Operation) IsTokenManagement() bool {
	switch o {
	case OperationTokenize, OperationUpdateToken, OperationDeleteToken, OperationQueryToken:
		return true
	}
	return false
}

// IsHosted reports whether the operation resolves to the Hosted Payments
// endpoint family instead of the direct transaction endpoint.
func (o Operation) IsHosted() bool {
	return o == OperationSessionToken
}

// Valid reports whether the operation is one this gateway knows how to send.
func (o Operation) Valid() bool {
	switch o {
	case OperationAuthorize, OperationCharge, OperationCapture, OperationRefund,
		OperationVoid, OperationEcheckDebit, OperationTokenize, OperationUpdateToken,
		OperationDeleteToken, OperationQueryToken, OperationQuery, OperationSessionToken:
		return true
	}
	return false
}
