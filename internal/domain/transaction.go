package domain

import "strings"

// Status messages Converge uses to signal an approved transaction. The
// French-language approval string appears on Canadian merchant accounts.
const (
	StatusApproval       = "APPROVAL"
	StatusSuccess        = "SUCCESS"
	StatusApprovalFrench = "APPROBAT"

	// StatusHeld is the issuer-referral response: the transaction is neither
	// approved nor declined until the merchant calls the auth center.
	StatusHeld = "CALL AUTH CENTER"
)

// Sentinel values of the known Converge anomaly response: a malformed
// request can come back looking like an approval while carrying this exact
// AVS/approval-code/transaction-id triple. Such a response is an error.
const (
	anomalyAVSResponse   = "X"
	anomalyApprovalCode  = "123456"
	anomalyTransactionID = "00000000-0000-0000-0000-00000000000"
)

// TransactionRequest is a fully resolved request to the Converge transaction
// endpoint. Amounts arrive pre-formatted with two decimal places; billing
// fields arrive untruncated and are cut to wire limits during encoding.
type TransactionRequest struct {
	Operation Operation

	Amount   string
	SalesTax string

	InvoiceNumber string
	// Description carries the order ID on hosted flows and is the value the
	// server checks when reconciling a widget-reported transaction.
	Description string

	Billing *BillingProfile

	// Token references a stored payment method (ssl_token). Card fields are
	// only populated on direct server-side entry, which hosted checkout
	// never does.
	Token string

	// Echeck fields.
	RoutingNumber string
	AccountNumber string
	AccountType   string

	// AddToken asks Converge to also tokenize the payment method used.
	AddToken bool

	// TransactionID targets a prior transaction for capture, refund, void
	// and query operations.
	TransactionID string

	// Email receipt controls.
	MerchantEmail string
}

// TransactionResponse is a decoded Converge transaction endpoint reply.
// Either the ssl_result_* family or the errorCode family is populated, never
// both.
type TransactionResponse struct {
	Result        string
	ResultMessage string
	ApprovalCode  string
	TransactionID string
	AVSResponse   string
	CVV2Response  string

	CardNumber string // masked
	CardType   string
	ExpDate    string // MMYY
	Token      string

	// Description echoes the request's ssl_description on query responses.
	Description string

	Amount string

	ErrorCode    string
	ErrorName    string
	ErrorMessage string

	// Raw keeps every decoded field for diagnostics.
	Raw map[string]string
}

// HasError reports whether the processor returned an error-family response.
func (r *TransactionResponse) HasError() bool {
	return r.ErrorCode != "" || r.ErrorName != "" || r.ErrorMessage != ""
}

// IsAnomaly reports whether the response carries the known anomaly sentinel
// triple that masquerades as an approval.
func (r *TransactionResponse) IsAnomaly() bool {
	return r.AVSResponse == anomalyAVSResponse &&
		r.ApprovalCode == anomalyApprovalCode &&
		r.TransactionID == anomalyTransactionID
}

// Approved reports whether the transaction was approved: the approval code
// must be present and the status message must be exactly one of the known
// approval strings. The match is case-sensitive; Converge emits these
// literals verbatim and anything else, however close, is not an approval.
// Anomalous responses are never approved.
func (r *TransactionResponse) Approved() bool {
	if r.IsAnomaly() {
		return false
	}
	if r.ApprovalCode == "" {
		return false
	}
	switch r.ResultMessage {
	case StatusApproval, StatusSuccess, StatusApprovalFrench:
		return true
	}
	return false
}

// Held reports the issuer-referral state, which an operator resolves out of
// band rather than the checkout flow.
func (r *TransactionResponse) Held() bool {
	return strings.EqualFold(strings.TrimSpace(r.ResultMessage), StatusHeld)
}

// SessionToken is a Hosted Payments session token. It is opaque and single
// purpose: valid only for the operation and amount it was requested with.
type SessionToken struct {
	Value     string
	Operation Operation
	Amount    string
}
