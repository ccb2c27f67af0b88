package ports

// WidgetOutcome is the terminal state the hosted payment widget reports for
// a checkout attempt. Exactly one outcome arrives per attempt.
type WidgetOutcome string

const (
	WidgetApproved WidgetOutcome = "approved"
	WidgetDeclined WidgetOutcome = "declined"
	WidgetErrored  WidgetOutcome = "errored"
)

// WidgetResult is the payload the browser widget hands back. Approved
// results carry the processor transaction ID and, when tokenizing, the new
// token. A declined result that also carries an error code is treated as an
// error, not a decline.
type WidgetResult struct {
	Outcome       WidgetOutcome
	TransactionID string
	Token         string

	ErrorCode    string
	ErrorName    string
	ErrorMessage string
}

// IsError reports whether the result must be handled as an error. Declines
// carrying an error code indicate a malfunction rather than an issuer
// decision.
func (r *WidgetResult) IsError() bool {
	if r.Outcome == WidgetErrored {
		return true
	}
	return r.Outcome == WidgetDeclined && r.ErrorCode != ""
}
