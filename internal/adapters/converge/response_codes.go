package converge

import (
	pkgerrors "github.com/derekgallardo01/converge-gateway/pkg/errors"
)

// CodeTokenNotFound is the Converge error for deleting or querying a token
// the processor no longer holds. Token removal treats it as success: the
// desired end state is reached either way.
const CodeTokenNotFound = "5085"

// ResponseCodeInfo describes a Converge errorCode.
type ResponseCodeInfo struct {
	Name      string
	Category  pkgerrors.ErrorCategory
	Retriable bool
}

// responseCodes maps the Converge errorCode values the gateway handles
// specially. Codes outside this map fall back to the processor's own
// errorMessage, categorized as a plain decline.
var responseCodes = map[string]ResponseCodeInfo{
	"4000": {Name: "transaction type not supported", Category: pkgerrors.CategoryInvalidRequest},
	"4025": {Name: "invalid card number", Category: pkgerrors.CategoryInvalidCard},
	"4026": {Name: "invalid CVV2 value", Category: pkgerrors.CategoryInvalidCard},

	"5000": {Name: "credential validation failed", Category: pkgerrors.CategoryMerchantConfig},
	"5001": {Name: "invalid user id", Category: pkgerrors.CategoryMerchantConfig},
	"5002": {Name: "invalid pin", Category: pkgerrors.CategoryMerchantConfig},
	"5021": {Name: "invalid amount", Category: pkgerrors.CategoryInvalidRequest},
	"5022": {Name: "invalid expiration date", Category: pkgerrors.CategoryExpiredCard},
	"5040": {Name: "invalid transaction id", Category: pkgerrors.CategoryInvalidRequest},
	"5083": {Name: "merchant not set up for tokenization", Category: pkgerrors.CategoryMerchantConfig},

	CodeTokenNotFound: {Name: "token not found", Category: pkgerrors.CategoryTokenError},

	"6042": {Name: "account closed", Category: pkgerrors.CategoryDeclined},

	"9999": {Name: "internal processor error", Category: pkgerrors.CategorySystemError, Retriable: true},
}

// ClassifyError builds a ProcessorError for a Converge errorCode, falling
// back to a generic decline for codes the gateway has no entry for.
func ClassifyError(code, message string) *pkgerrors.ProcessorError {
	info, ok := responseCodes[code]
	if !ok {
		pe := pkgerrors.New(code, "processor error", pkgerrors.CategoryDeclined, false)
		pe.ProcessorMessage = message
		return pe
	}
	pe := pkgerrors.New(code, info.Name, info.Category, info.Retriable)
	pe.ProcessorMessage = message
	return pe
}
