package converge

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// Credentials is the Converge merchant credential triple. Every request
// carries all three fields.
type Credentials struct {
	MerchantID string // ssl_merchant_id
	UserID     string // ssl_user_id
	PIN        string // ssl_pin
}

// field is an ordered ssl_* key/value pair. Converge tolerates arbitrary
// field order, but a stable order keeps request logs diffable.
type field struct {
	key   string
	value string
}

// transactionFields flattens a request into the wire field list. Empty
// values are omitted; billing fields are sanitized and clipped to Converge
// limits here, at the last point before encoding.
func transactionFields(creds Credentials, req *domain.TransactionRequest) []field {
	fields := []field{
		{"ssl_merchant_id", creds.MerchantID},
		{"ssl_user_id", creds.UserID},
		{"ssl_pin", creds.PIN},
		{"ssl_transaction_type", string(req.Operation)},
		{"ssl_amount", req.Amount},
		{"ssl_salestax", req.SalesTax},
		{"ssl_invoice_number", clipInvoice(req.InvoiceNumber)},
		{"ssl_description", clip(req.Description, maxDescription)},
		{"ssl_txn_id", req.TransactionID},
		{"ssl_token", req.Token},
	}

	if b := req.Billing; b != nil {
		fields = append(fields,
			field{"ssl_first_name", clip(b.FirstName, maxFirstName)},
			field{"ssl_last_name", clip(b.LastName, maxLastName)},
			field{"ssl_company", clip(b.Company, maxCompany)},
			field{"ssl_avs_address", clip(b.Address1, maxAddress)},
			field{"ssl_address2", clip(b.Address2, maxAddress)},
			field{"ssl_city", clip(b.City, maxCity)},
			field{"ssl_state", clip(b.State, maxState)},
			field{"ssl_country", clip(b.Country, maxCountry)},
			field{"ssl_avs_zip", clip(b.PostalCode, maxPostalCode)},
			field{"ssl_phone", clip(b.Phone, maxPhone)},
			field{"ssl_email", clip(b.Email, maxEmail)},
		)
	}

	fields = append(fields,
		field{"ssl_aba_number", req.RoutingNumber},
		field{"ssl_bank_account_number", req.AccountNumber},
		field{"ssl_bank_account_type", req.AccountType},
		field{"ssl_merchant_email", req.MerchantEmail},
	)

	if req.AddToken {
		fields = append(fields, field{"ssl_add_token", "Y"}, field{"ssl_get_token", "Y"})
	}

	out := fields[:0]
	for _, f := range fields {
		if f.value != "" {
			out = append(out, f)
		}
	}
	return out
}

// EncodeTransaction renders a request as the xmldata form body the
// transaction endpoint expects: a single urlencoded <txn> document.
func EncodeTransaction(creds Credentials, req *domain.TransactionRequest) (string, error) {
	if !req.Operation.Valid() || req.Operation.IsHosted() {
		return "", domain.NewValidationError(fmt.Sprintf("operation %q cannot be sent to the transaction endpoint", req.Operation))
	}

	var b strings.Builder
	b.WriteString("<txn>")
	for _, f := range transactionFields(creds, req) {
		b.WriteString("<")
		b.WriteString(f.key)
		b.WriteString(">")
		if err := xml.EscapeText(&b, []byte(f.value)); err != nil {
			return "", domain.NewValidationError(fmt.Sprintf("field %s is not encodable: %v", f.key, err))
		}
		b.WriteString("</")
		b.WriteString(f.key)
		b.WriteString(">")
	}
	b.WriteString("</txn>")

	body := url.Values{}
	body.Set("xmldata", b.String())
	return body.Encode(), nil
}

// EncodeSessionToken renders a session token request as a plain form body.
// The hosted payments endpoint speaks form encoding, not XML.
func EncodeSessionToken(creds Credentials, op domain.Operation, amount string) string {
	body := url.Values{}
	body.Set("ssl_merchant_id", creds.MerchantID)
	body.Set("ssl_user_id", creds.UserID)
	body.Set("ssl_pin", creds.PIN)
	body.Set("ssl_transaction_type", string(op))
	if amount != "" {
		body.Set("ssl_amount", amount)
	}
	return body.Encode()
}

// DecodeTransaction parses a transaction endpoint reply into a response.
// The reply is a flat <txn> element whose children are either the
// ssl_result family or the errorCode family.
func DecodeTransaction(r io.Reader) (*domain.TransactionResponse, error) {
	raw, err := decodeFlatXML(r)
	if err != nil {
		return nil, domain.NewTransportError("malformed transaction response", err)
	}

	resp := &domain.TransactionResponse{
		Result:        raw["ssl_result"],
		ResultMessage: raw["ssl_result_message"],
		ApprovalCode:  raw["ssl_approval_code"],
		TransactionID: raw["ssl_txn_id"],
		AVSResponse:   raw["ssl_avs_response"],
		CVV2Response:  raw["ssl_cvv2_response"],
		CardNumber:    raw["ssl_card_number"],
		CardType:      cardTypeOf(raw),
		ExpDate:       raw["ssl_exp_date"],
		Token:         raw["ssl_token"],
		Description:   raw["ssl_description"],
		Amount:        raw["ssl_amount"],
		ErrorCode:     raw["errorCode"],
		ErrorName:     raw["errorName"],
		ErrorMessage:  raw["errorMessage"],
		Raw:           raw,
	}
	return resp, nil
}

// cardTypeOf prefers the short description over the generic card type field;
// token queries report brand only through the short description.
func cardTypeOf(raw map[string]string) string {
	if v := raw["ssl_card_short_description"]; v != "" {
		return v
	}
	return raw["ssl_card_type"]
}

// decodeFlatXML reads a single-level XML document into a key/value map.
func decodeFlatXML(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	raw := make(map[string]string)

	depth := 0
	var key string
	var val strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				key = t.Name.Local
				val.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				val.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && key != "" {
				raw[key] = strings.TrimSpace(val.String())
				key = ""
			}
			depth--
		}
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("response carried no fields")
	}
	return raw, nil
}
