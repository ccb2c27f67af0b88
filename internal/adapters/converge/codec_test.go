package converge

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

var testCreds = Credentials{
	MerchantID: "009999",
	UserID:     "webuser",
	PIN:        "SECRETPIN",
}

// decodeXMLData extracts the <txn> document from an encoded form body.
func decodeXMLData(t *testing.T, body string) string {
	t.Helper()
	values, err := url.ParseQuery(body)
	require.NoError(t, err)
	return values.Get("xmldata")
}

func TestEncodeTransaction(t *testing.T) {
	req := &domain.TransactionRequest{
		Operation:     domain.OperationCharge,
		Amount:        "49.99",
		SalesTax:      "4.12",
		InvoiceNumber: "#1042",
		Description:   "order-8841",
		Billing: &domain.BillingProfile{
			FirstName:  "Ada",
			LastName:   "Lovelace",
			Address1:   "12 St James Square",
			PostalCode: "SW1Y4JH99extra",
		},
	}

	body, err := EncodeTransaction(testCreds, req)
	require.NoError(t, err)

	xmldata := decodeXMLData(t, body)
	assert.True(t, strings.HasPrefix(xmldata, "<txn>"))
	assert.True(t, strings.HasSuffix(xmldata, "</txn>"))

	assert.Contains(t, xmldata, "<ssl_merchant_id>009999</ssl_merchant_id>")
	assert.Contains(t, xmldata, "<ssl_transaction_type>ccsale</ssl_transaction_type>")
	assert.Contains(t, xmldata, "<ssl_amount>49.99</ssl_amount>")
	assert.Contains(t, xmldata, "<ssl_salestax>4.12</ssl_salestax>")

	// Leading '#' is stripped from the invoice number.
	assert.Contains(t, xmldata, "<ssl_invoice_number>1042</ssl_invoice_number>")

	// Postal code is clipped to nine characters.
	assert.Contains(t, xmldata, "<ssl_avs_zip>SW1Y4JH99</ssl_avs_zip>")

	// Empty fields are omitted entirely.
	assert.NotContains(t, xmldata, "ssl_token")
	assert.NotContains(t, xmldata, "ssl_txn_id")
	assert.NotContains(t, xmldata, "ssl_company")
}

func TestEncodeTransactionFieldLimits(t *testing.T) {
	req := &domain.TransactionRequest{
		Operation: domain.OperationAuthorize,
		Amount:    "10.00",
		Billing: &domain.BillingProfile{
			FirstName: strings.Repeat("A", 40),
			LastName:  strings.Repeat("B", 40),
			Address1:  strings.Repeat("C", 40),
		},
	}

	body, err := EncodeTransaction(testCreds, req)
	require.NoError(t, err)
	xmldata := decodeXMLData(t, body)

	assert.Contains(t, xmldata, "<ssl_first_name>"+strings.Repeat("A", maxFirstName)+"</ssl_first_name>")
	assert.Contains(t, xmldata, "<ssl_last_name>"+strings.Repeat("B", maxLastName)+"</ssl_last_name>")
	assert.Contains(t, xmldata, "<ssl_avs_address>"+strings.Repeat("C", maxAddress)+"</ssl_avs_address>")
}

func TestEncodeTransactionRejectsHostedOperations(t *testing.T) {
	_, err := EncodeTransaction(testCreds, &domain.TransactionRequest{Operation: domain.OperationSessionToken})
	assert.Error(t, err)

	_, err = EncodeTransaction(testCreds, &domain.TransactionRequest{Operation: domain.Operation("bogus")})
	assert.Error(t, err)
}

func TestEncodeTransactionAddToken(t *testing.T) {
	req := &domain.TransactionRequest{
		Operation: domain.OperationTokenize,
		AddToken:  true,
	}

	body, err := EncodeTransaction(testCreds, req)
	require.NoError(t, err)
	xmldata := decodeXMLData(t, body)

	assert.Contains(t, xmldata, "<ssl_add_token>Y</ssl_add_token>")
	assert.Contains(t, xmldata, "<ssl_get_token>Y</ssl_get_token>")
	assert.NotContains(t, xmldata, "ssl_amount")
}

func TestEncodeSessionToken(t *testing.T) {
	body := EncodeSessionToken(testCreds, domain.OperationCharge, "49.99")

	values, err := url.ParseQuery(body)
	require.NoError(t, err)
	assert.Equal(t, "009999", values.Get("ssl_merchant_id"))
	assert.Equal(t, "webuser", values.Get("ssl_user_id"))
	assert.Equal(t, "SECRETPIN", values.Get("ssl_pin"))
	assert.Equal(t, "ccsale", values.Get("ssl_transaction_type"))
	assert.Equal(t, "49.99", values.Get("ssl_amount"))

	// Tokenize sessions omit the amount.
	body = EncodeSessionToken(testCreds, domain.OperationTokenize, "")
	values, err = url.ParseQuery(body)
	require.NoError(t, err)
	assert.Equal(t, "ccgettoken", values.Get("ssl_transaction_type"))
	assert.False(t, values.Has("ssl_amount"))
}

func TestDecodeTransactionApproval(t *testing.T) {
	payload := `<txn>
		<ssl_result>0</ssl_result>
		<ssl_result_message>APPROVAL</ssl_result_message>
		<ssl_approval_code>CMC648</ssl_approval_code>
		<ssl_txn_id>8c1f6c18-39cb-4051-93a5-28c4a7a7eabc</ssl_txn_id>
		<ssl_card_number>41**********1111</ssl_card_number>
		<ssl_card_short_description>VISA</ssl_card_short_description>
		<ssl_exp_date>1229</ssl_exp_date>
		<ssl_description>order-8841</ssl_description>
	</txn>`

	resp, err := DecodeTransaction(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, "0", resp.Result)
	assert.Equal(t, "APPROVAL", resp.ResultMessage)
	assert.Equal(t, "CMC648", resp.ApprovalCode)
	assert.Equal(t, "41**********1111", resp.CardNumber)
	assert.Equal(t, "VISA", resp.CardType)
	assert.Equal(t, "order-8841", resp.Description)
	assert.True(t, resp.Approved())
	assert.False(t, resp.HasError())
}

func TestDecodeTransactionErrorFamily(t *testing.T) {
	payload := `<txn>
		<errorCode>5000</errorCode>
		<errorName>Credential Validation Failed</errorName>
		<errorMessage>The credentials supplied in the authorization request were invalid.</errorMessage>
	</txn>`

	resp, err := DecodeTransaction(strings.NewReader(payload))
	require.NoError(t, err)

	assert.True(t, resp.HasError())
	assert.Equal(t, "5000", resp.ErrorCode)
	assert.Equal(t, "Credential Validation Failed", resp.ErrorName)
	assert.False(t, resp.Approved())
}

func TestDecodeTransactionMalformed(t *testing.T) {
	_, err := DecodeTransaction(strings.NewReader("not xml at all"))
	assert.Error(t, err)

	_, err = DecodeTransaction(strings.NewReader("<txn></txn>"))
	assert.Error(t, err)
}

func TestDecodeTransactionCardTypeFallback(t *testing.T) {
	payload := `<txn><ssl_result>0</ssl_result><ssl_card_type>CREDITCARD</ssl_card_type></txn>`
	resp, err := DecodeTransaction(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "CREDITCARD", resp.CardType)
}
