package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// CardTypeUnknown is the literal Converge returns from a token query when it
// cannot classify the card brand.
const CardTypeUnknown = "CREDITCARD"

// PaymentToken is a stored Converge payment token together with the local
// bookkeeping the gateway keeps alongside it.
type PaymentToken struct {
	// ID is the processor-issued token value (ssl_token).
	ID         string
	CustomerID string

	Brand    string
	LastFour string
	ExpMonth int
	ExpYear  int

	// BillingHash fingerprints the billing profile the token was last
	// registered with, so a changed address triggers exactly one remote
	// update before the token is charged.
	BillingHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillingMatches reports whether the token's recorded billing fingerprint
// matches the order's current billing profile.
func (t *PaymentToken) BillingMatches(o *Order) bool {
	return t.BillingHash == HashBilling(&o.Billing)
}

// HashBilling fingerprints the billing fields Converge stores against a
// token. Field order is fixed; changing it invalidates every stored hash.
func HashBilling(b *BillingProfile) string {
	parts := []string{
		b.FirstName,
		b.LastName,
		b.Company,
		b.Address1,
		b.Address2,
		b.City,
		b.State,
		b.Country,
		b.PostalCode,
		b.Phone,
		b.Email,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ParseExpDate splits a Converge MMYY expiry into month and four-digit year.
// Malformed input yields zero values.
func ParseExpDate(expDate string) (month, year int) {
	if len(expDate) != 4 {
		return 0, 0
	}
	m, err := strconv.Atoi(expDate[:2])
	if err != nil || m < 1 || m > 12 {
		return 0, 0
	}
	y, err := strconv.Atoi(expDate[2:])
	if err != nil {
		return 0, 0
	}
	return m, 2000 + y
}

// NormalizeCardBrand maps a Converge card type literal to a stable lowercase
// brand name, with the unknown-brand literal mapped to the empty string.
func NormalizeCardBrand(cardType string) string {
	ct := strings.ToUpper(strings.TrimSpace(cardType))
	if ct == "" || ct == CardTypeUnknown {
		return ""
	}
	switch ct {
	case "VISA":
		return "visa"
	case "MC", "MASTERCARD":
		return "mastercard"
	case "AMEX":
		return "amex"
	case "DISC", "DISCOVER":
		return "discover"
	case "JCB":
		return "jcb"
	case "DINERS", "DINERSCLUB":
		return "diners"
	}
	return strings.ToLower(ct)
}
