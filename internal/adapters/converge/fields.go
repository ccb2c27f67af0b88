package converge

import (
	"strings"
	"unicode"
)

// Converge field length limits. Values longer than these get rejected or
// silently mangled by the processor, so the encoder truncates first.
const (
	maxInvoiceNumber = 25
	maxDescription   = 255
	maxFirstName     = 20
	maxLastName      = 30
	maxCompany       = 50
	maxAddress       = 30
	maxCity          = 30
	maxState         = 30
	maxCountry       = 50
	maxPostalCode    = 9
	maxPhone         = 20
	maxEmail         = 100
)

// sanitize removes characters Converge rejects: control characters and the
// XML-significant punctuation the processor does not unescape.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		switch r {
		case '<', '>', '&', '"', '\'':
			return -1
		}
		return r
	}, s)
}

// clip sanitizes s and truncates it to max runes. Sanitization runs first so
// truncation counts only characters that will actually be sent.
func clip(s string, max int) string {
	s = sanitize(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// clipInvoice prepares an order number for ssl_invoice_number: strip a
// leading '#', then clip.
func clipInvoice(number string) string {
	return clip(strings.TrimPrefix(number, "#"), maxInvoiceNumber)
}
