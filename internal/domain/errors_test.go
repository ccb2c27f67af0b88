package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayErrorKinds(t *testing.T) {
	transport := NewTransportError("connection reset", errors.New("read tcp: reset"))
	assert.True(t, IsKind(transport, ErrorKindTransport))
	assert.False(t, IsKind(transport, ErrorKindProcessor))
	assert.Equal(t, GenericDeclineMessage, transport.UserSafe())

	decline := NewProcessorError("6042", "The card was declined")
	assert.True(t, IsKind(decline, ErrorKindProcessor))
	assert.Equal(t, "6042", ErrorCode(decline))
	// Processor wording is shown verbatim.
	assert.Equal(t, "The card was declined", decline.UserSafe())

	anomaly := NewAnomalyError("sentinel values present")
	assert.True(t, IsKind(anomaly, ErrorKindAnomaly))
	assert.Equal(t, GenericDeclineMessage, anomaly.UserSafe())
}

func TestGatewayErrorWrapping(t *testing.T) {
	inner := errors.New("dial tcp4: i/o timeout")
	ge := NewTransportError("transaction request failed", inner)

	wrapped := fmt.Errorf("charge order: %w", ge)
	assert.True(t, IsKind(wrapped, ErrorKindTransport))
	assert.True(t, errors.Is(wrapped, inner))
	assert.Equal(t, GenericDeclineMessage, UserMessage(wrapped))
}

func TestUserMessageDefaults(t *testing.T) {
	assert.Equal(t, GenericDeclineMessage, UserMessage(errors.New("plain error")))
	assert.Equal(t, "", ErrorCode(errors.New("plain error")))
}
