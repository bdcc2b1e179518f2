package payment

import (
	"errors"
	"net/url"
)

// ErrInvalidSignature is returned by a CallbackVerifier when the keyed
// signature of the provider callback does not match its parameters.
var ErrInvalidSignature = errors.New("payment: invalid callback signature")

// Callback is the decoded, authenticated payload of a provider callback.
// OrderNumber is the transaction reference the provider echoes back.
type Callback struct {
	OrderNumber   string
	Amount        int64
	ResponseCode  string
	TransactionID string
	BankCode      string
	PayDate       string
}

// Success reports whether the provider settled the payment.
func (c *Callback) Success() bool { return c.ResponseCode == "00" }

// CallbackVerifier authenticates and decodes raw provider query parameters.
// Implementations return ErrInvalidSignature on any mismatch and must not
// partially decode a tampered callback.
type CallbackVerifier interface {
	Decode(query url.Values) (*Callback, error)
}
