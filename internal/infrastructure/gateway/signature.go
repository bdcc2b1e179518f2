package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Signer computes the keyed signature the provider attaches to every
// callback: HMAC-SHA512 over the parameters sorted by name, values taken
// as transmitted, the signature fields themselves excluded.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign canonicalises the parameters and returns the hex-encoded MAC.
func (s *Signer) Sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}

	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it byte-exactly in constant
// time against the transmitted one.
func (s *Signer) Verify(params url.Values) bool {
	got, err := hex.DecodeString(params.Get(ParamSecureHash))
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(s.Sign(params))
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}
