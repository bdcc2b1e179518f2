package gateway

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeterministicAndOrderIndependent(t *testing.T) {
	s := NewSigner("secret")

	a := url.Values{}
	a.Set(ParamTxnRef, "ORD-20260831-000001")
	a.Set(ParamAmount, "25000000")
	a.Set(ParamResponseCode, "00")

	b := url.Values{}
	b.Set(ParamResponseCode, "00")
	b.Set(ParamAmount, "25000000")
	b.Set(ParamTxnRef, "ORD-20260831-000001")

	assert.Equal(t, s.Sign(a), s.Sign(b), "canonical form sorts by parameter name")
	assert.Equal(t, s.Sign(a), s.Sign(a))
	assert.Len(t, s.Sign(a), 128, "hex-encoded SHA-512 MAC")
}

func TestSignExcludesSignatureFields(t *testing.T) {
	s := NewSigner("secret")

	params := url.Values{}
	params.Set(ParamTxnRef, "ORD-20260831-000001")
	params.Set(ParamAmount, "25000000")

	bare := s.Sign(params)

	params.Set(ParamSecureHash, bare)
	params.Set(ParamSecureHashType, "HmacSHA512")
	assert.Equal(t, bare, s.Sign(params), "signature fields must not sign themselves")
}

func TestVerify(t *testing.T) {
	s := NewSigner("secret")

	params := url.Values{}
	params.Set(ParamTxnRef, "ORD-20260831-000001")
	params.Set(ParamAmount, "25000000")
	params.Set(ParamResponseCode, "00")
	params.Set(ParamSecureHash, s.Sign(params))

	assert.True(t, s.Verify(params))

	t.Run("tampered value", func(t *testing.T) {
		tampered := clone(params)
		tampered.Set(ParamAmount, "25000001")
		assert.False(t, s.Verify(tampered))
	})

	t.Run("tampered signature", func(t *testing.T) {
		sig := params.Get(ParamSecureHash)
		require.NotEmpty(t, sig)
		flipped := "0" + sig[1:]
		if flipped == sig {
			flipped = "1" + sig[1:]
		}
		tampered := clone(params)
		tampered.Set(ParamSecureHash, flipped)
		assert.False(t, s.Verify(tampered))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, NewSigner("other").Verify(params))
	})

	t.Run("missing signature", func(t *testing.T) {
		bare := clone(params)
		bare.Del(ParamSecureHash)
		assert.False(t, s.Verify(bare))
	})

	t.Run("non-hex signature", func(t *testing.T) {
		bad := clone(params)
		bad.Set(ParamSecureHash, "not-hex-at-all")
		assert.False(t, s.Verify(bad))
	})
}

func TestSignEscapesValues(t *testing.T) {
	s := NewSigner("secret")

	params := url.Values{}
	params.Set(ParamOrderInfo, "payment for ORD-1 & extras")
	params.Set(ParamTxnRef, "ORD-1")
	params.Set(ParamSecureHash, s.Sign(params))

	// An ampersand inside a value must not be confusable with a separator.
	assert.True(t, s.Verify(params))
}

func clone(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		for _, val := range vals {
			out.Add(k, val)
		}
	}
	return out
}
