package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hoangvu/gearcart/internal/application/payment"
)

// Provider callback and redirect parameter names.
const (
	ParamTxnRef         = "txnRef"
	ParamAmount         = "amount"
	ParamResponseCode   = "responseCode"
	ParamTransactionNo  = "transactionNo"
	ParamBankCode       = "bankCode"
	ParamPayDate        = "payDate"
	ParamOrderInfo      = "orderInfo"
	ParamSecureHash     = "secureHash"
	ParamSecureHashType = "secureHashType"
)

// Amounts travel in minor units: the provider multiplies by 100 on the wire.
const amountScale = 100

// Client decodes authenticated provider callbacks and builds the signed
// redirect URL that sends a customer to the provider's payment page.
type Client struct {
	signer *Signer
	payURL string
}

func NewClient(secret, payURL string) *Client {
	return &Client{
		signer: NewSigner(secret),
		payURL: payURL,
	}
}

// Decode verifies the callback signature and extracts the typed payload.
// It implements payment.CallbackVerifier.
func (c *Client) Decode(query url.Values) (*payment.Callback, error) {
	if !c.signer.Verify(query) {
		return nil, payment.ErrInvalidSignature
	}

	rawAmount := query.Get(ParamAmount)
	scaled, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gateway: malformed amount %q: %w", rawAmount, err)
	}

	return &payment.Callback{
		OrderNumber:   query.Get(ParamTxnRef),
		Amount:        scaled / amountScale,
		ResponseCode:  query.Get(ParamResponseCode),
		TransactionID: query.Get(ParamTransactionNo),
		BankCode:      query.Get(ParamBankCode),
		PayDate:       query.Get(ParamPayDate),
	}, nil
}

// PayURL builds the signed provider redirect for an order. The order number
// doubles as the transaction reference echoed back in callbacks.
func (c *Client) PayURL(orderNumber string, amount int64, at time.Time) string {
	params := url.Values{}
	params.Set(ParamTxnRef, orderNumber)
	params.Set(ParamAmount, strconv.FormatInt(amount*amountScale, 10))
	params.Set(ParamOrderInfo, "payment for "+orderNumber)
	params.Set(ParamPayDate, at.UTC().Format("20060102150405"))
	params.Set(ParamSecureHash, c.signer.Sign(params))

	return c.payURL + "?" + params.Encode()
}
