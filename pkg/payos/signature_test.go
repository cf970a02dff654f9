package payos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsKeysAndBlanksNulls(t *testing.T) {
	data := map[string]any{
		"orderCode":   json.Number("123"),
		"amount":      json.Number("27000"),
		"description": "Order 123",
		"reference":   nil,
		"desc":        "null",
	}
	assert.Equal(t, "amount=27000&desc=&description=Order 123&orderCode=123&reference=", canonical(data))
}

func TestVerifyDataRoundTrip(t *testing.T) {
	data := map[string]any{"orderCode": json.Number("42"), "code": "00"}
	sig := SignData(data, "secret")
	require.NoError(t, VerifyData(data, sig, "secret"))
	require.NoError(t, VerifyData(data, "  "+sig+" ", "secret"))
	assert.ErrorIs(t, VerifyData(data, sig, "other"), ErrInvalidSignature)

	data["code"] = "01"
	assert.ErrorIs(t, VerifyData(data, sig, "secret"), ErrInvalidSignature)
}

func TestSignPaymentRequestCoversLinkFields(t *testing.T) {
	req := PaymentRequest{OrderCode: 7, Amount: 100, Description: "d", ReturnURL: "r", CancelURL: "c"}
	want := sign("amount=100&cancelUrl=c&description=d&orderCode=7&returnUrl=r", "k")
	assert.Equal(t, want, SignPaymentRequest(req, "k"))

	req.BuyerName = "ignored"
	assert.Equal(t, want, SignPaymentRequest(req, "k"))
}
