// Package payostest builds signed PayOS payloads for tests.
package payostest

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/bookstore-backend/pkg/payos"
)

// WebhookBody builds a webhook body signed with key. dataCode is used
// for the data object; the envelope always reports "00".
func WebhookBody(t testing.TB, key string, orderCode int64, dataCode, reference string, amount int64) []byte {
	t.Helper()
	data := map[string]any{
		"orderCode":           orderCode,
		"amount":              amount,
		"description":         "bookstore order",
		"accountNumber":       "0000000001",
		"reference":           reference,
		"transactionDateTime": "2026-10-01 10:00:00",
		"currency":            "VND",
		"paymentLinkId":       "link-1",
		"code":                dataCode,
		"desc":                "success",
	}
	body, err := json.Marshal(map[string]any{
		"code":      "00",
		"desc":      "success",
		"success":   dataCode == "00",
		"data":      data,
		"signature": payos.SignData(data, key),
	})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return body
}
