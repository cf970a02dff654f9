package payos_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstore-backend/pkg/payos"
	"github.com/angelmondragon/bookstore-backend/pkg/payos/payostest"
)

const testKey = "checksum-key"

func TestParseWebhookVerifiesSignature(t *testing.T) {
	body := payostest.WebhookBody(t, testKey, 1001, "00", "REF-1", 27000)

	hook, err := payos.ParseWebhook(body, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), hook.Data.OrderCode)
	assert.Equal(t, "REF-1", hook.Data.Reference)
	assert.True(t, hook.IsPaid())

	_, err = payos.ParseWebhook(body, "wrong-key")
	assert.ErrorIs(t, err, payos.ErrInvalidSignature)
}

func TestParseWebhookRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing data":  `{"code":"00","signature":"abc"}`,
		"null data":     `{"code":"00","data":null,"signature":"abc"}`,
		"missing sig":   `{"code":"00","data":{"orderCode":1}}`,
		"zero order id": "",
	}
	zero := map[string]any{"orderCode": json.Number("0"), "code": "00"}
	cases["zero order id"] = fmt.Sprintf(`{"code":"00","data":{"orderCode":0,"code":"00"},"signature":"%s"}`, payos.SignData(zero, testKey))

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := payos.ParseWebhook([]byte(body), testKey)
			assert.Error(t, err)
		})
	}
}

func TestIsPaidNeedsBothCodes(t *testing.T) {
	body := payostest.WebhookBody(t, testKey, 5, "07", "", 1000)
	hook, err := payos.ParseWebhook(body, testKey)
	require.NoError(t, err)
	assert.False(t, hook.IsPaid())

	hook.Data.Code = "00"
	hook.Code = "01"
	assert.False(t, hook.IsPaid())
}
