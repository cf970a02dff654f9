package payos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Webhook is a signature-verified PayOS payment notification.
type Webhook struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"-"`
	Signature string      `json:"signature"`
}

// WebhookData carries the transaction fields of a notification.
type WebhookData struct {
	OrderCode              int64  `json:"orderCode"`
	Amount                 int64  `json:"amount"`
	Description            string `json:"description"`
	AccountNumber          string `json:"accountNumber"`
	Reference              string `json:"reference"`
	TransactionDateTime    string `json:"transactionDateTime"`
	Currency               string `json:"currency"`
	PaymentLinkID          string `json:"paymentLinkId"`
	Code                   string `json:"code"`
	Desc                   string `json:"desc"`
	CounterAccountBankID   string `json:"counterAccountBankId"`
	CounterAccountBankName string `json:"counterAccountBankName"`
	CounterAccountName     string `json:"counterAccountName"`
	CounterAccountNumber   string `json:"counterAccountNumber"`
	VirtualAccountName     string `json:"virtualAccountName"`
	VirtualAccountNumber   string `json:"virtualAccountNumber"`
}

// IsPaid reports the success signal: both the envelope and the data carry code "00".
func (w *Webhook) IsPaid() bool {
	return w != nil && w.Code == successCode && w.Data.Code == successCode
}

// ParseWebhook decodes body and verifies its signature against data.
func ParseWebhook(body []byte, key string) (*Webhook, error) {
	var envelope struct {
		Code      string          `json:"code"`
		Desc      string          `json:"desc"`
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil, errors.New("webhook data missing")
	}
	if strings.TrimSpace(envelope.Signature) == "" {
		return nil, errors.New("webhook signature missing")
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}
	if err := VerifyData(raw, envelope.Signature, key); err != nil {
		return nil, err
	}

	var data WebhookData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}
	if data.OrderCode <= 0 {
		return nil, errors.New("webhook order code missing")
	}
	return &Webhook{
		Code:      envelope.Code,
		Desc:      envelope.Desc,
		Success:   envelope.Success,
		Data:      data,
		Signature: envelope.Signature,
	}, nil
}
