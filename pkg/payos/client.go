package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
)

const (
	defaultBaseURL            = "https://api-merchant.payos.vn"
	defaultTimeout            = 10 * time.Second
	paymentRequestsPath       = "v2/payment-requests"
	successCode               = "00"
	responseReadLimit   int64 = 1024
)

var errChecksumKeyRequired = errors.New("payos checksum key is required")

// Client talks to the PayOS merchant API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a PayOS client from config.
func NewClient(cfg config.PayOSConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.ChecksumKey)
	if key == "" {
		return nil, errChecksumKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     defaultBaseURL,
		clientID:    strings.TrimSpace(cfg.ClientID),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		checksumKey: key,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ChecksumKey returns the key used to sign requests and verify webhooks.
func (c *Client) ChecksumKey() string {
	return c.checksumKey
}

// PaymentRequest describes a payment link to create. Amount is in whole VND.
type PaymentRequest struct {
	OrderCode   int64         `json:"orderCode"`
	Amount      int64         `json:"amount"`
	Description string        `json:"description"`
	ReturnURL   string        `json:"returnUrl"`
	CancelURL   string        `json:"cancelUrl"`
	BuyerName   string        `json:"buyerName,omitempty"`
	BuyerPhone  string        `json:"buyerPhone,omitempty"`
	Items       []PaymentItem `json:"items,omitempty"`
	Signature   string        `json:"signature"`
}

// PaymentItem is a display line on the PayOS checkout page.
type PaymentItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// PaymentLink is the data returned for a created link.
type PaymentLink struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
}

// CreatePaymentLink signs and submits the request. Any non-success answer is
// returned as a dependency error.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payos client not configured")
	}
	if req.OrderCode <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	req.Signature = SignPaymentRequest(req, c.checksumKey)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(paymentRequestsPath), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment request failed")
	}

	var apiResp struct {
		Code string       `json:"code"`
		Desc string       `json:"desc"`
		Data *PaymentLink `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}
	if apiResp.Code != successCode || apiResp.Data == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("code %s: %s", apiResp.Code, apiResp.Desc), "payment request rejected")
	}
	return apiResp.Data, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
