package duitku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrGatewayUnavailable marks network or timeout failures talking to the
	// gateway. Retryable; no local state may change because of it.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPaymentRejected marks an explicit business decline from the gateway.
	// Terminal for the attempt; the provider's message is attached.
	ErrPaymentRejected = errors.New("payment rejected by gateway")
)

// Options configure the gateway client. Values come from the application
// config; the client itself never reads the environment.
type Options struct {
	MerchantCode string
	APIKey       string
	// BaseURL overrides the sandbox/production default, mainly for tests.
	BaseURL     string
	Sandbox     bool
	CallbackURL string
	ReturnURL   string
	// ExpiryMinutes is passed to createinvoice as the invoice lifetime.
	ExpiryMinutes int
}

// Client talks to the Duitku merchant API.
type Client struct {
	opts Options
	http *http.Client
	base string
	log  *zap.SugaredLogger
}

func NewClient(opts Options, timeout time.Duration, log *zap.SugaredLogger) *Client {
	base := opts.BaseURL
	if base == "" {
		if opts.Sandbox {
			base = SandboxBaseURL
		} else {
			base = ProductionBaseURL
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.ExpiryMinutes <= 0 {
		opts.ExpiryMinutes = 24 * 60
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: timeout},
		base: base,
		log:  log,
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: undecodable response: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

// InvoiceParams are the caller-facing inputs for CreateInvoice.
type InvoiceParams struct {
	OrderID        string
	Amount         int64
	ProductDetails string
	CustomerName   string
	Email          string
	PhoneNumber    string
	ItemDetails    []ItemDetail
}

// Invoice is the normalized successful createinvoice result.
type Invoice struct {
	OrderID    string
	Reference  string
	PaymentURL string
	VaNumber   string
}

// CreateInvoice signs and sends a createinvoice request. A statusCode other
// than "00" is a business failure, returned as ErrPaymentRejected with the
// provider's message, never as a gateway error.
func (c *Client) CreateInvoice(ctx context.Context, p InvoiceParams) (*Invoice, error) {
	first, last := splitName(p.CustomerName)
	req := createInvoiceRequest{
		MerchantCode:    c.opts.MerchantCode,
		PaymentAmount:   p.Amount,
		MerchantOrderID: p.OrderID,
		ProductDetails:  p.ProductDetails,
		CustomerVaName:  p.CustomerName,
		Email:           p.Email,
		PhoneNumber:     p.PhoneNumber,
		ItemDetails:     p.ItemDetails,
		CustomerDetail: &CustomerDetail{
			FirstName:   first,
			LastName:    last,
			Email:       p.Email,
			PhoneNumber: p.PhoneNumber,
		},
		CallbackURL:  c.opts.CallbackURL,
		ReturnURL:    c.opts.ReturnURL,
		Signature:    Sign(c.opts.MerchantCode, p.OrderID, p.Amount, c.opts.APIKey),
		ExpiryPeriod: c.opts.ExpiryMinutes,
	}

	var resp createInvoiceResponse
	if err := c.post(ctx, "/merchant/createinvoice", req, &resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != ResultCodeSuccess {
		msg := resp.StatusMessage
		if msg == "" {
			msg = "payment creation failed"
		}
		return nil, fmt.Errorf("%w: %s (code %s)", ErrPaymentRejected, msg, resp.StatusCode)
	}
	return &Invoice{
		OrderID:    resp.MerchantOrderID,
		Reference:  resp.Reference,
		PaymentURL: resp.PaymentURL,
		VaNumber:   resp.VaNumber,
	}, nil
}

// TransactionStatus is a side-effect-free remote read of one order's state.
func (c *Client) TransactionStatus(ctx context.Context, orderID string) (*TransactionStatus, error) {
	req := statusRequest{
		MerchantCode:    c.opts.MerchantCode,
		MerchantOrderID: orderID,
		Signature:       StatusSignature(c.opts.MerchantCode, orderID, c.opts.APIKey),
	}
	var resp TransactionStatus
	if err := c.post(ctx, "/merchant/transactionStatus", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PaymentMethods lists methods and fees available for the given amount.
func (c *Client) PaymentMethods(ctx context.Context, amount int64) ([]PaymentMethod, error) {
	req := paymentMethodRequest{
		MerchantCode: c.opts.MerchantCode,
		Amount:       amount,
		Signature:    md5hex(c.opts.MerchantCode + fmt.Sprintf("%d", amount) + c.opts.APIKey),
	}
	var resp paymentMethodResponse
	if err := c.post(ctx, "/merchant/paymentmethod/getpaymentmethod", req, &resp); err != nil {
		return nil, err
	}
	return resp.PaymentFee, nil
}

// VerifyCallback checks the signature of an inbound callback against this
// client's merchant credentials.
func (c *Client) VerifyCallback(p *CallbackParams) bool {
	if p == nil {
		return false
	}
	return VerifyCallback(p.MerchantCode, p.Amount, p.MerchantOrderID, p.Signature, c.opts.APIKey)
}

func splitName(full string) (first, last string) {
	for i := 0; i < len(full); i++ {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
