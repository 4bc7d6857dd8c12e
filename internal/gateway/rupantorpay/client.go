// Package rupantorpay adapts the RupantorPay HTTP API to the payment.Gateway
// contract. The gateway's JSON is loosely typed: numeric fields arrive as
// either strings or numbers depending on the payment method, so responses
// are decoded token-by-token with jx instead of rigid struct tags.
package rupantorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/submonth/storefront/internal/domain/payment"
)

const (
	createPath = "/api/payment/create-charge"
	verifyPath = "/api/payment/verify-charge"

	maxResponseBytes = 1 << 20
)

var _ payment.Gateway = (*Client)(nil)

// Config holds the gateway connection settings.
type Config struct {
	// BaseURL is the gateway API root, e.g. https://payment.rupantorpay.com.
	BaseURL string
	// APIKey is sent as the X-API-KEY header on every request.
	APIKey string
	// PublicURL is this storefront's externally reachable origin; the gateway
	// derives its success/cancel redirect targets from it.
	PublicURL string
	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
}

// Client is the HTTP adapter implementing payment.Gateway.
type Client struct {
	http *http.Client
	cfg  Config
}

// NewClient returns a Client with an OpenTelemetry-instrumented transport.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg: cfg,
	}
}

type createChargeBody struct {
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail"`
	CustomerPhone string               `json:"customerPhone"`
	Items         []payment.ChargeItem `json:"items"`
	TotalAmount   string               `json:"totalAmount"`
	Currency      string               `json:"currency"`
	OrderID       string               `json:"orderId"`
}

// CreateCharge asks the gateway for a hosted payment page. A success=false
// envelope is returned as *payment.GatewayError; the caller rolls back the
// pending order in that case.
func (c *Client) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	body := createChargeBody{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Items:         req.Items,
		TotalAmount:   req.TotalAmount,
		Currency:      string(req.Currency),
		OrderID:       req.OrderID,
	}

	raw, err := c.post(ctx, createPath, body)
	if err != nil {
		return nil, err
	}

	var (
		success    bool
		paymentURL string
		gwMessage  string
	)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			success = v
			return err
		case "payment_url":
			v, err := decodeOptionalStr(d)
			paymentURL = v
			return err
		case "error", "message":
			v, err := decodeOptionalStr(d)
			if v != "" {
				gwMessage = v
			}
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode create-charge response")
	}

	if !success {
		if gwMessage == "" {
			gwMessage = "charge rejected"
		}
		return nil, &payment.GatewayError{Op: "create", Message: gwMessage}
	}
	if paymentURL == "" {
		return nil, errors.New("gateway reported success without a payment_url")
	}
	return &payment.ChargeResult{PaymentURL: paymentURL}, nil
}

type verifyChargeBody struct {
	TransactionID string `json:"transaction_id"`
}

// VerifyCharge fetches the gateway's authoritative view of a transaction.
func (c *Client) VerifyCharge(ctx context.Context, transactionID string) (*payment.VerifyResult, error) {
	raw, err := c.post(ctx, verifyPath, verifyChargeBody{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}

	var (
		success   bool
		gwMessage string
		result    payment.VerifyResult
		hasData   bool
	)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			success = v
			return err
		case "error", "message":
			v, err := decodeOptionalStr(d)
			if v != "" {
				gwMessage = v
			}
			return err
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			hasData = true
			return decodeVerifyData(d, &result)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode verify-charge response")
	}

	if !success || !hasData {
		if gwMessage == "" {
			gwMessage = "verification rejected"
		}
		return nil, &payment.GatewayError{Op: "verify", Message: gwMessage}
	}
	return &result, nil
}

func decodeVerifyData(d *jx.Decoder, out *payment.VerifyResult) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			out.Status = v
			return err
		case "transaction_id":
			v, err := decodeOptionalStr(d)
			out.TransactionID = v
			return err
		case "payment_method":
			v, err := decodeOptionalStr(d)
			out.PaymentMethod = v
			return err
		case "amount":
			v, err := decodeAmount(d)
			out.Amount = v
			return err
		case "currency":
			v, err := decodeOptionalStr(d)
			out.Currency = v
			return err
		case "fullname":
			v, err := decodeOptionalStr(d)
			out.Fullname = v
			return err
		case "email":
			v, err := decodeOptionalStr(d)
			out.Email = v
			return err
		case "meta_data":
			return decodeMeta(d, &out.Meta)
		default:
			return d.Skip()
		}
	})
}

func decodeMeta(d *jx.Decoder, out *payment.VerifyMeta) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderId":
			v, err := decodeOptionalStr(d)
			out.OrderID = v
			return err
		case "items":
			return decodeChargeItems(d, &out.Items)
		default:
			return d.Skip()
		}
	})
}

func decodeChargeItems(d *jx.Decoder, out *[]payment.ChargeItem) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Arr(func(d *jx.Decoder) error {
		var item payment.ChargeItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				v, err := decodeOptionalStr(d)
				item.ProductID = v
				return err
			case "name":
				v, err := decodeOptionalStr(d)
				item.Name = v
				return err
			case "quantity":
				v, err := d.Int()
				item.Quantity = v
				return err
			case "price":
				v, err := decodeAmount(d)
				item.Price = v
				return err
			case "duration":
				v, err := decodeOptionalStr(d)
				item.Duration = v
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		*out = append(*out, item)
		return nil
	})
}

// decodeAmount accepts both "20.00" and 20.00; the gateway is not
// consistent about which it sends.
func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "amount %q", s)
		}
		return v, nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "amount %s", n)
		}
		return v, nil
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected amount token %v", d.Next())
	}
}

// decodeOptionalStr reads a string, treating null as empty.
func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	if c.cfg.PublicURL != "" {
		req.Header.Set("Origin", c.cfg.PublicURL)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s", path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}

	// The gateway answers business rejections with 200 + success=false;
	// anything else is a transport-level failure and safe to retry.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return raw, nil
}
