package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GatewayOrderRequest is the body of POST /v1/orders; Amount is in minor units.
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	Status      int
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %d %s: %s", e.Status, e.Code, e.Description)
}

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Razorpay talks to the orders API with basic auth (key id / key secret).
type Razorpay struct {
	HTTP      *http.Client
	BaseURL   string
	KeyID     string
	KeySecret string
}

func NewRazorpay(baseURL, keyID, keySecret string) *Razorpay {
	return &Razorpay{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   strings.TrimRight(baseURL, "/"),
		KeyID:     keyID,
		KeySecret: keySecret,
	}
}

func (r *Razorpay) CreateOrder(ctx context.Context, in GatewayOrderRequest) (*GatewayOrder, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.KeyID, r.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := r.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&e)
		return nil, &GatewayError{Status: res.StatusCode, Code: e.Error.Code, Description: e.Error.Description}
	}
	var out GatewayOrder
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	return &out, nil
}
