package razorpayrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rentaread/util/httpx"
)

const ordersURL = "https://api.razorpay.com/v1/orders"

type httpRepo struct {
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHTTP(keyID, keySecret string) Repo {
	return &httpRepo{keyID: keyID, keySecret: keySecret, client: httpx.Client()}
}

func (r *httpRepo) CreateOrder(ctx context.Context, req CreateOrderReq) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body := map[string]any{
		"amount":   req.AmountPaise,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		body["notes"] = req.Notes
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ordersURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay create order failed: %s", resp.Status)
	}

	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("razorpay: empty order id")
	}

	return &Order{OrderID: out.ID, AmountPaise: out.Amount, Currency: out.Currency}, nil
}
