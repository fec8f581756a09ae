package razorpayrepo

import "context"

type CreateOrderReq struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	OrderID     string
	AmountPaise int64
	Currency    string
}

type Repo interface {
	CreateOrder(ctx context.Context, req CreateOrderReq) (*Order, error)
}
