// Package paymentsvc drives the payment leg of the rental lifecycle:
// creating a gateway order for a rental awaiting payment, and
// verifying the gateway's signed confirmation before trusting it.
package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"rentaread/model"
	razorpayrepo "rentaread/repository/razorpay"
	rentalsvc "rentaread/service/rental"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	ListForUser(ctx context.Context, userID int64) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
}

type RentalRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Rental, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error)
	MarkAwaitingPickup(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error)
}

// dto

type OrderCreated struct {
	OrderID     string  `json:"order_id"`
	AmountPaise int64   `json:"amount"`
	Currency    string  `json:"currency"`
	KeyID       string  `json:"key"`
	RentalFee   float64 `json:"rental_fee"`
}

type VerifyReq struct {
	RentalID  int64
	OrderID   string
	PaymentID string
	Signature string
}

type Service interface {
	// CreateOrder asks the gateway for an order covering the rental fee.
	CreateOrder(ctx context.Context, rentalID, borrowerID int64) (*OrderCreated, error)

	// Verify checks the gateway signature, records the payment and
	// moves the rental to AWAITING_PICKUP with a fresh pickup code.
	Verify(ctx context.Context, borrowerID int64, req VerifyReq) (*model.Payment, error)

	ListForUser(ctx context.Context, userID int64) ([]model.Payment, error)

	// OverrideStatus force-sets a payment's status. Admin-only escape
	// hatch for gateway reconciliation; it never touches the rental.
	OverrideStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error
}

// ----- Service implementation -----

type service struct {
	db        rentalsvc.TxBeginner
	pr        PaymentRepo
	rr        RentalRepo
	gw        razorpayrepo.Repo
	keyID     string
	keySecret string
}

func New(db rentalsvc.TxBeginner, pr PaymentRepo, rr RentalRepo, gw razorpayrepo.Repo, keyID, keySecret string) Service {
	return &service{db: db, pr: pr, rr: rr, gw: gw, keyID: keyID, keySecret: keySecret}
}

func (s *service) CreateOrder(ctx context.Context, rentalID, borrowerID int64) (*OrderCreated, error) {
	rental, err := s.loadRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.BorrowerID != borrowerID {
		return nil, rentalsvc.NewError(rentalsvc.ErrForbidden, "only the borrower may pay for this rental")
	}
	if rental.Status != model.RentalAwaitingPayment {
		return nil, rentalsvc.NewError(rentalsvc.ErrInvalidStateTransition,
			fmt.Sprintf("rental is not awaiting payment (status %s)", rental.Status))
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	order, err := s.gw.CreateOrder(ctx, razorpayrepo.CreateOrderReq{
		// gateway expects paise; round, a fee like 19.99 sits just
		// below 1999 in binary and truncation would drop a paisa
		AmountPaise: int64(math.Round(rental.RentalFee * 100)),
		Currency:    "INR",
		Receipt:     "rental_" + uuid.NewString()[:8] + fmt.Sprintf("_%d", rentalID),
		Notes:       map[string]string{"rental_id": fmt.Sprintf("%d", rentalID)},
	})
	if err != nil {
		return nil, rentalsvc.NewError(rentalsvc.ErrPaymentServiceUnavailable, "payment order creation failed")
	}

	return &OrderCreated{
		OrderID:     order.OrderID,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		KeyID:       s.keyID,
		RentalFee:   rental.RentalFee,
	}, nil
}

func (s *service) Verify(ctx context.Context, borrowerID int64, req VerifyReq) (*model.Payment, error) {
	rental, err := s.loadRental(ctx, req.RentalID)
	if err != nil {
		return nil, err
	}
	if rental.BorrowerID != borrowerID {
		return nil, rentalsvc.NewError(rentalsvc.ErrForbidden, "only the borrower may verify this payment")
	}
	if rental.Status != model.RentalAwaitingPayment {
		return nil, rentalsvc.NewError(rentalsvc.ErrInvalidStateTransition,
			fmt.Sprintf("rental is not awaiting payment (status %s)", rental.Status))
	}

	// signature check precedes every write; a forgery changes nothing
	if !s.signatureValid(req.OrderID, req.PaymentID, req.Signature) {
		return nil, rentalsvc.NewError(rentalsvc.ErrInvalidPaymentSignature, "invalid payment signature")
	}

	payment := &model.Payment{
		RentalID:      rental.ID,
		Amount:        rental.RentalFee,
		Status:        model.PaymentCompleted,
		PaymentMethod: "razorpay",
		TransactionID: req.PaymentID,
	}

	err = rentalsvc.WithFreshCode(ctx, s.db, func(tx pgx.Tx, code string) error {
		locked, err := s.rr.GetByIDForUpdate(ctx, tx, rental.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return rentalsvc.NewError(rentalsvc.ErrNotFound, "rental not found")
			}
			return err
		}
		if locked.Status != model.RentalAwaitingPayment {
			return rentalsvc.NewError(rentalsvc.ErrConcurrentModification, "rental was modified concurrently")
		}
		if err := s.pr.Insert(ctx, tx, payment); err != nil {
			return err
		}
		ok, err := s.rr.MarkAwaitingPickup(ctx, tx, rental.ID, code)
		if err != nil {
			return err
		}
		if !ok {
			return rentalsvc.NewError(rentalsvc.ErrConcurrentModification, "rental was modified concurrently")
		}
		// the book was reserved (PENDING) at acceptance and stays so
		// until pickup
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return s.pr.ListForUser(ctx, userID)
}

func (s *service) OverrideStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error {
	switch status {
	case model.PaymentPending, model.PaymentCompleted, model.PaymentFailed:
	default:
		return rentalsvc.NewError(rentalsvc.ErrInvalidStateTransition,
			fmt.Sprintf("unknown payment status %q", status))
	}
	ok, err := s.pr.UpdateStatus(ctx, paymentID, status)
	if err != nil {
		return err
	}
	if !ok {
		return rentalsvc.NewError(rentalsvc.ErrNotFound, "payment not found")
	}
	return nil
}

func (s *service) loadRental(ctx context.Context, id int64) (*model.Rental, error) {
	rental, err := s.rr.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rentalsvc.NewError(rentalsvc.ErrNotFound, "rental not found")
		}
		return nil, err
	}
	return rental, nil
}

func (s *service) signatureValid(orderID, paymentID, supplied string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(supplied))
}
