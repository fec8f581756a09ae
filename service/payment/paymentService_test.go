package paymentsvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"rentaread/model"
	razorpayrepo "rentaread/repository/razorpay"
	rentalsvc "rentaread/service/rental"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type mockPaymentRepo struct {
	insertFn       func(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	updateStatusFn func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
}

func (m *mockPaymentRepo) Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	return m.insertFn(ctx, tx, p)
}
func (m *mockPaymentRepo) ListForUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	return nil, nil
}
func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return true, nil
}

type mockRentalRepo struct {
	getByIDFn      func(ctx context.Context, id int64) (*model.Rental, error)
	getForUpdateFn func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error)
	markFn         func(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error)
}

func (m *mockRentalRepo) GetByID(ctx context.Context, id int64) (*model.Rental, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockRentalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
	return m.getForUpdateFn(ctx, tx, id)
}
func (m *mockRentalRepo) MarkAwaitingPickup(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error) {
	return m.markFn(ctx, tx, id, pickupCode)
}

type mockGateway struct {
	createFn func(ctx context.Context, req razorpayrepo.CreateOrderReq) (*razorpayrepo.Order, error)
}

func (m *mockGateway) CreateOrder(ctx context.Context, req razorpayrepo.CreateOrderReq) (*razorpayrepo.Order, error) {
	return m.createFn(ctx, req)
}

const testSecret = "rzp_test_secret"

func awaitingPaymentRental() *model.Rental {
	return &model.Rental{
		ID:         100,
		BookID:     10,
		BorrowerID: 2,
		LenderID:   1,
		Status:     model.RentalAwaitingPayment,
		RentalFee:  50,
	}
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrder_ConvertsToPaise(t *testing.T) {
	var gotReq razorpayrepo.CreateOrderReq
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
	}
	gw := &mockGateway{
		createFn: func(ctx context.Context, req razorpayrepo.CreateOrderReq) (*razorpayrepo.Order, error) {
			gotReq = req
			return &razorpayrepo.Order{OrderID: "order_1", AmountPaise: req.AmountPaise, Currency: req.Currency}, nil
		},
	}
	svc := New(fakeDB{}, &mockPaymentRepo{}, rr, gw, "key_id", testSecret)

	out, err := svc.CreateOrder(context.Background(), 100, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5000), gotReq.AmountPaise)
	require.Equal(t, "INR", gotReq.Currency)
	require.Equal(t, "order_1", out.OrderID)
	require.Equal(t, "key_id", out.KeyID)
	require.Equal(t, 50.0, out.RentalFee)
}

func TestCreateOrder_RoundsFractionalFee(t *testing.T) {
	var gotReq razorpayrepo.CreateOrderReq
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			r := awaitingPaymentRental()
			r.RentalFee = 19.99 // sits below 1999 in binary; truncation would drop a paisa
			return r, nil
		},
	}
	gw := &mockGateway{
		createFn: func(ctx context.Context, req razorpayrepo.CreateOrderReq) (*razorpayrepo.Order, error) {
			gotReq = req
			return &razorpayrepo.Order{OrderID: "order_1", AmountPaise: req.AmountPaise, Currency: req.Currency}, nil
		},
	}
	svc := New(fakeDB{}, &mockPaymentRepo{}, rr, gw, "key_id", testSecret)

	_, err := svc.CreateOrder(context.Background(), 100, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1999), gotReq.AmountPaise)
}

func TestCreateOrder_NotBorrower(t *testing.T) {
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
	}
	svc := New(fakeDB{}, &mockPaymentRepo{}, rr, &mockGateway{}, "key_id", testSecret)

	_, err := svc.CreateOrder(context.Background(), 100, 1)
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrForbidden, rentalsvc.Code(err))
}

func TestCreateOrder_WrongState(t *testing.T) {
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			r := awaitingPaymentRental()
			r.Status = model.RentalPending
			return r, nil
		},
	}
	svc := New(fakeDB{}, &mockPaymentRepo{}, rr, &mockGateway{}, "key_id", testSecret)

	_, err := svc.CreateOrder(context.Background(), 100, 2)
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrInvalidStateTransition, rentalsvc.Code(err))
}

func TestCreateOrder_GatewayDown(t *testing.T) {
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
	}
	gw := &mockGateway{
		createFn: func(ctx context.Context, req razorpayrepo.CreateOrderReq) (*razorpayrepo.Order, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := New(fakeDB{}, &mockPaymentRepo{}, rr, gw, "key_id", testSecret)

	_, err := svc.CreateOrder(context.Background(), 100, 2)
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrPaymentServiceUnavailable, rentalsvc.Code(err))
}

func TestVerify_ForgedSignatureWritesNothing(t *testing.T) {
	inserted, marked := false, false
	pr := &mockPaymentRepo{
		insertFn: func(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
			inserted = true
			return nil
		},
	}
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
		markFn: func(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error) {
			marked = true
			return true, nil
		},
	}
	svc := New(fakeDB{}, pr, rr, &mockGateway{}, "key_id", testSecret)

	_, err := svc.Verify(context.Background(), 2, VerifyReq{
		RentalID:  100,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: "deadbeef",
	})
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrInvalidPaymentSignature, rentalsvc.Code(err))
	require.False(t, inserted)
	require.False(t, marked)
}

func TestVerify_Success(t *testing.T) {
	var recorded *model.Payment
	var mintedCode string
	pr := &mockPaymentRepo{
		insertFn: func(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
			p.ID = 7
			p.CreatedAt = time.Now()
			recorded = p
			return nil
		},
	}
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
		markFn: func(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error) {
			mintedCode = pickupCode
			return true, nil
		},
	}
	svc := New(fakeDB{}, pr, rr, &mockGateway{}, "key_id", testSecret)

	p, err := svc.Verify(context.Background(), 2, VerifyReq{
		RentalID:  100,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	})
	require.NoError(t, err)
	require.NotNil(t, recorded)
	require.Equal(t, model.PaymentCompleted, p.Status)
	require.Equal(t, "pay_1", p.TransactionID)
	require.Equal(t, 50.0, p.Amount)
	require.Regexp(t, `^\d{3}-\d{3}$`, mintedCode)
}

func TestOverrideStatus(t *testing.T) {
	var gotID int64
	var gotStatus model.PaymentStatus
	pr := &mockPaymentRepo{
		updateStatusFn: func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
			gotID, gotStatus = id, status
			return true, nil
		},
	}
	svc := New(fakeDB{}, pr, &mockRentalRepo{}, &mockGateway{}, "key_id", testSecret)

	err := svc.OverrideStatus(context.Background(), 7, model.PaymentFailed)
	require.NoError(t, err)
	require.Equal(t, int64(7), gotID)
	require.Equal(t, model.PaymentFailed, gotStatus)
}

func TestOverrideStatus_UnknownStatus(t *testing.T) {
	pr := &mockPaymentRepo{
		updateStatusFn: func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
			t.Fatal("update must not run for an unknown status")
			return false, nil
		},
	}
	svc := New(fakeDB{}, pr, &mockRentalRepo{}, &mockGateway{}, "key_id", testSecret)

	err := svc.OverrideStatus(context.Background(), 7, model.PaymentStatus("SETTLED"))
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrInvalidStateTransition, rentalsvc.Code(err))
}

func TestOverrideStatus_NotFound(t *testing.T) {
	pr := &mockPaymentRepo{
		updateStatusFn: func(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
			return false, nil
		},
	}
	svc := New(fakeDB{}, pr, &mockRentalRepo{}, &mockGateway{}, "key_id", testSecret)

	err := svc.OverrideStatus(context.Background(), 404, model.PaymentCompleted)
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrNotFound, rentalsvc.Code(err))
}

func TestVerify_ConcurrentStatusChange(t *testing.T) {
	rr := &mockRentalRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Rental, error) {
			return awaitingPaymentRental(), nil
		},
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			r := awaitingPaymentRental()
			r.Status = model.RentalAwaitingPickup
			return r, nil
		},
	}
	pr := &mockPaymentRepo{
		insertFn: func(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
			t.Fatal("payment must not be recorded after a lost race")
			return nil
		},
	}
	svc := New(fakeDB{}, pr, rr, &mockGateway{}, "key_id", testSecret)

	_, err := svc.Verify(context.Background(), 2, VerifyReq{
		RentalID:  100,
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: sign("order_1", "pay_1"),
	})
	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrConcurrentModification, rentalsvc.Code(err))
}
