package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentaread/model"
	rrepo "rentaread/repository/rental"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// fakeTx satisfies pgx.Tx for the methods the service touches.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type mockRepo struct {
	insertFn          func(ctx context.Context, r *model.Rental) error
	getByIDFn         func(ctx context.Context, id int64) (*model.Rental, error)
	getForUpdateFn    func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error)
	byPickupCodeFn    func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	byReturnCodeFn    func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	listForUserFn     func(ctx context.Context, userID int64, role string) ([]model.Rental, error)
	listExtensionsFn  func(ctx context.Context, rentalID int64) ([]model.RentalExtension, error)
	awaitingPaymentFn func(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	rejectedFn        func(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	withdrawnFn       func(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	lentOutFn         func(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	returningFn       func(ctx context.Context, tx pgx.Tx, id int64, code string) (bool, error)
	completedFn       func(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	extendFn          func(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error)
	dueSoonFn         func(ctx context.Context, from, to time.Time) ([]DueSoonRow, error)
}

var _ Repo = (*mockRepo)(nil)

func (m *mockRepo) Insert(ctx context.Context, r *model.Rental) error { return m.insertFn(ctx, r) }
func (m *mockRepo) GetByID(ctx context.Context, id int64) (*model.Rental, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
	return m.getForUpdateFn(ctx, tx, id)
}
func (m *mockRepo) FindByPickupCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
	return m.byPickupCodeFn(ctx, tx, code)
}
func (m *mockRepo) FindByReturnCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
	return m.byReturnCodeFn(ctx, tx, code)
}
func (m *mockRepo) ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error) {
	return m.listForUserFn(ctx, userID, role)
}
func (m *mockRepo) ListExtensions(ctx context.Context, rentalID int64) ([]model.RentalExtension, error) {
	if m.listExtensionsFn == nil {
		return nil, nil
	}
	return m.listExtensionsFn(ctx, rentalID)
}
func (m *mockRepo) MarkAwaitingPayment(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	return m.awaitingPaymentFn(ctx, tx, id)
}
func (m *mockRepo) MarkRejected(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	return m.rejectedFn(ctx, tx, id)
}
func (m *mockRepo) MarkWithdrawn(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	return m.withdrawnFn(ctx, tx, id)
}
func (m *mockRepo) MarkLentOut(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) {
	return m.lentOutFn(ctx, tx, id, at)
}
func (m *mockRepo) MarkReturning(ctx context.Context, tx pgx.Tx, id int64, code string) (bool, error) {
	return m.returningFn(ctx, tx, id, code)
}
func (m *mockRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) {
	return m.completedFn(ctx, tx, id, at)
}
func (m *mockRepo) ExtendDueDate(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error) {
	return m.extendFn(ctx, tx, id, duration, days)
}
func (m *mockRepo) ListDueSoon(ctx context.Context, from, to time.Time) ([]DueSoonRow, error) {
	return m.dueSoonFn(ctx, from, to)
}

type mockBookRepo struct {
	getByIDFn func(ctx context.Context, id int64) (*model.Book, error)
	casFn     func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error)
}

var _ BookRepo = (*mockBookRepo)(nil)

func (m *mockBookRepo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockBookRepo) UpdateStatusCAS(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
	return m.casFn(ctx, tx, id, from, to)
}

type mockUserRepo struct{}

func (mockUserRepo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return &model.User{ID: id, Email: "party@example.com"}, nil
}

type mockNotifier struct {
	notified []model.NotificationType
	emails   []string
}

func (m *mockNotifier) Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64) {
	m.notified = append(m.notified, typ)
}
func (m *mockNotifier) SendRentalEmail(to, event, bookTitle, bookAuthor string) {
	m.emails = append(m.emails, event)
}

func availableBook() *model.Book {
	return &model.Book{
		ID:        10,
		Title:     "Snow Crash",
		Author:    "Neal Stephenson",
		OwnerID:   1,
		Status:    model.BookAvailable,
		RentalFee: 50,
	}
}

func pendingRental() *model.Rental {
	return &model.Rental{
		ID:         100,
		BookID:     10,
		BorrowerID: 2,
		LenderID:   1,
		Status:     model.RentalPending,
		RentalFee:  50,
	}
}

// --- Request ---

func TestRequest_DefaultDuration(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var inserted *model.Rental
	r := &mockRepo{
		insertFn: func(ctx context.Context, r *model.Rental) error {
			r.ID = 100
			inserted = r
			return nil
		},
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
	}
	n := &mockNotifier{}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, n)

	out, err := svc.Request(ctx, 2, CreateReq{BookID: 10, StartDate: start, Duration: "no idea"})
	require.NoError(t, err)
	require.NotNil(t, inserted)
	require.Equal(t, model.RentalPending, out.Status)
	require.Equal(t, int64(1), out.LenderID)
	require.Equal(t, 50.0, out.RentalFee)
	require.Equal(t, start.AddDate(0, 0, 14), out.DueDate)
	require.Contains(t, n.notified, model.NotifyRentalRequest)
	require.Contains(t, n.emails, "request")
}

func TestRequest_ExplicitDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &mockRepo{insertFn: func(ctx context.Context, r *model.Rental) error { return nil }}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	out, err := svc.Request(context.Background(), 2, CreateReq{BookID: 10, StartDate: start, Duration: "3 Weeks"})
	require.NoError(t, err)
	require.Equal(t, start.AddDate(0, 0, 21), out.DueDate)
}

func TestRequest_SelfRental(t *testing.T) {
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
	}
	svc := New(fakeDB{}, &mockRepo{}, b, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Request(context.Background(), 1, CreateReq{BookID: 10})
	require.Error(t, err)
	require.Equal(t, ErrSelfRentalForbidden, Code(err))
}

func TestRequest_BookUnavailable(t *testing.T) {
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) {
			bk := availableBook()
			bk.Status = model.BookRented
			return bk, nil
		},
	}
	svc := New(fakeDB{}, &mockRepo{}, b, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Request(context.Background(), 2, CreateReq{BookID: 10})
	require.Error(t, err)
	require.Equal(t, ErrBookUnavailable, Code(err))
}

func TestRequest_BookNotFound(t *testing.T) {
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, pgx.ErrNoRows },
	}
	svc := New(fakeDB{}, &mockRepo{}, b, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Request(context.Background(), 2, CreateReq{BookID: 10})
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

// --- Respond ---

func TestRespond_Accept(t *testing.T) {
	var casFrom, casTo model.BookStatus
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
		awaitingPaymentFn: func(ctx context.Context, tx pgx.Tx, id int64) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
		casFn: func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
			casFrom, casTo = from, to
			return true, nil
		},
	}
	n := &mockNotifier{}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, n)

	out, err := svc.Respond(context.Background(), 100, 1, true)
	require.NoError(t, err)
	require.Equal(t, model.RentalAwaitingPayment, out.Status)
	require.Equal(t, model.BookAvailable, casFrom)
	require.Equal(t, model.BookPending, casTo)
	require.Contains(t, n.emails, "accepted")
}

func TestRespond_RejectLeavesBookAlone(t *testing.T) {
	casCalled := false
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
		rejectedFn: func(ctx context.Context, tx pgx.Tx, id int64) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
		casFn: func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
			casCalled = true
			return true, nil
		},
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	out, err := svc.Respond(context.Background(), 100, 1, false)
	require.NoError(t, err)
	require.Equal(t, model.RentalRejected, out.Status)
	require.False(t, casCalled)
}

func TestRespond_NotLender(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Respond(context.Background(), 100, 99, true)
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

func TestRespond_WrongState(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalCompleted
			return rental, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Respond(context.Background(), 100, 1, true)
	require.Error(t, err)
	require.Equal(t, ErrInvalidStateTransition, Code(err))

	var se *StateError
	require.ErrorAs(t, err, &se)
	require.Equal(t, model.RentalPending, se.Required)
	require.Equal(t, model.RentalCompleted, se.Actual)
}

func TestRespond_BookReservedConcurrently(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
		awaitingPaymentFn: func(ctx context.Context, tx pgx.Tx, id int64) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		casFn: func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
			return false, nil
		},
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Respond(context.Background(), 100, 1, true)
	require.Error(t, err)
	require.Equal(t, ErrConcurrentModification, Code(err))
}

// --- Withdraw ---

func TestWithdraw_Success(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
		withdrawnFn: func(ctx context.Context, tx pgx.Tx, id int64) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	out, err := svc.Withdraw(context.Background(), 100, 2)
	require.NoError(t, err)
	require.Equal(t, model.RentalWithdrawn, out.Status)
}

func TestWithdraw_NotBorrower(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Withdraw(context.Background(), 100, 1)
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

func TestWithdraw_AfterAcceptRejected(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalAwaitingPayment
			return rental, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Withdraw(context.Background(), 100, 2)
	require.Error(t, err)
	require.Equal(t, ErrInvalidStateTransition, Code(err))
}

// --- ConfirmPickup ---

func TestConfirmPickup_ByCodeCanonicalized(t *testing.T) {
	var lookedUp string
	r := &mockRepo{
		byPickupCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			lookedUp = code
			rental := pendingRental()
			rental.Status = model.RentalAwaitingPickup
			return rental, nil
		},
		lentOutFn: func(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
		casFn: func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
			require.Equal(t, model.BookPending, from)
			require.Equal(t, model.BookRented, to)
			return true, nil
		},
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	out, err := svc.ConfirmPickup(context.Background(), 1, ConfirmReq{Code: " 123 456 "})
	require.NoError(t, err)
	require.Equal(t, "123-456", lookedUp)
	require.Equal(t, model.RentalLentOut, out.Status)
	require.Nil(t, out.PickupCode)
	require.NotNil(t, out.LentOutDate)
}

func TestConfirmPickup_ConsumedCode(t *testing.T) {
	r := &mockRepo{
		byPickupCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			return nil, pgx.ErrNoRows
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.ConfirmPickup(context.Background(), 1, ConfirmReq{Code: "123-456"})
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestConfirmPickup_MalformedCode(t *testing.T) {
	r := &mockRepo{
		byPickupCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			t.Fatal("lookup must not run for a malformed code")
			return nil, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.ConfirmPickup(context.Background(), 1, ConfirmReq{Code: "abc-def"})
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestConfirmPickup_CodeForOtherRental(t *testing.T) {
	r := &mockRepo{
		byPickupCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			rental := pendingRental() // ID 100
			rental.Status = model.RentalAwaitingPickup
			return rental, nil
		},
		lentOutFn: func(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) {
			t.Fatal("transition must not run when the code belongs to another rental")
			return false, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.ConfirmPickup(context.Background(), 1, ConfirmReq{RentalID: 200, Code: "123-456"})
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestConfirmPickup_NotLender(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalAwaitingPickup
			return rental, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.ConfirmPickup(context.Background(), 2, ConfirmReq{RentalID: 100})
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

// --- InitiateReturn ---

func TestInitiateReturn_RetriesOnCodeCollision(t *testing.T) {
	var codes []string
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalLentOut
			return rental, nil
		},
		returningFn: func(ctx context.Context, tx pgx.Tx, id int64, code string) (bool, error) {
			codes = append(codes, code)
			if len(codes) == 1 {
				return false, rrepo.ErrCodeTaken
			}
			return true, nil
		},
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
	}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, &mockNotifier{})

	out, err := svc.InitiateReturn(context.Background(), 100, 2)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	require.Equal(t, model.RentalReturning, out.Status)
	require.True(t, out.ReturnInitiated)
	require.NotNil(t, out.ReturnCode)
	require.Regexp(t, `^\d{3}-\d{3}$`, *out.ReturnCode)
}

func TestInitiateReturn_CodeSpaceExhausted(t *testing.T) {
	attempts := 0
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalLentOut
			return rental, nil
		},
		returningFn: func(ctx context.Context, tx pgx.Tx, id int64, code string) (bool, error) {
			attempts++
			return false, rrepo.ErrCodeTaken
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.InitiateReturn(context.Background(), 100, 2)
	require.Error(t, err)
	require.Equal(t, ErrCodeGenerationExhausted, Code(err))
	require.Equal(t, 5, attempts)
}

func TestInitiateReturn_NotLentOut(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			return pendingRental(), nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.InitiateReturn(context.Background(), 100, 2)
	require.Error(t, err)
	require.Equal(t, ErrInvalidStateTransition, Code(err))
}

// --- ConfirmReturn ---

func TestConfirmReturn_Success(t *testing.T) {
	r := &mockRepo{
		byReturnCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalReturning
			return rental, nil
		},
		completedFn: func(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) { return true, nil },
	}
	b := &mockBookRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.Book, error) { return availableBook(), nil },
		casFn: func(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
			require.Equal(t, model.BookRented, from)
			require.Equal(t, model.BookAvailable, to)
			return true, nil
		},
	}
	n := &mockNotifier{}
	svc := New(fakeDB{}, r, b, mockUserRepo{}, n)

	out, err := svc.ConfirmReturn(context.Background(), 2, ConfirmReq{Code: "654-321"})
	require.NoError(t, err)
	require.Equal(t, model.RentalCompleted, out.Status)
	require.Nil(t, out.ReturnCode)
	require.NotNil(t, out.ReturnDate)
	require.Contains(t, n.notified, model.NotifyReturnConfirmed)
}

func TestConfirmReturn_NotBorrower(t *testing.T) {
	r := &mockRepo{
		byReturnCodeFn: func(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalReturning
			return rental, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.ConfirmReturn(context.Background(), 1, ConfirmReq{Code: "654-321"})
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

// --- Extend ---

func TestExtend_AddsWholeWeeks(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	var gotDays int
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalLentOut
			rental.DueDate = due
			return rental, nil
		},
		extendFn: func(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error) {
			gotDays = days
			return true, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	out, err := svc.Extend(context.Background(), 100, 1, "3 Weeks")
	require.NoError(t, err)
	require.Equal(t, 21, gotDays)
	require.Equal(t, due.AddDate(0, 0, 21), out.DueDate)
}

func TestExtend_RejectsFreeFormDuration(t *testing.T) {
	txTouched := false
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			txTouched = true
			return nil, pgx.ErrNoRows
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Extend(context.Background(), 100, 1, "21 days")
	require.Error(t, err)
	require.Equal(t, ErrInvalidDurationFormat, Code(err))
	require.False(t, txTouched)
}

func TestExtend_NotLender(t *testing.T) {
	r := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
			rental := pendingRental()
			rental.Status = model.RentalLentOut
			return rental, nil
		},
	}
	svc := New(fakeDB{}, r, &mockBookRepo{}, mockUserRepo{}, &mockNotifier{})

	_, err := svc.Extend(context.Background(), 100, 2, "1 Week")
	require.Error(t, err)
	require.Equal(t, ErrForbidden, Code(err))
}

// --- errors ---

func TestCodeExtractor(t *testing.T) {
	require.Equal(t, ErrNotFound, Code(makeErr(ErrNotFound, "x")))
	require.Equal(t, ErrCode(""), Code(errors.New("plain")))
}
