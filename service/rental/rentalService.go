// Package rental owns the rental lifecycle state machine:
//
//	PENDING -> AWAITING_PAYMENT -> AWAITING_PICKUP -> LENT_OUT -> RETURNING -> COMPLETED
//	PENDING -> REJECTED | WITHDRAWN
//
// Every mutating operation validates before writing (entity, then
// authorization, then source state) and performs the status write as
// a compare-and-swap inside one transaction, so a losing racer gets
// CONCURRENT_MODIFICATION instead of clobbering the winner. Book
// status is derived state owned by this package; nothing else may
// write it.
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentaread/model"
	rrepo "rentaread/repository/rental"
	"rentaread/util/code"

	"github.com/jackc/pgx/v5"
)

// DueSoonRow = repository shape
type DueSoonRow = rrepo.DueSoonRow

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repo interface {
	Insert(ctx context.Context, r *model.Rental) error
	GetByID(ctx context.Context, id int64) (*model.Rental, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error)
	FindByPickupCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	FindByReturnCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error)
	ListExtensions(ctx context.Context, rentalID int64) ([]model.RentalExtension, error)

	MarkAwaitingPayment(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkRejected(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkWithdrawn(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkLentOut(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	MarkReturning(ctx context.Context, tx pgx.Tx, id int64, returnCode string) (bool, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	ExtendDueDate(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error)

	ListDueSoon(ctx context.Context, from, to time.Time) ([]DueSoonRow, error)
}

type BookRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	UpdateStatusCAS(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error)
}

type UserRepo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

// Notifier is best effort: implementations log failures and never
// return them, so lifecycle transitions cannot be blocked by a
// notification or email problem.
type Notifier interface {
	Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64)
	SendRentalEmail(to, event, bookTitle, bookAuthor string)
}

// dto

type CreateReq struct {
	BookID    int64
	StartDate time.Time
	Duration  string
	Message   *string
}

type ConfirmReq struct {
	RentalID int64  // QR path; with a code it pins which rental the code must match
	Code     string // manual path
}

type Service interface {
	Request(ctx context.Context, borrowerID int64, req CreateReq) (*model.Rental, error)
	Respond(ctx context.Context, rentalID, lenderID int64, accept bool) (*model.Rental, error)
	Withdraw(ctx context.Context, rentalID, borrowerID int64) (*model.Rental, error)
	ConfirmPickup(ctx context.Context, lenderID int64, req ConfirmReq) (*model.Rental, error)
	InitiateReturn(ctx context.Context, rentalID, borrowerID int64) (*model.Rental, error)
	ConfirmReturn(ctx context.Context, borrowerID int64, req ConfirmReq) (*model.Rental, error)
	Extend(ctx context.Context, rentalID, lenderID int64, duration string) (*model.Rental, error)

	Get(ctx context.Context, id int64) (*model.Rental, error)
	ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error)
}

// ----- Service implementation -----

type service struct {
	db TxBeginner
	r  Repo
	b  BookRepo
	u  UserRepo
	n  Notifier
}

func New(db TxBeginner, r Repo, b BookRepo, u UserRepo, n Notifier) Service {
	return &service{db: db, r: r, b: b, u: u, n: n}
}

// Request creates a PENDING rental. The book stays AVAILABLE during
// the pending window; it is reserved only on acceptance, so several
// borrowers may have open requests for one book.
func (s *service) Request(ctx context.Context, borrowerID int64, req CreateReq) (*model.Rental, error) {
	book, err := s.b.GetByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "book not found")
		}
		return nil, err
	}
	if book.OwnerID == borrowerID {
		return nil, makeErr(ErrSelfRentalForbidden, "cannot rent your own book")
	}
	if book.Status != model.BookAvailable {
		return nil, makeErr(ErrBookUnavailable, "book is not available")
	}

	weeks := parseRequestDuration(req.Duration)
	rental := &model.Rental{
		BookID:     book.ID,
		BorrowerID: borrowerID,
		LenderID:   book.OwnerID,
		Status:     model.RentalPending,
		StartDate:  req.StartDate,
		DueDate:    req.StartDate.AddDate(0, 0, weeks*7),
		Duration:   req.Duration,
		RentalFee:  book.RentalFee,
		Message:    req.Message,
	}
	if err := s.r.Insert(ctx, rental); err != nil {
		return nil, err
	}

	s.n.Notify(ctx, rental.LenderID, model.NotifyRentalRequest,
		fmt.Sprintf("New rental request for %q", book.Title), rental.ID)
	s.emailParty(ctx, rental.LenderID, "request", book.Title, book.Author)

	return rental, nil
}

func (s *service) Respond(ctx context.Context, rentalID, lenderID int64, accept bool) (*model.Rental, error) {
	var rental *model.Rental
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rental, err = s.lockRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if rental.LenderID != lenderID {
			return makeErr(ErrForbidden, "only the lender may respond to this request")
		}
		if rental.Status != model.RentalPending {
			return &StateError{Attempted: "respond", Required: model.RentalPending, Actual: rental.Status}
		}

		if accept {
			ok, err := s.r.MarkAwaitingPayment(ctx, tx, rental.ID)
			if err != nil {
				return err
			}
			if !ok {
				return makeErr(ErrConcurrentModification, "rental was modified concurrently")
			}
			// reserve the book; a concurrent accept on a sibling
			// request loses here
			ok, err = s.b.UpdateStatusCAS(ctx, tx, rental.BookID, model.BookAvailable, model.BookPending)
			if err != nil {
				return err
			}
			if !ok {
				return makeErr(ErrConcurrentModification, "book was reserved concurrently")
			}
			rental.Status = model.RentalAwaitingPayment
		} else {
			ok, err := s.r.MarkRejected(ctx, tx, rental.ID)
			if err != nil {
				return err
			}
			if !ok {
				return makeErr(ErrConcurrentModification, "rental was modified concurrently")
			}
			// a pending request never reserved the book, nothing to free
			rental.Status = model.RentalRejected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event, action := "rejected", "rejected"
	if accept {
		event, action = "accepted", "accepted"
	}
	s.notifyWithBook(ctx, rental.BorrowerID, model.NotifyRentalRequest,
		"Rental request has been "+action, rental, event)

	return rental, nil
}

func (s *service) Withdraw(ctx context.Context, rentalID, borrowerID int64) (*model.Rental, error) {
	var rental *model.Rental
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rental, err = s.lockRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if rental.BorrowerID != borrowerID {
			return makeErr(ErrForbidden, "only the borrower may withdraw this request")
		}
		if rental.Status != model.RentalPending {
			return &StateError{Attempted: "withdraw", Required: model.RentalPending, Actual: rental.Status}
		}
		ok, err := s.r.MarkWithdrawn(ctx, tx, rental.ID)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "rental was modified concurrently")
		}
		rental.Status = model.RentalWithdrawn
		return nil
	})
	if err != nil {
		return nil, err
	}

	if book, berr := s.b.GetByID(ctx, rental.BookID); berr == nil {
		s.emailParty(ctx, rental.LenderID, "withdrawn", book.Title, book.Author)
	}
	return rental, nil
}

func (s *service) ConfirmPickup(ctx context.Context, lenderID int64, req ConfirmReq) (*model.Rental, error) {
	var rental *model.Rental
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rental, err = s.lookupForConfirm(ctx, tx, req, s.r.FindByPickupCodeForUpdate)
		if err != nil {
			return err
		}
		if rental.LenderID != lenderID {
			return makeErr(ErrForbidden, "only the lender may confirm pickup")
		}
		if rental.Status != model.RentalAwaitingPickup {
			return &StateError{Attempted: "confirm pickup", Required: model.RentalAwaitingPickup, Actual: rental.Status}
		}

		now := time.Now().UTC()
		ok, err := s.r.MarkLentOut(ctx, tx, rental.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "rental was modified concurrently")
		}
		ok, err = s.b.UpdateStatusCAS(ctx, tx, rental.BookID, model.BookPending, model.BookRented)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "book was modified concurrently")
		}
		rental.Status = model.RentalLentOut
		rental.LentOutDate = &now
		rental.PickupCode = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyWithBook(ctx, rental.BorrowerID, model.NotifyPickupConfirmed,
		"Book has been picked up", rental, "")
	return rental, nil
}

func (s *service) InitiateReturn(ctx context.Context, rentalID, borrowerID int64) (*model.Rental, error) {
	rental, err := s.transitionWithCode(ctx, func(tx pgx.Tx, c string) (*model.Rental, error) {
		rental, err := s.lockRental(ctx, tx, rentalID)
		if err != nil {
			return nil, err
		}
		if rental.BorrowerID != borrowerID {
			return nil, makeErr(ErrForbidden, "only the borrower may initiate return")
		}
		if rental.Status != model.RentalLentOut {
			return nil, &StateError{Attempted: "initiate return", Required: model.RentalLentOut, Actual: rental.Status}
		}
		ok, err := s.r.MarkReturning(ctx, tx, rental.ID, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, makeErr(ErrConcurrentModification, "rental was modified concurrently")
		}
		rental.Status = model.RentalReturning
		rental.ReturnInitiated = true
		rental.ReturnCode = &c
		return rental, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyWithBook(ctx, rental.LenderID, model.NotifyReturnInitiated,
		"Return initiated", rental, "")
	return rental, nil
}

func (s *service) ConfirmReturn(ctx context.Context, borrowerID int64, req ConfirmReq) (*model.Rental, error) {
	var rental *model.Rental
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rental, err = s.lookupForConfirm(ctx, tx, req, s.r.FindByReturnCodeForUpdate)
		if err != nil {
			return err
		}
		if rental.BorrowerID != borrowerID {
			return makeErr(ErrForbidden, "only the borrower may confirm return")
		}
		if rental.Status != model.RentalReturning {
			return &StateError{Attempted: "confirm return", Required: model.RentalReturning, Actual: rental.Status}
		}

		now := time.Now().UTC()
		ok, err := s.r.MarkCompleted(ctx, tx, rental.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "rental was modified concurrently")
		}
		ok, err = s.b.UpdateStatusCAS(ctx, tx, rental.BookID, model.BookRented, model.BookAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "book was modified concurrently")
		}
		rental.Status = model.RentalCompleted
		rental.ReturnDate = &now
		rental.ReturnCode = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyWithBook(ctx, rental.LenderID, model.NotifyReturnConfirmed,
		"Return has been confirmed", rental, "")
	return rental, nil
}

func (s *service) Extend(ctx context.Context, rentalID, lenderID int64, duration string) (*model.Rental, error) {
	weeks, err := parseExtensionDuration(duration)
	if err != nil {
		return nil, err
	}

	var rental *model.Rental
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rental, err = s.lockRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if rental.LenderID != lenderID {
			return makeErr(ErrForbidden, "only the lender may extend the rental period")
		}
		if rental.Status != model.RentalLentOut {
			return &StateError{Attempted: "extend", Required: model.RentalLentOut, Actual: rental.Status}
		}
		ok, err := s.r.ExtendDueDate(ctx, tx, rental.ID, duration, weeks*7)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrConcurrentModification, "rental was modified concurrently")
		}
		rental.DueDate = rental.DueDate.AddDate(0, 0, weeks*7)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rental, nil
}

func (s *service) Get(ctx context.Context, id int64) (*model.Rental, error) {
	rental, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "rental not found")
		}
		return nil, err
	}
	exts, err := s.r.ListExtensions(ctx, id)
	if err != nil {
		return nil, err
	}
	rental.Extensions = exts
	return rental, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error) {
	return s.r.ListForUser(ctx, userID, role)
}

// ----- helpers -----

func (s *service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *service) lockRental(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
	rental, err := s.r.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "rental not found")
		}
		return nil, err
	}
	return rental, nil
}

// lookupForConfirm resolves a rental either by exact active code
// (manual path) or by id (QR path). A consumed code no longer matches
// anything, so replay surfaces as NOT_FOUND. When the caller names a
// rental id as well, the code must belong to that rental.
func (s *service) lookupForConfirm(
	ctx context.Context,
	tx pgx.Tx,
	req ConfirmReq,
	byCode func(context.Context, pgx.Tx, string) (*model.Rental, error),
) (*model.Rental, error) {
	if req.Code != "" {
		canonical, err := code.Canonicalize(req.Code)
		if err != nil {
			return nil, makeErr(ErrNotFound, "rental not found or invalid code")
		}
		rental, err := byCode(ctx, tx, canonical)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, makeErr(ErrNotFound, "rental not found or invalid code")
			}
			return nil, err
		}
		if req.RentalID > 0 && rental.ID != req.RentalID {
			return nil, makeErr(ErrNotFound, "code does not belong to this rental")
		}
		return rental, nil
	}
	return s.lockRental(ctx, tx, req.RentalID)
}

// transitionWithCode retries the whole transaction with a fresh code
// when the storage-level uniqueness constraint rejects the draw. The
// violation aborts the transaction, so each attempt gets its own.
func (s *service) transitionWithCode(ctx context.Context, fn func(tx pgx.Tx, c string) (*model.Rental, error)) (*model.Rental, error) {
	for attempt := 0; attempt < code.MaxAttempts; attempt++ {
		c, err := code.Generate()
		if err != nil {
			return nil, err
		}

		var rental *model.Rental
		err = s.inTx(ctx, func(tx pgx.Tx) error {
			var err error
			rental, err = fn(tx, c)
			return err
		})
		if err != nil {
			if errors.Is(err, rrepo.ErrCodeTaken) {
				continue
			}
			return nil, err
		}
		return rental, nil
	}
	return nil, makeErr(ErrCodeGenerationExhausted, "could not mint a unique confirmation code")
}

// WithFreshCode runs fn in its own transaction with a freshly drawn
// confirmation code, retrying on a code collision. Exposed for the
// payment service, which mints the pickup code as part of its own
// verification transaction.
func WithFreshCode(
	ctx context.Context,
	db TxBeginner,
	fn func(tx pgx.Tx, c string) error,
) error {
	for attempt := 0; attempt < code.MaxAttempts; attempt++ {
		c, err := code.Generate()
		if err != nil {
			return err
		}
		tx, err := db.Begin(ctx)
		if err != nil {
			return err
		}
		err = fn(tx, c)
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			if errors.Is(err, rrepo.ErrCodeTaken) {
				continue
			}
			return err
		}
		return nil
	}
	return makeErr(ErrCodeGenerationExhausted, "could not mint a unique confirmation code")
}

func (s *service) emailParty(ctx context.Context, userID int64, event, bookTitle, bookAuthor string) {
	u, err := s.u.ByID(ctx, userID)
	if err != nil || u.Email == "" {
		// orphaned references are tolerated; email is best effort
		return
	}
	s.n.SendRentalEmail(u.Email, event, bookTitle, bookAuthor)
}

func (s *service) notifyWithBook(ctx context.Context, userID int64, typ model.NotificationType, msg string, rental *model.Rental, emailEvent string) {
	if book, err := s.b.GetByID(ctx, rental.BookID); err == nil {
		msg = fmt.Sprintf("%s: %q", msg, book.Title)
		if emailEvent != "" {
			s.emailParty(ctx, userID, emailEvent, book.Title, book.Author)
		}
	}
	s.n.Notify(ctx, userID, typ, msg, rental.ID)
}
