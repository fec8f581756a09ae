// Package reviewsvc accepts post-rental reviews and keeps the running
// average rating on the target up to date. The average is recomputed
// over all reviews for the target on every insert, not incrementally.
package reviewsvc

import (
	"context"
	"errors"

	"rentaread/model"
	reviewrepo "rentaread/repository/review"

	"github.com/jackc/pgx/v5"
)

type ErrCode string

const (
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrDuplicateReview ErrCode = "DUPLICATE_REVIEW"
	ErrNotEligible     ErrCode = "NOT_ELIGIBLE"
	ErrBadRating       ErrCode = "BAD_RATING"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode, msg string) error {
	return codedError{code: c, msg: msg}
}

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Repo interface {
	InsertBookReview(ctx context.Context, rv *model.BookReview) error
	InsertUserReview(ctx context.Context, rv *model.UserReview) error
	BookReviewExists(ctx context.Context, reviewerID, rentalID, bookID int64) (bool, error)
	UserReviewExists(ctx context.Context, reviewerID, rentalID, reviewedUserID int64) (bool, error)
	ListBookReviews(ctx context.Context, bookID int64) ([]model.BookReview, error)
	ListUserReviews(ctx context.Context, userID int64) ([]model.UserReview, error)
	ListBookRatings(ctx context.Context, bookID int64) ([]int, error)
	ListUserRatings(ctx context.Context, userID int64) ([]int, error)
}

type RentalRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Rental, error)
	SetReviewFlag(ctx context.Context, flag string, rentalID int64) error
}

type BookRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	UpdateAverageRating(ctx context.Context, id int64, avg float64) error
}

type UserRepo interface {
	UpdateAverageRating(ctx context.Context, id int64, avg float64) error
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64)
}

type Service interface {
	CreateBookReview(ctx context.Context, reviewerID int64, rentalID, bookID int64, rating int, comment string) (*model.BookReview, error)
	CreateUserReview(ctx context.Context, reviewerID int64, rentalID, reviewedUserID int64, rating int, comment string) (*model.UserReview, error)
	BookReviews(ctx context.Context, bookID int64) ([]model.BookReview, error)
	UserReviews(ctx context.Context, userID int64) ([]model.UserReview, error)
}

type service struct {
	r  Repo
	rr RentalRepo
	b  BookRepo
	u  UserRepo
	n  Notifier
}

func New(r Repo, rr RentalRepo, b BookRepo, u UserRepo, n Notifier) Service {
	return &service{r: r, rr: rr, b: b, u: u, n: n}
}

func (s *service) CreateBookReview(ctx context.Context, reviewerID, rentalID, bookID int64, rating int, comment string) (*model.BookReview, error) {
	if rating < 1 || rating > 5 {
		return nil, makeErr(ErrBadRating, "rating must be between 1 and 5")
	}
	rental, err := s.loadRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.BorrowerID != reviewerID {
		return nil, makeErr(ErrForbidden, "only the borrower may review the book")
	}
	if rental.BookID != bookID {
		return nil, makeErr(ErrNotFound, "book does not belong to this rental")
	}
	if rental.Status != model.RentalCompleted {
		return nil, makeErr(ErrNotEligible, "rental must be completed before reviewing")
	}

	exists, err := s.r.BookReviewExists(ctx, reviewerID, rentalID, bookID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, makeErr(ErrDuplicateReview, "already reviewed this book for this rental")
	}

	rv := &model.BookReview{
		ReviewerID: reviewerID,
		BookID:     bookID,
		RentalID:   rentalID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.r.InsertBookReview(ctx, rv); err != nil {
		if errors.Is(err, reviewrepo.ErrDuplicate) {
			return nil, makeErr(ErrDuplicateReview, "already reviewed this book for this rental")
		}
		return nil, err
	}

	ratings, err := s.r.ListBookRatings(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := s.b.UpdateAverageRating(ctx, bookID, mean(ratings)); err != nil {
		return nil, err
	}
	if err := s.rr.SetReviewFlag(ctx, "borrower_reviewed_book", rentalID); err != nil {
		return nil, err
	}

	if book, berr := s.b.GetByID(ctx, bookID); berr == nil {
		s.n.Notify(ctx, book.OwnerID, model.NotifyReviewReceived,
			"Your book \""+book.Title+"\" received a new review", rv.ID)
	}
	return rv, nil
}

func (s *service) CreateUserReview(ctx context.Context, reviewerID, rentalID, reviewedUserID int64, rating int, comment string) (*model.UserReview, error) {
	if rating < 1 || rating > 5 {
		return nil, makeErr(ErrBadRating, "rating must be between 1 and 5")
	}
	rental, err := s.loadRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.BorrowerID != reviewerID && rental.LenderID != reviewerID {
		return nil, makeErr(ErrForbidden, "not a party to this rental")
	}
	if rental.Status != model.RentalCompleted {
		return nil, makeErr(ErrNotEligible, "rental must be completed before reviewing")
	}

	exists, err := s.r.UserReviewExists(ctx, reviewerID, rentalID, reviewedUserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, makeErr(ErrDuplicateReview, "already reviewed this user for this rental")
	}

	rv := &model.UserReview{
		ReviewerID:     reviewerID,
		ReviewedUserID: reviewedUserID,
		RentalID:       rentalID,
		Rating:         rating,
		Comment:        comment,
	}
	if err := s.r.InsertUserReview(ctx, rv); err != nil {
		if errors.Is(err, reviewrepo.ErrDuplicate) {
			return nil, makeErr(ErrDuplicateReview, "already reviewed this user for this rental")
		}
		return nil, err
	}

	ratings, err := s.r.ListUserRatings(ctx, reviewedUserID)
	if err != nil {
		return nil, err
	}
	if err := s.u.UpdateAverageRating(ctx, reviewedUserID, mean(ratings)); err != nil {
		return nil, err
	}

	flag := "owner_reviewed_borrower"
	if reviewerID == rental.BorrowerID {
		flag = "borrower_reviewed_owner"
	}
	if err := s.rr.SetReviewFlag(ctx, flag, rentalID); err != nil {
		return nil, err
	}

	s.n.Notify(ctx, reviewedUserID, model.NotifyReviewReceived, "You received a new review", rv.ID)
	return rv, nil
}

func (s *service) BookReviews(ctx context.Context, bookID int64) ([]model.BookReview, error) {
	return s.r.ListBookReviews(ctx, bookID)
}

func (s *service) UserReviews(ctx context.Context, userID int64) ([]model.UserReview, error) {
	return s.r.ListUserReviews(ctx, userID)
}

func (s *service) loadRental(ctx context.Context, id int64) (*model.Rental, error) {
	rental, err := s.rr.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "rental not found")
		}
		return nil, err
	}
	return rental, nil
}

func mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}
