package booksvc

import (
	"context"
	"errors"

	"rentaread/model"
	bookrepo "rentaread/repository/book"
	geocoderepo "rentaread/repository/geocode"

	"github.com/jackc/pgx/v5"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrBadInput        ErrCode = "BAD_INPUT"
	ErrGeocodingFailed ErrCode = "GEOCODING_FAILED"
	ErrBookHeld        ErrCode = "BOOK_HELD"
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
func (e codedError) Code() ErrCode        { return e.code }
func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Filter = repository shape
type Filter = bookrepo.Filter

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f Filter) ([]model.Book, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error)
	ListPopular(ctx context.Context, limit int) ([]model.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type RentalRepo interface {
	HasReservedRental(ctx context.Context, bookID int64) (bool, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (lon, lat float64, err error)
}

type CreateReq struct {
	Title       string
	Author      string
	Description string
	Genres      []string
	Language    string
	Condition   model.BookCondition
	CoverImage  string
	RentalFee   float64
	Address     string
}

type Service interface {
	// Create geocodes the address first; geocoding failure blocks the
	// listing since availability search depends on valid coordinates.
	Create(ctx context.Context, ownerID int64, req CreateReq) (*model.Book, error)

	// Detail re-derives effective availability from in-flight rentals
	// instead of trusting the stored status field alone.
	Detail(ctx context.Context, id int64) (*model.Book, error)

	List(ctx context.Context, f Filter) ([]model.Book, error)

	// MyBooks lists the caller's own listings, rented ones included.
	MyBooks(ctx context.Context, ownerID int64) ([]model.Book, error)

	// Popular ranks books by completed rentals.
	Popular(ctx context.Context, limit int) ([]model.Book, error)

	Delete(ctx context.Context, id, callerID int64) error
}

type service struct {
	r  Repo
	rr RentalRepo
	g  Geocoder
}

func New(r Repo, rr RentalRepo, g Geocoder) Service {
	return &service{r: r, rr: rr, g: g}
}

func (s *service) Create(ctx context.Context, ownerID int64, req CreateReq) (*model.Book, error) {
	if req.Title == "" || req.Author == "" || req.Description == "" {
		return nil, makeErr(ErrBadInput, "title, author and description are required")
	}
	if req.RentalFee < 0 {
		return nil, makeErr(ErrBadInput, "rental fee must not be negative")
	}
	if req.Address == "" {
		return nil, makeErr(ErrBadInput, "address is required")
	}

	lon, lat, err := s.g.Geocode(ctx, req.Address)
	if err != nil {
		if errors.Is(err, geocoderepo.ErrNoResult) {
			return nil, makeErr(ErrGeocodingFailed, "could not find location for the provided address")
		}
		return nil, makeErr(ErrGeocodingFailed, "geocoding service failed")
	}

	book := &model.Book{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Genres:      req.Genres,
		Language:    req.Language,
		Condition:   req.Condition,
		CoverImage:  req.CoverImage,
		RentalFee:   req.RentalFee,
		OwnerID:     ownerID,
		Location: model.Location{
			Longitude: lon,
			Latitude:  lat,
			Address:   req.Address,
		},
	}
	if err := s.r.Create(ctx, book); err != nil {
		return nil, err
	}
	book.EffectiveAvailable = true
	return book, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	book, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, makeErr(ErrNotFound, "book not found")
		}
		return nil, err
	}
	reserved, err := s.rr.HasReservedRental(ctx, id)
	if err != nil {
		return nil, err
	}
	book.EffectiveAvailable = book.Status == model.BookAvailable && !reserved
	return book, nil
}

func (s *service) List(ctx context.Context, f Filter) ([]model.Book, error) {
	books, err := s.r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].EffectiveAvailable = books[i].Status == model.BookAvailable
	}
	return books, nil
}

func (s *service) MyBooks(ctx context.Context, ownerID int64) ([]model.Book, error) {
	books, err := s.r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].EffectiveAvailable = books[i].Status == model.BookAvailable
	}
	return books, nil
}

func (s *service) Popular(ctx context.Context, limit int) ([]model.Book, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	books, err := s.r.ListPopular(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].EffectiveAvailable = books[i].Status == model.BookAvailable
	}
	return books, nil
}

func (s *service) Delete(ctx context.Context, id, callerID int64) error {
	book, err := s.r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return makeErr(ErrNotFound, "book not found")
		}
		return err
	}
	if book.OwnerID != callerID {
		return makeErr(ErrForbidden, "only the owner may delete this book")
	}
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		// the conditional delete also guards a rental racing us
		return makeErr(ErrBookHeld, "book has an active rental and cannot be deleted")
	}
	return nil
}
