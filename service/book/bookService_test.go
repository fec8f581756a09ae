package booksvc_test

import (
	"context"
	"errors"
	"testing"

	"rentaread/model"
	geocoderepo "rentaread/repository/geocode"
	booksvc "rentaread/service/book"

	"github.com/jackc/pgx/v5"
)

type repoMock struct {
	createFn  func(ctx context.Context, b *model.Book) error
	getFn     func(ctx context.Context, id int64) (*model.Book, error)
	listFn    func(ctx context.Context, f booksvc.Filter) ([]model.Book, error)
	ownerFn   func(ctx context.Context, ownerID int64) ([]model.Book, error)
	popularFn func(ctx context.Context, limit int) ([]model.Book, error)
	deleteFn  func(ctx context.Context, id int64) (bool, error)
}

func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.getFn(ctx, id)
}
func (m *repoMock) List(ctx context.Context, f booksvc.Filter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *repoMock) ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error) {
	return m.ownerFn(ctx, ownerID)
}
func (m *repoMock) ListPopular(ctx context.Context, limit int) ([]model.Book, error) {
	return m.popularFn(ctx, limit)
}
func (m *repoMock) Delete(ctx context.Context, id int64) (bool, error) { return m.deleteFn(ctx, id) }

type rentalMock struct{ reserved bool }

func (m *rentalMock) HasReservedRental(ctx context.Context, bookID int64) (bool, error) {
	return m.reserved, nil
}

type geoMock struct {
	fn func(ctx context.Context, address string) (float64, float64, error)
}

func (m *geoMock) Geocode(ctx context.Context, address string) (float64, float64, error) {
	return m.fn(ctx, address)
}

func okGeo() *geoMock {
	return &geoMock{fn: func(ctx context.Context, address string) (float64, float64, error) {
		return 77.59, 12.97, nil
	}}
}

func validReq() booksvc.CreateReq {
	return booksvc.CreateReq{
		Title:       "Hyperion",
		Author:      "Dan Simmons",
		Description: "space opera",
		RentalFee:   40,
		Address:     "Indiranagar, Bengaluru",
	}
}

func TestCreate_GeocodingFailureBlocksListing(t *testing.T) {
	created := false
	r := &repoMock{createFn: func(ctx context.Context, b *model.Book) error {
		created = true
		return nil
	}}
	g := &geoMock{fn: func(ctx context.Context, address string) (float64, float64, error) {
		return 0, 0, geocoderepo.ErrNoResult
	}}
	s := booksvc.New(r, &rentalMock{}, g)

	_, err := s.Create(context.Background(), 1, validReq())
	if booksvc.Code(err) != booksvc.ErrGeocodingFailed {
		t.Fatalf("got %v; want GEOCODING_FAILED", err)
	}
	if created {
		t.Fatal("book must not be created when geocoding fails")
	}
}

func TestCreate_StoresCoordinates(t *testing.T) {
	var stored *model.Book
	r := &repoMock{createFn: func(ctx context.Context, b *model.Book) error {
		b.ID = 10
		stored = b
		return nil
	}}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	b, err := s.Create(context.Background(), 1, validReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored.Location.Longitude != 77.59 || stored.Location.Latitude != 12.97 {
		t.Fatalf("coordinates not stored: %+v", stored.Location)
	}
	if !b.EffectiveAvailable {
		t.Fatal("fresh listing must be effectively available")
	}
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{}, &rentalMock{}, okGeo())

	bad := validReq()
	bad.Title = ""
	if _, err := s.Create(context.Background(), 1, bad); booksvc.Code(err) != booksvc.ErrBadInput {
		t.Fatalf("empty title: got %v", err)
	}

	bad = validReq()
	bad.RentalFee = -1
	if _, err := s.Create(context.Background(), 1, bad); booksvc.Code(err) != booksvc.ErrBadInput {
		t.Fatalf("negative fee: got %v", err)
	}

	bad = validReq()
	bad.Address = ""
	if _, err := s.Create(context.Background(), 1, bad); booksvc.Code(err) != booksvc.ErrBadInput {
		t.Fatalf("empty address: got %v", err)
	}
}

func TestDetail_DerivesAvailability(t *testing.T) {
	r := &repoMock{getFn: func(ctx context.Context, id int64) (*model.Book, error) {
		return &model.Book{ID: id, Status: model.BookAvailable}, nil
	}}
	s := booksvc.New(r, &rentalMock{reserved: true}, okGeo())

	b, err := s.Detail(context.Background(), 10)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if b.EffectiveAvailable {
		t.Fatal("book with a reserved rental must not be effectively available")
	}
}

func TestMyBooks_IncludesRentedOut(t *testing.T) {
	r := &repoMock{ownerFn: func(ctx context.Context, ownerID int64) ([]model.Book, error) {
		if ownerID != 1 {
			t.Fatalf("owner id %d", ownerID)
		}
		return []model.Book{
			{ID: 10, OwnerID: 1, Status: model.BookAvailable},
			{ID: 11, OwnerID: 1, Status: model.BookRented},
		}, nil
	}}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	books, err := s.MyBooks(context.Background(), 1)
	if err != nil {
		t.Fatalf("my books: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("got %d books; want 2", len(books))
	}
	if !books[0].EffectiveAvailable || books[1].EffectiveAvailable {
		t.Fatal("availability flags wrong")
	}
}

func TestPopular_ClampsLimit(t *testing.T) {
	var gotLimit int
	r := &repoMock{popularFn: func(ctx context.Context, limit int) ([]model.Book, error) {
		gotLimit = limit
		return nil, nil
	}}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	if _, err := s.Popular(context.Background(), 0); err != nil {
		t.Fatalf("popular: %v", err)
	}
	if gotLimit != 10 {
		t.Fatalf("zero limit: got %d; want default 10", gotLimit)
	}
	if _, err := s.Popular(context.Background(), 500); err != nil {
		t.Fatalf("popular: %v", err)
	}
	if gotLimit != 10 {
		t.Fatalf("oversized limit: got %d; want default 10", gotLimit)
	}
	if _, err := s.Popular(context.Background(), 5); err != nil {
		t.Fatalf("popular: %v", err)
	}
	if gotLimit != 5 {
		t.Fatalf("got %d; want 5", gotLimit)
	}
}

func TestDelete_OwnerOnly(t *testing.T) {
	r := &repoMock{
		getFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, OwnerID: 1}, nil
		},
	}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	if err := s.Delete(context.Background(), 10, 2); booksvc.Code(err) != booksvc.ErrForbidden {
		t.Fatalf("got %v; want FORBIDDEN", err)
	}
}

func TestDelete_HeldByRental(t *testing.T) {
	r := &repoMock{
		getFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return &model.Book{ID: id, OwnerID: 1, Status: model.BookRented}, nil
		},
		deleteFn: func(ctx context.Context, id int64) (bool, error) { return false, nil },
	}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	if err := s.Delete(context.Background(), 10, 1); booksvc.Code(err) != booksvc.ErrBookHeld {
		t.Fatalf("got %v; want BOOK_HELD", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	r := &repoMock{
		getFn: func(ctx context.Context, id int64) (*model.Book, error) {
			return nil, pgx.ErrNoRows
		},
	}
	s := booksvc.New(r, &rentalMock{}, okGeo())

	if err := s.Delete(context.Background(), 10, 1); booksvc.Code(err) != booksvc.ErrNotFound {
		t.Fatalf("got %v; want NOT_FOUND", err)
	}
}

func TestCreate_GeocoderHardError(t *testing.T) {
	g := &geoMock{fn: func(ctx context.Context, address string) (float64, float64, error) {
		return 0, 0, errors.New("upstream 503")
	}}
	s := booksvc.New(&repoMock{}, &rentalMock{}, g)

	_, err := s.Create(context.Background(), 1, validReq())
	if booksvc.Code(err) != booksvc.ErrGeocodingFailed {
		t.Fatalf("got %v; want GEOCODING_FAILED", err)
	}
}
