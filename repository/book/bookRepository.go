package bookrepo

import (
	"context"
	"strconv"

	"rentaread/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows the browse listing.
type Filter struct {
	Search        string
	Genres        []string
	Languages     []string
	MinPrice      *float64
	MaxPrice      *float64
	OnlyAvailable bool
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context, f Filter) ([]model.Book, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error)
	ListPopular(ctx context.Context, limit int) ([]model.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateAverageRating(ctx context.Context, id int64, avg float64) error

	// Status is engine-owned derived state. Only the rental lifecycle
	// service calls these; the swap fails when the stored status is
	// not the expected one.
	UpdateStatusCAS(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error)
}

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

const bookColumns = `
	id, title, author, description, genres, language, condition,
	cover_image, rental_fee, owner_id, status, lon, lat, address,
	average_rating, created_at`

func scanBook(row pgx.Row) (*model.Book, error) {
	b := &model.Book{}
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Description, &b.Genres, &b.Language,
		&b.Condition, &b.CoverImage, &b.RentalFee, &b.OwnerID, &b.Status,
		&b.Location.Longitude, &b.Location.Latitude, &b.Location.Address,
		&b.AverageRating, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func collectBooks(rows pgx.Rows) ([]model.Book, error) {
	var out []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books
			(title, author, description, genres, language, condition,
			 cover_image, rental_fee, owner_id, status, lon, lat, address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'AVAILABLE',$10,$11,$12)
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q,
		b.Title, b.Author, b.Description, b.Genres, b.Language, b.Condition,
		b.CoverImage, b.RentalFee, b.OwnerID,
		b.Location.Longitude, b.Location.Latitude, b.Location.Address,
	).Scan(&b.ID, &b.Status, &b.CreatedAt)
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	q := `SELECT` + bookColumns + ` FROM books WHERE id = $1`
	return scanBook(r.pool.QueryRow(ctx, q, id))
}

func (r *repo) List(ctx context.Context, f Filter) ([]model.Book, error) {
	q := `SELECT` + bookColumns + ` FROM books WHERE TRUE`
	var args []any
	add := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := add("%" + f.Search + "%")
		q += ` AND (title ILIKE ` + p + ` OR author ILIKE ` + p + `)`
	}
	if len(f.Genres) > 0 {
		q += ` AND genres && ` + add(f.Genres)
	}
	if len(f.Languages) > 0 {
		q += ` AND language = ANY(` + add(f.Languages) + `)`
	}
	if f.MinPrice != nil {
		q += ` AND rental_fee >= ` + add(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		q += ` AND rental_fee <= ` + add(*f.MaxPrice)
	}
	if f.OnlyAvailable {
		q += ` AND status = 'AVAILABLE'`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *repo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Book, error) {
	q := `SELECT` + bookColumns + ` FROM books WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// ListPopular ranks by completed rentals, breaking ties on rating.
func (r *repo) ListPopular(ctx context.Context, limit int) ([]model.Book, error) {
	q := `
		SELECT` + bookColumns + `
		FROM books b
		LEFT JOIN (
			SELECT book_id, COUNT(*) AS done
			FROM rentals WHERE status = 'COMPLETED'
			GROUP BY book_id
		) r ON r.book_id = b.id
		ORDER BY COALESCE(r.done, 0) DESC, b.average_rating DESC, b.id
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	// owner-initiated delete is legal only while no rental holds the book
	const q = `DELETE FROM books WHERE id = $1 AND status = 'AVAILABLE'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) UpdateAverageRating(ctx context.Context, id int64, avg float64) error {
	const q = `UPDATE books SET average_rating = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, avg)
	return err
}

func (r *repo) UpdateStatusCAS(ctx context.Context, tx pgx.Tx, id int64, from, to model.BookStatus) (bool, error) {
	const q = `UPDATE books SET status = $3 WHERE id = $1 AND status = $2`
	tag, err := tx.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
