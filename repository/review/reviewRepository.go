package reviewrepo

import (
	"context"
	"errors"

	"rentaread/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate maps the unique (reviewer, rental, target) constraint.
var ErrDuplicate = errors.New("review already exists for this rental")

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

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

func (r *repo) InsertBookReview(ctx context.Context, rv *model.BookReview) error {
	const q = `
		INSERT INTO book_reviews (reviewer_id, book_id, rental_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, rv.ReviewerID, rv.BookID, rv.RentalID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt)
	return mapDuplicate(err)
}

func (r *repo) InsertUserReview(ctx context.Context, rv *model.UserReview) error {
	const q = `
		INSERT INTO user_reviews (reviewer_id, reviewed_user_id, rental_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, rv.ReviewerID, rv.ReviewedUserID, rv.RentalID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt)
	return mapDuplicate(err)
}

func (r *repo) BookReviewExists(ctx context.Context, reviewerID, rentalID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM book_reviews
			WHERE reviewer_id = $1 AND rental_id = $2 AND book_id = $3
		)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, reviewerID, rentalID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) UserReviewExists(ctx context.Context, reviewerID, rentalID, reviewedUserID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM user_reviews
			WHERE reviewer_id = $1 AND rental_id = $2 AND reviewed_user_id = $3
		)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, reviewerID, rentalID, reviewedUserID).Scan(&exists)
	return exists, err
}

func (r *repo) ListBookReviews(ctx context.Context, bookID int64) ([]model.BookReview, error) {
	const q = `
		SELECT id, reviewer_id, book_id, rental_id, rating, comment, created_at
		FROM book_reviews
		WHERE book_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookReview
	for rows.Next() {
		var rv model.BookReview
		if err := rows.Scan(&rv.ID, &rv.ReviewerID, &rv.BookID, &rv.RentalID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *repo) ListUserReviews(ctx context.Context, userID int64) ([]model.UserReview, error) {
	const q = `
		SELECT id, reviewer_id, reviewed_user_id, rental_id, rating, comment, created_at
		FROM user_reviews
		WHERE reviewed_user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserReview
	for rows.Next() {
		var rv model.UserReview
		if err := rows.Scan(&rv.ID, &rv.ReviewerID, &rv.ReviewedUserID, &rv.RentalID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *repo) ListBookRatings(ctx context.Context, bookID int64) ([]int, error) {
	return r.listRatings(ctx, `SELECT rating FROM book_reviews WHERE book_id = $1`, bookID)
}

func (r *repo) ListUserRatings(ctx context.Context, userID int64) ([]int, error) {
	return r.listRatings(ctx, `SELECT rating FROM user_reviews WHERE reviewed_user_id = $1`, userID)
}

func (r *repo) listRatings(ctx context.Context, q string, id int64) ([]int, error) {
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		out = append(out, rating)
	}
	return out, rows.Err()
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrDuplicate
	}
	return err
}
