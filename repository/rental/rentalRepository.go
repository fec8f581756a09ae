// repository/rental/repo.go
package rental

import (
	"context"
	"errors"
	"time"

	"rentaread/model"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCodeTaken is returned when a freshly minted confirmation code
// collides with another active code. Callers retry with a new draw.
var ErrCodeTaken = errors.New("confirmation code already active")

// DueSoonRow carries what the reminder batch needs per rental.
type DueSoonRow struct {
	RentalID      int64
	BookTitle     string
	BookAuthor    string
	BorrowerEmail string
	DueDate       time.Time
}

type Repo interface {
	Insert(ctx context.Context, r *model.Rental) error
	GetByID(ctx context.Context, id int64) (*model.Rental, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error)
	FindByPickupCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	FindByReturnCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*model.Rental, error)
	ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error)
	ListExtensions(ctx context.Context, rentalID int64) ([]model.RentalExtension, error)

	// Status transitions. Every one is a compare-and-swap on the
	// expected source status; false means the row moved under us.
	MarkAwaitingPayment(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkRejected(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkWithdrawn(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	MarkAwaitingPickup(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error)
	MarkLentOut(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	MarkReturning(ctx context.Context, tx pgx.Tx, id int64, returnCode string) (bool, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error)
	ExtendDueDate(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error)

	// Review bookkeeping.
	SetReviewFlag(ctx context.Context, flag string, rentalID int64) error

	// Reminder batch.
	ListDueSoon(ctx context.Context, from, to time.Time) ([]DueSoonRow, error)

	// Availability projection.
	HasReservedRental(ctx context.Context, bookID int64) (bool, error)
}

type repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

const rentalColumns = `
	id, book_id, borrower_id, lender_id, status, start_date, due_date,
	duration, rental_fee, message, return_initiated, pickup_code,
	return_code, lent_out_date, return_date, borrower_reviewed_owner,
	owner_reviewed_borrower, borrower_reviewed_book, created_at`

func scanRental(row pgx.Row) (*model.Rental, error) {
	r := &model.Rental{}
	err := row.Scan(
		&r.ID, &r.BookID, &r.BorrowerID, &r.LenderID, &r.Status,
		&r.StartDate, &r.DueDate, &r.Duration, &r.RentalFee, &r.Message,
		&r.ReturnInitiated, &r.PickupCode, &r.ReturnCode,
		&r.LentOutDate, &r.ReturnDate, &r.BorrowerReviewedOwner,
		&r.OwnerReviewedBorrower, &r.BorrowerReviewedBook, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *repo) Insert(ctx context.Context, rental *model.Rental) error {
	const q = `
		INSERT INTO rentals
			(book_id, borrower_id, lender_id, status, start_date, due_date,
			 duration, rental_fee, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		rental.BookID, rental.BorrowerID, rental.LenderID, rental.Status,
		rental.StartDate, rental.DueDate, rental.Duration, rental.RentalFee,
		rental.Message,
	).Scan(&rental.ID, &rental.CreatedAt)
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Rental, error) {
	q := `SELECT` + rentalColumns + ` FROM rentals WHERE id = $1`
	return scanRental(r.pool.QueryRow(ctx, q, id))
}

func (r *repo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Rental, error) {
	q := `SELECT` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	return scanRental(tx.QueryRow(ctx, q, id))
}

func (r *repo) FindByPickupCodeForUpdate(ctx context.Context, tx pgx.Tx, codeStr string) (*model.Rental, error) {
	q := `SELECT` + rentalColumns + ` FROM rentals WHERE pickup_code = $1 FOR UPDATE`
	return scanRental(tx.QueryRow(ctx, q, codeStr))
}

func (r *repo) FindByReturnCodeForUpdate(ctx context.Context, tx pgx.Tx, codeStr string) (*model.Rental, error) {
	q := `SELECT` + rentalColumns + ` FROM rentals WHERE return_code = $1 FOR UPDATE`
	return scanRental(tx.QueryRow(ctx, q, codeStr))
}

func (r *repo) ListForUser(ctx context.Context, userID int64, role string) ([]model.Rental, error) {
	q := `SELECT` + rentalColumns + ` FROM rentals WHERE `
	switch role {
	case "lent":
		q += `lender_id = $1`
	case "borrowed":
		q += `borrower_id = $1`
	default:
		q += `(lender_id = $1 OR borrower_id = $1)`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rental)
	}
	return out, rows.Err()
}

func (r *repo) ListExtensions(ctx context.Context, rentalID int64) ([]model.RentalExtension, error) {
	const q = `
		SELECT id, rental_id, duration, extended_at
		FROM rental_extensions
		WHERE rental_id = $1
		ORDER BY extended_at, id`
	rows, err := r.pool.Query(ctx, q, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RentalExtension
	for rows.Next() {
		var e model.RentalExtension
		if err := rows.Scan(&e.ID, &e.RentalID, &e.Duration, &e.ExtendedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// cas runs a conditional status update and reports whether exactly one
// row changed.
func cas(ctx context.Context, tx pgx.Tx, q string, args ...any) (bool, error) {
	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) MarkAwaitingPayment(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'AWAITING_PAYMENT'
		WHERE id = $1 AND status = 'PENDING'`
	return cas(ctx, tx, q, id)
}

func (r *repo) MarkRejected(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'REJECTED'
		WHERE id = $1 AND status = 'PENDING'`
	return cas(ctx, tx, q, id)
}

func (r *repo) MarkWithdrawn(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'WITHDRAWN'
		WHERE id = $1 AND status = 'PENDING'`
	return cas(ctx, tx, q, id)
}

func (r *repo) MarkAwaitingPickup(ctx context.Context, tx pgx.Tx, id int64, pickupCode string) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'AWAITING_PICKUP', pickup_code = $2
		WHERE id = $1 AND status = 'AWAITING_PAYMENT'`
	ok, err := cas(ctx, tx, q, id, pickupCode)
	if err != nil && isUniqueViolation(err) {
		return false, ErrCodeTaken
	}
	return ok, err
}

func (r *repo) MarkLentOut(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'LENT_OUT', lent_out_date = $2, pickup_code = NULL
		WHERE id = $1 AND status = 'AWAITING_PICKUP'`
	return cas(ctx, tx, q, id, at)
}

func (r *repo) MarkReturning(ctx context.Context, tx pgx.Tx, id int64, returnCode string) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'RETURNING', return_initiated = TRUE, return_code = $2
		WHERE id = $1 AND status = 'LENT_OUT'`
	ok, err := cas(ctx, tx, q, id, returnCode)
	if err != nil && isUniqueViolation(err) {
		return false, ErrCodeTaken
	}
	return ok, err
}

func (r *repo) MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, at time.Time) (bool, error) {
	const q = `
		UPDATE rentals SET status = 'COMPLETED', return_date = $2, return_code = NULL
		WHERE id = $1 AND status = 'RETURNING'`
	return cas(ctx, tx, q, id, at)
}

func (r *repo) ExtendDueDate(ctx context.Context, tx pgx.Tx, id int64, duration string, days int) (bool, error) {
	const q = `
		UPDATE rentals SET due_date = due_date + make_interval(days => $2)
		WHERE id = $1 AND status = 'LENT_OUT'`
	ok, err := cas(ctx, tx, q, id, days)
	if err != nil || !ok {
		return ok, err
	}
	const ins = `INSERT INTO rental_extensions (rental_id, duration) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, ins, id, duration); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repo) SetReviewFlag(ctx context.Context, flag string, rentalID int64) error {
	var q string
	switch flag {
	case "borrower_reviewed_owner":
		q = `UPDATE rentals SET borrower_reviewed_owner = TRUE WHERE id = $1`
	case "owner_reviewed_borrower":
		q = `UPDATE rentals SET owner_reviewed_borrower = TRUE WHERE id = $1`
	case "borrower_reviewed_book":
		q = `UPDATE rentals SET borrower_reviewed_book = TRUE WHERE id = $1`
	default:
		return errors.New("unknown review flag " + flag)
	}
	_, err := r.pool.Exec(ctx, q, rentalID)
	return err
}

func (r *repo) ListDueSoon(ctx context.Context, from, to time.Time) ([]DueSoonRow, error) {
	const q = `
		SELECT r.id, b.title, b.author, u.email, r.due_date
		FROM rentals r
		JOIN books b ON b.id = r.book_id
		JOIN users u ON u.id = r.borrower_id
		WHERE r.status = 'LENT_OUT'
		AND r.due_date >= $1 AND r.due_date <= $2
		ORDER BY r.due_date`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueSoonRow
	for rows.Next() {
		var d DueSoonRow
		if err := rows.Scan(&d.RentalID, &d.BookTitle, &d.BookAuthor, &d.BorrowerEmail, &d.DueDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repo) HasReservedRental(ctx context.Context, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM rentals
			WHERE book_id = $1
			AND status IN ('ACCEPTED','AWAITING_PAYMENT','AWAITING_PICKUP','LENT_OUT','RETURNING')
		)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, bookID).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
