package paymentrepo

import (
	"context"

	"rentaread/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo interface {
	Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error
	ListForUser(ctx context.Context, userID int64) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
}

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

func (r *repo) Insert(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	const q = `
		INSERT INTO payments (rental_id, amount, status, payment_method, transaction_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`
	return tx.QueryRow(ctx, q, p.RentalID, p.Amount, p.Status, p.PaymentMethod, p.TransactionID).
		Scan(&p.ID, &p.CreatedAt)
}

func (r *repo) ListForUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	const q = `
		SELECT p.id, p.rental_id, p.amount, p.status, p.payment_method, p.transaction_id, p.created_at
		FROM payments p
		JOIN rentals r ON r.id = p.rental_id
		WHERE r.borrower_id = $1 OR r.lender_id = $1
		ORDER BY p.created_at DESC, p.id DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.RentalID, &p.Amount, &p.Status, &p.PaymentMethod, &p.TransactionID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) UpdateStatus(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	const q = `UPDATE payments SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
