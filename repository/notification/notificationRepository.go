package notificationrepo

import (
	"context"

	"rentaread/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

func (r *repo) Insert(ctx context.Context, n *model.Notification) error {
	const q = `
		INSERT INTO notifications (user_id, type, message, related_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id, read, created_at`
	return r.pool.QueryRow(ctx, q, n.UserID, n.Type, n.Message, n.RelatedID).
		Scan(&n.ID, &n.Read, &n.CreatedAt)
}

func (r *repo) ListForUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	const q = `
		SELECT id, user_id, type, message, related_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 100`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.RelatedID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *repo) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	const q = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) MarkAllRead(ctx context.Context, userID int64) error {
	const q = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	_, err := r.pool.Exec(ctx, q, userID)
	return err
}
