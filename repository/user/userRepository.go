package userrepo

import (
	"context"
	"time"

	"rentaread/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, name, profilePic, location string) error
	UpdateAverageRating(ctx context.Context, id int64, avg float64) error
	SetSuspended(ctx context.Context, id int64, suspended bool) error

	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	ByResetToken(ctx context.Context, token string) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type repo struct{ pool *pgxpool.Pool }

func New(pool *pgxpool.Pool) Repo { return &repo{pool: pool} }

const userColumns = `
	id, name, email, password_hash, profile_pic, location,
	average_rating, role, is_suspended, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePic,
		&u.Location, &u.AverageRating, &u.Role, &u.IsSuspended, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) Create(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (name, email, password_hash, location)
		VALUES ($1,$2,$3,$4)
		RETURNING id, profile_pic, average_rating, role, is_suspended, created_at`
	return r.pool.QueryRow(ctx, q, u.Name, u.Email, u.PasswordHash, u.Location).
		Scan(&u.ID, &u.ProfilePic, &u.AverageRating, &u.Role, &u.IsSuspended, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	q := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *repo) UpdateProfile(ctx context.Context, id int64, name, profilePic, location string) error {
	const q = `
		UPDATE users
		SET name = COALESCE(NULLIF($2,''), name),
			profile_pic = COALESCE(NULLIF($3,''), profile_pic),
			location = COALESCE(NULLIF($4,''), location)
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, name, profilePic, location)
	return err
}

func (r *repo) UpdateAverageRating(ctx context.Context, id int64, avg float64) error {
	const q = `UPDATE users SET average_rating = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, avg)
	return err
}

func (r *repo) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	const q = `UPDATE users SET is_suspended = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, suspended)
	return err
}

func (r *repo) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	const q = `UPDATE users SET reset_token = $2, reset_expires = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, token, expires)
	return err
}

// ByResetToken only matches unexpired tokens; an expired one reads as
// no rows.
func (r *repo) ByResetToken(ctx context.Context, token string) (*model.User, error) {
	q := `SELECT` + userColumns + ` FROM users WHERE reset_token = $1 AND reset_expires > NOW()`
	return scanUser(r.pool.QueryRow(ctx, q, token))
}

func (r *repo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_expires = NULL
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	return err
}
