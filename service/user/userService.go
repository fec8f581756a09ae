package usersvc

import (
	"context"
	"errors"

	"rentaread/model"
	userrepo "rentaread/repository/user"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("user not found")

type Service interface {
	Profile(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, name, profilePic, location string) (*model.User, error)
	Suspend(ctx context.Context, id int64, suspended bool) error
}

type service struct{ ur userrepo.Repo }

func New(ur userrepo.Repo) Service { return &service{ur: ur} }

func (s *service) Profile(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.ur.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id int64, name, profilePic, location string) (*model.User, error) {
	if err := s.ur.UpdateProfile(ctx, id, name, profilePic, location); err != nil {
		return nil, err
	}
	return s.Profile(ctx, id)
}

func (s *service) Suspend(ctx context.Context, id int64, suspended bool) error {
	return s.ur.SetSuspended(ctx, id, suspended)
}
