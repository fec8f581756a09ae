package review

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentaread/app/echoServer/jwtx"
	reviewsvc "rentaread/service/review"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc reviewsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CreateBookReviewReq struct {
	RentalID int64  `json:"rental_id" validate:"required,gt=0"`
	BookID   int64  `json:"book_id" validate:"required,gt=0"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment"`
}

type CreateUserReviewReq struct {
	RentalID       int64  `json:"rental_id" validate:"required,gt=0"`
	ReviewedUserID int64  `json:"reviewed_user_id" validate:"required,gt=0"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment"`
}

// POST /v1/reviews/books
func (ct *Controller) CreateBookReview(c echo.Context) error {
	var req CreateBookReviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	rv, err := ct.Svc.CreateBookReview(c.Request().Context(), uid, req.RentalID, req.BookID, req.Rating, req.Comment)
	if err != nil {
		return ct.fail(c, "book review create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": rv})
}

// POST /v1/reviews/users
func (ct *Controller) CreateUserReview(c echo.Context) error {
	var req CreateUserReviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	rv, err := ct.Svc.CreateUserReview(c.Request().Context(), uid, req.RentalID, req.ReviewedUserID, req.Rating, req.Comment)
	if err != nil {
		return ct.fail(c, "user review create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": rv})
}

// GET /v1/books/:id/reviews
func (ct *Controller) BookReviews(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := ct.Svc.BookReviews(c.Request().Context(), id)
	if err != nil {
		ct.Log.Error("book reviews", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/users/:id/reviews
func (ct *Controller) UserReviews(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := ct.Svc.UserReviews(c.Request().Context(), id)
	if err != nil {
		ct.Log.Error("user reviews", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

func (ct *Controller) fail(c echo.Context, op string, err error) error {
	switch reviewsvc.Code(err) {
	case reviewsvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case reviewsvc.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error()})
	case reviewsvc.ErrDuplicateReview:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case reviewsvc.ErrNotEligible, reviewsvc.ErrBadRating:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	default:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
