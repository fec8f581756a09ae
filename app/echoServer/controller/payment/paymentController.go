package payment

import (
	"log/slog"
	"net/http"

	"rentaread/app/echoServer/jwtx"
	"rentaread/model"
	"rentaread/observability/metrics"
	paymentsvc "rentaread/service/payment"
	rs "rentaread/service/rental"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc paymentsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type CreateOrderReq struct {
	RentalID int64 `json:"rental_id" validate:"required,gt=0"`
}

type VerifyPaymentReq struct {
	RentalID  int64  `json:"rental_id" validate:"required,gt=0"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// POST /v1/payments/create-order
func (ct *Controller) CreateOrder(c echo.Context) error {
	var req CreateOrderReq
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

	order, err := ct.Svc.CreateOrder(c.Request().Context(), req.RentalID, uid)
	if err != nil {
		return ct.fail(c, "payment create order", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": order})
}

// POST /v1/payments/verify
func (ct *Controller) Verify(c echo.Context) error {
	var req VerifyPaymentReq
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

	p, err := ct.Svc.Verify(c.Request().Context(), uid, paymentsvc.VerifyReq{
		RentalID:  req.RentalID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		metrics.ObserveTransition(string(model.RentalAwaitingPickup), "error")
		return ct.fail(c, "payment verify", err)
	}
	metrics.ObserveTransition(string(model.RentalAwaitingPickup), "ok")
	return c.JSON(http.StatusOK, echo.Map{"message": "payment verified", "data": p})
}

// GET /v1/payments
func (ct *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

func (ct *Controller) fail(c echo.Context, op string, err error) error {
	switch rs.Code(err) {
	case rs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case rs.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error()})
	case rs.ErrConcurrentModification:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case rs.ErrInvalidStateTransition, rs.ErrInvalidPaymentSignature:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case rs.ErrPaymentServiceUnavailable:
		return c.JSON(http.StatusBadGateway, echo.Map{"message": err.Error()})
	default:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
