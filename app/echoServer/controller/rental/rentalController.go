package rental

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentaread/app/echoServer/jwtx"
	"rentaread/model"
	"rentaread/observability/metrics"
	rs "rentaread/service/rental"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/rentals
func (ct *Controller) Create(c echo.Context) error {
	var req CreateRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Request(c.Request().Context(), uid, rs.CreateReq{
		BookID:    req.BookID,
		StartDate: req.StartDate,
		Duration:  req.Duration,
		Message:   req.Message,
	})
	if err != nil {
		metrics.ObserveTransition(string(model.RentalPending), "error")
		return ct.fail(c, "rental create", err)
	}
	metrics.ObserveTransition(string(model.RentalPending), "ok")
	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}

// PUT /v1/rentals/:id
func (ct *Controller) Respond(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req RespondReq
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

	out, err := ct.Svc.Respond(c.Request().Context(), id, uid, req.Action == "accept")
	if err != nil {
		return ct.fail(c, "rental respond", err)
	}
	metrics.ObserveTransition(string(out.Status), "ok")
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /v1/rentals/:id/withdraw
func (ct *Controller) Withdraw(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Withdraw(c.Request().Context(), id, uid)
	if err != nil {
		return ct.fail(c, "rental withdraw", err)
	}
	metrics.ObserveTransition(string(model.RentalWithdrawn), "ok")
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /v1/rentals/:id/confirm-pickup
func (ct *Controller) ConfirmPickup(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.ConfirmPickup(c.Request().Context(), uid, rs.ConfirmReq{RentalID: id, Code: req.Code})
	if err != nil {
		metrics.ObserveTransition(string(model.RentalLentOut), "error")
		return ct.fail(c, "confirm pickup", err)
	}
	metrics.ObserveTransition(string(model.RentalLentOut), "ok")
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /v1/rentals/:id/initiate-return
func (ct *Controller) InitiateReturn(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.InitiateReturn(c.Request().Context(), id, uid)
	if err != nil {
		return ct.fail(c, "initiate return", err)
	}
	metrics.ObserveTransition(string(model.RentalReturning), "ok")
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /v1/rentals/:id/confirm-return
func (ct *Controller) ConfirmReturn(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.ConfirmReturn(c.Request().Context(), uid, rs.ConfirmReq{RentalID: id, Code: req.Code})
	if err != nil {
		metrics.ObserveTransition(string(model.RentalCompleted), "error")
		return ct.fail(c, "confirm return", err)
	}
	metrics.ObserveTransition(string(model.RentalCompleted), "ok")
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// PUT /v1/rentals/:id/extend
func (ct *Controller) Extend(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ExtendReq
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

	out, err := ct.Svc.Extend(c.Request().Context(), id, uid, req.Duration)
	if err != nil {
		return ct.fail(c, "rental extend", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/rentals/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := ct.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return ct.fail(c, "rental detail", err)
	}
	if out.BorrowerID != uid && out.LenderID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/rentals?type=borrowed|lent
func (ct *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	role := c.QueryParam("type")
	if role != "borrowed" && role != "lent" {
		role = "all"
	}

	rows, err := ct.Svc.ListForUser(c.Request().Context(), uid, role)
	if err != nil {
		ct.Log.Error("rental list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// fail maps a lifecycle error code to an HTTP status.
func (ct *Controller) fail(c echo.Context, op string, err error) error {
	switch rs.Code(err) {
	case rs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case rs.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error()})
	case rs.ErrConcurrentModification:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case rs.ErrInvalidStateTransition, rs.ErrBookUnavailable,
		rs.ErrSelfRentalForbidden, rs.ErrInvalidDurationFormat:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case rs.ErrPaymentServiceUnavailable:
		return c.JSON(http.StatusBadGateway, echo.Map{"message": err.Error()})
	default:
		ct.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
