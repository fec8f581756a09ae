package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"rentaread/app/echoServer/jwtx"
	"rentaread/model"
	"rentaread/observability/metrics"
	paymentsvc "rentaread/service/payment"
	rentalsvc "rentaread/service/rental"
	usersvc "rentaread/service/user"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Reminder rentalsvc.Reminder
	Users    usersvc.Service
	Payments paymentsvc.Service
	Log      *slog.Logger
}

func (ct *Controller) requireAdmin(c echo.Context) bool {
	role, err := jwtx.RoleFromContext(c)
	return err == nil && role == "admin"
}

// POST /v1/admin/reminders/run
func (ct *Controller) RunReminders(c echo.Context) error {
	if !ct.requireAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "admin only"})
	}
	matched, sent, err := ct.Reminder.SendDueSoonReminders(c.Request().Context())
	if err != nil {
		metrics.ObserveReminderRun("error")
		ct.Log.Error("reminder run", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	metrics.ObserveReminderRun("ok")
	return c.JSON(http.StatusOK, echo.Map{"matched": matched, "sent": sent})
}

type suspendReq struct {
	Suspended bool `json:"suspended"`
}

// PUT /v1/admin/users/:id/suspend
func (ct *Controller) SuspendUser(c echo.Context) error {
	if !ct.requireAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "admin only"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req suspendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.Users.Suspend(c.Request().Context(), id, req.Suspended); err != nil {
		ct.Log.Error("suspend user", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

type paymentStatusReq struct {
	Status string `json:"status"`
}

// PUT /v1/admin/payments/:id/status
//
// Reconciliation override for when the gateway webhook and our record
// disagree; it edits the payment row only.
func (ct *Controller) OverridePaymentStatus(c echo.Context) error {
	if !ct.requireAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "admin only"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req paymentStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}

	err = ct.Payments.OverrideStatus(c.Request().Context(), id, model.PaymentStatus(req.Status))
	if err != nil {
		switch rentalsvc.Code(err) {
		case rentalsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case rentalsvc.ErrInvalidStateTransition:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		default:
			ct.Log.Error("payment status override", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}
