package notification

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"rentaread/app/echoServer/jwtx"
	notificationsvc "rentaread/service/notification"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc notificationsvc.Service
	Log *slog.Logger
}

// GET /v1/notifications
func (ct *Controller) List(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.ListForUser(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("notification list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// PUT /v1/notifications/:id/read
func (ct *Controller) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	if err := ct.Svc.MarkRead(c.Request().Context(), id, uid); err != nil {
		if errors.Is(err, notificationsvc.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "notification not found"})
		}
		ct.Log.Error("notification mark read", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "read"})
}

// PUT /v1/notifications/read-all
func (ct *Controller) MarkAllRead(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	if err := ct.Svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		ct.Log.Error("notification mark all read", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "all read"})
}
