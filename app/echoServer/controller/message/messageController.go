package message

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"rentaread/app/echoServer/jwtx"
	messagesvc "rentaread/service/message"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc messagesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

type SendMessageReq struct {
	ReceiverID int64  `json:"receiver_id" validate:"required,gt=0"`
	Text       string `json:"text" validate:"required"`
}

// POST /v1/messages
func (ct *Controller) Send(c echo.Context) error {
	var req SendMessageReq
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

	m, err := ct.Svc.Send(c.Request().Context(), uid, req.ReceiverID, req.Text)
	if err != nil {
		if errors.Is(err, messagesvc.ErrBadInput) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		}
		ct.Log.Error("message send", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": m})
}

// GET /v1/messages/:userId
func (ct *Controller) Conversation(c echo.Context) error {
	other, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || other <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	rows, err := ct.Svc.Conversation(c.Request().Context(), uid, other)
	if err != nil {
		ct.Log.Error("conversation", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/messages
func (ct *Controller) Conversations(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := ct.Svc.Conversations(c.Request().Context(), uid)
	if err != nil {
		ct.Log.Error("conversations", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
