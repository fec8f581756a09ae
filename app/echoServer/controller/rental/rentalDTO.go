package rental

import "time"

type CreateRentalReq struct {
	BookID    int64     `json:"book_id" validate:"required,gt=0"`
	StartDate time.Time `json:"start_date" validate:"required"`
	Duration  string    `json:"duration"`
	Message   *string   `json:"message"`
}

type RespondReq struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type ExtendReq struct {
	Duration string `json:"duration" validate:"required"`
}

// ConfirmReq carries the spoken confirmation code (manual path). An
// empty code means the QR path: the rental id alone confirms.
type ConfirmReq struct {
	Code string `json:"code"`
}
