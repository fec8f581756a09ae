// model/rental.go
package model

import "time"

type RentalStatus string

const (
	RentalPending         RentalStatus = "PENDING"
	RentalAccepted        RentalStatus = "ACCEPTED"
	RentalAwaitingPayment RentalStatus = "AWAITING_PAYMENT"
	RentalAwaitingPickup  RentalStatus = "AWAITING_PICKUP"
	RentalLentOut         RentalStatus = "LENT_OUT"
	RentalReturning       RentalStatus = "RETURNING"
	RentalCompleted       RentalStatus = "COMPLETED"
	RentalRejected        RentalStatus = "REJECTED"
	RentalWithdrawn       RentalStatus = "WITHDRAWN"
)

// IsTerminal reports whether no further transition is legal.
func (s RentalStatus) IsTerminal() bool {
	switch s {
	case RentalCompleted, RentalRejected, RentalWithdrawn:
		return true
	}
	return false
}

// Reserved reports whether the rental blocks the book from other
// borrowers. PENDING requests do not reserve the book.
func (s RentalStatus) Reserved() bool {
	switch s {
	case RentalAccepted, RentalAwaitingPayment, RentalAwaitingPickup, RentalLentOut, RentalReturning:
		return true
	}
	return false
}

// ReservedStatuses is the set used by the availability projection.
var ReservedStatuses = []RentalStatus{
	RentalAccepted,
	RentalAwaitingPayment,
	RentalAwaitingPickup,
	RentalLentOut,
	RentalReturning,
}

type RentalExtension struct {
	ID         int64     `json:"id"`
	RentalID   int64     `json:"rental_id"`
	Duration   string    `json:"duration"`
	ExtendedAt time.Time `json:"extended_at"`
}

type Rental struct {
	ID                    int64        `json:"id"`
	BookID                int64        `json:"book_id"`
	BorrowerID            int64        `json:"borrower_id"`
	LenderID              int64        `json:"lender_id"`
	Status                RentalStatus `json:"status"`
	StartDate             time.Time    `json:"start_date"`
	DueDate               time.Time    `json:"due_date"`
	Duration              string       `json:"duration"`
	RentalFee             float64      `json:"rental_fee"`
	Message               *string      `json:"message,omitempty"`
	ReturnInitiated       bool         `json:"return_initiated"`
	PickupCode            *string      `json:"pickup_code,omitempty"`
	ReturnCode            *string      `json:"return_code,omitempty"`
	LentOutDate           *time.Time   `json:"lent_out_date,omitempty"`
	ReturnDate            *time.Time   `json:"return_date,omitempty"`
	BorrowerReviewedOwner bool         `json:"borrower_reviewed_owner"`
	OwnerReviewedBorrower bool         `json:"owner_reviewed_borrower"`
	BorrowerReviewedBook  bool         `json:"borrower_reviewed_book"`
	CreatedAt             time.Time    `json:"created_at"`

	Extensions []RentalExtension `json:"extensions,omitempty"`
}
