// model/notification.go
package model

import "time"

type NotificationType string

const (
	NotifyRentalRequest   NotificationType = "rental_request"
	NotifyPaymentDue      NotificationType = "payment_due"
	NotifyReturnReminder  NotificationType = "return_reminder"
	NotifyMessage         NotificationType = "message"
	NotifyReviewReceived  NotificationType = "review_received"
	NotifyReturnInitiated NotificationType = "return_initiated"
	NotifyPickupConfirmed NotificationType = "pickup_confirmed"
	NotifyReturnConfirmed NotificationType = "return_confirmed"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	RelatedID *int64           `json:"related_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
