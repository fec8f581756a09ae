// model/review.go
package model

import "time"

type BookReview struct {
	ID         int64     `json:"id"`
	ReviewerID int64     `json:"reviewer_id"`
	BookID     int64     `json:"book_id"`
	RentalID   int64     `json:"rental_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

type UserReview struct {
	ID             int64     `json:"id"`
	ReviewerID     int64     `json:"reviewer_id"`
	ReviewedUserID int64     `json:"reviewed_user_id"`
	RentalID       int64     `json:"rental_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}
