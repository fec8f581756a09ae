// model/book.go
package model

import "time"

type BookStatus string

const (
	BookAvailable BookStatus = "AVAILABLE"
	BookPending   BookStatus = "PENDING"
	BookRented    BookStatus = "RENTED"
)

type BookCondition string

const (
	ConditionLikeNew BookCondition = "Like New"
	ConditionGood    BookCondition = "Good"
	ConditionFair    BookCondition = "Fair"
	ConditionWorn    BookCondition = "Worn"
)

type Location struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Address   string  `json:"address"`
}

type Book struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Description   string        `json:"description"`
	Genres        []string      `json:"genres"`
	Language      string        `json:"language"`
	Condition     BookCondition `json:"condition"`
	CoverImage    string        `json:"cover_image"`
	RentalFee     float64       `json:"rental_fee"`
	OwnerID       int64         `json:"owner_id"`
	Status        BookStatus    `json:"status"`
	Location      Location      `json:"location"`
	AverageRating float64       `json:"average_rating"`
	CreatedAt     time.Time     `json:"created_at"`

	// EffectiveAvailable is re-derived at read time from in-flight
	// rentals, not trusted from Status alone.
	EffectiveAvailable bool `json:"effective_available"`
}
