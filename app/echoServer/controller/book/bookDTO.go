package book

import "rentaread/model"

type CreateBookReq struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Genres      []string `json:"genres"`
	Language    string   `json:"language"`
	Condition   string   `json:"condition" validate:"required,oneof='Like New' Good Fair Worn"`
	CoverImage  string   `json:"cover_image"`
	RentalFee   float64  `json:"rental_fee" validate:"gte=0"`
	Address     string   `json:"address" validate:"required"`
}

func (r CreateBookReq) condition() model.BookCondition {
	return model.BookCondition(r.Condition)
}
