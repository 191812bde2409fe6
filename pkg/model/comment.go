package model

import "time"

const AnonymousAuthor = "Anonymous"

type Comment struct {
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Rating    *float64  `json:"rating" bson:"rating" validate:"required,min=0,max=5"`
	Liked     string    `json:"liked,omitempty" bson:"liked,omitempty" validate:"omitempty,max=1000"`
	Disliked  string    `json:"disliked,omitempty" bson:"disliked,omitempty" validate:"omitempty,max=1000"`
	Text      string    `json:"text,omitempty" bson:"text,omitempty" validate:"omitempty,max=2000"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
