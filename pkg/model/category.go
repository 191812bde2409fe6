package model

type Category struct {
	Slug        string `json:"slug" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}
