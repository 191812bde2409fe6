package validator

import (
	"tripmarket/pkg/model"
	"tripmarket/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ValidationErrors = validation.Errors

type CommentValidator struct {
	validate *validator.Validate
}

func NewCommentValidator() *CommentValidator {
	return &CommentValidator{validate: validation.New()}
}

func (v *CommentValidator) Validate(comment *model.Comment) error {
	return validation.Struct(v.validate, comment)
}
