package validator

import (
	"tripmarket/pkg/model"
	"tripmarket/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type RedeemValidator struct {
	validate *validator.Validate
}

func NewRedeemValidator() *RedeemValidator {
	return &RedeemValidator{validate: validation.New()}
}

func (v *RedeemValidator) Validate(req *model.RedeemRequest) error {
	return validation.Struct(v.validate, req)
}
