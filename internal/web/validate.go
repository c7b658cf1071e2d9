package web

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/silktown-software/postcode-geocode-demo/internal/postcode"
)

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("ukpostcode", func(fl validator.FieldLevel) bool {
		return postcode.Valid(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	return v, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	switch verrs[0].Tag() {
	case "required":
		return "postcode is required"
	case "ukpostcode":
		return "postcode is not a valid UK postcode"
	default:
		return "invalid postcode"
	}
}
