package validator

import (
	"errors"

	"github.com/alimikegami/marketplace/payment-service/pkg/response"
	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func CreateValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// FieldErrors flattens validation failures for the error envelope. It returns
// nil for any other error.
func FieldErrors(err error) []response.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]response.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, response.ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
		})
	}
	return out
}
