package validator

import (
	"errors"
	"testing"

	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	type TestCase struct {
		Name           string
		Request        dto.CheckoutRequest
		ExpectedFields []string
	}

	valid := dto.CheckoutRequest{
		CustomerName:  "Budi",
		CustomerPhone: "081234567890",
		Items:         []dto.CheckoutItem{{ProductID: 1, Quantity: 1}},
	}

	testCases := []TestCase{
		{Name: "Valid request", Request: valid},
		{
			Name: "Missing name",
			Request: dto.CheckoutRequest{
				CustomerPhone: "081234567890",
				Items:         []dto.CheckoutItem{{ProductID: 1, Quantity: 1}},
			},
			ExpectedFields: []string{"CustomerName"},
		},
		{
			Name: "Invalid email and source",
			Request: dto.CheckoutRequest{
				CustomerName:  "Budi",
				CustomerPhone: "081234567890",
				CustomerEmail: "budi",
				Source:        "pos",
				Items:         []dto.CheckoutItem{{ProductID: 1, Quantity: 1}},
			},
			ExpectedFields: []string{"CustomerEmail", "Source"},
		},
		{
			Name: "Empty items",
			Request: dto.CheckoutRequest{
				CustomerName:  "Budi",
				CustomerPhone: "081234567890",
			},
			ExpectedFields: []string{"Items"},
		},
		{
			Name: "Zero quantity",
			Request: dto.CheckoutRequest{
				CustomerName:  "Budi",
				CustomerPhone: "081234567890",
				Items:         []dto.CheckoutItem{{ProductID: 1}},
			},
			ExpectedFields: []string{"Quantity"},
		},
	}

	v := CreateValidator()
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			err := v.Validate(tc.Request)
			if len(tc.ExpectedFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var fields []string
			for _, fe := range FieldErrors(err) {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tc.ExpectedFields, fields)
		})
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
}
