package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/lubrihub/storefront-backend/pkg/errors"
	"github.com/lubrihub/storefront-backend/pkg/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// validateShipping normalizes details in place and reports field errors.
func validateShipping(details *types.ShippingDetails) error {
	details.Normalize()
	if err := validate.Struct(details); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fields := map[string]string{}
			for _, fe := range errs {
				fields[fe.Field()] = shippingMessage(fe)
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping details are invalid").WithDetails(fields)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping details are invalid")
	}
	return nil
}

func shippingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "e164":
		return "must be an international phone number like +254712345678"
	case "iso3166_1_alpha2":
		return "must be a two letter country code"
	}
	return "is invalid"
}
