package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	pkgerrors "github.com/wekeepgrowing/jobportal-payment/pkg/errors"
)

// RequestValidator plugs validator/v10 into echo. Failures come back as
// INVALID_ARGUMENT errors naming the offending JSON field.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "invalid request", err)
	}
	return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, describe(verrs[0]), err)
}

func describe(fe validator.FieldError) string {
	// drop the root struct name: "CreateCheckoutRequest.items[0].price" -> "items[0].price"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// bindAndValidate decodes the request into req and runs the registered validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return pkgerrors.NewAppError(pkgerrors.ErrInvalidArgument, "invalid request body", err)
	}
	return c.Validate(req)
}
