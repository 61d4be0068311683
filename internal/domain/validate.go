package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the job-record rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// ValidateFields checks a draft or update payload. The returned error is a
// validation *Error with one message per offending field.
func ValidateFields(f JobFields) error {
	return Validate(f, "invalid job fields")
}

// Validate runs the shared validator over any tagged struct.
func Validate(v any, message string) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationError("validate", err.Error())
	}
	out := ValidationError("validate", message)
	for _, fe := range verrs {
		out.WithField(fe.Field(), fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "is required"
	case "status":
		return "must be one of new, applied, interview, offer, rejected"
	case "email":
		return "is not a valid email address"
	default:
		return "is invalid"
	}
}
