package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// recordValidate checks records at the CLI and API boundary.
// The record store itself never rejects a record.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()

	_ = recordValidate.RegisterValidation("datestr", validateDateString)
	_ = recordValidate.RegisterValidation("clock", validateClock)
}

// validateDateString accepts strict YYYY-MM-DD dates.
func validateDateString(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// validateClock accepts HH:MM on a 24-hour clock.
func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// Validate checks a record's field constraints and returns a readable error.
func Validate(record any) error {
	err := recordValidate.Struct(record)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	name := verrs[0].StructNamespace()
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return fmt.Errorf("invalid %s: %s", strings.ToLower(name), strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "datestr":
		return fe.Field() + " must be a YYYY-MM-DD date"
	case "clock":
		return fe.Field() + " must be HH:MM"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param())
	case "url":
		return fe.Field() + " must be a URL"
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// NewID returns a new opaque record ID.
func NewID() string {
	return uuid.New().String()
}
