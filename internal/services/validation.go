package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/storefront/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into a single Validation error
// naming the first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		switch fe.Tag() {
		case "required":
			return NewError(KindValidation, fmt.Sprintf("%s is required", field))
		case "gt", "gte", "min":
			return NewError(KindValidation, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			return NewError(KindValidation, fmt.Sprintf("%s is invalid", field))
		}
	}
	return Wrap(KindValidation, "invalid input", err)
}

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// ParseIdentityKey normalizes raw into an email or phone identity key.
// Values containing "@" are emails; everything else is a phone number.
func ParseIdentityKey(raw string) (models.IdentityKey, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return models.IdentityKey{}, NewError(KindValidation, "phone or email is required")
	}

	if strings.Contains(value, "@") {
		email := strings.ToLower(value)
		if err := validate.Var(email, "email"); err != nil {
			return models.IdentityKey{}, NewError(KindValidation, "invalid email address")
		}
		return models.IdentityKey{Channel: models.ChannelEmail, Value: email}, nil
	}

	phone := phoneSeparators.Replace(value)
	if !phonePattern.MatchString(phone) {
		return models.IdentityKey{}, NewError(KindValidation, "invalid phone number")
	}
	return models.IdentityKey{Channel: models.ChannelPhone, Value: phone}, nil
}
