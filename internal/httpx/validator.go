package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"readingjourney/internal/platform/crypto"
	"readingjourney/internal/platform/isbn"
)

var validate *validator.Validate

var userNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

var (
	bookFormats = map[string]bool{"paperback": true, "hardcover": true, "ebook": true, "audiobook": true, "pdf": true}
	genders     = map[string]bool{"male": true, "female": true, "other": true, "prefer_not_to_say": true}
	themes      = map[string]bool{"light": true, "dark": true, "auto": true}
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return isbn.Valid(fl.Field().String())
	})
	_ = validate.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return crypto.ValidatePasswordStrength(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return userNameRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("book_format", oneOf(bookFormats))
	_ = validate.RegisterValidation("gender", oneOf(genders))
	_ = validate.RegisterValidation("theme", oneOf(themes))
}

func oneOf(allowed map[string]bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return allowed[strings.ToLower(fl.Field().String())]
	}
}

// ValidateStruct runs struct tag validation and returns one detail per failing field.
func ValidateStruct(s any) []ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Field: "", Message: err.Error()}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, param)
		case "eqfield":
			message = fmt.Sprintf("%s must match %s", field, strings.ToLower(param[:1])+param[1:])
		case "isbn":
			message = fmt.Sprintf("%s must be a valid ISBN-10 or ISBN-13", field)
		case "password_strength":
			message = fmt.Sprintf("%s must be at least 8 characters with uppercase, lowercase, number, and special character", field)
			if v, ok := fe.Value().(string); ok {
				if err := crypto.ValidatePasswordStrength(v); err != nil {
					message = err.Error()
				}
			}
		case "username":
			message = fmt.Sprintf("%s must be 3-30 letters, digits or underscores", field)
		case "book_format":
			message = fmt.Sprintf("%s must be one of paperback, hardcover, ebook, audiobook, pdf", field)
		case "gender":
			message = fmt.Sprintf("%s must be one of male, female, other, prefer_not_to_say", field)
		case "theme":
			message = fmt.Sprintf("%s must be one of light, dark, auto", field)
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", field, param)
		case "lte":
			message = fmt.Sprintf("%s must be less than or equal to %s", field, param)
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", field, param)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{
			Field:   field,
			Message: message,
		})
	}

	return details
}
