package handler

import (
	"errors"
	"regexp"
	"strings"

	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/pkg/apierror"

	"github.com/go-playground/validator/v10"
)

var (
	validate    *validator.Validate
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	// ZIP, ZIP+4 or another all-digit postal code.
	zipPattern = regexp.MustCompile(`^[0-9]{1,10}(?:-[0-9]{4})?$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return catalog.IsCategory(strings.ToLower(fl.Field().String()))
	})
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	})
	validate.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipPattern.MatchString(fl.Field().String())
	})
}

// validationError converts validator output to a 400 API error.
func validationError(err error) *apierror.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.BadRequest(err.Error())
	}

	details := make([]apierror.FieldError, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, apierror.FieldError{
			Field:   strings.ToLower(e.Field()),
			Message: validationMessage(e),
		})
	}
	return apierror.ValidationError("invalid request", details...)
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max", "lte":
		return e.Field() + " must be at most " + e.Param()
	case "gte":
		return e.Field() + " must be at least " + e.Param()
	case "category":
		return e.Field() + " must be one of " + strings.Join(catalog.Taxonomy, ", ")
	case "slug":
		return e.Field() + " must be a store slug"
	case "zipcode":
		return e.Field() + " must be a numeric postal code, optionally ZIP+4"
	default:
		return e.Field() + " is invalid"
	}
}
