package httpapi

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/model"
)

const dateLayout = "2006-01-02"

const (
	errInvalidFormat     = "Invalid format"
	errFieldRequired     = "Field is required"
	errFieldExceedsMax   = "Field exceeds maximum length"
	errFieldBelowMin     = "Field is below minimum length"
	errValueExceedsMax   = "Field exceeds maximum value"
	errValueBelowMin     = "Field is below minimum value"
	errUnknownValidation = "Unknown validation error"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.ValidCategory(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// bind decodes the JSON body into req and validates its `validate` tags.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "Invalid JSON body", err)
	}
	return validationError(validate.StructCtx(c.Request.Context(), req))
}

// bindOptional is bind for endpoints whose body may be omitted.
func bindOptional(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return bind(c, req)
}

// validationError turns the first failed rule into an InvalidInput error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return apperr.Wrap(apperr.InvalidInput, errInvalidFormat, err)
	}
	ve := vErrs[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = errFieldRequired
	case "email", "date":
		msg = errInvalidFormat
	case "max":
		msg = errFieldExceedsMax
	case "min":
		msg = errFieldBelowMin
	case "lt", "lte":
		msg = errValueExceedsMax
	case "gt", "gte":
		msg = errValueBelowMin
	case "category":
		msg = "Invalid event category"
	case "role":
		msg = "Invalid role"
	case "oneof":
		msg = "Value must be one of " + ve.Param()
	default:
		msg = errUnknownValidation
	}
	return apperr.New(apperr.InvalidInput, msg+": "+ve.Field())
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return t, apperr.Wrap(apperr.InvalidInput, "Invalid date, expected YYYY-MM-DD", err)
	}
	return t, nil
}
