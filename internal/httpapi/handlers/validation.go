package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"scenecast/internal/httpkit"
	apperrors "scenecast/internal/pkg/errors"
)

const reasonJobKey = "must be 1-128 letters, digits, '_' or '-'"

var (
	hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	jobKeyRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
		return hexColorRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("jobkey", func(fl validator.FieldLevel) bool {
		return jobKeyRe.MatchString(fl.Field().String())
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := httpkit.DecodeJSON(w, r, dst); err != nil {
		return apperrors.Validation("invalid json body").WithField("reason", err.Error())
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError turns validator output into a VALIDATION_ERROR whose
// "fields" detail maps each offending field to a reason.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe)
	}
	first := verrs[0]
	return apperrors.Validation(first.Field()+": "+reason(first)).WithField("fields", fields)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "hexcolor6":
		return "must be a #RRGGBB colour"
	case "jobkey":
		return reasonJobKey
	default:
		return "failed " + fe.Tag() + " check"
	}
}
