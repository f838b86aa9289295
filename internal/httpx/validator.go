package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"openbook/internal/platform/crypto"
)

var validate *validator.Validate

var nationalIDRe = regexp.MustCompile(`^\d{7,12}$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
	_ = validate.RegisterValidation("national_id", validateNationalID)
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	return crypto.ValidatePasswordStrength(fl.Field().String()) == nil
}

func validateNationalID(fl validator.FieldLevel) bool {
	return nationalIDRe.MatchString(fl.Field().String())
}

// ValidateStruct returns one detail per failing field, or nil.
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
			message = fmt.Sprintf("%s must be at least %s characters", field, param)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, param)
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", field, param)
		case "password_strength":
			message = fmt.Sprintf("%s must be at least 8 characters with uppercase, lowercase and a number", field)
		case "national_id":
			message = fmt.Sprintf("%s must contain 7 to 12 digits", field)
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", field, param)
		case "lte":
			message = fmt.Sprintf("%s must be less than or equal to %s", field, param)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, ErrorDetail{Field: field, Message: message})
	}
	return details
}

// DecodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes the error response and returns false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return false
	}
	if details := ValidateStruct(dst); details != nil {
		JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return false
	}
	return true
}
