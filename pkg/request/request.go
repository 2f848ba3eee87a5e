package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"freight-service/pkg/response"
	"freight-service/pkg/validation"
)

const maxBodySize = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report json names in field errors
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validation.ValidatePhone(fl.Field().String())
	})
}

// ReadJSON decodes a single JSON value from the body into dst.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return errors.New("malformed JSON")
		case errors.As(err, &unmarshalTypeError):
			return errors.New("invalid JSON type for field " + unmarshalTypeError.Field)
		case errors.As(err, &maxBytesError):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("malformed JSON")
		default:
			return err
		}
	}

	if decoder.More() {
		return errors.New("body must contain only a single JSON value")
	}
	return nil
}

// ReadAndValidate reads JSON and validates it using struct tags.
func ReadAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := ReadJSON(w, r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// Validate runs the struct tag rules on dst.
func Validate(dst any) error {
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := make([]response.ErrorDetail, 0, len(validationErrors))
			for _, fe := range validationErrors {
				details = append(details, response.ErrorDetail{
					Field:   fe.Field(),
					Message: validationMessage(fe),
					Code:    fe.Tag(),
				})
			}
			return &ValidationError{Details: details}
		}
		return err
	}
	return nil
}

type ValidationError struct {
	Details []response.ErrorDetail
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// IsValidationError returns the field details when err is a ValidationError.
func IsValidationError(err error) ([]response.ErrorDetail, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Details, true
	}
	return nil, false
}

// HandleError writes the response for a decode or validation failure and
// reports whether it did.
func HandleError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	if details, ok := IsValidationError(err); ok {
		_ = response.ValidationError(w, details)
		return true
	}
	_ = response.BadRequest(w, err.Error())
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	case "lte":
		return "Value must be less than or equal to " + fe.Param()
	case "oneof":
		return "Value must be one of: " + fe.Param()
	case "uuid":
		return "Invalid identifier"
	default:
		return "Invalid value"
	}
}
