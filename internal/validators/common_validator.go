package validators

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

var currencyCodeRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

func init() {
	validate = validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("currency_code", validateCurrencyCode)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into the field => message map used by the API
// error envelope.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "body", Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	numeric := false
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "currency_code":
		return "Invalid currency code"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	_, err := primitive.ObjectIDFromHex(value)
	return err == nil
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRegex.MatchString(fl.Field().String())
}

func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
