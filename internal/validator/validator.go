package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation plus the session-specific rules.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents one failed field rule
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

// Validate validates a struct's tags, returning nil when everything
// passes.
func (v *Validator) Validate(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var out ValidationErrors
	for _, fieldErr := range err.(validator.ValidationErrors) {
		out = append(out, ValidationError{
			Field:   fieldErr.Field(),
			Message: v.errorMessage(fieldErr),
			Value:   fieldErr.Value(),
			Rule:    fieldErr.Tag(),
		})
	}
	return out
}

func (v *Validator) registerRules() {
	// Option keys are single uppercase letters ("A".."Z") plus the judge
	// keys. Anything longer is a joined list, never a single key.
	v.validate.RegisterValidation("option_key", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		if len(key) != 1 {
			return false
		}
		c := key[0]
		return c >= 'A' && c <= 'Z'
	})
}

func (v *Validator) errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "option_key":
		return "must be a single option key (A-Z)"
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}
