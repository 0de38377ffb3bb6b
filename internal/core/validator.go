package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"growthwatch/internal/types"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator. Field names in errors use the
// json tag so clients see the names they sent.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// growth_sex accepts only the canonical sex values; handlers normalize
	// aliases with types.ParseSex before validating.
	_ = v.RegisterValidation("growth_sex", func(fl validator.FieldLevel) bool {
		return types.Sex(fl.Field().String()).Valid()
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s and returns a *types.AppError describing every
// failed field, or nil.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	details := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, ValidationError{
			Field:   fieldPath(fe),
			Code:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}

	first := fieldErrs[0]
	return types.NewAppErrorWithDetails(
		codeForTag(first),
		details[0].Message,
		err,
		map[string]any{"fields": details},
	)
}

// fieldPath strips the root struct name from the namespace:
// "Measurement.weight_kg" becomes "weight_kg", "AssessRequest.visits[2].date"
// becomes "visits[2].date".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func codeForTag(fe validator.FieldError) types.ErrorCode {
	switch fe.Tag() {
	case "required":
		return types.ErrCodeValidationMissingField
	case "growth_sex":
		return types.ErrCodeValidationInvalidSex
	case "oneof":
		if fe.Field() == "sex" {
			return types.ErrCodeValidationInvalidSex
		}
		return types.ErrCodeValidationInvalidRequest
	case "gt", "gte", "lt", "lte", "min", "max":
		if fe.Kind() == reflect.Slice && fe.Field() == "items" {
			return types.ErrCodeValidationBatchSize
		}
		return types.ErrCodeValidationOutOfRange
	default:
		return types.ErrCodeValidationInvalidRequest
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "growth_sex":
		return fmt.Sprintf("%s must be male or female", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "lte", "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}
