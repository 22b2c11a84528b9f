package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"url":      "%s must be a valid URL",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"max":   "%s must be at most %s",
}

// validateStruct checks s against its validate tags and converts failures
// into an invalid_argument APIError.
func validateStruct(s any) *APIError {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &APIError{Kind: KindInvalidArgument, Message: err.Error()}
	}

	messages := make([]string, 0, len(validationErrs))
	fields := make([]map[string]any, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msg := translateError(fe)
		messages = append(messages, msg)
		fields = append(fields, map[string]any{
			"field": fe.Field(),
			"tag":   fe.Tag(),
			"value": fe.Value(),
		})
	}

	return &APIError{
		Kind:    KindInvalidArgument,
		Message: strings.Join(messages, "; "),
		Details: map[string]any{"fields": fields},
	}
}

func translateError(fe validator.FieldError) string {
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field())
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
