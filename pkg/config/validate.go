package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("invalid mws config")

	// ErrUnknownSite is returned for an Amazon site without a marketplace or endpoint.
	ErrUnknownSite = errors.New("unknown amazon site")
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field string
	Rule  string
}

// FieldErrors collects every failed rule of a configuration.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Rule
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets callers match ErrInvalidConfig with errors.Is.
func (fe FieldErrors) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks required credentials, identifiers and value ranges.
func (c *PoolConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}

		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			rule := verror.Tag()
			if verror.Param() != "" {
				rule += "=" + verror.Param()
			}
			fields = append(fields, FieldError{
				Field: strings.TrimPrefix(verror.Namespace(), "PoolConfig."),
				Rule:  rule,
			})
		}
		return fields
	}

	if _, err := c.MarketplaceID(c.AmazonSite); err != nil {
		return err
	}
	return nil
}
