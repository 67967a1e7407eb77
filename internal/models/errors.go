// Package models defines the data structures for the plan eligibility engine.
package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Common errors
var (
	ErrInvalidClientProfile = errors.New("invalid client profile")
	ErrInvalidPlan          = errors.New("invalid insurance plan")
	ErrEmptyClientID        = errors.New("client_id cannot be empty")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report json names so errors match the request body.
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

// ValidateClientProfile validates intake data for a client and their dependents.
// Callers normalize the profile first so the state is already uppercased.
func ValidateClientProfile(c *ClientProfile) error {
	if c == nil {
		return fmt.Errorf("%w: profile is required", ErrInvalidClientProfile)
	}
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClientProfile, describeValidationErrors(err))
	}
	return nil
}

// ValidatePlan validates a catalog plan before it is stored.
func ValidatePlan(p *InsurancePlan) error {
	if p == nil {
		return fmt.Errorf("%w: plan is required", ErrInvalidPlan)
	}
	if err := getValidator().Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, describeValidationErrors(err))
	}
	return nil
}

// IsValidationError reports whether err is an intake validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidClientProfile) || errors.Is(err, ErrInvalidPlan) || errors.Is(err, ErrEmptyClientID)
}

// describeValidationErrors flattens validator errors into "field (tag)" pairs.
func describeValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s (%s)", trimNamespace(fe.Namespace()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// trimNamespace drops the root struct name from a validator namespace.
func trimNamespace(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
