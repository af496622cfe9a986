// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package validator wraps go-playground/validator with the custom validations
// used by the API layer. All handlers share a single underlying validator
// instance.
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator validates structs and single values.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator backed by the shared validator instance.
func New() *Validator {
	once.Do(func() {
		instance = validator.New()

		// Report field names from json tags so validation errors match the
		// wire format.
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		instance.RegisterValidation("notepath", validateNotePath)
		instance.RegisterValidation("gitremote", validateGitRemote)
		instance.RegisterValidation("cron", validateCron)
		instance.RegisterValidation("port", validatePort)
	})
	return &Validator{v: instance}
}

// Validate validates a struct using its validate tags.
func (val *Validator) Validate(s interface{}) error {
	return val.v.Struct(s)
}

// ValidateVar validates a single value against a tag expression.
func (val *Validator) ValidateVar(value interface{}, tag string) error {
	return val.v.Var(value, tag)
}

// ValidationErrors converts a validation error into a field -> message map.
// Non-validation errors are reported under the "_error" key.
func (val *Validator) ValidationErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_error": err.Error()}
	}

	result := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = strings.ToLower(fe.StructField())
		}
		result[field] = formatValidationError(fe)
	}
	return result
}

// formatValidationError produces a short human-readable message for a single
// field error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "notepath":
		return "must be a safe relative path"
	case "gitremote":
		return "must be an HTTPS git URL or owner/repo"
	case "cron":
		return "must be a valid cron expression"
	case "port":
		return "must be a valid TCP port (1-65535)"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ============================================================================
// Custom validations
// ============================================================================

// validateNotePath accepts relative paths that stay inside the notes root:
// no absolute paths, no backslashes, no empty or dot-dot segments.
func validateNotePath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// validateGitRemote accepts an https:// git URL or a bare owner/repo form.
func validateGitRemote(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "https://") {
		return len(s) > len("https://")
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}
	return parts[0] != "" && parts[1] != ""
}

// validateCron accepts 5-field (standard) or 6-field (with seconds) cron
// expressions. Field contents are validated by the cron library at use time;
// this only rejects obviously malformed input.
func validateCron(fl validator.FieldLevel) bool {
	fields := strings.Fields(fl.Field().String())
	return len(fields) == 5 || len(fields) == 6
}

// validatePort accepts TCP port numbers.
func validatePort(fl validator.FieldLevel) bool {
	port := fl.Field().Int()
	return port >= 1 && port <= 65535
}

// ============================================================================
// Global convenience functions
// ============================================================================

// Validate validates a struct using the shared validator.
func Validate(s interface{}) error {
	return New().Validate(s)
}

// ValidateVar validates a single value using the shared validator.
func ValidateVar(value interface{}, tag string) error {
	return New().ValidateVar(value, tag)
}

// GetValidationErrors converts a validation error into a field -> message map.
func GetValidationErrors(err error) map[string]string {
	return New().ValidationErrors(err)
}
