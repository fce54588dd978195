// Moodloop - Affect-Aware Content Recommendation Service
// Copyright 2026 M. Laurel (moodloop)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/moodloop/moodloop

// Package validation wraps go-playground/validator v10 behind a singleton
// and translates field errors into the API envelope's error shape
// (code E003, details carrying the offending fields).
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CodeInvalidInput is the stable error code for bad payloads.
const CodeInvalidInput = "E003"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one field's validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// RequestError aggregates a payload's validation failures.
type RequestError struct {
	fields []FieldError
}

// Fields returns the individual failures.
func (re *RequestError) Fields() []FieldError {
	return re.fields
}

func (re *RequestError) Error() string {
	if len(re.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(re.fields))
	for i, f := range re.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Details renders the failures for the envelope's error details object.
func (re *RequestError) Details() map[string]any {
	if len(re.fields) == 1 {
		f := re.fields[0]
		return map[string]any{"field": f.Field, "tag": f.Tag}
	}
	fields := make([]map[string]any, len(re.fields))
	for i, f := range re.fields {
		fields[i] = map[string]any{"field": f.Field, "tag": f.Tag, "message": f.Message}
	}
	return map[string]any{"fields": fields}
}

// Validator returns the singleton instance. Thread-safe; struct metadata is
// cached across calls.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a tagged struct. Returns nil on success.
func ValidateStruct(s any) *RequestError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestError{fields: []FieldError{{
			Field: "unknown", Tag: "unknown", Message: err.Error(),
		}}}
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return &RequestError{fields: fields}
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"oneof":    "%s must be one of: %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"gt":       "%s must be greater than %s",
	"lt":       "%s must be less than %s",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()
	template, ok := messageTemplates[tag]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
	if strings.Count(template, "%s") == 2 {
		return fmt.Sprintf(template, field, param)
	}
	return fmt.Sprintf(template, field)
}
