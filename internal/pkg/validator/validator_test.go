// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

package validator

import (
	"testing"
)

// ============================================================================
// New
// ============================================================================

func TestNew(t *testing.T) {
	v := New()
	if v == nil {
		t.Fatal("New() returned nil")
	}
	if v.v == nil {
		t.Fatal("New() returned Validator with nil inner validator")
	}
}

func TestNew_Singleton(t *testing.T) {
	v1 := New()
	v2 := New()
	// Both should use the same underlying validator (sync.Once)
	if v1.v != v2.v {
		t.Error("New() should return Validators sharing the same underlying instance")
	}
}

// ============================================================================
// Validate struct
// ============================================================================

type testStruct struct {
	Name  string `json:"name" validate:"required,min=3,max=50"`
	Email string `json:"email" validate:"required,email"`
	Mode  string `json:"mode" validate:"required,oneof=local github"`
}

func TestValidate_ValidStruct(t *testing.T) {
	v := New()
	s := testStruct{Name: "notebook", Email: "test@example.com", Mode: "local"}

	if err := v.Validate(s); err != nil {
		t.Errorf("Validate() should pass for valid struct, got: %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	v := New()
	s := testStruct{} // All fields empty

	if err := v.Validate(s); err == nil {
		t.Error("Validate() should fail for empty required fields")
	}
}

func TestValidate_InvalidEmail(t *testing.T) {
	v := New()
	s := testStruct{Name: "notebook", Email: "not-an-email", Mode: "local"}

	if err := v.Validate(s); err == nil {
		t.Error("Validate() should fail for invalid email")
	}
}

func TestValidate_InvalidMode(t *testing.T) {
	v := New()
	s := testStruct{Name: "notebook", Email: "test@example.com", Mode: "svn"}

	if err := v.Validate(s); err == nil {
		t.Error("Validate() should fail for mode not in oneof")
	}
}

func TestValidate_NameTooShort(t *testing.T) {
	v := New()
	s := testStruct{Name: "ab", Email: "test@example.com", Mode: "local"}

	if err := v.Validate(s); err == nil {
		t.Error("Validate() should fail for name shorter than min")
	}
}

// ============================================================================
// ValidateVar
// ============================================================================

func TestValidateVar_Email(t *testing.T) {
	v := New()
	if err := v.ValidateVar("test@example.com", "required,email"); err != nil {
		t.Errorf("ValidateVar should pass for valid email: %v", err)
	}
	if err := v.ValidateVar("not-email", "required,email"); err == nil {
		t.Error("ValidateVar should fail for invalid email")
	}
}

func TestValidateVar_Required(t *testing.T) {
	v := New()
	if err := v.ValidateVar("", "required"); err == nil {
		t.Error("ValidateVar should fail for empty required field")
	}
}

// ============================================================================
// ValidationErrors
// ============================================================================

func TestValidationErrors_ValidInput(t *testing.T) {
	v := New()
	errs := v.ValidationErrors(nil)
	if errs != nil {
		t.Error("ValidationErrors(nil) should return nil")
	}
}

func TestValidationErrors_InvalidInput(t *testing.T) {
	v := New()
	s := testStruct{} // All empty
	err := v.Validate(s)
	if err == nil {
		t.Fatal("expected validation error")
	}

	errs := v.ValidationErrors(err)
	if errs == nil {
		t.Fatal("ValidationErrors should return field errors")
	}

	// Should have errors for name, email, mode
	if _, ok := errs["name"]; !ok {
		t.Error("should have error for 'name' field")
	}
	if _, ok := errs["email"]; !ok {
		t.Error("should have error for 'email' field")
	}
	if _, ok := errs["mode"]; !ok {
		t.Error("should have error for 'mode' field")
	}
}

func TestValidationErrors_NonValidationError(t *testing.T) {
	v := New()
	errs := v.ValidationErrors(errSample)
	if errs == nil {
		t.Fatal("ValidationErrors should return map for non-validation errors")
	}
	if _, ok := errs["_error"]; !ok {
		t.Error("should have _error key for non-validation errors")
	}
}

// ============================================================================
// Custom validations: notepath
// ============================================================================

type notePathStruct struct {
	Path string `json:"path" validate:"required,notepath"`
}

func TestCustomValidation_NotePath(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "note.md", false},
		{"nested", "projects/ideas.md", false},
		{"deeply nested", "a/b/c/d.md", false},
		{"dotfile name", ".gitignore", false},
		{"absolute", "/etc/passwd", true},
		{"dot dot", "../escape.md", true},
		{"embedded dot dot", "notes/../../escape.md", true},
		{"backslash", "notes\\evil.md", true},
		{"empty segment", "notes//x.md", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := notePathStruct{Path: tt.input}
			err := v.Validate(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("path %q: error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// Custom validations: gitremote
// ============================================================================

type remoteStruct struct {
	Remote string `json:"remote" validate:"required,gitremote"`
}

func TestCustomValidation_GitRemote(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https url", "https://github.com/user/notes.git", false},
		{"owner repo", "user/notes", false},
		{"ssh url", "git@github.com:user/notes.git", true},
		{"bare name", "notes", true},
		{"too many segments", "a/b/c", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := remoteStruct{Remote: tt.input}
			err := v.Validate(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("remote %q: error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// Custom validations: cron
// ============================================================================

type cronStruct struct {
	Cron string `json:"cron" validate:"required,cron"`
}

func TestCustomValidation_Cron(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"5 fields", "0 * * * *", false},
		{"6 fields", "0 0 * * * *", false},
		{"daily", "0 0 * * *", false},
		{"too few fields", "* *", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cronStruct{Cron: tt.input}
			err := v.Validate(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("cron %q: error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ============================================================================
// Custom validations: port
// ============================================================================

type portStruct struct {
	Port int `json:"port" validate:"required,port"`
}

func TestCustomValidation_Port(t *testing.T) {
	v := New()

	tests := []struct {
		port    int
		wantErr bool
	}{
		{80, false},
		{443, false},
		{8080, false},
		{65535, false},
		{1, false},
		{0, true},
		{65536, true},
		{-1, true},
	}

	for _, tt := range tests {
		s := portStruct{Port: tt.port}
		err := v.Validate(s)
		if (err != nil) != tt.wantErr {
			t.Errorf("port %d: error = %v, wantErr = %v", tt.port, err, tt.wantErr)
		}
	}
}

// ============================================================================
// Global convenience functions
// ============================================================================

func TestGlobalValidate(t *testing.T) {
	s := testStruct{Name: "notebook", Email: "test@example.com", Mode: "github"}
	if err := Validate(s); err != nil {
		t.Errorf("global Validate() should pass: %v", err)
	}
}

func TestGlobalValidateVar(t *testing.T) {
	if err := ValidateVar("test@example.com", "email"); err != nil {
		t.Errorf("global ValidateVar() should pass for valid email: %v", err)
	}
}

func TestGetValidationErrors(t *testing.T) {
	s := testStruct{} // all empty
	err := Validate(s)
	if err == nil {
		t.Fatal("expected error")
	}
	errs := GetValidationErrors(err)
	if errs == nil {
		t.Fatal("GetValidationErrors should return errors")
	}
}

// ============================================================================
// formatValidationError coverage
// ============================================================================

func TestFormatValidationError_Messages(t *testing.T) {
	v := New()

	type testInput struct {
		Required string `json:"required" validate:"required"`
		Email    string `json:"email" validate:"email"`
		Min      string `json:"min" validate:"min=3"`
		Max      string `json:"max" validate:"max=5"`
		OneOf    string `json:"oneof" validate:"oneof=a b c"`
	}

	s := testInput{Min: "a", Max: "toolong", OneOf: "x"}
	err := v.Validate(s)
	if err == nil {
		t.Fatal("expected validation error")
	}

	errs := v.ValidationErrors(err)
	if errs == nil {
		t.Fatal("ValidationErrors should return map")
	}

	if msg, ok := errs["required"]; ok {
		if msg != "is required" {
			t.Errorf("required error = %q, want 'is required'", msg)
		}
	}
}

// sample error for testing
var errSample = &sampleError{}

type sampleError struct{}

func (e *sampleError) Error() string { return "sample error" }
