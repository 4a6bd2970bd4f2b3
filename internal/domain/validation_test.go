package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateEntityType(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		wantErr bool
	}{
		{name: "project", typ: "project", wantErr: false},
		{name: "folder", typ: "folder", wantErr: false},
		{name: "file", typ: "file", wantErr: false},
		{name: "link", typ: "link", wantErr: false},
		{name: "table", typ: "table", wantErr: false},
		{name: "docker repo", typ: "dockerrepo", wantErr: true},
		{name: "empty", typ: "", wantErr: true},
		{name: "uppercase", typ: "FILE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntityType(tt.typ)
			if tt.wantErr && err == nil {
				t.Error("ValidateEntityType() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateEntityType() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateExcludeTypes(t *testing.T) {
	tests := []struct {
		name    string
		types   []EntityType
		wantErr bool
	}{
		{name: "nil", types: nil, wantErr: false},
		{name: "all copyable", types: CopyableTypes, wantErr: false},
		{name: "table only", types: []EntityType{EntityTypeTable}, wantErr: false},
		{name: "folder", types: []EntityType{EntityTypeFolder}, wantErr: true},
		{name: "project", types: []EntityType{EntityTypeFile, EntityTypeProject}, wantErr: true},
		{name: "unknown", types: []EntityType{"view"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExcludeTypes(tt.types)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsValueError(err) {
					t.Errorf("expected ValueError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseEntityTypes(t *testing.T) {
	types, err := ParseEntityTypes(" file, Table ,,link")
	if err != nil {
		t.Fatalf("ParseEntityTypes failed: %v", err)
	}
	want := []EntityType{EntityTypeFile, EntityTypeTable, EntityTypeLink}
	if len(types) != len(want) {
		t.Fatalf("expected %d types, got %d", len(want), len(types))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	if types, err := ParseEntityTypes(""); err != nil || types != nil {
		t.Errorf("empty input: got %v, %v", types, err)
	}
	if _, err := ParseEntityTypes("file,bogus"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "data.csv", wantErr: false},
		{name: "spaces", input: "My Folder", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "slash", input: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr && err == nil {
				t.Error("ValidateName() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateName() unexpected error: %v", err)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	nf := fmt.Errorf("get entity: %w", &NotFoundError{Resource: "entity", ID: "syn1"})
	if !IsNotFound(nf) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsValueError(nf) || IsForbidden(nf) {
		t.Error("NotFoundError misclassified")
	}
	if nf.Error() != "get entity: entity not found: syn1" {
		t.Errorf("unexpected message: %q", nf.Error())
	}

	ve := NewValueError("destinationId cannot be the same as entity id (%s)", "syn2")
	var target *ValueError
	if !errors.As(fmt.Errorf("copy: %w", ve), &target) {
		t.Fatal("errors.As failed for ValueError")
	}
	if target.Message != "destinationId cannot be the same as entity id (syn2)" {
		t.Errorf("unexpected message: %q", target.Message)
	}

	if !IsForbidden(&ForbiddenError{Message: "no"}) {
		t.Error("IsForbidden failed")
	}
}
