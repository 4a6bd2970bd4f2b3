package domain

import (
	"strings"
)

// CopyableTypes are the entity types a copy can be told to exclude
var CopyableTypes = []EntityType{EntityTypeFile, EntityTypeLink, EntityTypeTable}

// ValidateEntityType validates an entity type name
func ValidateEntityType(t string) error {
	switch EntityType(t) {
	case EntityTypeProject, EntityTypeFolder, EntityTypeFile, EntityTypeLink, EntityTypeTable:
		return nil
	default:
		return NewValueError("invalid entity type %q: must be one of: project, folder, file, link, table", t)
	}
}

// ValidateExcludeTypes validates the types a copy may skip
func ValidateExcludeTypes(types []EntityType) error {
	for _, t := range types {
		switch t {
		case EntityTypeFile, EntityTypeLink, EntityTypeTable:
		default:
			return NewValueError("excluded types can only be a list of these values: file, table, and link (got %q)", t)
		}
	}
	return nil
}

// ParseEntityTypes parses a comma separated list of entity types
func ParseEntityTypes(s string) ([]EntityType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var types []EntityType
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if err := ValidateEntityType(part); err != nil {
			return nil, err
		}
		types = append(types, EntityType(part))
	}
	return types, nil
}

// ValidateName validates an entity name
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValueError("entity name cannot be empty")
	}
	if len(name) > 256 {
		return NewValueError("entity name is too long: %d characters (max 256)", len(name))
	}
	if strings.ContainsAny(name, "\x00/") {
		return NewValueError("entity name contains invalid characters: %q", name)
	}
	return nil
}
