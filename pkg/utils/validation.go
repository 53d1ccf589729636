package utils

import (
	"fmt"
	"strings"
)

// ValidateExtension checks if a file extension is in the allowed list
func ValidateExtension(ext string, allowed []string) bool {
	if ext == "" || len(allowed) == 0 {
		return false
	}

	normalizedExt := NormalizeExtension(ext)
	for _, allowedExt := range allowed {
		if normalizedExt == NormalizeExtension(allowedExt) {
			return true
		}
	}

	return false
}

// NormalizeExtension lowercases ext and ensures it starts with a dot
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ValidateNonEmpty checks if a string is not empty after trimming
func ValidateNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidatePositiveInt checks if an integer is positive
func ValidatePositiveInt(value int, fieldName string) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", fieldName, value)
	}
	return nil
}

// ValidateRange checks if a value is within a specified range
func ValidateRange(value, min, max int, fieldName string) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d, got: %d",
			fieldName, min, max, value)
	}
	return nil
}

// ValidateOneOf checks if a value is one of the allowed values
func ValidateOneOf(value string, allowed []string, fieldName string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}

	return fmt.Errorf("%s must be one of %v, got: %s",
		fieldName, allowed, value)
}
