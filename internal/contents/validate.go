package contents

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/figlinq/contents-gateway/internal/apperr"
)

// ValidateEntry asserts the structural invariants of an Entry before it is
// handed to the caller. Checks run in a fixed order and the first violation
// is fatal; a malformed entry is never repaired.
func ValidateEntry(e Entry) error {
	if strings.HasPrefix(e.Path, "/") {
		return &apperr.ValidationError{Field: "path", Reason: "must not carry a leading slash"}
	}
	if err := validation.Validate(string(e.Type),
		validation.Required,
		validation.In(string(TypeDirectory), string(TypeFile), string(TypeNotebook)),
	); err != nil {
		return &apperr.ValidationError{Field: "type", Reason: err.Error()}
	}
	if err := validation.Validate(e.Created, validation.Required); err != nil {
		return &apperr.ValidationError{Field: "created", Reason: err.Error()}
	}
	if err := validation.Validate(e.LastModified, validation.Required); err != nil {
		return &apperr.ValidationError{Field: "last_modified", Reason: err.Error()}
	}
	if e.Format != nil {
		if err := validation.Validate(*e.Format, validation.In("json", "text")); err != nil {
			return &apperr.ValidationError{Field: "format", Reason: err.Error()}
		}
	}
	return validateContent(e)
}

// validateContent checks the content field against the entry type. Directory
// content is an ordered sequence of child entries, one level deep, each with
// content null; notebook content must ride with a json format.
func validateContent(e Entry) error {
	switch e.Type {
	case TypeDirectory:
		if e.Content == nil {
			return nil
		}
		children, ok := e.Content.([]Entry)
		if !ok {
			return &apperr.ValidationError{Field: "content", Reason: "must be a sequence of entries for a directory"}
		}
		for _, child := range children {
			if child.Content != nil {
				return &apperr.ValidationError{Field: "content", Reason: "directory children must not carry content"}
			}
			if err := ValidateEntry(child); err != nil {
				return err
			}
		}
	case TypeNotebook:
		if e.Content != nil && (e.Format == nil || *e.Format != "json") {
			return &apperr.ValidationError{Field: "format", Reason: "must be json for notebook content"}
		}
	}
	return nil
}
