package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Required fails for empty or whitespace-only strings.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required", Key: "validation.required"},
	}
}

// MaxLen fails when value has more than max characters (runes).
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", max),
			Key:     "validation.max_length",
		},
	}
}

// MinLen fails when value has fewer than min characters (runes).
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", min),
			Key:     "validation.min_length",
		},
	}
}

// OneOf fails when value is not in options.
func OneOf[T comparable](field string, value T, options []T) Rule {
	return Rule{
		Check: func() bool {
			for _, o := range options {
				if value == o {
					return true
				}
			}
			return false
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %v", options),
			Key:     "validation.in_list",
		},
	}
}

// NotEmptySlice fails for nil or empty slices.
func NotEmptySlice[T any](field string, value []T) Rule {
	return Rule{
		Check: func() bool { return len(value) > 0 },
		Error: ValidationError{Field: field, Message: "must contain at least one item", Key: "validation.required"},
	}
}

// MaxItems fails when value has more than max elements.
func MaxItems[T any](field string, value []T, max int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= max },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must contain at most %d items", max),
			Key:     "validation.max_items",
		},
	}
}

// PositiveIDs fails when any id is zero or negative.
func PositiveIDs(field string, ids []int64) Rule {
	return Rule{
		Check: func() bool {
			for _, id := range ids {
				if id <= 0 {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must contain only positive ids", Key: "validation.positive"},
	}
}
