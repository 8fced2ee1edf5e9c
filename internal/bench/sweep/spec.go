package sweep

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPow is the largest exponent accepted; 2^30 bytes still fits an int
// buffer on 32-bit platforms.
const MaxPow = 30

// ErrInvalidSpec matches every *ValidationErrors with errors.Is.
var ErrInvalidSpec = errors.New("invalid sweep parameters")

// Spec is the size range and round count of one sweep.
type Spec struct {
	MinPow int `json:"minPow"`
	MaxPow int `json:"maxPow"`
	Rounds int `json:"rounds"`
}

// Validate checks the exponent bounds and the round count.
//
// Returns nil if valid, or a *ValidationErrors listing every violation.
func (s Spec) Validate() error {
	errs := &ValidationErrors{}

	if s.MinPow < 0 {
		errs.Add("minPow", fmt.Sprintf("must be >= 0, got %d", s.MinPow))
	}
	if s.MaxPow > MaxPow {
		errs.Add("maxPow", fmt.Sprintf("must be <= %d, got %d", MaxPow, s.MaxPow))
	}
	if s.MinPow > s.MaxPow {
		errs.Add("minPow", fmt.Sprintf("must not exceed maxPow (%d > %d)", s.MinPow, s.MaxPow))
	}
	if s.Rounds < 1 {
		errs.Add("rounds", fmt.Sprintf("must be >= 1, got %d", s.Rounds))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Sizes returns 2^p for p in [MinPow, MaxPow], ascending. The spec must be valid.
func (s Spec) Sizes() []int {
	if s.MinPow > s.MaxPow {
		return nil
	}
	sizes := make([]int, 0, s.MaxPow-s.MinPow+1)
	for p := s.MinPow; p <= s.MaxPow; p++ {
		sizes = append(sizes, 1<<p)
	}
	return sizes
}

func (s Spec) String() string {
	return fmt.Sprintf("2^%d..2^%d x %d rounds", s.MinPow, s.MaxPow, s.Rounds)
}

// ValidationError is one offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Is reports whether target is ErrInvalidSpec.
func (e *ValidationErrors) Is(target error) bool {
	return target == ErrInvalidSpec
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields lists the offending field names in order.
func (e *ValidationErrors) Fields() []string {
	fields := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		fields[i] = err.Field
	}
	return fields
}
