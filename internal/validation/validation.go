package validation

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Errors collects field-level validation messages. Checks never fail
// fast; every offending field is reported in one response, and nothing
// is written while the map is non-empty.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// Required flags empty string values.
func (e Errors) Required(field, value string) {
	if value == "" {
		e.Add(field, "This field is required.")
	}
}

// Email flags a malformed address; empty values are left to Required.
func (e Errors) Email(field, value string) {
	if value == "" {
		return
	}
	if err := validate.Var(value, "email"); err != nil {
		e.Add(field, "Invalid email format.")
	}
}

// Length enforces string length bounds; zero disables a bound.
func (e Errors) Length(field, value string, min, max int) {
	if value == "" {
		return
	}
	if min > 0 && len(value) < min {
		e.Add(field, "Length must be at least "+strconv.Itoa(min)+".")
	}
	if max > 0 && len(value) > max {
		e.Add(field, "Length must not exceed "+strconv.Itoa(max)+".")
	}
}

// NonNegative flags numeric values below zero.
func (e Errors) NonNegative(field string, value float64) {
	if value < 0 {
		e.Add(field, "Must be a positive number.")
	}
}

// Unique flags a value already taken elsewhere.
func (e Errors) Unique(field string, taken bool) {
	if taken {
		e.Add(field, "This "+field+" already exists.")
	}
}
