package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name   string  `json:"name" validate:"required,min=2"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Count  *int    `json:"count" validate:"omitempty,gt=0"`
	Status *string `json:"status" validate:"omitempty,oneof=open closed"`
}

func TestValidateStruct(t *testing.T) {
	zero, open, bogus := 0, "open", "lost"

	assert.NoError(t, ValidateStruct(sample{Name: "Sara", Status: &open}))
	assert.EqualError(t, ValidateStruct(sample{}), "name is required")
	assert.EqualError(t, ValidateStruct(sample{Name: "S"}), "name must be at least 2")
	assert.EqualError(t, ValidateStruct(sample{Name: "Sara", Email: "nope"}), "email must be a valid email")
	assert.EqualError(t, ValidateStruct(sample{Name: "Sara", Count: &zero}), "count must be greater than 0")
	assert.EqualError(t, ValidateStruct(sample{Name: "Sara", Status: &bogus}), "status must be one of: open closed")
}
