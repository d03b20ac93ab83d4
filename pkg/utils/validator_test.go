package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type slotPayload struct {
	Date string `validate:"required,datetime=2006-01-02"`
	Slot string `validate:"required,slot"`
}

func TestValidateStructSlotTag(t *testing.T) {
	assert.Empty(t, ValidateStruct(slotPayload{Date: "2024-06-01", Slot: "18:00-19:00"}))

	errs := ValidateStruct(slotPayload{Date: "01/06/2024", Slot: "19:00-18:00"})
	assert.Contains(t, errs, "Date")
	assert.Contains(t, errs, "Slot")
	assert.Equal(t, "Must be HH:MM-HH:MM with start before end", errs["Slot"])
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, ParseInt("3", 1))
	assert.Equal(t, 1, ParseInt("", 1))
	assert.Equal(t, 1, ParseInt("x", 1))
	assert.Equal(t, 10, ParseInt("0", 10))
}
