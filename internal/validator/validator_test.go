package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type templateInput struct {
	Frequency string          `validate:"required,frequency"`
	Amount    decimal.Decimal `validate:"decimal_positive"`
}

type budgetInput struct {
	CycleType string           `validate:"omitempty,cycle_type"`
	Limit     *decimal.Decimal `validate:"omitempty,decimal_positive"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func TestFrequencyAndDecimal(t *testing.T) {
	v := newValidate()

	tests := []struct {
		name    string
		input   templateInput
		wantErr bool
	}{
		{"daily positive", templateInput{"DAILY", decimal.RequireFromString("9.99")}, false},
		{"monthly positive", templateInput{"MONTHLY", decimal.NewFromInt(1)}, false},
		{"lowercase frequency", templateInput{"weekly", decimal.NewFromInt(1)}, true},
		{"unknown frequency", templateInput{"YEARLY", decimal.NewFromInt(1)}, true},
		{"zero amount", templateInput{"DAILY", decimal.Zero}, true},
		{"negative amount", templateInput{"DAILY", decimal.NewFromInt(-5)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCycleTypeAndOptionalDecimal(t *testing.T) {
	v := newValidate()
	neg := decimal.NewFromInt(-1)
	pos := decimal.RequireFromString("250.00")

	tests := []struct {
		name    string
		input   budgetInput
		wantErr bool
	}{
		{"empty is allowed", budgetInput{}, false},
		{"weekly", budgetInput{CycleType: "WEEKLY"}, false},
		{"bad cycle", budgetInput{CycleType: "YEARLY"}, true},
		{"positive limit", budgetInput{Limit: &pos}, false},
		{"negative limit", budgetInput{Limit: &neg}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
