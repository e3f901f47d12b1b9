package expense

import (
	"strings"
	"testing"

	"expense-cli/internal/api"
)

func validForm() api.ExpenseForm {
	return api.ExpenseForm{
		StateID:             "MH",
		EmbossingCenterName: "Pune Central",
		Month:               "March",
		Year:                2026,
		Category:            "Travel",
		Price:               1250.50,
	}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	if err := validate(validForm()); err != nil {
		t.Fatalf("validate(valid form) = %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*api.ExpenseForm)
		want   string
	}{
		{"missing state", func(f *api.ExpenseForm) { f.StateID = "" }, "state is required"},
		{"missing center", func(f *api.ExpenseForm) { f.EmbossingCenterName = "" }, "embossing center"},
		{"bad month", func(f *api.ExpenseForm) { f.Month = "Marchtober" }, "unknown month"},
		{"year too early", func(f *api.ExpenseForm) { f.Year = 1999 }, "out of range"},
		{"bad category", func(f *api.ExpenseForm) { f.Category = "Bribes" }, "unknown category"},
		{"zero price", func(f *api.ExpenseForm) { f.Price = 0 }, "price must be positive"},
		{"negative price", func(f *api.ExpenseForm) { f.Price = -10 }, "price must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(&form)
			err := validate(form)
			if err == nil {
				t.Fatal("validate accepted the form")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestValidCategoryIgnoresCase(t *testing.T) {
	if !ValidCategory("travel") || !ValidCategory("TRAVEL") {
		t.Fatal("category match is case sensitive")
	}
	if ValidCategory("") {
		t.Fatal("empty category accepted")
	}
}

func TestValidMonthIgnoresCase(t *testing.T) {
	if !ValidMonth("march") {
		t.Fatal("month match is case sensitive")
	}
	if ValidMonth("Smarch") {
		t.Fatal("made-up month accepted")
	}
}
