package expense

import (
	"strings"
	"testing"

	"expense-cli/internal/api"
)

func TestRenderTableEmpty(t *testing.T) {
	if got := RenderTable(nil); got != "No expenses recorded." {
		t.Fatalf("RenderTable(nil) = %q", got)
	}
}

func TestRenderTableSumsTotal(t *testing.T) {
	rows := []api.Expense{
		{Month: "March", Year: 2026, EmbossingCenterName: "Pune", Category: "Travel", Price: 100},
		{Month: "April", Year: 2026, EmbossingCenterName: "Pune", Category: "Food & Dining", Price: 250.50},
	}
	out := RenderTable(rows)
	if !strings.Contains(out, "Total: ₹350.50") {
		t.Fatalf("output missing total:\n%s", out)
	}
	for _, want := range []string{"MONTH", "March", "April", "₹100.00", "₹250.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
