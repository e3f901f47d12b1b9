// Package expense holds the expense-entry domain: reference data for the
// state/month/category form fields and a thin service over the remote API.
package expense

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"expense-cli/internal/api"
)

// Categories an expense can be filed under.
var Categories = []string{
	"Travel",
	"Food & Dining",
	"Office Supplies",
	"Equipment",
	"Marketing",
	"Training",
	"Maintenance",
	"Utilities",
	"Other",
}

// Months in form order.
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if strings.EqualFold(known, c) {
			return true
		}
	}
	return false
}

// ValidMonth reports whether m is a month name.
func ValidMonth(m string) bool {
	for _, known := range Months {
		if strings.EqualFold(known, m) {
			return true
		}
	}
	return false
}

// Service wraps the expense endpoints with form validation. Validation
// failures block before any network call.
type Service struct {
	client *api.Client
	log    *zap.Logger
}

func NewService(client *api.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, log: log}
}

// States lists the filing states.
func (s *Service) States(ctx context.Context) ([]api.State, error) {
	return s.client.States(ctx)
}

// AvailableMonths lists months still open for a state.
func (s *Service) AvailableMonths(ctx context.Context, stateID string) ([]string, error) {
	return s.client.AvailableMonths(ctx, stateID)
}

// List returns the expense rows for one state.
func (s *Service) List(ctx context.Context, stateID string) ([]api.Expense, error) {
	return s.client.ListExpenses(ctx, stateID)
}

// Submit validates and files one expense.
func (s *Service) Submit(ctx context.Context, form api.ExpenseForm) (api.Expense, error) {
	if err := validate(form); err != nil {
		return api.Expense{}, err
	}
	exp, err := s.client.CreateExpense(ctx, form)
	if err != nil {
		s.log.Error("submitting expense", zap.String("state", form.StateID), zap.Error(err))
		return api.Expense{}, err
	}
	return exp, nil
}

func validate(form api.ExpenseForm) error {
	switch {
	case form.StateID == "":
		return fmt.Errorf("expense: state is required")
	case form.EmbossingCenterName == "":
		return fmt.Errorf("expense: embossing center name is required")
	case !ValidMonth(form.Month):
		return fmt.Errorf("expense: unknown month %q", form.Month)
	case form.Year < 2000 || form.Year > 2100:
		return fmt.Errorf("expense: year %d out of range", form.Year)
	case !ValidCategory(form.Category):
		return fmt.Errorf("expense: unknown category %q", form.Category)
	case form.Price <= 0:
		return fmt.Errorf("expense: price must be positive")
	}
	return nil
}
