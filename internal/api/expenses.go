package api

import (
	"context"
	"net/http"
	"net/url"
)

// States lists the states expenses are filed under.
func (c *Client) States(ctx context.Context) ([]State, error) {
	var out []State
	if err := c.do(ctx, http.MethodGet, "/states/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableMonths returns the months still open for entry in a state.
// Months already submitted are excluded server-side.
func (c *Client) AvailableMonths(ctx context.Context, stateID string) ([]string, error) {
	var out []string
	path := "/expense/available-months/" + url.PathEscape(stateID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpenses returns the expense rows for one state.
func (c *Client) ListExpenses(ctx context.Context, stateID string) ([]Expense, error) {
	var out []Expense
	path := "/expense/" + url.PathEscape(stateID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExpense submits one expense row.
func (c *Client) CreateExpense(ctx context.Context, form ExpenseForm) (Expense, error) {
	var out Expense
	err := c.do(ctx, http.MethodPost, "/expense/", form, &out)
	return out, err
}
