package domain

import (
	"context"
	"time"
)

// CreateRequest carries the user-supplied fields of a new production. All
// financial fields start at zero and are derived.
type CreateRequest struct {
	Title         string     `json:"title"`
	ClientID      *string    `json:"client_id"`
	Deadline      *time.Time `json:"deadline"`
	Priority      *string    `json:"priority"`
	Notes         *string    `json:"notes"`
	PaymentMethod *string    `json:"payment_method"`
	DueDate       *time.Time `json:"due_date"`
}

// UpdateRequest carries partial updates. TaxRate is a decimal percent
// string; nil leaves the rate untouched, an empty string clears it back to
// "inherit organization default", and "0" sets an explicit zero.
type UpdateRequest struct {
	Title         *string    `json:"title"`
	ClientID      *string    `json:"client_id"`
	Status        *string    `json:"status"`
	Deadline      *time.Time `json:"deadline"`
	Priority      *string    `json:"priority"`
	Notes         *string    `json:"notes"`
	Discount      *int64     `json:"discount"`
	TaxRate       *string    `json:"tax_rate"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentStatus *string    `json:"payment_status"`
	DueDate       *time.Time `json:"due_date"`
}

// ListRequest filters the production listing.
type ListRequest struct {
	Status   *string `form:"status"`
	ClientID *string `form:"client_id"`
}

// ItemInput is a typed child record for item writes. ID is set when the
// caller intends to update an existing row; replace-all diffs by it so
// surviving rows keep their identity.
type ItemInput struct {
	ID        *string `json:"id"`
	ServiceID *string `json:"service_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
}

// ExpenseInput is a typed child record for expense writes.
type ExpenseInput struct {
	ID       *string `json:"id"`
	Name     string  `json:"name"`
	Value    int64   `json:"value"`
	Category *string `json:"category"`
	PaidBy   *string `json:"paid_by"`
}

// CrewInput is a typed child record for crew assignment writes.
type CrewInput struct {
	ID       *string `json:"id"`
	MemberID string  `json:"member_id"`
	Role     string  `json:"role"`
	Fee      *int64  `json:"fee"`
}

// Detail is a production with its child collections loaded.
type Detail struct {
	Production Production   `json:"production"`
	Items      []Item       `json:"items"`
	Expenses   []Expense    `json:"expenses"`
	Crew       []CrewMember `json:"crew"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Production, error)
	Get(ctx context.Context, id string) (Detail, error)
	List(ctx context.Context, req ListRequest) ([]Production, error)
	Update(ctx context.Context, id string, req UpdateRequest) (Production, error)
	Delete(ctx context.Context, id string) error

	AddItem(ctx context.Context, productionID string, input ItemInput) (Item, Totals, error)
	UpdateItem(ctx context.Context, productionID, itemID string, input ItemInput) (Item, Totals, error)
	RemoveItem(ctx context.Context, productionID, itemID string) (Totals, error)
	ReplaceItems(ctx context.Context, productionID string, inputs []ItemInput) ([]Item, Totals, error)

	AddExpense(ctx context.Context, productionID string, input ExpenseInput) (Expense, Totals, error)
	UpdateExpense(ctx context.Context, productionID, expenseID string, input ExpenseInput) (Expense, Totals, error)
	RemoveExpense(ctx context.Context, productionID, expenseID string) (Totals, error)
	ReplaceExpenses(ctx context.Context, productionID string, inputs []ExpenseInput) ([]Expense, Totals, error)

	AddCrewMember(ctx context.Context, productionID string, input CrewInput) (CrewMember, Totals, error)
	UpdateCrewMember(ctx context.Context, productionID, crewID string, input CrewInput) (CrewMember, Totals, error)
	RemoveCrewMember(ctx context.Context, productionID, crewID string) (Totals, error)
	ReplaceCrew(ctx context.Context, productionID string, inputs []CrewInput) ([]CrewMember, Totals, error)

	Recalculate(ctx context.Context, productionID string) (Totals, error)
}
