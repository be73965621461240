package core

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DefaultTeamName is the bucket used by entries created without a team.
// It never has a Team record and cannot be created or deleted.
const DefaultTeamName = "Default Team"

// MaxDescriptionLength is measured in characters, not bytes.
const MaxDescriptionLength = 500

// Kind tells income and expense entries apart.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

var (
	IncomeCategories = []string{"Salary", "Freelance", "Investment", "Business", "Other"}

	ExpenseCategories = []string{
		"Food", "Transport", "Entertainment", "Utilities",
		"Healthcare", "Shopping", "Groceries", "Other",
	}
)

type (
	// Team is a shared ledger owned by its creator.
	Team struct {
		ID        string    `json:"id"`
		TeamName  string    `json:"teamName"`
		CreatedBy string    `json:"createdBy"`
		Members   []string  `json:"members"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// Entry is a single income or expense record.
	Entry struct {
		ID           string          `json:"id"`
		Kind         Kind            `json:"kind"`
		User         string          `json:"user,omitempty"`
		Title        string          `json:"title"`
		Amount       decimal.Decimal `json:"amount"`
		Category     string          `json:"category"`
		Description  string          `json:"description"`
		Date         time.Time       `json:"date"`
		TeamName     string          `json:"teamName"`
		ReceiptImage *string         `json:"receiptImage,omitempty"`
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}

	// EntryInput is the client-supplied part of an entry.
	// Zero Date and empty TeamName are filled by ApplyDefaults.
	EntryInput struct {
		Title        string
		Amount       decimal.Decimal
		Category     string
		Description  string
		Date         time.Time
		TeamName     string
		ReceiptImage *string
	}

	// DeletedEntry is what a delete reports back.
	DeletedEntry struct {
		ID     string          `json:"id"`
		Amount decimal.Decimal `json:"amount"`
	}

	// CascadeResult reports the outcome of deleting a team.
	CascadeResult struct {
		Team            Team `json:"team"`
		DeletedIncomes  int  `json:"deletedIncomes"`
		DeletedExpenses int  `json:"deletedExpenses"`
	}

	// EntryFilter selects the entries a user may see: every entry of the
	// named teams plus the DefaultOwner's own Default Team entries.
	EntryFilter struct {
		TeamNames    []string
		DefaultOwner string
	}
)

func (k Kind) String() string { return string(k) }

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// Categories returns the known categories for the kind.
func (k Kind) Categories() []string {
	switch k {
	case KindIncome:
		return slices.Clone(IncomeCategories)
	case KindExpense:
		return slices.Clone(ExpenseCategories)
	}
	return nil
}

// IsKnownCategory reports whether category is one of the kind's enumerated values.
// Unknown categories are still accepted on write.
func (k Kind) IsKnownCategory(category string) bool {
	return slices.Contains(k.Categories(), category)
}

// HasAccess reports whether userID created the team or is one of its members.
func (t Team) HasAccess(userID string) bool {
	if userID == "" {
		return false
	}
	return t.CreatedBy == userID || slices.Contains(t.Members, userID)
}

// NormalizeTeamName trims the name a client supplied.
func NormalizeTeamName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateTeamName rejects empty and reserved names.
func ValidateTeamName(name string) error {
	name = NormalizeTeamName(name)
	if name == "" {
		return NewFieldError("teamName", "team name is required")
	}
	if name == DefaultTeamName {
		return NewFieldError("teamName", "team name is reserved")
	}
	return nil
}

// Normalize trims text fields and rounds the amount to cents.
func (in EntryInput) Normalize() EntryInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.TeamName = NormalizeTeamName(in.TeamName)
	in.Amount = RoundAmount(in.Amount)
	return in
}

// ApplyDefaults fills the date and team name when the client omitted them.
func (in EntryInput) ApplyDefaults(now time.Time) EntryInput {
	if in.Date.IsZero() {
		in.Date = now
	}
	if in.TeamName == "" {
		in.TeamName = DefaultTeamName
	}
	in.Date = in.Date.UTC()
	return in
}

func (in EntryInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return NewFieldError("title", "title is required")
	}
	if !in.Amount.IsPositive() {
		return NewFieldError("amount", "amount must be greater than zero")
	}
	if in.Amount.GreaterThan(MaxAmount) {
		return NewFieldError("amount", "amount must be at most "+MaxAmount.StringFixed(AmountPlaces))
	}
	if strings.TrimSpace(in.Category) == "" {
		return NewFieldError("category", "category is required")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return NewFieldError("description", "description cannot exceed 500 characters")
	}
	return nil
}

// Visible reports whether the filter admits the entry.
func (f EntryFilter) Visible(e Entry) bool {
	if e.TeamName == DefaultTeamName {
		return f.DefaultOwner != "" && e.User == f.DefaultOwner
	}
	return slices.Contains(f.TeamNames, e.TeamName)
}
