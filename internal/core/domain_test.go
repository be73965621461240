package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validInput() EntryInput {
	return EntryInput{
		Title:    "Lunch",
		Amount:   decimal.RequireFromString("12.50"),
		Category: "Food",
	}
}

func TestEntryInputValidate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name  string
		mod   func(*EntryInput)
		field string
	}{
		{"empty title", func(in *EntryInput) { in.Title = "  " }, "title"},
		{"zero amount", func(in *EntryInput) { in.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(in *EntryInput) { in.Amount = decimal.NewFromInt(-5) }, "amount"},
		{"amount above storable maximum", func(in *EntryInput) { in.Amount = decimal.RequireFromString("1e15") }, "amount"},
		{"empty category", func(in *EntryInput) { in.Category = "" }, "category"},
		{"long description", func(in *EntryInput) { in.Description = strings.Repeat("x", 501) }, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mod(&in)
			err := in.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
		})
	}
}

func TestEntryInputAcceptsMaxAmount(t *testing.T) {
	in := validInput()
	in.Amount = MaxAmount
	if err := in.Validate(); err != nil {
		t.Fatalf("max amount rejected: %v", err)
	}
	in.Amount = MaxAmount.Add(decimal.RequireFromString("0.01"))
	var fe *FieldError
	if err := in.Validate(); !errors.As(err, &fe) || fe.Message != "amount must be at most 999999999999.99" {
		t.Fatalf("got %v, want max amount error", err)
	}
}

func TestEntryInputDescriptionCountsRunes(t *testing.T) {
	in := validInput()
	in.Description = strings.Repeat("è", 500)
	if err := in.Validate(); err != nil {
		t.Fatalf("500 multibyte characters should pass, got %v", err)
	}
}

func TestEntryInputApplyDefaults(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	in := validInput().ApplyDefaults(now)
	if in.TeamName != DefaultTeamName {
		t.Fatalf("expected %q, got %q", DefaultTeamName, in.TeamName)
	}
	if !in.Date.Equal(now) {
		t.Fatalf("expected date %v, got %v", now, in.Date)
	}

	explicit := validInput()
	explicit.TeamName = "Household"
	explicit.Date = now.Add(-48 * time.Hour)
	got := explicit.ApplyDefaults(now)
	if got.TeamName != "Household" || !got.Date.Equal(explicit.Date) {
		t.Fatalf("explicit values overwritten: %+v", got)
	}
}

func TestValidateTeamName(t *testing.T) {
	for _, name := range []string{"", "   ", DefaultTeamName, "  Default Team "} {
		if err := ValidateTeamName(name); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q expected validation error, got %v", name, err)
		}
	}
	if err := ValidateTeamName("Household"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestTeamHasAccess(t *testing.T) {
	team := Team{CreatedBy: "alice", Members: []string{"alice", "bob"}}
	cases := map[string]bool{"alice": true, "bob": true, "carol": false, "": false}
	for user, want := range cases {
		if got := team.HasAccess(user); got != want {
			t.Errorf("HasAccess(%q) = %v, want %v", user, got, want)
		}
	}
}

func TestEntryFilterVisible(t *testing.T) {
	f := EntryFilter{TeamNames: []string{"Household"}, DefaultOwner: "alice"}
	cases := []struct {
		entry Entry
		want  bool
	}{
		{Entry{TeamName: "Household", User: "bob"}, true},
		{Entry{TeamName: "Office"}, false},
		{Entry{TeamName: DefaultTeamName, User: "alice"}, true},
		{Entry{TeamName: DefaultTeamName, User: "bob"}, false},
	}
	for i, tc := range cases {
		if got := f.Visible(tc.entry); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestKindCategories(t *testing.T) {
	if !KindIncome.IsKnownCategory("Salary") || KindIncome.IsKnownCategory("Food") {
		t.Fatal("income categories mismatch")
	}
	if !KindExpense.IsKnownCategory("Groceries") || KindExpense.IsKnownCategory("Salary") {
		t.Fatal("expense categories mismatch")
	}
	if err := Kind("refund").Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
}
