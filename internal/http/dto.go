package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"teamfinance/internal/core"
)

// Amounts leave the API as JSON numbers with two decimals.
func amountJSON(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(core.AmountPlaces))
}

type entryResponse struct {
	ID           string      `json:"id"`
	Kind         core.Kind   `json:"kind"`
	User         string      `json:"user,omitempty"`
	Title        string      `json:"title"`
	Amount       json.Number `json:"amount"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	Date         time.Time   `json:"date"`
	TeamName     string      `json:"teamName"`
	ReceiptImage *string     `json:"receiptImage,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		Kind:         e.Kind,
		User:         e.User,
		Title:        e.Title,
		Amount:       amountJSON(e.Amount),
		Category:     e.Category,
		Description:  e.Description,
		Date:         e.Date,
		TeamName:     e.TeamName,
		ReceiptImage: e.ReceiptImage,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type deletedEntryResponse struct {
	ID     string      `json:"id"`
	Amount json.Number `json:"amount"`
}

type cascadeResponse struct {
	Team            core.Team `json:"team"`
	DeletedIncomes  int       `json:"deletedIncomes"`
	DeletedExpenses int       `json:"deletedExpenses"`
}

type totalsResponse struct {
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Balance json.Number `json:"balance"`
}

type dashboardResponse struct {
	Team   string          `json:"team,omitempty"`
	Totals totalsResponse  `json:"totals"`
	Recent []entryResponse `json:"recent"`
	Teams  []core.Team     `json:"teams"`
}

func toDashboardResponse(d core.Dashboard) dashboardResponse {
	teams := d.Teams
	if teams == nil {
		teams = []core.Team{}
	}
	return dashboardResponse{
		Team: d.Team,
		Totals: totalsResponse{
			Income:  amountJSON(d.Totals.Income),
			Expense: amountJSON(d.Totals.Expense),
			Balance: amountJSON(d.Totals.Balance),
		},
		Recent: toEntryResponses(d.Recent),
		Teams:  teams,
	}
}

type categoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}
