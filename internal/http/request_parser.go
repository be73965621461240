// Package http serves the JSON API.
//
// This file implements request body decoding and the conversion of
// client payloads into domain inputs.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"teamfinance/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	maxLimit     = 100
)

type teamRequest struct {
	TeamName string `json:"teamName"`
}

type memberRequest struct {
	UserID string `json:"userId"`
}

// entryRequest accepts amount as a JSON number or a string, and date as
// RFC 3339 or YYYY-MM-DD.
type entryRequest struct {
	Title        string          `json:"title"`
	Amount       json.RawMessage `json:"amount"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Date         string          `json:"date"`
	TeamName     string          `json:"teamName"`
	ReceiptImage *string         `json:"receiptImage"`
}

// decodeJSON reads one JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return core.NewFieldError("body", "request body too large")
		case errors.Is(err, io.EOF):
			return core.NewFieldError("body", "request body is empty")
		default:
			return core.NewFieldError("body", "malformed JSON")
		}
	}
	return nil
}

func (req entryRequest) toInput() (core.EntryInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.EntryInput{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.EntryInput{}, err
	}

	var receipt *string
	if req.ReceiptImage != nil {
		v := strings.TrimSpace(*req.ReceiptImage)
		receipt = &v
	}

	return core.EntryInput{
		Title:        sanitizeInput(req.Title),
		Amount:       amount,
		Category:     sanitizeInput(req.Category),
		Description:  sanitizeInput(req.Description),
		Date:         date,
		TeamName:     sanitizeInput(req.TeamName),
		ReceiptImage: receipt,
	}, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, core.NewFieldError("amount", "amount is required")
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.NewFieldError("amount", "amount must be a number")
		}
		text = s
	}
	d, err := core.ParseAmount(text)
	if err != nil {
		return decimal.Zero, core.NewFieldError("amount", "amount must be greater than zero")
	}
	return d, nil
}

// parseDate returns the zero time for an empty value so defaults apply.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.NewFieldError("date", "date must be RFC 3339 or YYYY-MM-DD")
}

// parseLimit reads ?limit=, falling back to def when absent.
func parseLimit(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxLimit {
		return 0, core.NewFieldError("limit", "limit must be between 1 and 100")
	}
	return n, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
