package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"teamfinance/internal/core"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{`12.5`, "12.5", false},
		{`"12,34"`, "12.34", false},
		{`"0.005"`, "0.01", false},
		{`0`, "", true},
		{`-1`, "", true},
		{`"abc"`, "", true},
		{`null`, "", true},
		{``, "", true},
		{`true`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount(json.RawMessage(tt.raw))
			if tt.wantErr {
				var fe *core.FieldError
				if !errors.As(err, &fe) || fe.Field != "amount" {
					t.Fatalf("expected amount field error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmount() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	if d, err := parseDate(""); err != nil || !d.IsZero() {
		t.Fatalf("empty date should be zero, got %v %v", d, err)
	}
	d, err := parseDate("2024-02-29T10:30:00+02:00")
	if err != nil || !d.Equal(time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC)) || d.Location() != time.UTC {
		t.Fatalf("got %v %v", d, err)
	}
	d, err = parseDate("2024-02-29")
	if err != nil || !d.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v %v", d, err)
	}
	if _, err := parseDate("29/02/2024"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 5, false},
		{"limit=10", 10, false},
		{"limit=100", 100, false},
		{"limit=0", 0, true},
		{"limit=101", 0, true},
		{"limit=ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseLimit(q, 5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEntryRequestToInput(t *testing.T) {
	var req entryRequest
	body := `{"title":"  Lunch\u0007 ","amount":"9.99","category":" Food ","teamName":" Home ","receiptImage":" img-1 "}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}

	in, err := req.toInput()
	if err != nil {
		t.Fatal(err)
	}
	if in.Title != "Lunch" || in.Category != "Food" || in.TeamName != "Home" {
		t.Errorf("unexpected input %+v", in)
	}
	if in.ReceiptImage == nil || *in.ReceiptImage != "img-1" {
		t.Errorf("receipt = %v", in.ReceiptImage)
	}
	if !in.Date.IsZero() {
		t.Errorf("date should be left for defaults")
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"teamName":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader(body))
	var dst teamRequest
	err := decodeJSON(httptest.NewRecorder(), req, &dst)

	var fe *core.FieldError
	if !errors.As(err, &fe) || fe.Message != "request body too large" {
		t.Fatalf("got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
