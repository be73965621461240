package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"teamfinance/internal/auth"
	"teamfinance/internal/core"
	"teamfinance/internal/ports"
	"teamfinance/internal/storage/memory"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Count   *int            `json:"count"`
}

type testEntry struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Amount   json.Number `json:"amount"`
	TeamName string      `json:"teamName"`
	Date     time.Time   `json:"date"`
	User     string      `json:"user"`
}

func newTestServer(t *testing.T, cfg Config, store ports.Store) *Server {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	srv := NewServer(cfg, store, nil, nil)
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func call(t *testing.T, srv *Server, method, path, user, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(auth.DefaultHeader, user)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var resp apiResponse
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func mustCreateTeam(t *testing.T, srv *Server, name, user string) core.Team {
	t.Helper()
	rr, resp := call(t, srv, http.MethodPost, "/teams", user, `{"teamName":"`+name+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create team %q: status %d: %s", name, rr.Code, rr.Body.String())
	}
	return decode[core.Team](t, resp.Data)
}

func mustCreateEntry(t *testing.T, srv *Server, kind, body, user string) testEntry {
	t.Helper()
	rr, resp := call(t, srv, http.MethodPost, "/"+kind, user, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %s: status %d: %s", kind, rr.Code, rr.Body.String())
	}
	return decode[testEntry](t, resp.Data)
}

func TestHealthAndCategories(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	for _, path := range []string{"/healthz", "/readyz", "/categories"} {
		rr, resp := call(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK || !resp.Success {
			t.Fatalf("%s: status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	_, resp := call(t, srv, http.MethodGet, "/categories", "", "")
	cats := decode[categoriesResponse](t, resp.Data)
	if len(cats.Income) != 5 || len(cats.Expense) != 8 {
		t.Fatalf("unexpected categories %+v", cats)
	}

	rr, _ := call(t, srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "teamfinance_http_requests_total") {
		t.Fatalf("metrics endpoint: status=%d", rr.Code)
	}
}

type downStore struct {
	ports.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func (downStore) ListEntries(context.Context, core.Kind, core.EntryFilter) ([]core.Entry, error) {
	return nil, errors.New("disk I/O error")
}

func (downStore) ListTeamsForUser(context.Context, string) ([]core.Team, error) {
	return nil, errors.New("disk I/O error")
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t, Config{}, downStore{Store: memory.New()})

	rr, resp := call(t, srv, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable || resp.Success {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestIdentityRequired(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/teams", ""},
		{http.MethodPost, "/teams", `{"teamName":"X"}`},
		{http.MethodGet, "/income", ""},
		{http.MethodPost, "/expense", `{"title":"t","amount":1,"category":"Food"}`},
		{http.MethodGet, "/dashboard", ""},
	} {
		rr, resp := call(t, srv, tc.method, tc.path, "", tc.body)
		if rr.Code != http.StatusUnauthorized || resp.Success {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestBearerIdentity(t *testing.T) {
	authn := auth.New(auth.Config{Secret: "test-secret"}, nil)
	srv := NewServer(Config{}, memory.New(), authn, nil)
	t.Cleanup(srv.limiter.Stop)

	token, err := authn.IssueToken("alice", time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/teams", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid token: got %d", rr.Code)
	}

	// A bare header is not trusted once tokens are configured.
	rr, _ = call(t, srv, http.MethodGet, "/teams", "alice", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("header identity: got %d", rr.Code)
	}
}

func TestCreateTeamStatuses(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	mustCreateTeam(t, srv, "Team A", "alice")

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"duplicate", `{"teamName":"Team A"}`, http.StatusConflict, "team name already exists"},
		{"case differs", `{"teamName":"team a"}`, http.StatusCreated, ""},
		{"blank", `{"teamName":"   "}`, http.StatusBadRequest, "teamName: team name is required"},
		{"reserved", `{"teamName":"Default Team"}`, http.StatusBadRequest, "teamName: team name is reserved"},
		{"malformed", `{"teamName":`, http.StatusBadRequest, "body: malformed JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := call(t, srv, http.MethodPost, "/teams", "bob", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if resp.Error != tt.errMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.errMsg)
			}
		})
	}
}

func TestTeamCascadeOverHTTP(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	team := mustCreateTeam(t, srv, "Household", "alice")
	rr, _ := call(t, srv, http.MethodPost, "/teams/"+team.ID+"/members", "alice", `{"userId":"bob"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("add member: %d", rr.Code)
	}

	for i := 0; i < 3; i++ {
		mustCreateEntry(t, srv, "income", `{"title":"Pay","amount":100,"category":"Salary","teamName":"Household"}`, "alice")
	}
	for i := 0; i < 2; i++ {
		mustCreateEntry(t, srv, "expense", `{"title":"Food","amount":"20.50","category":"Food","teamName":"Household"}`, "bob")
	}

	// A member who did not create the team cannot delete it.
	rr, resp := call(t, srv, http.MethodDelete, "/teams/"+team.ID, "bob", "")
	if rr.Code != http.StatusForbidden || resp.Success {
		t.Fatalf("member delete: %d", rr.Code)
	}
	_, resp = call(t, srv, http.MethodGet, "/income", "bob", "")
	if *resp.Count != 3 {
		t.Fatalf("data must be intact after forbidden delete, got %d incomes", *resp.Count)
	}

	rr, resp = call(t, srv, http.MethodDelete, "/teams/"+team.ID, "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("creator delete: %d %s", rr.Code, rr.Body.String())
	}
	res := decode[cascadeResponse](t, resp.Data)
	if res.DeletedIncomes != 3 || res.DeletedExpenses != 2 || res.Team.ID != team.ID {
		t.Fatalf("unexpected cascade result %+v", res)
	}

	for _, kind := range []string{"income", "expense"} {
		_, resp := call(t, srv, http.MethodGet, "/"+kind, "alice", "")
		if *resp.Count != 0 {
			t.Errorf("%s still lists %d entries", kind, *resp.Count)
		}
	}

	rr, _ = call(t, srv, http.MethodDelete, "/teams/"+team.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
}

func TestCreateEntry(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	before := time.Now().Add(-time.Second)
	e := mustCreateEntry(t, srv, "expense", `{"title":"Coffee","amount":"3,456","category":"Food"}`, "alice")
	if e.TeamName != core.DefaultTeamName {
		t.Errorf("teamName = %q", e.TeamName)
	}
	if e.Amount.String() != "3.46" {
		t.Errorf("amount = %s, want 3.46", e.Amount)
	}
	if e.Date.Before(before) || e.Date.After(time.Now().Add(time.Second)) {
		t.Errorf("date %v is not close to now", e.Date)
	}
	if e.User != "alice" {
		t.Errorf("user = %q", e.User)
	}

	dated := mustCreateEntry(t, srv, "income", `{"title":"Bonus","amount":50,"category":"Salary","date":"2024-03-01"}`, "alice")
	if !dated.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", dated.Date)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	mustCreateTeam(t, srv, "Private", "carol")

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"zero amount", `{"title":"x","amount":0,"category":"Food"}`, http.StatusBadRequest, "amount: amount must be greater than zero"},
		{"negative amount", `{"title":"x","amount":-5,"category":"Food"}`, http.StatusBadRequest, "amount: amount must be greater than zero"},
		{"amount too large", `{"title":"x","amount":1e15,"category":"Food"}`, http.StatusBadRequest, "amount: amount must be at most 999999999999.99"},
		{"missing amount", `{"title":"x","category":"Food"}`, http.StatusBadRequest, "amount: amount is required"},
		{"missing title", `{"title":"  ","amount":1,"category":"Food"}`, http.StatusBadRequest, "title: title is required"},
		{"missing category", `{"title":"x","amount":1}`, http.StatusBadRequest, "category: category is required"},
		{"long description", `{"title":"x","amount":1,"category":"Food","description":"` + strings.Repeat("é", 501) + `"}`, http.StatusBadRequest, "description: description cannot exceed 500 characters"},
		{"bad date", `{"title":"x","amount":1,"category":"Food","date":"yesterday"}`, http.StatusBadRequest, "date: date must be RFC 3339 or YYYY-MM-DD"},
		{"foreign team", `{"title":"x","amount":1,"category":"Food","teamName":"Private"}`, http.StatusForbidden, "no access to this team"},
		{"unknown team", `{"title":"x","amount":1,"category":"Food","teamName":"Nowhere"}`, http.StatusForbidden, "no access to this team"},
		{"empty body", ``, http.StatusBadRequest, "body: request body is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := call(t, srv, http.MethodPost, "/expense", "alice", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if resp.Error != tt.errMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.errMsg)
			}
		})
	}
}

func TestVisibilityScenario(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	mustCreateTeam(t, srv, "Alpha", "alice")
	mustCreateTeam(t, srv, "Beta", "bob")
	mustCreateEntry(t, srv, "income", `{"title":"A","amount":10,"category":"Salary","teamName":"Alpha"}`, "alice")
	mustCreateEntry(t, srv, "income", `{"title":"B","amount":20,"category":"Salary","teamName":"Beta"}`, "bob")
	mustCreateEntry(t, srv, "income", `{"title":"Mine","amount":5,"category":"Other"}`, "bob")

	_, resp := call(t, srv, http.MethodGet, "/income", "alice", "")
	entries := decode[[]testEntry](t, resp.Data)
	if len(entries) != 1 || entries[0].Title != "A" {
		t.Fatalf("alice sees %+v", entries)
	}

	_, resp = call(t, srv, http.MethodGet, "/teams", "alice", "")
	teams := decode[[]core.Team](t, resp.Data)
	if len(teams) != 1 || teams[0].TeamName != "Alpha" {
		t.Fatalf("alice teams %+v", teams)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	e := mustCreateEntry(t, srv, "expense", `{"title":"Taxi","amount":12,"category":"Transport","date":"2024-05-01"}`, "alice")

	// Another user's Default Team entry is invisible, so it reads as missing.
	rr, _ := call(t, srv, http.MethodPut, "/expense/"+e.ID, "mallory", `{"title":"Hacked","amount":1,"category":"Other"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign update: %d", rr.Code)
	}

	rr, resp := call(t, srv, http.MethodPut, "/expense/"+e.ID, "alice", `{"title":"Cab","amount":"15.00","category":"Transport","teamName":"Ignored"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rr.Code, rr.Body.String())
	}
	updated := decode[testEntry](t, resp.Data)
	if updated.Title != "Cab" || updated.Amount.String() != "15.00" {
		t.Errorf("unexpected update %+v", updated)
	}
	if updated.TeamName != core.DefaultTeamName {
		t.Errorf("edit must not move the entry, team = %q", updated.TeamName)
	}
	if !updated.Date.Equal(e.Date) {
		t.Errorf("omitted date must keep %v, got %v", e.Date, updated.Date)
	}

	// Kinds are separate tables.
	rr, _ = call(t, srv, http.MethodDelete, "/income/"+e.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete via wrong kind: %d", rr.Code)
	}

	rr, resp = call(t, srv, http.MethodDelete, "/expense/"+e.ID, "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d", rr.Code)
	}
	deleted := decode[deletedEntryResponse](t, resp.Data)
	if deleted.ID != e.ID || deleted.Amount.String() != "15.00" {
		t.Errorf("unexpected delete result %+v", deleted)
	}

	rr, _ = call(t, srv, http.MethodDelete, "/expense/"+e.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
}

func TestListStoreFailure(t *testing.T) {
	t.Run("production hides detail", func(t *testing.T) {
		srv := newTestServer(t, Config{}, downStore{Store: memory.New()})
		rr, resp := call(t, srv, http.MethodGet, "/income", "alice", "")
		if rr.Code != http.StatusInternalServerError || resp.Success {
			t.Fatalf("status = %d", rr.Code)
		}
		if string(resp.Data) != "[]" {
			t.Errorf("data = %s, want []", resp.Data)
		}
		if resp.Error != internalErrorMessage {
			t.Errorf("error = %q", resp.Error)
		}
	})

	t.Run("teams list keeps an empty array", func(t *testing.T) {
		srv := newTestServer(t, Config{}, downStore{Store: memory.New()})
		rr, resp := call(t, srv, http.MethodGet, "/teams", "alice", "")
		if rr.Code != http.StatusInternalServerError || resp.Success {
			t.Fatalf("status = %d", rr.Code)
		}
		if string(resp.Data) != "[]" {
			t.Errorf("data = %s, want []", resp.Data)
		}
	})

	t.Run("dashboard keeps an empty summary", func(t *testing.T) {
		srv := newTestServer(t, Config{}, downStore{Store: memory.New()})
		rr, resp := call(t, srv, http.MethodGet, "/dashboard", "alice", "")
		if rr.Code != http.StatusInternalServerError || resp.Success {
			t.Fatalf("status = %d", rr.Code)
		}
		var d struct {
			Totals struct{ Income, Expense, Balance json.Number }
			Recent []testEntry
			Teams  []core.Team
		}
		if err := json.Unmarshal(resp.Data, &d); err != nil {
			t.Fatalf("data = %s: %v", resp.Data, err)
		}
		if d.Totals.Balance.String() != "0.00" || d.Recent == nil || len(d.Recent) != 0 || d.Teams == nil || len(d.Teams) != 0 {
			t.Errorf("data = %s, want zero totals and empty lists", resp.Data)
		}
	})

	t.Run("development shows detail", func(t *testing.T) {
		srv := newTestServer(t, Config{Development: true}, downStore{Store: memory.New()})
		_, resp := call(t, srv, http.MethodGet, "/expense", "alice", "")
		if !strings.Contains(resp.Error, "disk I/O error") {
			t.Errorf("error = %q", resp.Error)
		}
	})
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)
	mustCreateTeam(t, srv, "Home", "alice")
	mustCreateTeam(t, srv, "Work", "bob")

	mustCreateEntry(t, srv, "income", `{"title":"Salary","amount":1000,"category":"Salary","teamName":"Home","date":"2024-01-01"}`, "alice")
	mustCreateEntry(t, srv, "expense", `{"title":"Rent","amount":"400.25","category":"Utilities","teamName":"Home","date":"2024-01-02"}`, "alice")
	mustCreateEntry(t, srv, "expense", `{"title":"Snack","amount":2,"category":"Food","date":"2024-01-03"}`, "alice")

	rr, resp := call(t, srv, http.MethodGet, "/dashboard?limit=2", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", rr.Code, rr.Body.String())
	}
	var d struct {
		Totals struct{ Income, Expense, Balance json.Number }
		Recent []testEntry
		Teams  []core.Team
	}
	if err := json.Unmarshal(resp.Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.Totals.Income.String() != "1000.00" || d.Totals.Expense.String() != "402.25" || d.Totals.Balance.String() != "597.75" {
		t.Errorf("totals = %+v", d.Totals)
	}
	if len(d.Recent) != 2 || d.Recent[0].Title != "Snack" || d.Recent[1].Title != "Rent" {
		t.Errorf("recent = %+v", d.Recent)
	}
	if len(d.Teams) != 1 {
		t.Errorf("teams = %+v", d.Teams)
	}

	rr, _ = call(t, srv, http.MethodGet, "/dashboard?team=Work", "alice", "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("foreign team filter: %d", rr.Code)
	}
	rr, _ = call(t, srv, http.MethodGet, "/dashboard?limit=0", "alice", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, Config{RateLimitPerMinute: 1}, nil)

	mustCreateTeam(t, srv, "First", "alice")
	rr, resp := call(t, srv, http.MethodPost, "/teams", "alice", `{"teamName":"Second"}`)
	if rr.Code != http.StatusTooManyRequests || resp.Success {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr, _ := call(t, srv, http.MethodGet, "/teams", "alice", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"https://app.example"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("CORS origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}
