package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"teamfinance/internal/core"
	"teamfinance/internal/ports"
)

// Repository implements ports.Store over a SQL database.
type Repository struct {
	db *DB     // nil inside a transaction
	h  Handler // db or the current transaction
}

var _ ports.Store = (*Repository)(nil)

// SQLiteDSN builds a modernc DSN with the pragmas the repository relies on.
func SQLiteDSN(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}

// NewSQLiteRepository opens (creating if needed) the database file and
// migrates it.
func NewSQLiteRepository(ctx context.Context, dbPath string, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(ctx, DriverSQLite, SQLiteDSN(dbPath), logger)
}

// NewPostgresRepository connects with a lib/pq DSN and migrates the schema.
func NewPostgresRepository(ctx context.Context, dsn string, logger *slog.Logger) (*Repository, error) {
	return open(ctx, DriverPostgres, dsn, logger)
}

func open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Repository, error) {
	db, err := Open(ctx, driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(driver, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "Database ready", "driver", driver)
	}
	return &Repository{db: db, h: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

// WithinTx runs fn in a database transaction. Nested calls join the
// enclosing transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(ports.Store) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.TransactionContext(ctx, func(tx *Tx) error {
		return fn(&Repository{h: tx})
	})
}

type teamRow struct {
	ID        string    `db:"id"`
	TeamName  string    `db:"team_name"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type memberRow struct {
	TeamID string `db:"team_id"`
	UserID string `db:"user_id"`
}

const teamColumns = `id, team_name, created_by, created_at, updated_at`

func (r *Repository) CreateTeam(ctx context.Context, t core.Team) error {
	return r.WithinTx(ctx, func(s ports.Store) error {
		h := s.(*Repository).h
		_, err := h.ExecContext(ctx, h.Rebind(`INSERT INTO teams (`+teamColumns+`)
			VALUES (?, ?, ?, ?, ?)`),
			t.ID, t.TeamName, t.CreatedBy, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
		if err := WrapError(err); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				return core.ErrTeamExists
			}
			return fmt.Errorf("insert team: %w", err)
		}
		for _, member := range t.Members {
			if err := insertMember(ctx, h, t.ID, member, t.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMember(ctx context.Context, h Handler, teamID, userID string, at time.Time) error {
	_, err := h.ExecContext(ctx, h.Rebind(`INSERT INTO team_members (team_id, user_id, added_at)
		VALUES (?, ?, ?) ON CONFLICT (team_id, user_id) DO NOTHING`),
		teamID, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("insert team member: %w", WrapError(err))
	}
	return nil
}

func (r *Repository) GetTeam(ctx context.Context, id string) (core.Team, error) {
	return r.getTeam(ctx, `id = ?`, id)
}

func (r *Repository) GetTeamByName(ctx context.Context, name string) (core.Team, error) {
	return r.getTeam(ctx, `team_name = ?`, name)
}

func (r *Repository) getTeam(ctx context.Context, cond string, arg string) (core.Team, error) {
	var row teamRow
	err := r.h.GetContext(ctx, &row, r.h.Rebind(`SELECT `+teamColumns+` FROM teams WHERE `+cond), arg)
	if err := WrapError(err); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return core.Team{}, core.ErrTeamNotFound
		}
		return core.Team{}, fmt.Errorf("get team: %w", err)
	}
	teams, err := r.withMembers(ctx, []teamRow{row})
	if err != nil {
		return core.Team{}, err
	}
	return teams[0], nil
}

func (r *Repository) ListTeamsForUser(ctx context.Context, userID string) ([]core.Team, error) {
	var rows []teamRow
	err := r.h.SelectContext(ctx, &rows, r.h.Rebind(`SELECT `+teamColumns+` FROM teams t
		WHERE t.created_by = ?
		   OR EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = ?)
		ORDER BY t.created_at, t.id`), userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", WrapError(err))
	}
	return r.withMembers(ctx, rows)
}

func (r *Repository) withMembers(ctx context.Context, rows []teamRow) ([]core.Team, error) {
	teams := make([]core.Team, 0, len(rows))
	if len(rows) == 0 {
		return teams, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`SELECT team_id, user_id FROM team_members
		WHERE team_id IN (?) ORDER BY added_at, user_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build member query: %w", err)
	}
	var members []memberRow
	if err := r.h.SelectContext(ctx, &members, r.h.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list team members: %w", WrapError(err))
	}
	byTeam := make(map[string][]string, len(rows))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m.UserID)
	}
	for _, row := range rows {
		members := byTeam[row.ID]
		if members == nil {
			members = []string{}
		}
		teams = append(teams, core.Team{
			ID:        row.ID,
			TeamName:  row.TeamName,
			CreatedBy: row.CreatedBy,
			Members:   members,
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		})
	}
	return teams, nil
}

func (r *Repository) AddMember(ctx context.Context, teamID, userID string) error {
	return r.WithinTx(ctx, func(s ports.Store) error {
		h := s.(*Repository).h
		now := time.Now().UTC()
		res, err := h.ExecContext(ctx, h.Rebind(`UPDATE teams SET updated_at = ? WHERE id = ?`), now, teamID)
		if err != nil {
			return fmt.Errorf("touch team: %w", WrapError(err))
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return core.ErrTeamNotFound
		}
		return insertMember(ctx, h, teamID, userID, now)
	})
}

func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	return r.WithinTx(ctx, func(s ports.Store) error {
		h := s.(*Repository).h
		if _, err := h.ExecContext(ctx, h.Rebind(`DELETE FROM team_members WHERE team_id = ?`), id); err != nil {
			return fmt.Errorf("delete team members: %w", WrapError(err))
		}
		res, err := h.ExecContext(ctx, h.Rebind(`DELETE FROM teams WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete team: %w", WrapError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		if n == 0 {
			return core.ErrTeamNotFound
		}
		return nil
	})
}

type entryRow struct {
	ID           string          `db:"id"`
	UserID       sql.NullString  `db:"user_id"`
	Title        string          `db:"title"`
	Amount       decimal.Decimal `db:"amount"`
	Category     string          `db:"category"`
	Description  string          `db:"description"`
	Date         time.Time       `db:"date"`
	TeamName     string          `db:"team_name"`
	ReceiptImage sql.NullString  `db:"receipt_image"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (row entryRow) toEntry(kind core.Kind) core.Entry {
	e := core.Entry{
		ID:          row.ID,
		Kind:        kind,
		User:        row.UserID.String,
		Title:       row.Title,
		Amount:      row.Amount,
		Category:    row.Category,
		Description: row.Description,
		Date:        row.Date.UTC(),
		TeamName:    row.TeamName,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if row.ReceiptImage.Valid {
		img := row.ReceiptImage.String
		e.ReceiptImage = &img
	}
	return e
}

const entryColumns = `id, user_id, title, amount, category, description, date, team_name, receipt_image, created_at, updated_at`

// table maps a kind to its table. Only these two names ever reach SQL text.
func table(kind core.Kind) (string, error) {
	switch kind {
	case core.KindIncome:
		return "incomes", nil
	case core.KindExpense:
		return "expenses", nil
	default:
		return "", core.ErrInvalidKind
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *Repository) CreateEntry(ctx context.Context, e core.Entry) error {
	tbl, err := table(e.Kind)
	if err != nil {
		return err
	}
	_, err = r.h.ExecContext(ctx, r.h.Rebind(`INSERT INTO `+tbl+` (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, nullable(e.User), e.Title, e.Amount, e.Category, e.Description,
		e.Date.UTC(), e.TeamName, nullablePtr(e.ReceiptImage), e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err := WrapError(err); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return fmt.Errorf("insert %s: %w", e.Kind, core.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", e.Kind, err)
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, kind core.Kind, id string) (core.Entry, error) {
	tbl, err := table(kind)
	if err != nil {
		return core.Entry{}, err
	}
	var row entryRow
	err = r.h.GetContext(ctx, &row, r.h.Rebind(`SELECT `+entryColumns+` FROM `+tbl+` WHERE id = ?`), id)
	if err := WrapError(err); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return core.Entry{}, core.ErrEntryNotFound
		}
		return core.Entry{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return row.toEntry(kind), nil
}

func (r *Repository) UpdateEntry(ctx context.Context, e core.Entry) error {
	tbl, err := table(e.Kind)
	if err != nil {
		return err
	}
	res, err := r.h.ExecContext(ctx, r.h.Rebind(`UPDATE `+tbl+`
		SET title = ?, amount = ?, category = ?, description = ?, date = ?, receipt_image = ?, updated_at = ?
		WHERE id = ?`),
		e.Title, e.Amount, e.Category, e.Description, e.Date.UTC(), nullablePtr(e.ReceiptImage),
		e.UpdatedAt.UTC(), e.ID)
	if err != nil {
		return fmt.Errorf("update %s: %w", e.Kind, WrapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, kind core.Kind, id string) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	res, err := r.h.ExecContext(ctx, r.h.Rebind(`DELETE FROM `+tbl+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, WrapError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, kind core.Kind, f core.EntryFilter) ([]core.Entry, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []interface{}
	)
	if len(f.TeamNames) > 0 {
		conds = append(conds, `team_name IN (?)`)
		args = append(args, f.TeamNames)
	}
	if f.DefaultOwner != "" {
		conds = append(conds, `(team_name = ? AND user_id = ?)`)
		args = append(args, core.DefaultTeamName, f.DefaultOwner)
	}
	if len(conds) == 0 {
		return []core.Entry{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+entryColumns+` FROM `+tbl+`
		WHERE `+strings.Join(conds, " OR ")+`
		ORDER BY date DESC, created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", kind, err)
	}

	var rows []entryRow
	if err := r.h.SelectContext(ctx, &rows, r.h.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, WrapError(err))
	}
	entries := make([]core.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry(kind)
	}
	// Database text ordering of timestamps is not reliable across drivers.
	core.SortByDateDesc(entries)
	return entries, nil
}

func (r *Repository) DeleteEntriesByTeam(ctx context.Context, kind core.Kind, teamName string) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}
	res, err := r.h.ExecContext(ctx, r.h.Rebind(`DELETE FROM `+tbl+` WHERE team_name = ?`), teamName)
	if err != nil {
		return 0, fmt.Errorf("delete %s by team: %w", kind, WrapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s by team: %w", kind, err)
	}
	return int(n), nil
}

func (r *Repository) PurgeOrphans(ctx context.Context, kind core.Kind, teamName string) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}
	query := `DELETE FROM ` + tbl + `
		WHERE team_name <> ?
		  AND NOT EXISTS (SELECT 1 FROM teams t WHERE t.team_name = ` + tbl + `.team_name)`
	args := []interface{}{core.DefaultTeamName}
	if teamName != "" {
		query += ` AND team_name = ?`
		args = append(args, teamName)
	}
	res, err := r.h.ExecContext(ctx, r.h.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("purge orphaned %s: %w", kind, WrapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge orphaned %s: %w", kind, err)
	}
	return int(n), nil
}
