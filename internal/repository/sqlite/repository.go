package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/dynamic-qr/internal/domain"
	"github.com/joshdurbin/dynamic-qr/internal/repository"
)

// Repository implements repository.QRRepository using SQLite. Rule sets,
// version history, contact contexts, tags, and metadata are stored as JSON
// columns; the aggregate is always read and written whole.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(databasePath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys and WAL mode for better performance
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.runMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

const qrColumns = `id, token, state, journey_state, event_type, campaign_id, campaign_name,
	default_url, rules, current_version, versions, total_scans, unique_contacts,
	last_scanned_at, contacts, created_at, activated_at, expires_at, archived_at, tags, metadata`

// Create persists a new QR code
func (r *Repository) Create(ctx context.Context, code *domain.QRCode) error {
	args, err := codeArgs(code)
	if err != nil {
		return err
	}

	query := `INSERT INTO qr_codes (` + qrColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create qr code: %w", err)
	}
	return nil
}

// Get retrieves a QR code by its identifier
func (r *Repository) Get(ctx context.Context, id string) (*domain.QRCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+qrColumns+` FROM qr_codes WHERE id = ?`, id)
	return scanCode(row)
}

// GetByToken retrieves a QR code by its public scan token
func (r *Repository) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+qrColumns+` FROM qr_codes WHERE token = ?`, token)
	return scanCode(row)
}

// List retrieves QR codes matching the filter, newest first
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.QRCode, error) {
	query := `SELECT ` + qrColumns + ` FROM qr_codes WHERE 1=1`
	var args []any

	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	if filter.JourneyState != "" {
		query += ` AND journey_state = ?`
		args = append(args, string(filter.JourneyState))
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list qr codes: %w", err)
	}
	defer rows.Close()

	var codes []*domain.QRCode
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// Update persists the full current state of an existing QR code
func (r *Repository) Update(ctx context.Context, code *domain.QRCode) error {
	result, err := r.execUpdate(ctx, r.db, code)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, code.ID)
	}
	return nil
}

// SaveScan commits the updated code and the scan event in one transaction
func (r *Repository) SaveScan(ctx context.Context, code *domain.QRCode, event *domain.ScanEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scan transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := r.execUpdate(ctx, tx, code); err != nil {
		return err
	}

	location, err := json.Marshal(orEmptyMap(event.Location))
	if err != nil {
		return fmt.Errorf("failed to marshal scan location: %w", err)
	}

	query := `INSERT INTO scan_events (id, qr_id, scanned_at, visitor_id, user_agent, ip_address,
		location, referrer, device_type, session_id, destination_url, matched_rule)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		event.ID, event.QRID, event.ScannedAt, event.VisitorID, event.UserAgent,
		event.IPAddress, string(location), event.Referrer, event.DeviceType,
		event.SessionID, event.DestinationURL, event.MatchedRule); err != nil {
		return fmt.Errorf("failed to save scan event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	return nil
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) execUpdate(ctx context.Context, ex execer, code *domain.QRCode) (sql.Result, error) {
	args, err := codeArgs(code)
	if err != nil {
		return nil, err
	}

	// Reorder: id moves from first insert arg to the WHERE clause.
	args = append(args[1:], args[0])

	query := `UPDATE qr_codes SET token = ?, state = ?, journey_state = ?, event_type = ?,
		campaign_id = ?, campaign_name = ?, default_url = ?, rules = ?, current_version = ?,
		versions = ?, total_scans = ?, unique_contacts = ?, last_scanned_at = ?, contacts = ?,
		created_at = ?, activated_at = ?, expires_at = ?, archived_at = ?, tags = ?, metadata = ?
		WHERE id = ?`
	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update qr code: %w", err)
	}
	return result, nil
}

// codeArgs flattens the aggregate into the column order of qrColumns.
func codeArgs(code *domain.QRCode) ([]any, error) {
	rules, err := json.Marshal(orEmptyRules(code.Rules))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}
	versions, err := json.Marshal(code.Versions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal versions: %w", err)
	}
	contacts, err := json.Marshal(orEmptyContacts(code.Contacts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contacts: %w", err)
	}
	tags, err := json.Marshal(orEmptySlice(code.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	metadata, err := json.Marshal(orEmptyMap(code.Metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return []any{
		code.ID, code.Token, string(code.State), string(code.JourneyState), string(code.EventType),
		code.CampaignID, code.CampaignName, code.DefaultURL, string(rules), code.CurrentVersion,
		string(versions), code.TotalScans, code.UniqueContacts, nullTime(code.LastScannedAt),
		string(contacts), code.CreatedAt, nullTime(code.ActivatedAt), nullTime(code.ExpiresAt),
		nullTime(code.ArchivedAt), string(tags), string(metadata),
	}, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*domain.QRCode, error) {
	var (
		code                                      domain.QRCode
		rules, versions, contacts, tags, meta     string
		lastScanned, activated, expires, archived sql.NullTime
	)

	err := row.Scan(
		&code.ID, &code.Token, &code.State, &code.JourneyState, &code.EventType,
		&code.CampaignID, &code.CampaignName, &code.DefaultURL, &rules, &code.CurrentVersion,
		&versions, &code.TotalScans, &code.UniqueContacts, &lastScanned, &contacts,
		&code.CreatedAt, &activated, &expires, &archived, &tags, &meta,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read qr code: %w", err)
	}

	if err := json.Unmarshal([]byte(rules), &code.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	if err := json.Unmarshal([]byte(versions), &code.Versions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal versions: %w", err)
	}
	if err := json.Unmarshal([]byte(contacts), &code.Contacts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contacts: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &code.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &code.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	code.LastScannedAt = timePtr(lastScanned)
	code.ActivatedAt = timePtr(activated)
	code.ExpiresAt = timePtr(expires)
	code.ArchivedAt = timePtr(archived)

	return &code, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func orEmptyRules(rules []domain.RedirectRule) []domain.RedirectRule {
	if rules == nil {
		return []domain.RedirectRule{}
	}
	return rules
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyContacts(m map[string]*domain.ContactContext) map[string]*domain.ContactContext {
	if m == nil {
		return map[string]*domain.ContactContext{}
	}
	return m
}

// Ensure Repository implements the interface
var _ repository.QRRepository = (*Repository)(nil)
