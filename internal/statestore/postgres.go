package statestore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"botcore/internal/model"
)

// PostgresStore persists the aggregate as a single JSONB row and
// audit records as a separate append-only table, the way the
// teacher's internal/store layers JSONB columns over lib/pq.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a connection pool and verifies it with Ping.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("statestore: connecting to postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the bot_state and audit_log tables if absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS bot_state (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	document JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
	id UUID PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	user_id TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	raw_message TEXT NOT NULL,
	parsed TEXT,
	status TEXT NOT NULL,
	response TEXT,
	error TEXT
);
CREATE INDEX IF NOT EXISTS audit_log_chat_ts_idx ON audit_log (chat_id, ts DESC);
`)
	if err != nil {
		return fmt.Errorf("statestore: migrating schema: %w", err)
	}
	return nil
}

// jsonDocument adapts *model.Document to database/sql/driver so it can
// be bound directly as a JSONB column, mirroring the teacher's
// JSONBSourceMetadata Value/Scan pattern in internal/store/jsonb_helpers.go.
type jsonDocument model.Document

func (j jsonDocument) Value() (driver.Value, error) {
	doc := model.Document(j)
	return json.Marshal(&doc)
}

func (j *jsonDocument) Scan(value any) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case nil:
		return nil
	default:
		return errors.New("statestore: cannot scan non-[]byte/string value into jsonDocument")
	}
	var doc model.Document
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return err
	}
	*j = jsonDocument(doc)
	return nil
}

func (s *PostgresStore) LoadDocument(ctx context.Context) (*model.Document, error) {
	var jd jsonDocument
	err := s.db.GetContext(ctx, &jd, `SELECT document FROM bot_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: loading document: %w", err)
	}
	doc := model.Document(jd)
	return &doc, nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	jd := jsonDocument(*doc)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO bot_state (id, document) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document
`, jd)
	if err != nil {
		return fmt.Errorf("statestore: saving document: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_log (id, ts, user_id, chat_id, raw_message, parsed, status, response, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, rec.ID, rec.Timestamp, rec.UserID, rec.ChatID, rec.RawMessage, rec.Parsed, rec.Status, rec.Response, rec.Error)
	if err != nil {
		return fmt.Errorf("statestore: appending audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAudit(ctx context.Context, chatID string, limit int) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryxContext(ctx, `
SELECT id, ts, user_id, chat_id, raw_message, parsed, status, response, error
FROM audit_log WHERE chat_id = $1 ORDER BY ts DESC LIMIT $2
`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("statestore: listing audit records: %w", err)
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var parsed, response, errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.UserID, &rec.ChatID, &rec.RawMessage, &parsed, &rec.Status, &response, &errText); err != nil {
			return nil, fmt.Errorf("statestore: scanning audit record: %w", err)
		}
		rec.Parsed = parsed.String
		rec.Response = response.String
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
