package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestSaveDocumentUpsert(t *testing.T) {
	store, mock := newMockStore(t)
	doc := model.NewDocument("1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)

	mock.ExpectExec(`INSERT INTO bot_state`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveDocument(context.Background(), doc)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDocumentRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	doc := model.NewDocument("1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	jd := jsonDocument(*doc)
	raw, err := jd.Value()
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT document FROM bot_state WHERE id = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow(raw))

	loaded, err := store.LoadDocument(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, loaded.Root.IsRoot("1111@s.whatsapp.net"))
}

func TestAppendAudit(t *testing.T) {
	store, mock := newMockStore(t)
	rec := model.AuditRecord{
		ID: "audit-1", Timestamp: time.Now(), UserID: "u1", ChatID: "c1",
		RawMessage: ".ping", Status: model.AuditSuccess, Response: "Pong",
	}

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(rec.ID, rec.Timestamp, rec.UserID, rec.ChatID, rec.RawMessage, rec.Parsed, rec.Status, rec.Response, rec.Error).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendAudit(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
