package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/dialect"
)

func mockConnection(t *testing.T, cfg Config, opts ...Option) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })
	return Wrap(cfg, sqldb, opts...), mock
}

func TestSelect(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, []byte("Foo")).
			AddRow(2, []byte("Bar")))

	rows, err := conn.Select(context.Background(), "SELECT id, name FROM users", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "name"}, rows[0].Columns())
	// Text columns come back from drivers as []byte and must normalize.
	assert.Equal(t, "Foo", rows[0].Get("name"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectOneNotFound(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err := conn.SelectOne(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, arbor.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectWrapsDriverError(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	cause := errors.New("table users does not exist")
	mock.ExpectQuery("SELECT bad").WillReturnError(cause)

	_, err := conn.Select(context.Background(), "SELECT bad", []any{1})
	require.Error(t, err)
	assert.True(t, arbor.IsQueryError(err))
	assert.ErrorIs(t, err, cause)

	var qe *arbor.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "SELECT bad", qe.Query)
	assert.Equal(t, []any{1}, qe.Bindings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintClassificationMySQL(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectExec("INSERT INTO users (email) VALUES (?)").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'foo'"})

	_, err := conn.Statement(context.Background(), "INSERT INTO users (email) VALUES (?)", []any{"foo"})
	require.Error(t, err)
	assert.True(t, arbor.IsQueryError(err))
	assert.True(t, arbor.IsConstraintError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintClassificationSQLite(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.SQLite})
	mock.ExpectExec("INSERT INTO users (email) VALUES (?)").
		WillReturnError(errors.New("UNIQUE constraint failed: users.email"))

	_, err := conn.Statement(context.Background(), "INSERT INTO users (email) VALUES (?)", []any{"foo"})
	assert.True(t, arbor.IsConstraintError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLastInsertID(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectExec("INSERT INTO users (name) VALUES (?)").
		WithArgs("Foo").
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := conn.Insert(context.Background(), "INSERT INTO users (name) VALUES (?)", []any{"Foo"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturningScan(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.Postgres})
	mock.ExpectQuery(`INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`).
		WithArgs("Foo").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := conn.Insert(context.Background(), `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`, []any{"Foo"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryLog(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	conn.EnableQueryLog()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("UPDATE users SET active = ?").WillReturnResult(sqlmock.NewResult(0, 3))

	_, err := conn.Select(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	_, err = conn.Statement(context.Background(), "UPDATE users SET active = ?", []any{true})
	require.NoError(t, err)

	entries := conn.QueryLog()
	require.Len(t, entries, 2)
	assert.Equal(t, "SELECT 1", entries[0].Query)
	assert.Equal(t, "UPDATE users SET active = ?", entries[1].Query)
	assert.Equal(t, []any{true}, entries[1].Bindings)

	// Flush drains the log; callers own bounding its growth.
	flushed := conn.FlushQueryLog()
	assert.Len(t, flushed, 2)
	assert.Empty(t, conn.QueryLog())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisableQueryLog(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	conn.EnableQueryLog()
	conn.DisableQueryLog()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := conn.Select(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.Empty(t, conn.QueryLog())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlowQueryHook(t *testing.T) {
	var slow []string
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL},
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := conn.Select(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, slow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginCommit(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET active = ?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, conn.Begin(ctx))
	assert.True(t, conn.InTransaction())

	// Nested transactions are rejected, not silently nested.
	assert.ErrorIs(t, conn.Begin(ctx), arbor.ErrTxStarted)

	_, err := conn.Statement(ctx, "UPDATE users SET active = ?", []any{true})
	require.NoError(t, err)
	require.NoError(t, conn.Commit())
	assert.False(t, conn.InTransaction())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitWithoutBegin(t *testing.T) {
	conn, _ := mockConnection(t, Config{Driver: dialect.MySQL})
	assert.ErrorIs(t, conn.Commit(), arbor.ErrNoTx)
	assert.ErrorIs(t, conn.Rollback(), arbor.ErrNoTx)
}

func TestTransactionCommit(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit (op) VALUES (?)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		assert.True(t, tx.InTransaction())
		_, err := tx.Statement(context.Background(), "INSERT INTO audit (op) VALUES (?)", []any{"create"})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollback(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRejectsNesting(t *testing.T) {
	conn, mock := mockConnection(t, Config{Driver: dialect.MySQL})
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := conn.Transaction(context.Background(), func(tx *Connection) error {
		return nil
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	require.NoError(t, conn.Begin(context.Background()))
	assert.ErrorIs(t, conn.Transaction(context.Background(), func(*Connection) error { return nil }), arbor.ErrTxStarted)
}
