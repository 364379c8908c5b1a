package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/arbor-orm/arbor/db"
	"github.com/arbor-orm/arbor/dialect"
)

func sqliteBuilder(t *testing.T) (*Builder, *db.Connection) {
	t.Helper()
	conn, err := db.Connect(db.Config{Driver: dialect.SQLite, Database: ":memory:"})
	require.NoError(t, err)
	conn.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return New(conn), conn
}

func createWidgets(t *testing.T, s *Builder) {
	t.Helper()
	err := s.Create(context.Background(), "widgets", func(b *Blueprint) {
		b.ID()
		b.String("name")
		b.Decimal("price", 8, 2).Nullable()
	})
	require.NoError(t, err)
}

func TestCreateAndIntrospect(t *testing.T) {
	s, _ := sqliteBuilder(t)
	ctx := context.Background()
	createWidgets(t, s)

	ok, err := s.HasTable(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasTable(ctx, "gadgets")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, col := range []string{"id", "name", "price"} {
		ok, err := s.HasColumn(ctx, "widgets", col)
		require.NoError(t, err)
		assert.True(t, ok, col)
	}
	ok, err = s.HasColumn(ctx, "widgets", "weight")
	require.NoError(t, err)
	assert.False(t, ok)

	cols, err := s.ColumnListing(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, cols)
}

func TestCreateWithIndex(t *testing.T) {
	s, conn := sqliteBuilder(t)
	ctx := context.Background()
	err := s.Create(ctx, "events", func(b *Blueprint) {
		b.ID()
		b.String("kind")
		b.Index("kind")
	})
	require.NoError(t, err)

	rows, err := conn.Select(ctx, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'events'", nil)
	require.NoError(t, err)
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Get("name").(string))
	}
	assert.Contains(t, names, "events_idx_kind")
}

func TestAlterAddAndDropColumn(t *testing.T) {
	s, _ := sqliteBuilder(t)
	ctx := context.Background()
	createWidgets(t, s)

	err := s.Table(ctx, "widgets", func(b *Blueprint) {
		b.Integer("stock").Default(0)
	})
	require.NoError(t, err)
	ok, err := s.HasColumn(ctx, "widgets", "stock")
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Table(ctx, "widgets", func(b *Blueprint) {
		b.DropColumn("stock")
	})
	require.NoError(t, err)
	ok, err = s.HasColumn(ctx, "widgets", "stock")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenameAndDrop(t *testing.T) {
	s, _ := sqliteBuilder(t)
	ctx := context.Background()
	createWidgets(t, s)

	require.NoError(t, s.Rename(ctx, "widgets", "gizmos"))
	ok, err := s.HasTable(ctx, "gizmos")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Drop(ctx, "gizmos"))
	ok, err = s.HasTable(ctx, "gizmos")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropIfExists(t *testing.T) {
	s, _ := sqliteBuilder(t)
	ctx := context.Background()

	// Absent table is a no-op, not an error.
	require.NoError(t, s.DropIfExists(ctx, "widgets"))

	createWidgets(t, s)
	require.NoError(t, s.DropIfExists(ctx, "widgets"))
	ok, err := s.HasTable(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrationApplyRevert(t *testing.T) {
	s, _ := sqliteBuilder(t)
	ctx := context.Background()

	m := Migration{
		Name: "create_widgets",
		Up: func(ctx context.Context, s *Builder) error {
			return s.Create(ctx, "widgets", func(b *Blueprint) {
				b.ID()
				b.String("name")
			})
		},
		Down: func(ctx context.Context, s *Builder) error {
			return s.DropIfExists(ctx, "widgets")
		},
	}

	require.NoError(t, m.Apply(ctx, s))
	ok, err := s.HasTable(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Revert(ctx, s))
	ok, err = s.HasTable(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, ok)

	empty := Migration{Name: "noop"}
	assert.Error(t, empty.Apply(ctx, s))
	assert.Error(t, empty.Revert(ctx, s))
}

func TestEndToEndInsertAndFind(t *testing.T) {
	s, conn := sqliteBuilder(t)
	ctx := context.Background()
	createWidgets(t, s)

	id, err := conn.Table("widgets").InsertGetID(ctx, map[string]any{
		"name":  "Foo",
		"price": 9.99,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	row, err := conn.Table("widgets").Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Foo", row.Get("name"))
	assert.Equal(t, 9.99, row.Get("price"))
}
