package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-orm/arbor/dialect"
)

func widgetsBlueprint() *Blueprint {
	b := &Blueprint{table: "widgets", create: true}
	b.ID()
	b.String("name")
	b.Decimal("price", 8, 2).Nullable()
	return b
}

func TestCreateKeepsColumnOrder(t *testing.T) {
	g := &grammar{dialect: dialect.MySQL}
	sql := g.compileCreate(widgetsBlueprint())
	assert.Equal(t,
		"CREATE TABLE `widgets` ("+
			"`id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY, "+
			"`name` VARCHAR(255) NOT NULL, "+
			"`price` DECIMAL(8,2) NULL"+
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		sql)
}

func TestCreatePerDialectSerials(t *testing.T) {
	bp := widgetsBlueprint()

	sql := (&grammar{dialect: dialect.Postgres}).compileCreate(bp)
	assert.Equal(t,
		`CREATE TABLE "widgets" ("id" BIGSERIAL PRIMARY KEY, "name" VARCHAR(255) NOT NULL, "price" NUMERIC(8,2) NULL)`,
		sql)

	sql = (&grammar{dialect: dialect.SQLite}).compileCreate(bp)
	assert.Equal(t,
		`CREATE TABLE "widgets" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL, "price" REAL NULL)`,
		sql)

	sql = (&grammar{dialect: dialect.SQLServer}).compileCreate(bp)
	assert.Equal(t,
		"CREATE TABLE [widgets] ([id] BIGINT NOT NULL IDENTITY(1,1) PRIMARY KEY, [name] NVARCHAR(255) NOT NULL, [price] DECIMAL(8,2) NULL)",
		sql)
}

func TestCreateWithConstraintsAndTrailer(t *testing.T) {
	b := &Blueprint{table: "order_items", create: true}
	b.ForeignID("order_id")
	b.String("sku", 64)
	b.Integer("quantity").Default(1)
	b.Unique("order_id", "sku")
	b.Foreign("order_id").References("id").On("orders").OnDelete("cascade")

	g := &grammar{dialect: dialect.Postgres}
	sql := g.compileCreate(b)
	assert.Equal(t,
		`CREATE TABLE "order_items" (`+
			`"order_id" BIGINT NOT NULL, `+
			`"sku" VARCHAR(64) NOT NULL, `+
			`"quantity" INTEGER NOT NULL DEFAULT 1, `+
			`CONSTRAINT "order_items_uq_order_id_sku" UNIQUE ("order_id", "sku"), `+
			`CONSTRAINT "order_items_order_id_fk" FOREIGN KEY ("order_id") REFERENCES "orders" ("id") ON DELETE CASCADE`+
			`)`,
		sql)
}

func TestTimestampsAndSoftDeletesShorthand(t *testing.T) {
	b := &Blueprint{table: "users", create: true}
	b.ID()
	b.Timestamps()
	b.SoftDeletes()

	g := &grammar{dialect: dialect.MySQL}
	sql := g.compileCreate(b)
	assert.Contains(t, sql, "`created_at` TIMESTAMP NULL")
	assert.Contains(t, sql, "`updated_at` TIMESTAMP NULL")
	assert.Contains(t, sql, "`deleted_at` TIMESTAMP NULL")
}

func TestDefaultRendering(t *testing.T) {
	g := &grammar{dialect: dialect.MySQL}
	b := &Blueprint{table: "settings"}
	b.String("theme").Default("dark")
	b.Boolean("active").Default(true)

	stmts := g.compileAlter(b)
	require.Len(t, stmts, 2)
	assert.Equal(t, "ALTER TABLE `settings` ADD COLUMN `theme` VARCHAR(255) NOT NULL DEFAULT 'dark'", stmts[0])
	assert.Equal(t, "ALTER TABLE `settings` ADD COLUMN `active` TINYINT(1) NOT NULL DEFAULT 1", stmts[1])

	g = &grammar{dialect: dialect.Postgres}
	stmts = g.compileAlter(b)
	assert.Equal(t, `ALTER TABLE "settings" ADD COLUMN "active" BOOLEAN NOT NULL DEFAULT TRUE`, stmts[1])
}

func TestAlterRendersOneStatementPerChange(t *testing.T) {
	b := &Blueprint{table: "users"}
	b.String("nickname").Nullable()
	b.Index("nickname")
	b.DropColumn("legacy_flag")
	b.RenameColumn("mail", "email")

	g := &grammar{dialect: dialect.MySQL}
	stmts := g.compileAlter(b)
	require.Len(t, stmts, 4)
	assert.Equal(t, "ALTER TABLE `users` ADD COLUMN `nickname` VARCHAR(255) NULL", stmts[0])
	assert.Equal(t, "CREATE INDEX `users_idx_nickname` ON `users` (`nickname`)", stmts[1])
	assert.Equal(t, "ALTER TABLE `users` DROP COLUMN `legacy_flag`", stmts[2])
	assert.Equal(t, "ALTER TABLE `users` RENAME COLUMN `mail` TO `email`", stmts[3])
}

func TestForeignKeyActions(t *testing.T) {
	b := &Blueprint{table: "posts"}
	b.Foreign("user_id").References("id").On("users").OnDelete("set null").OnUpdate("cascade")

	g := &grammar{dialect: dialect.MySQL}
	stmts := g.compileAlter(b)
	require.Len(t, stmts, 1)
	assert.Equal(t,
		"ALTER TABLE `posts` ADD CONSTRAINT `posts_user_id_fk` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON DELETE SET NULL ON UPDATE CASCADE",
		stmts[0])
}

func TestColumnTypeMatrix(t *testing.T) {
	tests := []struct {
		build  func(*Blueprint) *ColumnDefinition
		mysql  string
		pg     string
		sqlite string
		mssql  string
	}{
		{func(b *Blueprint) *ColumnDefinition { return b.Text("body") }, "TEXT", "TEXT", "TEXT", "NVARCHAR(MAX)"},
		{func(b *Blueprint) *ColumnDefinition { return b.Boolean("ok") }, "TINYINT(1)", "BOOLEAN", "INTEGER", "BIT"},
		{func(b *Blueprint) *ColumnDefinition { return b.JSON("meta") }, "JSON", "JSONB", "TEXT", "NVARCHAR(MAX)"},
		{func(b *Blueprint) *ColumnDefinition { return b.UUID("uid") }, "CHAR(36)", "UUID", "TEXT", "UNIQUEIDENTIFIER"},
		{func(b *Blueprint) *ColumnDefinition { return b.Binary("blob") }, "BLOB", "BYTEA", "BLOB", "VARBINARY(MAX)"},
		{func(b *Blueprint) *ColumnDefinition { return b.DateTime("at") }, "DATETIME", "TIMESTAMP", "TEXT", "DATETIME2"},
	}
	for _, tt := range tests {
		col := tt.build(&Blueprint{table: "t"})
		assert.Equal(t, tt.mysql, (&grammar{dialect: dialect.MySQL}).columnSQLType(col), col.name)
		assert.Equal(t, tt.pg, (&grammar{dialect: dialect.Postgres}).columnSQLType(col), col.name)
		assert.Equal(t, tt.sqlite, (&grammar{dialect: dialect.SQLite}).columnSQLType(col), col.name)
		assert.Equal(t, tt.mssql, (&grammar{dialect: dialect.SQLServer}).columnSQLType(col), col.name)
	}
}
