package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/dialect"
)

// Config describes one named connection.
type Config struct {
	// Driver is the dialect id: mysql, postgres, sqlite or sqlserver.
	Driver   string `toml:"driver" yaml:"driver"`
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	// Database is the database name, or the file path / URI for SQLite.
	Database  string `toml:"database" yaml:"database"`
	Username  string `toml:"username" yaml:"username"`
	Password  string `toml:"password" yaml:"password"`
	Charset   string `toml:"charset" yaml:"charset"`
	Collation string `toml:"collation" yaml:"collation"`
	// QueryLog enables the in-memory query log. The log is unbounded;
	// callers own flushing it (see Connection.FlushQueryLog).
	QueryLog bool `toml:"query_log" yaml:"query_log"`
}

// DSN returns the database/sql driver name and data source name for the
// configured backend. The corresponding driver must be registered by the
// caller (for example with a blank import of modernc.org/sqlite).
func (c Config) DSN() (driverName, dsn string, err error) {
	switch c.Driver {
	case dialect.MySQL:
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.port())
		mc.DBName = c.Database
		mc.ParseTime = true
		if c.Charset != "" {
			mc.Params = map[string]string{"charset": c.Charset}
		}
		if c.Collation != "" {
			mc.Collation = c.Collation
		}
		return "mysql", mc.FormatDSN(), nil
	case dialect.Postgres:
		parts := []string{
			fmt.Sprintf("host=%s", c.Host),
			fmt.Sprintf("port=%d", c.port()),
			fmt.Sprintf("dbname=%s", c.Database),
		}
		if c.Username != "" {
			parts = append(parts, fmt.Sprintf("user=%s", c.Username))
		}
		if c.Password != "" {
			parts = append(parts, fmt.Sprintf("password=%s", c.Password))
		}
		if c.Charset != "" {
			parts = append(parts, fmt.Sprintf("client_encoding=%s", c.Charset))
		}
		return "postgres", strings.Join(parts, " "), nil
	case dialect.SQLite:
		return "sqlite", c.Database, nil
	case dialect.SQLServer:
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			c.Username, c.Password, c.Host, c.port(), c.Database)
		return "sqlserver", dsn, nil
	default:
		return "", "", arbor.NewConfigurationError("", c.Driver, "unknown driver")
	}
}

func (c Config) port() int {
	if c.Port != 0 {
		return c.Port
	}
	switch c.Driver {
	case dialect.MySQL:
		return 3306
	case dialect.Postgres:
		return 5432
	case dialect.SQLServer:
		return 1433
	}
	return 0
}

// File is the on-disk shape of a connection configuration file.
type File struct {
	// Default names the connection returned when none is requested.
	Default     string            `toml:"default" yaml:"default"`
	Connections map[string]Config `toml:"connections" yaml:"connections"`
}

// LoadFile reads a connection configuration file. TOML and YAML are
// supported, selected by file extension.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("db: read config: %w", err)
	}
	var f File
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("db: parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("db: parse config %s: %w", path, err)
		}
	default:
		return nil, arbor.NewConfigurationError("", "", fmt.Sprintf("unsupported config format %q", ext))
	}
	for name, cfg := range f.Connections {
		if !dialect.Supported(cfg.Driver) {
			return nil, arbor.NewConfigurationError(name, cfg.Driver, "unknown driver")
		}
	}
	return &f, nil
}
