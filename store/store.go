package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver selects which relational engine backs the vault.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// Config describes how to reach the store. For SQLite only Path is
// used; the server drivers use the network fields.
type Config struct {
	Driver   Driver
	Path     string // sqlite file path, or ":memory:"
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// DB wraps the relational connection shared by every adapter.
type DB struct {
	conn   *sql.DB
	driver Driver
}

// Open creates a DB for the configured driver. SQLite is the default:
// the vault assumes a single embedded writer, so the sqlite pool is
// capped at one connection to prevent SQLITE_BUSY.
func Open(cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	switch driver {
	case DriverSQLite:
		dsn := cfg.Path
		if dsn == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
		conn, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		conn.SetMaxOpenConns(1)
		return &DB{conn: conn, driver: DriverSQLite}, nil

	case DriverMySQL:
		conn, err := sql.Open("mysql", buildMySQLDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return &DB{conn: conn, driver: DriverMySQL}, nil

	case DriverPostgres:
		conn, err := sql.Open("postgres", buildPostgresDSN(cfg))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &DB{conn: conn, driver: DriverPostgres}, nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// buildMySQLDSN constructs a MySQL DSN from the config.
func buildMySQLDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildPostgresDSN constructs a Postgres connection string from the config.
func buildPostgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.Database, sslMode,
	)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for host code that
// needs raw access (cross-adapter joins via the query interface).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// DriverName returns the active driver.
func (db *DB) DriverName() Driver {
	return db.driver
}

// placeholder returns the 1-based bind placeholder for the driver.
func (db *DB) placeholder(i int) string {
	if db.driver == DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}
