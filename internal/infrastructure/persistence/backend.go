package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
)

// DefaultSQLiteName is the database file created next to a dataset.
const DefaultSQLiteName = "out.db"

// Backend is a database a dataset can be stored in.
type Backend interface {
	fmt.Stringer
	Dialect() Dialect
	// Drop removes the backend's database. Dropping a missing database is not an error.
	Drop(ctx context.Context, logger *zap.Logger) error

	prepare(ctx context.Context, o *options) error
	dialector() gorm.Dialector
	configurePool(db *sql.DB)
}

// SQLite is a file database.
type SQLite struct {
	Path string
}

// NewSQLite creates a file backend. A relative path is placed next to the
// dataset given by paths: inside a dataset directory, next to a dataset
// file, or in the common parent of several paths. Without paths the
// working directory is used.
func NewSQLite(path string, paths ...string) *SQLite {
	if path == "" {
		path = DefaultSQLiteName
	}
	if filepath.IsAbs(path) || len(paths) == 0 {
		return &SQLite{Path: path}
	}
	return &SQLite{Path: filepath.Join(datasetDir(paths), path)}
}

func datasetDir(paths []string) string {
	dirs := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dirs = append(dirs, abs)
		} else {
			dirs = append(dirs, filepath.Dir(abs))
		}
	}
	if len(dirs) == 0 {
		return "."
	}
	common := dirs[0]
	for _, d := range dirs[1:] {
		for !strings.HasPrefix(d+string(filepath.Separator), common+string(filepath.Separator)) {
			parent := filepath.Dir(common)
			if parent == common {
				break
			}
			common = parent
		}
	}
	return common
}

func (s *SQLite) String() string { return "sqlite:" + s.Path }

// Dialect implements Backend.
func (s *SQLite) Dialect() Dialect { return DialectSQLite }

// Drop removes the database file.
func (s *SQLite) Drop(_ context.Context, logger *zap.Logger) error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove database %s: %w", s.Path, err)
	}
	logger.Info("Removed old database", zap.String("path", s.Path))
	return nil
}

func (s *SQLite) prepare(context.Context, *options) error {
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return nil
}

func (s *SQLite) dialector() gorm.Dialector {
	return sqlite.Open(s.Path + "?_foreign_keys=1&_busy_timeout=5000")
}

// A single connection serializes writers.
func (s *SQLite) configurePool(db *sql.DB) {
	db.SetMaxOpenConns(1)
}

// InMemory is a private in-memory SQLite database. It lives as long as its connection.
type InMemory struct{}

func (InMemory) String() string { return "sqlite::memory:" }

// Dialect implements Backend.
func (InMemory) Dialect() Dialect { return DialectSQLite }

// Drop is a no-op, every connection starts empty.
func (InMemory) Drop(context.Context, *zap.Logger) error { return nil }

func (InMemory) prepare(context.Context, *options) error { return nil }

func (InMemory) dialector() gorm.Dialector {
	return sqlite.Open(":memory:?_foreign_keys=1")
}

// The database disappears with its connection, so exactly one is kept forever.
func (InMemory) configurePool(db *sql.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
}

// ClientServer is a MySQL, MariaDB or PostgreSQL server database.
type ClientServer struct {
	Flavour  string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// NewClientServer validates the flavour and fills in the default port.
func NewClientServer(flavour, host string, port int, user, password, name string) (*ClientServer, error) {
	flavour = strings.ToLower(flavour)
	switch flavour {
	case "mysql", "mariadb":
		if port == 0 {
			port = 3306
		}
	case "postgres", "postgresql":
		flavour = "postgres"
		if port == 0 {
			port = 5432
		}
	default:
		return nil, shared.Wrap(shared.ErrUnsupported, "unsupported database %q", flavour)
	}
	if name == "" {
		name = "cim"
	}
	if host == "" {
		host = "localhost"
	}
	return &ClientServer{Flavour: flavour, Host: host, Port: port, User: user, Password: password, Name: name}, nil
}

func (c *ClientServer) String() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Flavour, c.User, c.Host, c.Port, c.Name)
}

// Dialect implements Backend.
func (c *ClientServer) Dialect() Dialect {
	if c.Flavour == "postgres" {
		return DialectPostgres
	}
	return DialectMySQL
}

// DSN returns the connection string for the given database name.
func (c *ClientServer) DSN(name string) string {
	if c.Dialect() == DialectPostgres {
		if name == "" {
			name = "postgres"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&multiStatements=true",
		c.User, c.Password, c.Host, c.Port, name)
}

func (c *ClientServer) open(name string) gorm.Dialector {
	if c.Dialect() == DialectPostgres {
		return postgres.Open(c.DSN(name))
	}
	return mysql.Open(c.DSN(name))
}

func (c *ClientServer) dialector() gorm.Dialector {
	return c.open(c.Name)
}

func (c *ClientServer) configurePool(db *sql.DB) {
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}

// server runs fn on a connection to the server's maintenance database.
func (c *ClientServer) server(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := gorm.Open(c.open(""), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return fmt.Errorf("failed to connect to database server: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()
	return fn(db.WithContext(ctx))
}

// prepare creates the database if it does not exist yet.
func (c *ClientServer) prepare(ctx context.Context, o *options) error {
	d := c.Dialect()
	return c.server(ctx, func(db *gorm.DB) error {
		if d == DialectMySQL {
			return db.Exec("CREATE DATABASE IF NOT EXISTS " + d.Quote(c.Name) + " CHARACTER SET utf8mb4").Error
		}
		var count int64
		if err := db.Raw("SELECT count(*) FROM pg_database WHERE datname = ?", c.Name).Scan(&count).Error; err != nil {
			return fmt.Errorf("failed to look up database: %w", err)
		}
		if count > 0 {
			return nil
		}
		o.logger.Info("Creating database", zap.String("name", c.Name))
		return db.Exec("CREATE DATABASE " + d.Quote(c.Name)).Error
	})
}

// Drop drops the database.
func (c *ClientServer) Drop(ctx context.Context, logger *zap.Logger) error {
	err := c.server(ctx, func(db *gorm.DB) error {
		return db.Exec("DROP DATABASE IF EXISTS " + c.Dialect().Quote(c.Name)).Error
	})
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", c.Name, err)
	}
	logger.Info("Dropped database", zap.String("name", c.Name))
	return nil
}
