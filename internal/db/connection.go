package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sebuszqo/ExpenseTracker/internal/config"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DBService represents a service that interacts with a database.
type DBService struct {
	DB     *sql.DB
	driver string
	logger *slog.Logger
}

// NewDBService opens the configured database, checks the connection and
// brings the schema up to date.
func NewDBService(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DBService, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing DATABASE_URL in environment variables")
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %w", err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		// One connection keeps in-memory databases alive and serialises writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 50
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	s := &DBService{DB: db, driver: cfg.Driver, logger: logging.Resolve(logger)}
	if cfg.Driver == DriverSQLite {
		if _, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not enable foreign keys: %w", err)
		}
	}

	if err = s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DBService) Driver() string {
	return s.driver
}

// Conn returns the pool as a DBTX speaking the driver's placeholder dialect.
func (s *DBService) Conn() DBTX {
	return wrap(s.DB, s.driver)
}

// WithTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise, including panics.
func (s *DBService) WithTx(ctx context.Context, fn func(tx DBTX) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.safeRollback(tx)
			panic(p)
		} else if err != nil {
			s.safeRollback(tx)
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(wrap(tx, s.driver))
	return err
}

func (s *DBService) safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		s.logger.Error("Error during transaction rollback", "error", err)
	}
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *DBService) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	err := s.DB.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	return stats
}

// Close closes the database connection.
func (s *DBService) Close() error {
	s.logger.Info("Closing database connection")
	return s.DB.Close()
}
