package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ryoshu-dev/ryoshu/internal/config"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

var (
	// ErrUnavailable means the database could not be opened or reached.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrWrite means a write transaction did not commit (quota, disk, lock).
	ErrWrite = errors.New("storage write failed")
)

// Store is the receipt record store: one table keyed by receipt ID.
type Store struct {
	db     *gorm.DB
	logger *log.Logger
}

// Open opens the configured database, creating the file and the receipts
// table on first use. Calling it again on an existing database is a no-op
// apart from the connection.
func Open(cfg config.DatabaseConfig, lg *log.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if driverName(cfg) == "sqlite" {
		// Single writer; WAL keeps readers unblocked.
		sqlDB.SetMaxOpenConns(1)
		_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
		_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")
	}

	if err := db.AutoMigrate(&receiptRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: creating receipts table: %w", ErrUnavailable, err)
	}

	if lg != nil {
		lg.Debug("record store open", "driver", driverName(cfg), "path", cfg.Path)
	}
	return &Store{db: db, logger: lg}, nil
}

func driverName(cfg config.DatabaseConfig) string {
	if cfg.Driver == "" {
		return "sqlite"
	}
	return cfg.Driver
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch driverName(cfg) {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql driver requires database.dsn")
		}
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put inserts r, or replaces every field of the stored record with the same ID.
func (s *Store) Put(ctx context.Context, r model.Receipt) error {
	row := toRow(r)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrWrite, r.ID, err)
	}
	return nil
}

// PutAll upserts rs in one transaction. Either every record is written or none.
func (s *Store) PutAll(ctx context.Context, rs []model.Receipt) error {
	if len(rs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rs {
			row := toRow(r)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("put %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Get returns the record with the given ID. A missing ID is reported through
// the boolean, not as an error.
func (s *Store) Get(ctx context.Context, id string) (model.Receipt, bool, error) {
	var rows []receiptRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return model.Receipt{}, false, fmt.Errorf("%w: get %s: %w", ErrUnavailable, id, err)
	}
	if len(rows) == 0 {
		return model.Receipt{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

// All returns every stored record. Order is unspecified.
func (s *Store) All(ctx context.Context) ([]model.Receipt, error) {
	var rows []receiptRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list receipts: %w", ErrUnavailable, err)
	}
	out := make([]model.Receipt, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

// LatestID returns the numerically largest stored ID, or "" for an empty store.
func (s *Store) LatestID(ctx context.Context) (string, error) {
	var rows []receiptRow
	err := s.db.WithContext(ctx).
		Order("LENGTH(id) DESC").Order("id DESC").
		Limit(1).Find(&rows).Error
	if err != nil {
		return "", fmt.Errorf("%w: latest id: %w", ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&receiptRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count receipts: %w", ErrUnavailable, err)
	}
	return n, nil
}
