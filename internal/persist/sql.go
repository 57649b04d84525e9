package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"snapfeed/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is one persisted key.
type Record struct {
	Key       string `gorm:"column:state_key;primaryKey;size:191"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name regardless of naming strategy.
func (Record) TableName() string { return "persisted_state" }

// gormLogger integrates GORM with slog.
type gormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

// OpenSQL opens a gorm connection for driver ("sqlite" or "postgres").
func OpenSQL(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: &gormLogger{
			logger: observability.GlobalLogger.Logger,
			Config: logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// SQLStorage keeps keys in the persisted_state table.
type SQLStorage struct {
	db     *gorm.DB
	driver string
}

// NewSQLStorage wraps db. Call Migrate before first use on a fresh database.
func NewSQLStorage(db *gorm.DB) *SQLStorage {
	return &SQLStorage{db: db, driver: db.Dialector.Name()}
}

var _ Storage = (*SQLStorage)(nil)

// Migrate creates the persisted_state table if needed.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Record{})
}

func (s *SQLStorage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := observability.TraceStorageOperation(ctx, s.driver, "select")
	var rec Record
	err := s.db.WithContext(ctx).Where("state_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.EndSpan(span, nil)
		return nil, ErrNotFound
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (s *SQLStorage) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := observability.TraceStorageOperation(ctx, s.driver, "upsert")
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	observability.EndSpan(span, err)
	return err
}

func (s *SQLStorage) Remove(ctx context.Context, key string) error {
	ctx, span := observability.TraceStorageOperation(ctx, s.driver, "delete")
	err := s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&Record{}).Error
	observability.EndSpan(span, err)
	return err
}
