package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// TestSQLStorage_Postgres runs the storage contract against a real server.
// Set SNAPFEED_TEST_POSTGRES_DSN to enable it.
func TestSQLStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("SNAPFEED_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SNAPFEED_TEST_POSTGRES_DSN not set")
	}
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sqlDB.PingContext(ctx))

	schema := fmt.Sprintf("snapfeed_test_%d", time.Now().UnixNano())
	_, err = sqlDB.ExecContext(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = sqlDB.ExecContext(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`)
	})
	_, err = sqlDB.ExecContext(ctx, `SET search_path TO `+schema)
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	s := NewSQLStorage(db)
	require.NoError(t, s.Migrate(ctx))
	exerciseStorage(t, s)
}
