// Package dbtest opens throwaway sqlite databases carrying the earnings schema
// for repository and service tests. Money columns are TEXT so decimals round-trip
// exactly; uuid and uuid[] columns are TEXT as well.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE virtual_accounts (
		id TEXT PRIMARY KEY,
		owner_type TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		total_credits TEXT NOT NULL DEFAULT '0',
		total_debits TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (owner_type, owner_id)
	)`,
	`CREATE TABLE virtual_transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES virtual_accounts(id),
		sequence INTEGER NOT NULL,
		type TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		reference_type TEXT,
		reference_id TEXT,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		UNIQUE (account_id, sequence)
	)`,
	`CREATE TABLE consultants (
		id TEXT PRIMARY KEY,
		owner_type TEXT NOT NULL,
		region_id TEXT,
		default_commission_rate TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commissions (
		id TEXT PRIMARY KEY,
		consultant_id TEXT NOT NULL,
		owner_type TEXT NOT NULL,
		region_id TEXT,
		job_id TEXT,
		subscription_id TEXT,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		rate TEXT,
		base_amount TEXT,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		confirmed_at DATETIME,
		paid_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_commissions_job_award ON commissions (consultant_id, type, job_id)
		WHERE job_id IS NOT NULL AND status <> 'cancelled'`,
	`CREATE UNIQUE INDEX ux_commissions_subscription_award ON commissions (consultant_id, type, subscription_id)
		WHERE subscription_id IS NOT NULL AND status <> 'cancelled'`,
	`CREATE TABLE commission_withdrawals (
		id TEXT PRIMARY KEY,
		consultant_id TEXT NOT NULL,
		owner_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		requested_amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		commission_ids TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_details BLOB,
		status TEXT NOT NULL,
		notes TEXT,
		processed_at DATETIME,
		completed_at DATETIME,
		cancelled_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with the schema applied. Each call
// gets its own database so tests never share rows.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
