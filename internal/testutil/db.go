// Package testutil provides an in-memory SQLite database carrying the same
// tables, unique indexes and partial unique indexes as the Postgres migrations.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

var schema = []string{
	`CREATE TABLE certifications (
		id INTEGER PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		level TEXT,
		duration_label TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE modules (
		id INTEGER PRIMARY KEY,
		certification_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (certification_id, sequence)
	)`,
	`CREATE TABLE applications (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		certification_id INTEGER NOT NULL,
		details TEXT,
		status TEXT NOT NULL,
		decided_by TEXT,
		decided_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_applications_pending ON applications (user_id, certification_id) WHERE status = 'pending'`,
	`CREATE TABLE enrollments (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		certification_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		due_at DATETIME NOT NULL,
		completed_at DATETIME,
		certificate_issued BOOLEAN NOT NULL DEFAULT FALSE,
		authorization_mode TEXT NOT NULL,
		modules_provisioned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (user_id, certification_id)
	)`,
	`CREATE UNIQUE INDEX ux_enrollments_user_active ON enrollments (user_id) WHERE status = 'active'`,
	`CREATE TABLE module_progress (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		module_id INTEGER NOT NULL,
		enrollment_id INTEGER NOT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, module_id)
	)`,
	`CREATE TABLE transactions (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		certification_id INTEGER NOT NULL,
		external_invoice_id TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		payer_email TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME,
		refunded_at DATETIME
	)`,
	`CREATE TABLE payment_events (
		id INTEGER PRIMARY KEY,
		provider TEXT NOT NULL,
		event_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL,
		state TEXT NOT NULL,
		payload TEXT,
		received_at DATETIME NOT NULL,
		processed_at DATETIME,
		UNIQUE (provider, event_id)
	)`,
	`CREATE TABLE certificates (
		id INTEGER PRIMARY KEY,
		certificate_number TEXT NOT NULL UNIQUE,
		enrollment_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		certification_id INTEGER NOT NULL,
		issue_date DATETIME NOT NULL,
		expiry_date DATETIME,
		is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_reason TEXT,
		revoked_by TEXT,
		revoked_at DATETIME,
		document_url TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		metadata TEXT,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// NewTestDB opens a fresh in-memory database with the full schema. The pool
// is pinned to one connection so the shared-cache database never locks.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:certihub_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

// NewNode returns a snowflake node for id generation in tests.
func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return node
}
