package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SeedCertification inserts a published certification with the given number
// of modules (sequence 1..n) and returns the certification and module ids.
func SeedCertification(t *testing.T, db *gorm.DB, node *snowflake.Node, title, price string, modules int) (snowflake.ID, []snowflake.ID) {
	t.Helper()

	now := time.Now().UTC()
	certID := node.Generate()
	err := db.Exec(`INSERT INTO certifications
		(id, slug, title, description, price, level, duration_label, status, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, 'beginner', '4 weeks', 'published', ?, ?)`,
		certID, fmt.Sprintf("%s-%s", title, certID.Base36()), title, price, now, now,
	).Error
	if err != nil {
		t.Fatalf("failed to seed certification: %v", err)
	}

	moduleIDs := make([]snowflake.ID, 0, modules)
	for i := 1; i <= modules; i++ {
		id := node.Generate()
		err := db.Exec(`INSERT INTO modules (id, certification_id, title, sequence, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, certID, fmt.Sprintf("Module %d", i), i, now,
		).Error
		if err != nil {
			t.Fatalf("failed to seed module: %v", err)
		}
		moduleIDs = append(moduleIDs, id)
	}
	return certID, moduleIDs
}

// SeedApplication inserts an application with the given status.
func SeedApplication(t *testing.T, db *gorm.DB, node *snowflake.Node, userID string, certID snowflake.ID, status string) snowflake.ID {
	t.Helper()

	now := time.Now().UTC()
	id := node.Generate()
	err := db.Exec(`INSERT INTO applications (id, user_id, certification_id, details, status, created_at, updated_at)
		VALUES (?, ?, ?, '{}', ?, ?, ?)`,
		id, userID, certID, status, now, now,
	).Error
	if err != nil {
		t.Fatalf("failed to seed application: %v", err)
	}
	return id
}
