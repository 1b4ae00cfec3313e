package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_enrollments_user_active" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("constraint failed: UNIQUE constraint failed: enrollments.user_id (2067)")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}
