package service

import (
	"errors"

	"github.com/smallbiznis/certihub/pkg/db"
)

// errDuplicate leaves the transaction so the conflict can be classified on a
// fresh connection; Postgres aborts the transaction on a unique violation.
var errDuplicate = errors.New("enrollment unique violation")

func isDuplicateKey(err error) bool {
	return db.IsDuplicateKeyErr(err)
}
