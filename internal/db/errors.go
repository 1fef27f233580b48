package db

import (
	"errors"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"gorm.io/gorm"
)

// IsDuplicateKey reports whether err is a uniqueness-conflict from the
// store. Callers use it to distinguish "already exists" from real
// failures when provisioning is racing another session.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}
