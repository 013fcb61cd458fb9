// Package db opens the gorm database used by the conversation store.
package db

import (
	"fmt"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/chatgram/chatgram/internal/chat"
)

// Connect opens the database for the given DSN. DSNs starting with "file:"
// or ending in ".db" use sqlite (local development); everything else is
// treated as a MySQL DSN.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") {
		dialector = gormsqlite.Open(dsn)
	} else {
		dialector = mysql.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	return gdb, nil
}

// Migrate creates or updates the conversation store schema.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&chat.User{}, &chat.ChatInstance{}, &chat.Message{}, &chat.Job{})
}
