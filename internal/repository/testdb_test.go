package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/caisse-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.LocalEntry{},
		&models.User{},
		&models.RemoteCart{},
		&models.Purchase{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}
