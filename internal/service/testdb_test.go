package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RemoteCart{}, &models.Purchase{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		UserJWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
		Cart:    config.CartConfig{ExpireHours: 1, MaxItems: 3},
	}
}
