// Package testdb opens throwaway in-memory databases for engine tests.
package testdb

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gari_rentals/internal/models"
)

var seq int64

// Open returns a migrated in-memory database unique to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&seq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Host{},
		&models.Vehicle{},
		&models.Reservation{},
		&models.TripUsage{},
		&models.ServiceRecord{},
		&models.Deposit{},
		&models.DepositAdjustment{},
		&models.Claim{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
