package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// DB is the process-wide database handle set up by SetupDatabase.
var DB *gorm.DB

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,  // datetime precision needs MySQL >= 5.6
			DontSupportRenameIndex:    true,  // rename index needs MySQL >= 5.7
			DontSupportRenameColumn:   true,  // rename column needs MySQL >= 8
			SkipInitializeWithVersion: false, // auto configure based on current MySQL version
		}), &gorm.Config{})
		if err == nil {
			DB.AutoMigrate(
				&models.Academy{},
				&models.User{},
				&models.SubscriptionPlan{},
				&models.AcademySubscription{},
				&models.SubscriptionPayment{},
				&models.SubscriptionHistory{},
				&models.BillingWebhookEvent{},
				&models.Player{},
				&models.Transfer{},
				&models.ComplianceDocument{},
				&models.LedgerEntry{},
			)

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared database handle.
func GetDB() *gorm.DB {
	return DB
}
