package database

import (
	"log"
	"time"

	"pharma-crm/internal/credentials"
	"pharma-crm/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init connects (with retries), migrates the schema and seeds the
// default SYS_ADMIN account.
func Init(dsn, adminEmail, adminPassword string) *gorm.DB {
	var db *gorm.DB
	var err error

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			log.Println("connected to DB successfully")
			break
		}

		log.Printf("failed to connect to DB: %v", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatalf("failed to connect to db after %d attempts: %v", maxAttempts, err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	seedSysAdmin(db, adminEmail, adminPassword)

	return db
}

// Migrate applies the schema. Shared with the test setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AccessGrant{},
		&models.Credential{},
		&models.Prospect{},
		&models.Activity{},
		&models.Task{},
		&models.AuditEvent{},
	)
}

// сисадмин заводится только из конфига, через форму его не создать
func seedSysAdmin(db *gorm.DB, email, password string) {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleSysAdmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check sys admin: %v", err)
		return
	}
	if count > 0 {
		// сисадмин уже есть — ничего не делаем
		return
	}

	admin := models.User{
		Name:       "System Administrator",
		Email:      email,
		Role:       models.RoleSysAdmin,
		IsActive:   true,
		FirstLogin: true,
	}

	store := credentials.NewStore(db)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		return store.SetWithin(tx, admin.ID, password)
	})
	if err != nil {
		log.Printf("failed to create sys admin: %v", err)
		return
	}

	log.Printf("created default sys admin: %s", email)
}
