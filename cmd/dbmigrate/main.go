package main

import (
	"flag"
	"fmt"
	"log"

	"tg-sanction/internal/config"
	"tg-sanction/internal/models"
	"tg-sanction/internal/storage"

	"gorm.io/gorm"
)

// tables owned by the service, in drop order
var tables = []struct {
	name  string
	model interface{}
}{
	{"SanctionRecord", &models.SanctionRecord{}},
	{"BanRecord", &models.BanRecord{}},
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.Database.Enabled {
		log.Fatalf("Database is not enabled in configuration")
	}

	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	db := storage.GetDB()
	if db == nil {
		log.Fatalf("Failed to get database connection")
	}

	switch *action {
	case "migrate":
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		checkStatus(db)
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func migrateDatabase(db *gorm.DB) error {
	fmt.Println("Migrating database...")
	return storage.MigrateAll(db)
}

// resetDatabase drops tables and recreates them. Pending sanctions are lost,
// so members muted at that moment stay muted until lifted by hand.
func resetDatabase(db *gorm.DB) error {
	fmt.Println("Resetting database...")

	fmt.Print("WARNING: This will delete all data, including pending mutes! Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	for _, t := range tables {
		if err := db.Migrator().DropTable(t.model); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", t.name, err)
		}
	}

	return migrateDatabase(db)
}

func checkStatus(db *gorm.DB) {
	fmt.Println("Checking database status...")

	for _, t := range tables {
		if !db.Migrator().HasTable(t.model) {
			fmt.Printf("❌ %s table does not exist\n", t.name)
			continue
		}
		var count int64
		if err := db.Model(t.model).Count(&count).Error; err != nil {
			fmt.Printf("⚠️ %s table exists but cannot be read: %v\n", t.name, err)
			continue
		}
		fmt.Printf("✅ %s table exists\n", t.name)
		fmt.Printf("   - Contains %d records\n", count)
	}
}
