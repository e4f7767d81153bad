package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: key-value table holding the aggregate review state
		{
			ID: "001_kv_entries",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&KVEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("kv_entries")
			},
		},
	})
	return m.Migrate()
}
