package utils

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
)

// StartUploadCleaner launches a background goroutine that periodically deletes
// expired uploaded images recorded in the database. An upload's expiry is
// refreshed to zero (never expires) once a post references it; only orphans
// are collected. Best-effort: failures are logged and retried next round.
func StartUploadCleaner(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			if db == nil {
				continue
			}
			var items []models.UploadedFile
			if err := db.Where("expire_at > ? AND expire_at <= ?", time.Time{}, time.Now()).
				Limit(100).Find(&items).Error; err != nil {
				log.Printf("upload cleaner query failed: %v", err)
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				// Remove row regardless of file deletion outcome
				if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
					log.Printf("upload cleaner delete row failed: %v", err)
				}
			}
		}
	}()
}
