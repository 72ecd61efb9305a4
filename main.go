package main

import (
	"time"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/routes"
	"github.com/plumehq/plume/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.PageView{},
		&models.UploadedFile{},
	)

	r := routes.SetupRouter(db)

	// Background cleanup for orphaned image uploads (best-effort)
	utils.StartUploadCleaner(db, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
