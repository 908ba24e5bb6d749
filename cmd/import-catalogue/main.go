package main

import (
	"context"
	"encoding/json"
	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/db"
	"feature_catalogue_app_go/logger"
	"feature_catalogue_app_go/models"
	"feature_catalogue_app_go/services"
	"flag"
	"log"
	"os"
)

func main() {
	file := flag.String("file", "", "path to the .xlsx catalogue file")
	mode := flag.String("mode", "upload", "upload (append) or replace (supersede the current generation)")
	actor := flag.String("actor", "cli", "name recorded in the audit log")
	flag.Parse()

	if *file == "" {
		log.Fatal("Usage: import-catalogue -file catalogue.xlsx [-mode upload|replace] [-actor name]")
	}
	if *mode != "upload" && *mode != "replace" {
		log.Fatalf("Unknown mode %q, expected upload or replace", *mode)
	}

	// Load configuration
	cfg := config.Load()
	if err := logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		Environment: "production",
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(
		&models.Feature{},
		&models.Assessment{},
		&models.AssessmentResponse{},
		&models.LegacyFeatureSet{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer f.Close()

	sheet, err := services.ReadSheet(f)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	ctx := context.Background()
	var result interface{}
	if *mode == "replace" {
		services.InitializeArchive(cfg)
		result, err = services.ReplaceCatalogue(ctx, db.DB, sheet, *actor)
	} else {
		result, err = services.BulkUpload(ctx, db.DB, sheet, *actor)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	log.Printf("Import completed (%s):\n%s", *mode, out)
}
