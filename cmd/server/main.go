package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/config"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/handler"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/port"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/repository/postgres"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/router"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/service"
	s3storage "github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	recordRepo := postgres.NewRecordRepo(db)
	runRepo := postgres.NewRunRepo(db)

	// Export archiving to S3 is optional; without a bucket, exports stream only.
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		log.Printf("server: no S3 bucket configured, export archiving disabled")
	}

	// Initialize services
	recordSvc := service.NewRecordService(recordRepo, cfg.Recon.ValueTolerancePct)
	reconSvc := service.NewReconService(recordRepo, runRepo, storage, cfg.Recon, cfg.S3)

	// Initialize handlers
	recordH := handler.NewRecordHandler(recordSvc, cfg.Ingest.MaxFileSizeMB)
	runH := handler.NewRunHandler(reconSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(recordH, runH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("server: listening on %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
