package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/repository"
	"github.com/noah-isme/nccrd-api/internal/service"
	"github.com/noah-isme/nccrd-api/pkg/config"
	"github.com/noah-isme/nccrd-api/pkg/database"
	"github.com/noah-isme/nccrd-api/pkg/logger"
	"github.com/noah-isme/nccrd-api/pkg/workbook"
)

func main() {
	file := flag.String("file", "", "workbook with one project per row")
	sheet := flag.String("sheet", service.SheetProjectInfo, "sheet holding the header row and project rows")
	actor := flag.String("actor", "import-projects", "recorded as created_by on every submission")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall import timeout")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	f, err := os.Open(*file)
	if err != nil {
		logr.Fatal("failed to open workbook", zap.Error(err))
	}
	wb, err := workbook.Open(f)
	_ = f.Close()
	if err != nil {
		logr.Fatal("failed to read workbook", zap.String("file", *file), zap.Error(err))
	}
	records, err := wb.Records(*sheet)
	_ = wb.Close()
	if err != nil {
		logr.Fatal("failed to read sheet", zap.String("sheet", *sheet), zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	submissions := service.NewSubmissionService(repository.NewSubmissionRepository(db), validator.New(), nil, logr)
	importer := service.NewWorkbookService(submissions, nil, nil, logr)
	report := importer.ImportRecords(ctx, records, *actor)

	for _, failure := range report.Failures {
		logr.Warn("row rejected", zap.Int("row", failure.Row), zap.String("title", failure.Title), zap.String("error", failure.Error))
	}
	logr.Info("import finished", zap.Int("rows", report.Rows), zap.Int("created", report.Created), zap.Int("failed", len(report.Failures)))
	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}
