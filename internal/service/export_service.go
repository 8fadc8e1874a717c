package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

var exportContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var submissionColumns = []export.Column{
	{Key: "title", Title: "Title", Width: 3},
	{Key: "intervention", Title: "Intervention", Width: 1.4},
	{Key: "status", Title: "Status", Width: 1.2},
	{Key: "organization", Title: "Implementing organisation", Width: 2.4},
	{Key: "start", Title: "Start date", Width: 1.1},
	{Key: "end", Title: "End date", Width: 1.1},
	{Key: "funding", Title: "Funding amount", Width: 1.3},
}

type submissionLister interface {
	List(ctx context.Context, filter dto.SubmissionFilter) ([]models.Submission, int, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders live submissions as downloadable reports.
type ExportService struct {
	repo      submissionLister
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(repo submissionLister, logger *zap.Logger, csv, pdf, xlsx datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		repo:      repo,
		renderers: map[string]datasetRenderer{ExportFormatCSV: csv, ExportFormatPDF: pdf, ExportFormatXLSX: xlsx},
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders every live submission matching filter. Deleted rows are never exported.
func (s *ExportService) Export(ctx context.Context, format string, filter dto.SubmissionFilter) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if filter.Intervention != "" {
		t, err := ParseIntervention(string(filter.Intervention))
		if err != nil {
			return nil, err
		}
		filter.Intervention = t
	}
	filter.IncludeDeleted = false
	filter.Page, filter.PageSize = 0, 0

	subs, _, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("export listing failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to load submissions")
	}

	body, err := renderer.Render(submissionDataset(subs))
	if err != nil {
		s.logger.Error("export render failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("submissions_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: exportContentTypes[format],
		Body:        body,
		Rows:        len(subs),
	}, nil
}

func submissionDataset(subs []models.Submission) export.Dataset {
	rows := make([]map[string]string, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, map[string]string{
			"title":        sub.Title,
			"intervention": sub.InterventionMeasurement,
			"status":       deref(sub.SubmissionStatus),
			"organization": deref(sub.ImplementationOrganization),
			"start":        formatDate(sub.StartDate),
			"end":          formatDate(sub.EndDate),
			"funding":      formatAmount(sub.FundingAmount),
		})
	}
	return export.Dataset{Title: "Climate change response submissions", Columns: submissionColumns, Rows: rows}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
