package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/export"
)

type listerStub struct {
	subs   []models.Submission
	err    error
	filter dto.SubmissionFilter
}

func (l *listerStub) List(ctx context.Context, filter dto.SubmissionFilter) ([]models.Submission, int, error) {
	l.filter = filter
	return l.subs, len(l.subs), l.err
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) { return nil, errors.New("font missing") }

func exportFixture() []models.Submission {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	amount := 1500000.0
	return []models.Submission{
		{ID: "a", Title: "Solar Farm X", InterventionMeasurement: "Mitigation", SubmissionStatus: strRef("Pending"), StartDate: &start, FundingAmount: &amount},
		{ID: "b", Title: "Dune rehabilitation", InterventionMeasurement: "Adaptation", ImplementationOrganization: strRef("SANParks")},
	}
}

func TestExportServiceCSV(t *testing.T) {
	lister := &listerStub{subs: exportFixture()}
	svc := NewExportService(lister, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	result, err := svc.Export(context.Background(), "", dto.SubmissionFilter{IncludeDeleted: true, Intervention: "mitigation", PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "submissions_20240506_070809.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, 2, result.Rows)
	assert.False(t, lister.filter.IncludeDeleted)
	assert.Zero(t, lister.filter.PageSize)
	assert.Equal(t, models.InterventionMitigation, lister.filter.Intervention)

	records, err := csv.NewReader(bytes.NewReader(result.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Title", records[0][0])
	assert.Equal(t, []string{"Solar Farm X", "Mitigation", "Pending", "", "2022-01-01", "", "1500000.00"}, records[1])
	assert.Equal(t, "SANParks", records[2][3])
}

func TestExportServicePDFAndXLSX(t *testing.T) {
	svc := NewExportService(&listerStub{subs: exportFixture()}, nil, nil, nil, nil)

	pdf, err := svc.Export(context.Background(), "PDF", dto.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	xlsx, err := svc.Export(context.Background(), "xlsx", dto.SubmissionFilter{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
}

func TestExportServiceErrors(t *testing.T) {
	svc := NewExportService(&listerStub{}, nil, nil, failingRenderer{}, nil)

	_, err := svc.Export(context.Background(), "docx", dto.SubmissionFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), "csv", dto.SubmissionFilter{Intervention: "unknown"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), "pdf", dto.SubmissionFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	svc = NewExportService(&listerStub{err: errors.New("timeout")}, nil, nil, nil, nil)
	_, err = svc.Export(context.Background(), "csv", dto.SubmissionFilter{})
	assert.True(t, appErrors.Is(err, appErrors.ErrStorageFailure))
}
