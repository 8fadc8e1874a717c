package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/nccrd-api/internal/dto"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/workbook"
)

type mockCreator struct {
	requests []dto.CreateSubmissionRequest
	err      error
	failFor  string
}

func (m *mockCreator) Create(ctx context.Context, req dto.CreateSubmissionRequest, actor string) (*dto.CreateSubmissionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.failFor != "" && req.Title == m.failFor {
		return nil, appErrors.Clone(appErrors.ErrMissingRequiredDetail, "mitigation_data is required for this intervention type")
	}
	return &dto.CreateSubmissionResponse{SubmissionID: fmt.Sprintf("sub-%d", len(m.requests))}, nil
}

type mockArchive struct {
	saved map[string][]byte
	err   error
}

func (m *mockArchive) Save(owner, filename string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	rel := owner + "/" + filename
	m.saved[rel] = body
	return rel, nil
}

type sheetRows map[string][][]interface{}

func buildWorkbook(t *testing.T, sheets sheetRows) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func projectForm() sheetRows {
	return sheetRows{
		SheetGeneral: {
			{"Title", nil, "Solar schools"},
			{"Indicate the type of measure", "Cross cutting measure"},
			{"Description", "Rooftop PV on schools"},
			{"Start year", "2021"},
			{"End year", "2024-06-30"},
			{"Actual budget", "R 1,250,000.50"},
			{"Email address", "pm@example.org"},
			{"Province", "Gauteng"},
			{"Municipality", "City of Tshwane"},
		},
		SheetMitigation: {
			{"Mitigation sector", "Energy"},
			{"Subsector", "Solar PV"},
			{"Are carbon credits issued?", "Yes"},
			{"CDM project number", "1234"},
		},
		SheetAdaptation: {
			{"Adaptation sector", "Education"},
			{"Hazard", "Heat"},
		},
	}
}

func openWorkbook(t *testing.T, content []byte) *workbook.Workbook {
	t.Helper()
	wb, err := workbook.Open(bytes.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(func() { _ = wb.Close() })
	return wb
}

func TestParseProjectFormCrossCutting(t *testing.T) {
	wb := openWorkbook(t, buildWorkbook(t, projectForm()))

	req, err := ParseProjectForm(wb)
	require.NoError(t, err)
	assert.Equal(t, "Solar schools", req.Title)
	assert.Equal(t, "Cross Cutting", req.InterventionMeasurement)
	assert.Equal(t, "Rooftop PV on schools", *req.Description)
	require.NotNil(t, req.StartDate)
	assert.Equal(t, 2021, req.StartDate.Year())
	require.NotNil(t, req.EndDate)
	assert.Equal(t, 6, int(req.EndDate.Month()))
	require.NotNil(t, req.FundingAmount)
	assert.InDelta(t, 1250000.50, *req.FundingAmount, 0.001)
	assert.JSONEq(t, `{"province":"Gauteng","municipality":"City of Tshwane"}`, string(req.GeoLocation))

	require.NotNil(t, req.MitigationData)
	assert.Equal(t, "Energy", req.MitigationData.Sector)
	assert.Equal(t, "Solar PV", *req.MitigationData.Subsector)
	require.NotNil(t, req.MitigationData.CarbonCredit)
	assert.True(t, *req.MitigationData.CarbonCredit)
	require.NotNil(t, req.AdaptationData)
	assert.Equal(t, "Heat", *req.AdaptationData.Hazard)
}

func TestParseProjectFormSkipsDetailSheetsTheTypeForbids(t *testing.T) {
	sheets := projectForm()
	sheets[SheetGeneral][1] = []interface{}{"Indicate the type of measure", "Adaptation"}
	wb := openWorkbook(t, buildWorkbook(t, sheets))

	req, err := ParseProjectForm(wb)
	require.NoError(t, err)
	assert.Equal(t, "Adaptation", req.InterventionMeasurement)
	assert.Nil(t, req.MitigationData)
	require.NotNil(t, req.AdaptationData)
}

func TestParseProjectFormMissingSectorLeavesDetailOut(t *testing.T) {
	sheets := projectForm()
	sheets[SheetGeneral][1] = []interface{}{"Indicate the type of measure", "Mitigation"}
	sheets[SheetMitigation] = [][]interface{}{{"Subsector", "Wind"}}
	wb := openWorkbook(t, buildWorkbook(t, sheets))

	req, err := ParseProjectForm(wb)
	require.NoError(t, err)
	assert.Nil(t, req.MitigationData)
}

func TestParseProjectFormRejectsBadCells(t *testing.T) {
	sheets := projectForm()
	sheets[SheetGeneral][3] = []interface{}{"Start year", "sometime"}
	wb := openWorkbook(t, buildWorkbook(t, sheets))

	_, err := ParseProjectForm(wb)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	wb = openWorkbook(t, buildWorkbook(t, sheetRows{"Other": {{"Title", "x"}}}))
	_, err = ParseProjectForm(wb)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestMeasureLabel(t *testing.T) {
	assert.Equal(t, "Mitigation", MeasureLabel("Mitigation measure"))
	assert.Equal(t, "Adaptation", MeasureLabel(" ADAPTATION"))
	assert.Equal(t, "Cross Cutting", MeasureLabel("Cross-cutting (mitigation and adaptation)"))
	assert.Equal(t, "Resilience", MeasureLabel(" Resilience "))
}

func TestWorkbookServiceUploadArchivesOriginal(t *testing.T) {
	creator := &mockCreator{}
	archive := &mockArchive{}
	svc := NewWorkbookService(creator, archive, NewMetricsService(), nil)
	content := buildWorkbook(t, projectForm())

	resp, err := svc.Upload(context.Background(), "form.xlsm", content, "uploader")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", resp.SubmissionID)
	require.Len(t, creator.requests, 1)
	assert.Equal(t, content, archive.saved["sub-1/form.xlsm"])
}

func TestWorkbookServiceUploadArchiveFailureKeepsSubmission(t *testing.T) {
	creator := &mockCreator{}
	svc := NewWorkbookService(creator, &mockArchive{err: errors.New("disk full")}, nil, nil)

	resp, err := svc.Upload(context.Background(), "form.xlsx", buildWorkbook(t, projectForm()), "")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", resp.SubmissionID)
}

func TestWorkbookServiceUploadRejectsGarbage(t *testing.T) {
	creator := &mockCreator{}
	svc := NewWorkbookService(creator, nil, nil, nil)

	_, err := svc.Upload(context.Background(), "notes.txt", []byte("not a workbook"), "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, creator.requests)
}

func TestWorkbookServiceUploadPropagatesCreateError(t *testing.T) {
	creator := &mockCreator{err: appErrors.Clone(appErrors.ErrMissingRequiredDetail, "mitigation_data is required")}
	svc := NewWorkbookService(creator, nil, nil, nil)

	_, err := svc.Upload(context.Background(), "form.xlsx", buildWorkbook(t, projectForm()), "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingRequiredDetail))
}

func TestProjectRecordRequest(t *testing.T) {
	req, err := ProjectRecordRequest(map[string]string{
		"Project Title":        " Wind farm ",
		"Type of Intervention": "Mitigation",
		"Start Date":           "2020-01-15",
		"Funding Amount":       "5000",
		"Submitted":            "Yes",
		"Sector Type":          "Mitigation",
		"Sector":               "Energy",
		"Carbon Credit":        "No",
		"Province":             "Northern Cape",
	})
	require.NoError(t, err)
	assert.Equal(t, "Wind farm", req.Title)
	assert.True(t, *req.IsSubmitted)
	assert.Equal(t, 2020, req.StartDate.Year())
	require.NotNil(t, req.MitigationData)
	assert.Equal(t, "Energy", req.MitigationData.Sector)
	assert.False(t, *req.MitigationData.CarbonCredit)
	assert.Nil(t, req.AdaptationData)
	assert.JSONEq(t, `{"province":"Northern Cape"}`, string(req.GeoLocation))

	_, err = ProjectRecordRequest(map[string]string{"Project Title": "x", "Funding Amount": "n/a"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestWorkbookServiceImportRecordsCountsFailures(t *testing.T) {
	creator := &mockCreator{failFor: "Broken"}
	svc := NewWorkbookService(creator, nil, NewMetricsService(), nil)

	report := svc.ImportRecords(context.Background(), []map[string]string{
		{"Project Title": "Good", "Type of Intervention": "Adaptation", "Sector Type": "Adaptation", "Sector": "Water"},
		{"Project Title": "Broken", "Type of Intervention": "Mitigation"},
		{"Project Title": "Bad date", "Start Date": "yesterday"},
	}, "importer")

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, []string{"sub-1"}, report.SubmissionIDs)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, 3, report.Failures[0].Row)
	assert.Equal(t, "Broken", report.Failures[0].Title)
	assert.Equal(t, 4, report.Failures[1].Row)
	assert.Len(t, creator.requests, 2)
}
