package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/workbook"
)

// Sheet names of the project form workbook.
const (
	SheetGeneral    = "General project details"
	SheetMitigation = "Mitigation details"
	SheetAdaptation = "Adaptation details"
	// SheetProjectInfo is the default sheet of the tabular import.
	SheetProjectInfo = "Project Info"
)

const (
	ingestionSourceForm  = "form"
	ingestionSourceTable = "table"
)

type submissionCreator interface {
	Create(ctx context.Context, req dto.CreateSubmissionRequest, actor string) (*dto.CreateSubmissionResponse, error)
}

type workbookArchive interface {
	Save(owner, filename string, r io.Reader) (string, error)
}

// WorkbookService turns spreadsheets into create requests and hands them to the submission lifecycle.
type WorkbookService struct {
	creator submissionCreator
	archive workbookArchive
	metrics *MetricsService
	logger  *zap.Logger
}

// NewWorkbookService constructs the service. A nil archive disables keeping uploaded originals.
func NewWorkbookService(creator submissionCreator, archive workbookArchive, metrics *MetricsService, logger *zap.Logger) *WorkbookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookService{creator: creator, archive: archive, metrics: metrics, logger: logger}
}

// Upload ingests one project form workbook as a new submission.
func (s *WorkbookService) Upload(ctx context.Context, filename string, content []byte, actor string) (*dto.CreateSubmissionResponse, error) {
	wb, err := workbook.Open(bytes.NewReader(content))
	if err != nil {
		s.metrics.RecordIngestion(ingestionSourceForm, OutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not a readable workbook")
	}
	defer wb.Close() //nolint:errcheck

	req, err := ParseProjectForm(wb)
	if err != nil {
		s.metrics.RecordIngestion(ingestionSourceForm, OutcomeRejected)
		return nil, err
	}

	resp, err := s.creator.Create(ctx, *req, actor)
	if err != nil {
		s.metrics.RecordIngestion(ingestionSourceForm, outcomeOf(err))
		return nil, err
	}
	s.metrics.RecordIngestion(ingestionSourceForm, OutcomeSuccess)

	if s.archive != nil {
		rel, err := s.archive.Save(resp.SubmissionID, filename, bytes.NewReader(content))
		if err != nil {
			s.logger.Warn("workbook archive failed", zap.String("submission_id", resp.SubmissionID), zap.Error(err))
		} else {
			s.logger.Info("workbook archived", zap.String("submission_id", resp.SubmissionID), zap.String("path", rel))
		}
	}
	return resp, nil
}

// ImportRecords creates one submission per tabular row. Rows fail independently.
func (s *WorkbookService) ImportRecords(ctx context.Context, records []map[string]string, actor string) dto.ImportReport {
	report := dto.ImportReport{Rows: len(records)}
	for i, record := range records {
		// header is row 1
		row := i + 2
		req, err := ProjectRecordRequest(record)
		if err == nil {
			var resp *dto.CreateSubmissionResponse
			resp, err = s.creator.Create(ctx, req, actor)
			if err == nil {
				report.Created++
				report.SubmissionIDs = append(report.SubmissionIDs, resp.SubmissionID)
				s.metrics.RecordIngestion(ingestionSourceTable, OutcomeSuccess)
				continue
			}
		}
		s.metrics.RecordIngestion(ingestionSourceTable, outcomeOf(err))
		s.logger.Warn("project row rejected", zap.Int("row", row), zap.String("title", record["Project Title"]), zap.Error(err))
		report.Failures = append(report.Failures, dto.ImportFailure{Row: row, Title: record["Project Title"], Error: err.Error()})
	}
	return report
}

// ParseProjectForm reads the general sheet and the detail sheets the measure type implies.
func ParseProjectForm(wb *workbook.Workbook) (*dto.CreateSubmissionRequest, error) {
	if !wb.HasSheet(SheetGeneral) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("workbook has no %q sheet", SheetGeneral))
	}
	general, err := wb.LabelValues(SheetGeneral)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable project details")
	}

	req := &dto.CreateSubmissionRequest{
		Title:                       general["Title"],
		InterventionMeasurement:     MeasureLabel(general["Indicate the type of measure"]),
		Description:                 optional(general, "Description"),
		ImplementationStatus:        optional(general, "Implementation status"),
		ImplementationOrganization:  optional(general, "Implementing organization"),
		ImplementationPartnersOther: optional(general, "Other implementing partners"),
		Link:                        optional(general, "Link to project website"),
		FundingOrganization:         optional(general, "Funding organization"),
		FundingType:                 optional(general, "Type of funding"),
		EstimatedBudgetCost:         optional(general, "Estimated budget range"),
		ProjectManagerName:          optional(general, "Name"),
		ProjectManagerOrganization:  optional(general, "Company/organization"),
		ProjectManagerPosition:      optional(general, "Position"),
		ProjectManagerEmail:         optional(general, "Email address"),
		ProjectManagerPhone:         optional(general, "Phone number"),
		ProjectManagerMobile:        optional(general, "Mobile number"),
	}
	if req.StartDate, err = optionalDate(general, "Start year"); err != nil {
		return nil, err
	}
	if req.EndDate, err = optionalDate(general, "End year"); err != nil {
		return nil, err
	}
	if req.FundingAmount, err = optionalAmount(general, "Actual budget"); err != nil {
		return nil, err
	}
	if req.GeoLocation, err = placeLocation(general["Province"], general["Municipality"]); err != nil {
		return nil, err
	}

	t, ok := models.ParseInterventionType(req.InterventionMeasurement)
	if !ok {
		// Create reports the unrecognised value.
		return req, nil
	}
	need := models.RequiredDetails(t)
	if need.Mitigation != models.DetailForbidden && wb.HasSheet(SheetMitigation) {
		values, err := wb.LabelValues(SheetMitigation)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable mitigation details")
		}
		req.MitigationData = mitigationFromForm(values)
	}
	if need.Adaptation != models.DetailForbidden && wb.HasSheet(SheetAdaptation) {
		values, err := wb.LabelValues(SheetAdaptation)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable adaptation details")
		}
		req.AdaptationData = adaptationFromForm(values)
	}
	return req, nil
}

// MeasureLabel maps free text such as "Mitigation measure" onto the canonical type label by substring.
// Text matching none of them is returned trimmed so Create can reject it.
func MeasureLabel(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "cross"):
		return models.InterventionCrossCutting.Label()
	case strings.Contains(lower, "mitigation"):
		return models.InterventionMitigation.Label()
	case strings.Contains(lower, "adaptation"):
		return models.InterventionAdaptation.Label()
	default:
		return strings.TrimSpace(raw)
	}
}

func mitigationFromForm(values map[string]string) *dto.MitigationInput {
	sector := values["Mitigation sector"]
	if sector == "" {
		return nil
	}
	in := &dto.MitigationInput{
		Sector:                            sector,
		Subsector:                         optional(values, "Subsector"),
		Secondary:                         optional(values, "Secondary sector"),
		ProjectType:                       optional(values, "Project type"),
		ProjectSubtype:                    optional(values, "Project subtype"),
		MitigationProgram:                 optional(values, "Mitigation programme"),
		NationalPolicy:                    optional(values, "National policy"),
		ProvincialMunicipal:               optional(values, "Provincial / municipal policy / framework"),
		PrimaryIntendedOutcome:            optional(values, "Primary intended mitigation outcome"),
		ProgressCalculator:                optional(values, "Progress calculator / explanation"),
		EnvironmentalCoBenefit:            optional(values, "Environmental co-benefit"),
		EnvironmentalCoBenefitDescription: optional(values, "Environmental co-benefit description"),
		SocialCoBenefit:                   optional(values, "Social co-benefit"),
		SocialCoBenefitDescription:        optional(values, "Social co-benefit description"),
		EconomicCoBenefit:                 optional(values, "Economic co-benefit"),
		EconomicCoBenefitDescription:      optional(values, "Economic co-benefit description"),
		CDMVoluntary:                      optional(values, "CDM / Voluntary"),
		CDMExecutiveBoardStatus:           optional(values, "CDM Executive Board status"),
		CDMMethodology:                    optional(values, "CDM methodology"),
		OrganizationIssuingCredits:        optional(values, "Organisation issuing carbon credits"),
		VoluntaryMethodology:              optional(values, "Voluntary methodology"),
		CDMProjectNumber:                  optional(values, "CDM project number"),
	}
	if raw, ok := values["Are carbon credits issued?"]; ok {
		issued := workbook.ParseYesNo(raw)
		in.CarbonCredit = &issued
	}
	return in
}

func adaptationFromForm(values map[string]string) *dto.AdaptationInput {
	sector := values["Adaptation sector"]
	if sector == "" {
		return nil
	}
	return &dto.AdaptationInput{
		Sector:               sector,
		NationalPolicy:       optional(values, "National policy"),
		InterventionGoal:     optional(values, "Overall adaptation intervention goal"),
		ProvincialMunicipal:  optional(values, "Provincial / municipal policy / framework"),
		Hazard:               optional(values, "Hazard"),
		ProgressCalculator:   optional(values, "Progress calculator / explanation"),
		ClimateImpact:        optional(values, "Observed and projected climate change impacts"),
		AddressClimateImpact: optional(values, "How the intervention addresses the climate impact"),
		ImpactResponse:       optional(values, "Adaptation impact response"),
	}
}

// ProjectRecordRequest maps one row of the legacy tabular import. "Sector Type" picks the single detail record
// the row carries.
func ProjectRecordRequest(record map[string]string) (dto.CreateSubmissionRequest, error) {
	req := dto.CreateSubmissionRequest{
		Title:                       strings.TrimSpace(record["Project Title"]),
		InterventionMeasurement:     record["Type of Intervention"],
		Description:                 optional(record, "Description"),
		ImplementationStatus:        optional(record, "Status"),
		ImplementationOrganization:  optional(record, "Implementing Org"),
		ImplementationPartnersOther: optional(record, "Partners"),
		Link:                        optional(record, "Website"),
		FundingOrganization:         optional(record, "Funder"),
		FundingType:                 optional(record, "Funding Type"),
		EstimatedBudgetCost:         optional(record, "Estimated Budget"),
		ProjectManagerName:          optional(record, "Manager Name"),
		ProjectManagerOrganization:  optional(record, "Manager Org"),
		ProjectManagerPosition:      optional(record, "Manager Role"),
		ProjectManagerEmail:         optional(record, "Manager Email"),
		ProjectManagerPhone:         optional(record, "Manager Phone"),
		ProjectManagerMobile:        optional(record, "Manager Mobile"),
		SubmissionStatus:            optional(record, "Submission Status"),
		SubmissionComments:          optional(record, "Comments"),
		Research:                    optional(record, "Research Type"),
	}
	submitted := workbook.ParseYesNo(record["Submitted"])
	req.IsSubmitted = &submitted

	var err error
	if req.StartDate, err = optionalDate(record, "Start Date"); err != nil {
		return req, err
	}
	if req.EndDate, err = optionalDate(record, "End Date"); err != nil {
		return req, err
	}
	if req.FundingAmount, err = optionalAmount(record, "Funding Amount"); err != nil {
		return req, err
	}
	if req.GeoLocation, err = placeLocation(record["Province"], record["Municipality"]); err != nil {
		return req, err
	}

	sector := strings.TrimSpace(record["Sector"])
	if sector == "" {
		return req, nil
	}
	switch strings.ToLower(strings.TrimSpace(record["Sector Type"])) {
	case "mitigation":
		credit := workbook.ParseYesNo(record["Carbon Credit"])
		req.MitigationData = &dto.MitigationInput{
			Sector:                            sector,
			Subsector:                         optional(record, "Subsector"),
			Secondary:                         optional(record, "Secondary Sector"),
			ProjectType:                       optional(record, "Project Type"),
			ProjectSubtype:                    optional(record, "Subtype"),
			MitigationProgram:                 optional(record, "Program"),
			NationalPolicy:                    optional(record, "National Policy"),
			ProvincialMunicipal:               optional(record, "Local Policy"),
			PrimaryIntendedOutcome:            optional(record, "Outcome"),
			ProgressCalculator:                optional(record, "Progress"),
			EnvironmentalCoBenefit:            optional(record, "Env Co-benefit"),
			EnvironmentalCoBenefitDescription: optional(record, "Env Description"),
			SocialCoBenefit:                   optional(record, "Soc Co-benefit"),
			SocialCoBenefitDescription:        optional(record, "Soc Description"),
			EconomicCoBenefit:                 optional(record, "Econ Co-benefit"),
			EconomicCoBenefitDescription:      optional(record, "Econ Description"),
			CarbonCredit:                      &credit,
			CDMVoluntary:                      optional(record, "CDM Type"),
			CDMExecutiveBoardStatus:           optional(record, "CDM Status"),
			CDMMethodology:                    optional(record, "Methodology"),
			OrganizationIssuingCredits:        optional(record, "Issuer"),
			VoluntaryMethodology:              optional(record, "Vol Methodology"),
			CDMProjectNumber:                  optional(record, "Project Number"),
		}
	case "adaptation":
		req.AdaptationData = &dto.AdaptationInput{
			Sector:               sector,
			NationalPolicy:       optional(record, "National Policy"),
			InterventionGoal:     optional(record, "Goal"),
			ProvincialMunicipal:  optional(record, "Local Policy"),
			Hazard:               optional(record, "Hazard"),
			ProgressCalculator:   optional(record, "Progress"),
			ClimateImpact:        optional(record, "Impact"),
			AddressClimateImpact: optional(record, "Address Impact"),
			ImpactResponse:       optional(record, "Impact Response"),
		}
	}
	return req, nil
}

func optional(values map[string]string, key string) *string {
	v := strings.TrimSpace(values[key])
	if v == "" {
		return nil
	}
	return &v
}

func optionalDate(values map[string]string, key string) (*time.Time, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return nil, nil
	}
	t, err := workbook.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("%s: %v", key, err))
	}
	return &t, nil
}

func optionalAmount(values map[string]string, key string) (*float64, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return nil, nil
	}
	v, err := workbook.ParseAmount(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("%s: %v", key, err))
	}
	return &v, nil
}

// placeLocation records province and municipality names as geo_location metadata.
func placeLocation(province, municipality string) (json.RawMessage, error) {
	province, municipality = strings.TrimSpace(province), strings.TrimSpace(municipality)
	if province == "" && municipality == "" {
		return nil, nil
	}
	place := map[string]string{}
	if province != "" {
		place["province"] = province
	}
	if municipality != "" {
		place["municipality"] = municipality
	}
	raw, err := json.Marshal(place)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	return raw, nil
}
