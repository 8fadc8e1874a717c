package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/nccrd-api/internal/models"
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Search         string
	Intervention   models.InterventionType
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// MitigationInput is the mitigation_data object of a create request.
type MitigationInput struct {
	Sector                            string  `json:"sector" validate:"required"`
	Subsector                         *string `json:"subsector"`
	Secondary                         *string `json:"secondary"`
	ProjectType                       *string `json:"project_type"`
	ProjectSubtype                    *string `json:"project_subtype"`
	MitigationProgram                 *string `json:"mitigation_program"`
	NationalPolicy                    *string `json:"national_policy"`
	ProvincialMunicipal               *string `json:"provincial_municipal"`
	PrimaryIntendedOutcome            *string `json:"primary_intended_outcome"`
	ProgressCalculator                *string `json:"progress_calculator"`
	EnvironmentalCoBenefit            *string `json:"environmental_co_benefit"`
	EnvironmentalCoBenefitDescription *string `json:"environmental_co_benefit_description"`
	SocialCoBenefit                   *string `json:"social_co_benefit"`
	SocialCoBenefitDescription        *string `json:"social_co_benefit_description"`
	EconomicCoBenefit                 *string `json:"economic_co_benefit"`
	EconomicCoBenefitDescription      *string `json:"economic_co_benefit_description"`
	CarbonCredit                      *bool   `json:"carbon_credit"`
	CDMVoluntary                      *string `json:"cdm_voluntary"`
	CDMExecutiveBoardStatus           *string `json:"cdm_executive_board_status"`
	CDMMethodology                    *string `json:"cdm_methodology"`
	OrganizationIssuingCredits        *string `json:"organization_issuing_credits"`
	VoluntaryMethodology              *string `json:"voluntary_methodology"`
	CDMProjectNumber                  *string `json:"cdm_project_number"`
}

// Model converts the input into a detail row owned by submissionID.
func (in MitigationInput) Model(submissionID string) *models.MitigationDetail {
	return &models.MitigationDetail{
		SubmissionID:                      submissionID,
		Sector:                            in.Sector,
		Subsector:                         in.Subsector,
		Secondary:                         in.Secondary,
		ProjectType:                       in.ProjectType,
		ProjectSubtype:                    in.ProjectSubtype,
		MitigationProgram:                 in.MitigationProgram,
		NationalPolicy:                    in.NationalPolicy,
		ProvincialMunicipal:               in.ProvincialMunicipal,
		PrimaryIntendedOutcome:            in.PrimaryIntendedOutcome,
		ProgressCalculator:                in.ProgressCalculator,
		EnvironmentalCoBenefit:            in.EnvironmentalCoBenefit,
		EnvironmentalCoBenefitDescription: in.EnvironmentalCoBenefitDescription,
		SocialCoBenefit:                   in.SocialCoBenefit,
		SocialCoBenefitDescription:        in.SocialCoBenefitDescription,
		EconomicCoBenefit:                 in.EconomicCoBenefit,
		EconomicCoBenefitDescription:      in.EconomicCoBenefitDescription,
		CarbonCredit:                      in.CarbonCredit,
		CDMVoluntary:                      in.CDMVoluntary,
		CDMExecutiveBoardStatus:           in.CDMExecutiveBoardStatus,
		CDMMethodology:                    in.CDMMethodology,
		OrganizationIssuingCredits:        in.OrganizationIssuingCredits,
		VoluntaryMethodology:              in.VoluntaryMethodology,
		CDMProjectNumber:                  in.CDMProjectNumber,
	}
}

// AdaptationInput is the adaptation_data object of a create request.
type AdaptationInput struct {
	Sector               string  `json:"sector" validate:"required"`
	NationalPolicy       *string `json:"national_policy"`
	InterventionGoal     *string `json:"intervention_goal"`
	ProvincialMunicipal  *string `json:"provincial_municipal"`
	Hazard               *string `json:"hazard"`
	ProgressCalculator   *string `json:"progress_calculator"`
	ClimateImpact        *string `json:"climate_impact"`
	AddressClimateImpact *string `json:"address_climate_impact"`
	ImpactResponse       *string `json:"impact_response"`
}

// Model converts the input into a detail row owned by submissionID.
func (in AdaptationInput) Model(submissionID string) *models.AdaptationDetail {
	return &models.AdaptationDetail{
		SubmissionID:         submissionID,
		Sector:               in.Sector,
		NationalPolicy:       in.NationalPolicy,
		InterventionGoal:     in.InterventionGoal,
		ProvincialMunicipal:  in.ProvincialMunicipal,
		Hazard:               in.Hazard,
		ProgressCalculator:   in.ProgressCalculator,
		ClimateImpact:        in.ClimateImpact,
		AddressClimateImpact: in.AddressClimateImpact,
		ImpactResponse:       in.ImpactResponse,
	}
}

// CreateSubmissionRequest is the create_submission payload.
type CreateSubmissionRequest struct {
	Title                       string           `json:"title" validate:"required"`
	InterventionMeasurement     string           `json:"intervention_measurement" validate:"required"`
	Description                 *string          `json:"description"`
	ImplementationStatus        *string          `json:"implementation_status"`
	ImplementationOrganization  *string          `json:"implementation_organization"`
	ImplementationPartnersOther *string          `json:"implementation_partners_other"`
	StartDate                   *time.Time       `json:"start_date"`
	EndDate                     *time.Time       `json:"end_date"`
	Link                        *string          `json:"link"`
	FundingOrganization         *string          `json:"funding_organization"`
	FundingType                 *string          `json:"funding_type"`
	FundingAmount               *float64         `json:"funding_amount" validate:"omitempty,gte=0"`
	EstimatedBudgetCost         *string          `json:"estimated_budget_cost"`
	GeoLocation                 json.RawMessage  `json:"geo_location" swaggertype:"object"`
	ProjectManagerName          *string          `json:"project_manager_name"`
	ProjectManagerOrganization  *string          `json:"project_manager_organization"`
	ProjectManagerPosition      *string          `json:"project_manager_position"`
	ProjectManagerEmail         *string          `json:"project_manager_email" validate:"omitempty,email"`
	ProjectManagerPhone         *string          `json:"project_manager_phone"`
	ProjectManagerMobile        *string          `json:"project_manager_mobile"`
	SubmissionStatus            *string          `json:"submission_status"`
	SubmissionComments          *string          `json:"submission_comments"`
	IsSubmitted                 *bool            `json:"is_submitted"`
	Research                    *string          `json:"research"`
	MitigationData              *MitigationInput `json:"mitigation_data"`
	AdaptationData              *AdaptationInput `json:"adaptation_data"`
}

// Model builds the submission row. Identity and audit fields are left to the caller.
func (r CreateSubmissionRequest) Model() *models.Submission {
	sub := &models.Submission{
		Title:                       r.Title,
		InterventionMeasurement:     r.InterventionMeasurement,
		Description:                 r.Description,
		ImplementationStatus:        r.ImplementationStatus,
		ImplementationOrganization:  r.ImplementationOrganization,
		ImplementationPartnersOther: r.ImplementationPartnersOther,
		StartDate:                   r.StartDate,
		EndDate:                     r.EndDate,
		Link:                        r.Link,
		FundingOrganization:         r.FundingOrganization,
		FundingType:                 r.FundingType,
		FundingAmount:               r.FundingAmount,
		EstimatedBudgetCost:         r.EstimatedBudgetCost,
		ProjectManagerName:          r.ProjectManagerName,
		ProjectManagerOrganization:  r.ProjectManagerOrganization,
		ProjectManagerPosition:      r.ProjectManagerPosition,
		ProjectManagerEmail:         r.ProjectManagerEmail,
		ProjectManagerPhone:         r.ProjectManagerPhone,
		ProjectManagerMobile:        r.ProjectManagerMobile,
		SubmissionStatus:            r.SubmissionStatus,
		SubmissionComments:          r.SubmissionComments,
		IsSubmitted:                 true,
		Research:                    r.Research,
	}
	if r.IsSubmitted != nil {
		sub.IsSubmitted = *r.IsSubmitted
	}
	if sub.SubmissionStatus == nil {
		status := models.DefaultSubmissionStatus
		sub.SubmissionStatus = &status
	}
	sub.SetLocation(r.GeoLocation)
	return sub
}

// MitigationPatch carries the mitigation fields present in an update request.
type MitigationPatch struct {
	Sector                            *string `json:"sector"`
	Subsector                         *string `json:"subsector"`
	Secondary                         *string `json:"secondary"`
	ProjectType                       *string `json:"project_type"`
	ProjectSubtype                    *string `json:"project_subtype"`
	MitigationProgram                 *string `json:"mitigation_program"`
	NationalPolicy                    *string `json:"national_policy"`
	ProvincialMunicipal               *string `json:"provincial_municipal"`
	PrimaryIntendedOutcome            *string `json:"primary_intended_outcome"`
	ProgressCalculator                *string `json:"progress_calculator"`
	EnvironmentalCoBenefit            *string `json:"environmental_co_benefit"`
	EnvironmentalCoBenefitDescription *string `json:"environmental_co_benefit_description"`
	SocialCoBenefit                   *string `json:"social_co_benefit"`
	SocialCoBenefitDescription        *string `json:"social_co_benefit_description"`
	EconomicCoBenefit                 *string `json:"economic_co_benefit"`
	EconomicCoBenefitDescription      *string `json:"economic_co_benefit_description"`
	CarbonCredit                      *bool   `json:"carbon_credit"`
	CDMVoluntary                      *string `json:"cdm_voluntary"`
	CDMExecutiveBoardStatus           *string `json:"cdm_executive_board_status"`
	CDMMethodology                    *string `json:"cdm_methodology"`
	OrganizationIssuingCredits        *string `json:"organization_issuing_credits"`
	VoluntaryMethodology              *string `json:"voluntary_methodology"`
	CDMProjectNumber                  *string `json:"cdm_project_number"`
}

// Apply copies every field present in the patch onto d.
func (p MitigationPatch) Apply(d *models.MitigationDetail) {
	if p.Sector != nil {
		d.Sector = *p.Sector
	}
	set(&d.Subsector, p.Subsector)
	set(&d.Secondary, p.Secondary)
	set(&d.ProjectType, p.ProjectType)
	set(&d.ProjectSubtype, p.ProjectSubtype)
	set(&d.MitigationProgram, p.MitigationProgram)
	set(&d.NationalPolicy, p.NationalPolicy)
	set(&d.ProvincialMunicipal, p.ProvincialMunicipal)
	set(&d.PrimaryIntendedOutcome, p.PrimaryIntendedOutcome)
	set(&d.ProgressCalculator, p.ProgressCalculator)
	set(&d.EnvironmentalCoBenefit, p.EnvironmentalCoBenefit)
	set(&d.EnvironmentalCoBenefitDescription, p.EnvironmentalCoBenefitDescription)
	set(&d.SocialCoBenefit, p.SocialCoBenefit)
	set(&d.SocialCoBenefitDescription, p.SocialCoBenefitDescription)
	set(&d.EconomicCoBenefit, p.EconomicCoBenefit)
	set(&d.EconomicCoBenefitDescription, p.EconomicCoBenefitDescription)
	set(&d.CarbonCredit, p.CarbonCredit)
	set(&d.CDMVoluntary, p.CDMVoluntary)
	set(&d.CDMExecutiveBoardStatus, p.CDMExecutiveBoardStatus)
	set(&d.CDMMethodology, p.CDMMethodology)
	set(&d.OrganizationIssuingCredits, p.OrganizationIssuingCredits)
	set(&d.VoluntaryMethodology, p.VoluntaryMethodology)
	set(&d.CDMProjectNumber, p.CDMProjectNumber)
}

// AdaptationPatch carries the adaptation fields present in an update request.
type AdaptationPatch struct {
	Sector               *string `json:"sector"`
	NationalPolicy       *string `json:"national_policy"`
	InterventionGoal     *string `json:"intervention_goal"`
	ProvincialMunicipal  *string `json:"provincial_municipal"`
	Hazard               *string `json:"hazard"`
	ProgressCalculator   *string `json:"progress_calculator"`
	ClimateImpact        *string `json:"climate_impact"`
	AddressClimateImpact *string `json:"address_climate_impact"`
	ImpactResponse       *string `json:"impact_response"`
}

// Apply copies every field present in the patch onto d.
func (p AdaptationPatch) Apply(d *models.AdaptationDetail) {
	if p.Sector != nil {
		d.Sector = *p.Sector
	}
	set(&d.NationalPolicy, p.NationalPolicy)
	set(&d.InterventionGoal, p.InterventionGoal)
	set(&d.ProvincialMunicipal, p.ProvincialMunicipal)
	set(&d.Hazard, p.Hazard)
	set(&d.ProgressCalculator, p.ProgressCalculator)
	set(&d.ClimateImpact, p.ClimateImpact)
	set(&d.AddressClimateImpact, p.AddressClimateImpact)
	set(&d.ImpactResponse, p.ImpactResponse)
}

// UpdateSubmissionRequest is a partial update: nil fields are left unchanged. geo_location is cleared by an
// explicit JSON null.
type UpdateSubmissionRequest struct {
	Title                       *string          `json:"title" validate:"omitempty,min=1"`
	InterventionMeasurement     *string          `json:"intervention_measurement"`
	Description                 *string          `json:"description"`
	ImplementationStatus        *string          `json:"implementation_status"`
	ImplementationOrganization  *string          `json:"implementation_organization"`
	ImplementationPartnersOther *string          `json:"implementation_partners_other"`
	StartDate                   *time.Time       `json:"start_date"`
	EndDate                     *time.Time       `json:"end_date"`
	Link                        *string          `json:"link"`
	FundingOrganization         *string          `json:"funding_organization"`
	FundingType                 *string          `json:"funding_type"`
	FundingAmount               *float64         `json:"funding_amount" validate:"omitempty,gte=0"`
	EstimatedBudgetCost         *string          `json:"estimated_budget_cost"`
	GeoLocation                 json.RawMessage  `json:"geo_location" swaggertype:"object"`
	ProjectManagerName          *string          `json:"project_manager_name"`
	ProjectManagerOrganization  *string          `json:"project_manager_organization"`
	ProjectManagerPosition      *string          `json:"project_manager_position"`
	ProjectManagerEmail         *string          `json:"project_manager_email" validate:"omitempty,email"`
	ProjectManagerPhone         *string          `json:"project_manager_phone"`
	ProjectManagerMobile        *string          `json:"project_manager_mobile"`
	SubmissionStatus            *string          `json:"submission_status"`
	SubmissionComments          *string          `json:"submission_comments"`
	IsSubmitted                 *bool            `json:"is_submitted"`
	Research                    *string          `json:"research"`
	MitigationData              *MitigationPatch `json:"mitigation_data"`
	AdaptationData              *AdaptationPatch `json:"adaptation_data"`
}

// Apply merges the top-level fields present in the request onto s. Detail patches are handled separately.
func (r UpdateSubmissionRequest) Apply(s *models.Submission) {
	if r.Title != nil {
		s.Title = *r.Title
	}
	if r.InterventionMeasurement != nil {
		s.InterventionMeasurement = *r.InterventionMeasurement
	}
	set(&s.Description, r.Description)
	set(&s.ImplementationStatus, r.ImplementationStatus)
	set(&s.ImplementationOrganization, r.ImplementationOrganization)
	set(&s.ImplementationPartnersOther, r.ImplementationPartnersOther)
	set(&s.StartDate, r.StartDate)
	set(&s.EndDate, r.EndDate)
	set(&s.Link, r.Link)
	set(&s.FundingOrganization, r.FundingOrganization)
	set(&s.FundingType, r.FundingType)
	set(&s.FundingAmount, r.FundingAmount)
	set(&s.EstimatedBudgetCost, r.EstimatedBudgetCost)
	if len(r.GeoLocation) > 0 {
		s.SetLocation(r.GeoLocation)
	}
	set(&s.ProjectManagerName, r.ProjectManagerName)
	set(&s.ProjectManagerOrganization, r.ProjectManagerOrganization)
	set(&s.ProjectManagerPosition, r.ProjectManagerPosition)
	set(&s.ProjectManagerEmail, r.ProjectManagerEmail)
	set(&s.ProjectManagerPhone, r.ProjectManagerPhone)
	set(&s.ProjectManagerMobile, r.ProjectManagerMobile)
	set(&s.SubmissionStatus, r.SubmissionStatus)
	set(&s.SubmissionComments, r.SubmissionComments)
	if r.IsSubmitted != nil {
		s.IsSubmitted = *r.IsSubmitted
	}
	set(&s.Research, r.Research)
}

func set[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// SubmissionSummary is the list form of a submission, without detail records.
type SubmissionSummary struct {
	models.Submission
	GeoLocation json.RawMessage `json:"geo_location"`
}

// NewSubmissionSummary wraps a stored row for output.
func NewSubmissionSummary(s models.Submission) SubmissionSummary {
	return SubmissionSummary{Submission: s, GeoLocation: s.Location()}
}

// SubmissionView is the assembled view: the submission plus the detail records its intervention type allows.
type SubmissionView struct {
	models.Submission
	GeoLocation json.RawMessage          `json:"geo_location"`
	Mitigation  *models.MitigationDetail `json:"mitigation"`
	Adaptation  *models.AdaptationDetail `json:"adaptation"`
}

// CreateSubmissionResponse is returned by create and upload.
type CreateSubmissionResponse struct {
	SubmissionID string `json:"submission_id"`
	Detail       string `json:"detail"`
}

// DeleteSubmissionResponse acknowledges a soft delete.
type DeleteSubmissionResponse struct {
	Acknowledged bool `json:"acknowledged"`
}
