package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Default values applied when a submission is created without them.
const (
	DefaultSubmissionStatus = "Pending"
)

// Submission is a registry record describing one climate change response intervention.
type Submission struct {
	Seq                         int64              `db:"_id" json:"-"`
	ID                          string             `db:"id" json:"id"`
	Title                       string             `db:"title" json:"title"`
	InterventionMeasurement     string             `db:"intervention_measurement" json:"intervention_measurement"`
	Description                 *string            `db:"description" json:"description"`
	ImplementationStatus        *string            `db:"implementation_status" json:"implementation_status"`
	ImplementationOrganization  *string            `db:"implementation_organization" json:"implementation_organization"`
	ImplementationPartnersOther *string            `db:"implementation_partners_other" json:"implementation_partners_other"`
	StartDate                   *time.Time         `db:"start_date" json:"start_date"`
	EndDate                     *time.Time         `db:"end_date" json:"end_date"`
	Link                        *string            `db:"link" json:"link"`
	FundingOrganization         *string            `db:"funding_organization" json:"funding_organization"`
	FundingType                 *string            `db:"funding_type" json:"funding_type"`
	FundingAmount               *float64           `db:"funding_amount" json:"funding_amount"`
	EstimatedBudgetCost         *string            `db:"estimated_budget_cost" json:"estimated_budget_cost"`
	GeoLocation                 types.NullJSONText `db:"geo_location" json:"-"`
	ProjectManagerName          *string            `db:"project_manager_name" json:"project_manager_name"`
	ProjectManagerOrganization  *string            `db:"project_manager_organization" json:"project_manager_organization"`
	ProjectManagerPosition      *string            `db:"project_manager_position" json:"project_manager_position"`
	ProjectManagerEmail         *string            `db:"project_manager_email" json:"project_manager_email"`
	ProjectManagerPhone         *string            `db:"project_manager_phone" json:"project_manager_phone"`
	ProjectManagerMobile        *string            `db:"project_manager_mobile" json:"project_manager_mobile"`
	SubmissionStatus            *string            `db:"submission_status" json:"submission_status"`
	SubmissionComments          *string            `db:"submission_comments" json:"submission_comments"`
	IsSubmitted                 bool               `db:"is_submitted" json:"is_submitted"`
	Research                    *string            `db:"research" json:"research"`
	CreatedBy                   *string            `db:"created_by" json:"created_by"`
	CreatedAt                   time.Time          `db:"created_at" json:"created_at"`
	UpdatedBy                   *string            `db:"updated_by" json:"updated_by"`
	UpdatedAt                   *time.Time         `db:"updated_at" json:"updated_at"`
	DeletedBy                   *string            `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt                   *time.Time         `db:"deleted_at" json:"deleted_at,omitempty"`
	Deleted                     bool               `db:"deleted" json:"deleted"`
}

// Location returns the stored geo_location document, or nil when none was recorded.
func (s *Submission) Location() json.RawMessage {
	if !s.GeoLocation.Valid || len(s.GeoLocation.JSONText) == 0 {
		return nil
	}
	return json.RawMessage(s.GeoLocation.JSONText)
}

// SetLocation stores raw as geo_location. Empty input or a JSON null clears it.
func (s *Submission) SetLocation(raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		s.GeoLocation = types.NullJSONText{}
		return
	}
	s.GeoLocation = types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
}

// MitigationDetail carries the mitigation specific fields of a submission.
type MitigationDetail struct {
	ID                                int64   `db:"id" json:"-"`
	SubmissionID                      string  `db:"submission_id" json:"submission_id"`
	Sector                            string  `db:"sector" json:"sector"`
	Subsector                         *string `db:"subsector" json:"subsector"`
	Secondary                         *string `db:"secondary" json:"secondary"`
	ProjectType                       *string `db:"project_type" json:"project_type"`
	ProjectSubtype                    *string `db:"project_subtype" json:"project_subtype"`
	MitigationProgram                 *string `db:"mitigation_program" json:"mitigation_program"`
	NationalPolicy                    *string `db:"national_policy" json:"national_policy"`
	ProvincialMunicipal               *string `db:"provincial_municipal" json:"provincial_municipal"`
	PrimaryIntendedOutcome            *string `db:"primary_intended_outcome" json:"primary_intended_outcome"`
	ProgressCalculator                *string `db:"progress_calculator" json:"progress_calculator"`
	EnvironmentalCoBenefit            *string `db:"environmental_co_benefit" json:"environmental_co_benefit"`
	EnvironmentalCoBenefitDescription *string `db:"environmental_co_benefit_description" json:"environmental_co_benefit_description"`
	SocialCoBenefit                   *string `db:"social_co_benefit" json:"social_co_benefit"`
	SocialCoBenefitDescription        *string `db:"social_co_benefit_description" json:"social_co_benefit_description"`
	EconomicCoBenefit                 *string `db:"economic_co_benefit" json:"economic_co_benefit"`
	EconomicCoBenefitDescription      *string `db:"economic_co_benefit_description" json:"economic_co_benefit_description"`
	CarbonCredit                      *bool   `db:"carbon_credit" json:"carbon_credit"`
	CDMVoluntary                      *string `db:"cdm_voluntary" json:"cdm_voluntary"`
	CDMExecutiveBoardStatus           *string `db:"cdm_executive_board_status" json:"cdm_executive_board_status"`
	CDMMethodology                    *string `db:"cdm_methodology" json:"cdm_methodology"`
	OrganizationIssuingCredits        *string `db:"organization_issuing_credits" json:"organization_issuing_credits"`
	VoluntaryMethodology              *string `db:"voluntary_methodology" json:"voluntary_methodology"`
	CDMProjectNumber                  *string `db:"cdm_project_number" json:"cdm_project_number"`
}

// AdaptationDetail carries the adaptation specific fields of a submission.
type AdaptationDetail struct {
	ID                   int64   `db:"id" json:"-"`
	SubmissionID         string  `db:"submission_id" json:"submission_id"`
	Sector               string  `db:"sector" json:"sector"`
	NationalPolicy       *string `db:"national_policy" json:"national_policy"`
	InterventionGoal     *string `db:"intervention_goal" json:"intervention_goal"`
	ProvincialMunicipal  *string `db:"provincial_municipal" json:"provincial_municipal"`
	Hazard               *string `db:"hazard" json:"hazard"`
	ProgressCalculator   *string `db:"progress_calculator" json:"progress_calculator"`
	ClimateImpact        *string `db:"climate_impact" json:"climate_impact"`
	AddressClimateImpact *string `db:"address_climate_impact" json:"address_climate_impact"`
	ImpactResponse       *string `db:"impact_response" json:"impact_response"`
}
