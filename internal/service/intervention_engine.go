package service

import (
	"fmt"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
)

// DetailAction is what a write must do to one detail kind.
type DetailAction int

const (
	DetailNone DetailAction = iota
	DetailUpsert
	DetailDelete
)

func (a DetailAction) String() string {
	switch a {
	case DetailUpsert:
		return "upsert"
	case DetailDelete:
		return "delete"
	default:
		return "none"
	}
}

// DetailPlan holds the action for each detail kind.
type DetailPlan struct {
	Mitigation DetailAction
	Adaptation DetailAction
}

// DetailState describes one detail kind going into an update.
type DetailState struct {
	Stored   bool
	Supplied bool
}

// ParseIntervention normalises raw or fails with a validation error.
func ParseIntervention(raw string) (models.InterventionType, error) {
	t, ok := models.ParseInterventionType(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("intervention_measurement %q must be one of Mitigation, Adaptation or Cross Cutting", raw))
	}
	return t, nil
}

// PlanCreate decides which detail rows a new submission gets. Payloads for a forbidden kind are dropped.
func PlanCreate(t models.InterventionType, hasMitigation, hasAdaptation bool) (DetailPlan, error) {
	req := models.RequiredDetails(t)
	mit, err := createAction("mitigation", req.Mitigation, hasMitigation)
	if err != nil {
		return DetailPlan{}, err
	}
	adp, err := createAction("adaptation", req.Adaptation, hasAdaptation)
	if err != nil {
		return DetailPlan{}, err
	}
	return DetailPlan{Mitigation: mit, Adaptation: adp}, nil
}

func createAction(kind string, req models.DetailRequirement, supplied bool) (DetailAction, error) {
	if req == models.DetailForbidden {
		return DetailNone, nil
	}
	if supplied {
		return DetailUpsert, nil
	}
	if req == models.DetailRequired {
		return DetailNone, missingDetail(kind)
	}
	return DetailNone, nil
}

// PlanUpdate decides detail mutations for the effective type after an update. A kind the type no longer allows
// is deleted whatever the payload says; a required kind must either exist already or be supplied.
func PlanUpdate(t models.InterventionType, mitigation, adaptation DetailState) (DetailPlan, error) {
	req := models.RequiredDetails(t)
	mit, err := updateAction("mitigation", req.Mitigation, mitigation)
	if err != nil {
		return DetailPlan{}, err
	}
	adp, err := updateAction("adaptation", req.Adaptation, adaptation)
	if err != nil {
		return DetailPlan{}, err
	}
	return DetailPlan{Mitigation: mit, Adaptation: adp}, nil
}

func updateAction(kind string, req models.DetailRequirement, state DetailState) (DetailAction, error) {
	switch req {
	case models.DetailForbidden:
		if state.Stored {
			return DetailDelete, nil
		}
		return DetailNone, nil
	case models.DetailRequired:
		if state.Supplied {
			return DetailUpsert, nil
		}
		if !state.Stored {
			return DetailNone, missingDetail(kind)
		}
		return DetailNone, nil
	default:
		if state.Supplied {
			return DetailUpsert, nil
		}
		return DetailNone, nil
	}
}

// AssembleView attaches the stored details that the submission's current type allows. Stray rows for a kind
// the type forbids, and both kinds for an unrecognised stored type, are left out.
func AssembleView(sub *models.Submission, mitigation *models.MitigationDetail, adaptation *models.AdaptationDetail) *dto.SubmissionView {
	view := &dto.SubmissionView{Submission: *sub, GeoLocation: sub.Location()}
	t, ok := models.ParseInterventionType(sub.InterventionMeasurement)
	if !ok {
		return view
	}
	req := models.RequiredDetails(t)
	if req.Mitigation != models.DetailForbidden {
		view.Mitigation = mitigation
	}
	if req.Adaptation != models.DetailForbidden {
		view.Adaptation = adaptation
	}
	return view
}

func missingDetail(kind string) error {
	return appErrors.Clone(appErrors.ErrMissingRequiredDetail, kind+"_data is required for this intervention type")
}
