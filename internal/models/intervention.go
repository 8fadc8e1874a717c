package models

import "strings"

// InterventionType classifies a submission and decides which detail records apply to it.
type InterventionType string

const (
	InterventionMitigation   InterventionType = "mitigation"
	InterventionAdaptation   InterventionType = "adaptation"
	InterventionCrossCutting InterventionType = "cross cutting"
)

// ParseInterventionType trims and lowercases raw before matching. ok is false for anything unrecognised.
func ParseInterventionType(raw string) (InterventionType, bool) {
	switch t := InterventionType(strings.ToLower(strings.TrimSpace(raw))); t {
	case InterventionMitigation, InterventionAdaptation, InterventionCrossCutting:
		return t, true
	default:
		return "", false
	}
}

// Label is the display form stored by channels that normalise the value themselves, such as workbook uploads.
func (t InterventionType) Label() string {
	switch t {
	case InterventionMitigation:
		return "Mitigation"
	case InterventionAdaptation:
		return "Adaptation"
	case InterventionCrossCutting:
		return "Cross Cutting"
	default:
		return ""
	}
}

// DetailRequirement states whether a detail kind may exist for an intervention type.
type DetailRequirement int

const (
	DetailForbidden DetailRequirement = iota
	DetailOptional
	DetailRequired
)

func (r DetailRequirement) String() string {
	switch r {
	case DetailOptional:
		return "optional"
	case DetailRequired:
		return "required"
	default:
		return "forbidden"
	}
}

// DetailRequirements is one row of the intervention table.
type DetailRequirements struct {
	Mitigation DetailRequirement
	Adaptation DetailRequirement
}

// RequiredDetails is the single source for which detail records an intervention type implies.
// Unrecognised types forbid both.
func RequiredDetails(t InterventionType) DetailRequirements {
	switch t {
	case InterventionMitigation:
		return DetailRequirements{Mitigation: DetailRequired, Adaptation: DetailForbidden}
	case InterventionAdaptation:
		return DetailRequirements{Mitigation: DetailForbidden, Adaptation: DetailRequired}
	case InterventionCrossCutting:
		return DetailRequirements{Mitigation: DetailOptional, Adaptation: DetailOptional}
	default:
		return DetailRequirements{}
	}
}
