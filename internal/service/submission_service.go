package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/internal/repository"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/geojson"
)

const (
	defaultSubmissionPageSize = 20
	maxSubmissionPageSize     = 200
)

type submissionRepository interface {
	repository.SubmissionStore
	WithinTx(ctx context.Context, fn func(store repository.SubmissionStore) error) error
}

// SubmissionService owns the submission lifecycle: create, assembled read, partial update and soft delete.
// Every write runs in a single transaction spanning the submission row and both detail rows.
type SubmissionService struct {
	repo      submissionRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, validator: validate, metrics: metrics, logger: logger, now: time.Now}
}

// Create stores a submission and the detail rows its intervention type calls for.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest, actor string) (*dto.CreateSubmissionResponse, error) {
	sub, plan, err := s.prepareCreate(req)
	if err != nil {
		s.record("create", err)
		return nil, err
	}

	now := s.now().UTC()
	sub.ID = uuid.NewString()
	sub.CreatedAt = now
	sub.CreatedBy = actorRef(actor)

	err = s.repo.WithinTx(ctx, func(store repository.SubmissionStore) error {
		if err := store.Insert(ctx, sub); err != nil {
			return err
		}
		if plan.Mitigation == DetailUpsert {
			if err := store.UpsertMitigation(ctx, req.MitigationData.Model(sub.ID)); err != nil {
				return err
			}
		}
		if plan.Adaptation == DetailUpsert {
			if err := store.UpsertAdaptation(ctx, req.AdaptationData.Model(sub.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = s.storageError(err, "failed to create submission")
		s.record("create", err)
		return nil, err
	}

	s.record("create", nil)
	s.logger.Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("intervention", sub.InterventionMeasurement),
		zap.Stringer("mitigation", plan.Mitigation),
		zap.Stringer("adaptation", plan.Adaptation),
	)
	return &dto.CreateSubmissionResponse{SubmissionID: sub.ID, Detail: "submission created"}, nil
}

// prepareCreate runs every check that does not need storage, so invalid input never opens a transaction.
// Detail payloads the intervention type forbids are dropped before validation.
func (s *SubmissionService) prepareCreate(req dto.CreateSubmissionRequest) (*models.Submission, DetailPlan, error) {
	t, err := ParseIntervention(req.InterventionMeasurement)
	if err != nil {
		return nil, DetailPlan{}, err
	}
	allowed := models.RequiredDetails(t)
	if allowed.Mitigation == models.DetailForbidden {
		req.MitigationData = nil
	}
	if allowed.Adaptation == models.DetailForbidden {
		req.AdaptationData = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, DetailPlan{}, validationError(err, "invalid submission payload")
	}
	if err := requireText("title", req.Title); err != nil {
		return nil, DetailPlan{}, err
	}
	if req.MitigationData != nil {
		if err := requireText("mitigation_data.sector", req.MitigationData.Sector); err != nil {
			return nil, DetailPlan{}, err
		}
	}
	if req.AdaptationData != nil {
		if err := requireText("adaptation_data.sector", req.AdaptationData.Sector); err != nil {
			return nil, DetailPlan{}, err
		}
	}
	if err := validateLocation(req.GeoLocation); err != nil {
		return nil, DetailPlan{}, err
	}
	plan, err := PlanCreate(t, req.MitigationData != nil, req.AdaptationData != nil)
	if err != nil {
		return nil, DetailPlan{}, err
	}
	sub := req.Model()
	sub.Title = strings.TrimSpace(req.Title)
	sub.InterventionMeasurement = strings.TrimSpace(req.InterventionMeasurement)
	return sub, plan, nil
}

// Get returns the assembled view of a live submission.
func (s *SubmissionService) Get(ctx context.Context, id string) (*dto.SubmissionView, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, submissionNotFound(id)
		}
		return nil, s.storageError(err, "failed to load submission")
	}
	if sub.Deleted {
		return nil, submissionNotFound(id)
	}
	return s.assemble(ctx, s.repo, sub)
}

func (s *SubmissionService) assemble(ctx context.Context, store repository.SubmissionStore, sub *models.Submission) (*dto.SubmissionView, error) {
	mitigation, err := store.FindMitigation(ctx, sub.ID)
	if err != nil {
		return nil, s.storageError(err, "failed to load mitigation detail")
	}
	adaptation, err := store.FindAdaptation(ctx, sub.ID)
	if err != nil {
		return nil, s.storageError(err, "failed to load adaptation detail")
	}
	return AssembleView(sub, mitigation, adaptation), nil
}

// List returns submission summaries without detail records. Deleted rows are excluded unless the filter asks
// for them.
func (s *SubmissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionSummary, *models.Pagination, error) {
	if filter.Intervention != "" {
		t, err := ParseIntervention(string(filter.Intervention))
		if err != nil {
			return nil, nil, err
		}
		filter.Intervention = t
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultSubmissionPageSize
	}
	if filter.PageSize > maxSubmissionPageSize {
		filter.PageSize = maxSubmissionPageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)

	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, s.storageError(err, "failed to list submissions")
	}
	items := make([]dto.SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		items = append(items, dto.NewSubmissionSummary(sub))
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update applies a partial update and returns the assembled view read inside the same transaction. Detail kinds the effective
// intervention type no longer allows are deleted; allowed kinds are merged field by field.
func (s *SubmissionService) Update(ctx context.Context, id string, req dto.UpdateSubmissionRequest, actor string) (*dto.SubmissionView, error) {
	newType, err := s.prepareUpdate(req)
	if err != nil {
		s.record("update", err)
		return nil, err
	}

	var (
		previous string
		plan     DetailPlan
		view     *dto.SubmissionView
	)
	err = s.repo.WithinTx(ctx, func(store repository.SubmissionStore) error {
		sub, err := loadLive(ctx, store, id)
		if err != nil {
			return err
		}
		effective := newType
		if effective == "" {
			stored, ok := models.ParseInterventionType(sub.InterventionMeasurement)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("stored intervention_measurement %q is not recognised; supply intervention_measurement", sub.InterventionMeasurement))
			}
			effective = stored
		}

		mitigation, err := store.FindMitigation(ctx, id)
		if err != nil {
			return err
		}
		adaptation, err := store.FindAdaptation(ctx, id)
		if err != nil {
			return err
		}
		plan, err = PlanUpdate(effective,
			DetailState{Stored: mitigation != nil, Supplied: req.MitigationData != nil},
			DetailState{Stored: adaptation != nil, Supplied: req.AdaptationData != nil},
		)
		if err != nil {
			return err
		}

		previous = sub.InterventionMeasurement
		req.Apply(sub)
		sub.Title = strings.TrimSpace(sub.Title)
		if req.InterventionMeasurement != nil {
			sub.InterventionMeasurement = strings.TrimSpace(*req.InterventionMeasurement)
		}
		now := s.now().UTC()
		sub.UpdatedAt = &now
		sub.UpdatedBy = actorRef(actor)
		if err := store.Update(ctx, sub); err != nil {
			return err
		}

		switch plan.Mitigation {
		case DetailUpsert:
			detail, err := mergeMitigation(id, mitigation, req.MitigationData)
			if err != nil {
				return err
			}
			if err := store.UpsertMitigation(ctx, detail); err != nil {
				return err
			}
		case DetailDelete:
			if err := store.DeleteMitigation(ctx, id); err != nil {
				return err
			}
		}
		switch plan.Adaptation {
		case DetailUpsert:
			detail, err := mergeAdaptation(id, adaptation, req.AdaptationData)
			if err != nil {
				return err
			}
			if err := store.UpsertAdaptation(ctx, detail); err != nil {
				return err
			}
		case DetailDelete:
			if err := store.DeleteAdaptation(ctx, id); err != nil {
				return err
			}
		}
		view, err = s.assemble(ctx, store, sub)
		return err
	})
	if err != nil {
		err = s.storageError(err, "failed to update submission")
		s.record("update", err)
		return nil, err
	}

	s.record("update", nil)
	fields := []zap.Field{
		zap.String("submission_id", id),
		zap.Stringer("mitigation", plan.Mitigation),
		zap.Stringer("adaptation", plan.Adaptation),
	}
	if req.InterventionMeasurement != nil && !strings.EqualFold(previous, strings.TrimSpace(*req.InterventionMeasurement)) {
		fields = append(fields, zap.String("intervention_from", previous), zap.String("intervention_to", *req.InterventionMeasurement))
	}
	s.logger.Info("submission updated", fields...)
	return view, nil
}

func (s *SubmissionService) prepareUpdate(req dto.UpdateSubmissionRequest) (models.InterventionType, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid submission payload")
	}
	var t models.InterventionType
	if req.InterventionMeasurement != nil {
		parsed, err := ParseIntervention(*req.InterventionMeasurement)
		if err != nil {
			return "", err
		}
		t = parsed
	}
	if err := validateLocation(req.GeoLocation); err != nil {
		return "", err
	}
	if req.Title != nil {
		if err := requireText("title", *req.Title); err != nil {
			return "", err
		}
	}
	if req.MitigationData != nil && req.MitigationData.Sector != nil {
		if err := requireText("mitigation_data.sector", *req.MitigationData.Sector); err != nil {
			return "", err
		}
	}
	if req.AdaptationData != nil && req.AdaptationData.Sector != nil {
		if err := requireText("adaptation_data.sector", *req.AdaptationData.Sector); err != nil {
			return "", err
		}
	}
	return t, nil
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return appErrors.Clone(appErrors.ErrValidation, field+" must not be empty")
	}
	return nil
}

// Delete soft deletes a live submission. Detail rows are kept.
func (s *SubmissionService) Delete(ctx context.Context, id string, actor string) (*dto.DeleteSubmissionResponse, error) {
	err := s.repo.WithinTx(ctx, func(store repository.SubmissionStore) error {
		if _, err := loadLive(ctx, store, id); err != nil {
			return err
		}
		if err := store.SoftDelete(ctx, id, actorRef(actor), s.now().UTC()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return submissionNotFound(id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		err = s.storageError(err, "failed to delete submission")
		s.record("delete", err)
		return nil, err
	}
	s.record("delete", nil)
	s.logger.Info("submission deleted", zap.String("submission_id", id))
	return &dto.DeleteSubmissionResponse{Acknowledged: true}, nil
}

// loadLive locks the submission row and hides soft-deleted rows.
func loadLive(ctx context.Context, store repository.SubmissionStore, id string) (*models.Submission, error) {
	sub, err := store.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, submissionNotFound(id)
		}
		return nil, err
	}
	if sub.Deleted {
		return nil, submissionNotFound(id)
	}
	return sub, nil
}

func mergeMitigation(submissionID string, stored *models.MitigationDetail, patch *dto.MitigationPatch) (*models.MitigationDetail, error) {
	detail := &models.MitigationDetail{SubmissionID: submissionID}
	if stored != nil {
		copied := *stored
		detail = &copied
	}
	patch.Apply(detail)
	if strings.TrimSpace(detail.Sector) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mitigation_data.sector is required")
	}
	return detail, nil
}

func mergeAdaptation(submissionID string, stored *models.AdaptationDetail, patch *dto.AdaptationPatch) (*models.AdaptationDetail, error) {
	detail := &models.AdaptationDetail{SubmissionID: submissionID}
	if stored != nil {
		copied := *stored
		detail = &copied
	}
	patch.Apply(detail)
	if strings.TrimSpace(detail.Sector) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adaptation_data.sector is required")
	}
	return detail, nil
}

func validateLocation(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := geojson.ValidateLocation(raw); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "geo_location: "+err.Error())
	}
	return nil
}

// storageError passes typed errors through and hides everything else behind a storage failure.
func (s *SubmissionService) storageError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, appErrors.ErrStorageFailure.Message)
}

func (s *SubmissionService) record(operation string, err error) {
	s.metrics.RecordSubmissionOperation(operation, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case appErrors.Is(err, appErrors.ErrNotFound):
		return OutcomeNotFound
	case appErrors.Is(err, appErrors.ErrValidation), appErrors.Is(err, appErrors.ErrMissingRequiredDetail):
		return OutcomeRejected
	default:
		return OutcomeFailure
	}
}

func submissionNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("submission %s not found", id))
}

// validationError keeps the cause for logs and names the failing fields in the message.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		message = message + ": " + strings.Join(parts, "; ")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
