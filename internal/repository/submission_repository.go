package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/pkg/database"
)

const maxSubmissionPageSize = 500

// likeEscaper makes user search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var (
	submissionColumns = []string{
		"id", "title", "intervention_measurement", "description", "implementation_status",
		"implementation_organization", "implementation_partners_other", "start_date", "end_date", "link",
		"funding_organization", "funding_type", "funding_amount", "estimated_budget_cost", "geo_location",
		"project_manager_name", "project_manager_organization", "project_manager_position",
		"project_manager_email", "project_manager_phone", "project_manager_mobile",
		"submission_status", "submission_comments", "is_submitted", "research",
		"created_by", "created_at", "updated_by", "updated_at", "deleted_by", "deleted_at", "deleted",
	}
	mitigationColumns = []string{
		"submission_id", "sector", "subsector", "secondary", "project_type", "project_subtype",
		"mitigation_program", "national_policy", "provincial_municipal", "primary_intended_outcome",
		"progress_calculator", "environmental_co_benefit", "environmental_co_benefit_description",
		"social_co_benefit", "social_co_benefit_description", "economic_co_benefit",
		"economic_co_benefit_description", "carbon_credit", "cdm_voluntary", "cdm_executive_board_status",
		"cdm_methodology", "organization_issuing_credits", "voluntary_methodology", "cdm_project_number",
	}
	adaptationColumns = []string{
		"submission_id", "sector", "national_policy", "intervention_goal", "provincial_municipal", "hazard",
		"progress_calculator", "climate_impact", "address_climate_impact", "impact_response",
	}

	selectSubmission = "SELECT _id, " + strings.Join(submissionColumns, ", ") + " FROM submission"
	insertSubmission = insertStatement("submission", submissionColumns)
	updateSubmission = updateStatement("submission", submissionColumns[1:]) + " WHERE id = :id"

	selectMitigation = "SELECT id, " + strings.Join(mitigationColumns, ", ") + " FROM mitigation WHERE submission_id = $1"
	upsertMitigation = insertStatement("mitigation", mitigationColumns) + upsertClause(mitigationColumns[1:])
	selectAdaptation = "SELECT id, " + strings.Join(adaptationColumns, ", ") + " FROM adaptation WHERE submission_id = $1"
	upsertAdaptation = insertStatement("adaptation", adaptationColumns) + upsertClause(adaptationColumns[1:])
)

// SubmissionStore is the set of record operations the lifecycle manager runs inside a transaction.
type SubmissionStore interface {
	Insert(ctx context.Context, sub *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Submission, error)
	Update(ctx context.Context, sub *models.Submission) error
	SoftDelete(ctx context.Context, id string, deletedBy *string, at time.Time) error
	List(ctx context.Context, filter dto.SubmissionFilter) ([]models.Submission, int, error)
	FindMitigation(ctx context.Context, submissionID string) (*models.MitigationDetail, error)
	FindAdaptation(ctx context.Context, submissionID string) (*models.AdaptationDetail, error)
	UpsertMitigation(ctx context.Context, detail *models.MitigationDetail) error
	UpsertAdaptation(ctx context.Context, detail *models.AdaptationDetail) error
	DeleteMitigation(ctx context.Context, submissionID string) error
	DeleteAdaptation(ctx context.Context, submissionID string) error
}

// SubmissionRepository persists submissions and their detail records.
type SubmissionRepository struct {
	db   *sqlx.DB
	exec sqlx.ExtContext
}

// NewSubmissionRepository constructs the repository on top of the shared pool.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db, exec: db}
}

// WithinTx runs fn against a store bound to a single transaction. The transaction commits only when fn
// returns nil; every other outcome rolls back all writes made through the store.
func (r *SubmissionRepository) WithinTx(ctx context.Context, fn func(store SubmissionStore) error) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&SubmissionRepository{db: r.db, exec: tx})
	})
}

// Insert stores a new submission, assigning its identifier when empty.
func (r *SubmissionRepository) Insert(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, r.exec, insertSubmission, sub); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// FindByID returns the submission regardless of its deleted flag. sql.ErrNoRows is returned untouched.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	return r.find(ctx, selectSubmission+" WHERE id = $1", id)
}

// FindByIDForUpdate is FindByID with a row lock, for use inside WithinTx.
func (r *SubmissionRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Submission, error) {
	return r.find(ctx, selectSubmission+" WHERE id = $1 FOR UPDATE", id)
}

func (r *SubmissionRepository) find(ctx context.Context, query, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := sqlx.GetContext(ctx, r.exec, &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission %s: %w", id, err)
	}
	return &sub, nil
}

// Update overwrites every mutable column of the submission.
func (r *SubmissionRepository) Update(ctx context.Context, sub *models.Submission) error {
	res, err := sqlx.NamedExecContext(ctx, r.exec, updateSubmission, sub)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return requireAffected(res, "update submission")
}

// SoftDelete flags a live submission as deleted. A missing or already deleted row yields sql.ErrNoRows.
func (r *SubmissionRepository) SoftDelete(ctx context.Context, id string, deletedBy *string, at time.Time) error {
	const query = `UPDATE submission SET deleted = TRUE, deleted_at = $2, deleted_by = $3 WHERE id = $1 AND deleted = FALSE`
	res, err := r.exec.ExecContext(ctx, query, id, at, deletedBy)
	if err != nil {
		return fmt.Errorf("soft delete submission: %w", err)
	}
	return requireAffected(res, "soft delete submission")
}

// List returns submissions in storage order together with the unpaged total. A zero page size returns every
// matching row.
func (r *SubmissionRepository) List(ctx context.Context, filter dto.SubmissionFilter) ([]models.Submission, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted = FALSE")
	}
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Search))+"%")
		conditions = append(conditions, fmt.Sprintf(`LOWER(title) LIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.Intervention != "" {
		args = append(args, string(filter.Intervention))
		conditions = append(conditions, fmt.Sprintf("LOWER(TRIM(intervention_measurement)) = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	query := selectSubmission + where + " ORDER BY _id ASC"
	if size := filter.PageSize; size > 0 {
		if size > maxSubmissionPageSize {
			size = maxSubmissionPageSize
		}
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var subs []models.Submission
	if err := sqlx.SelectContext(ctx, r.exec, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.exec, &total, "SELECT COUNT(*) FROM submission"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return subs, total, nil
}

// FindMitigation returns the mitigation detail of a submission, or nil when there is none.
func (r *SubmissionRepository) FindMitigation(ctx context.Context, submissionID string) (*models.MitigationDetail, error) {
	var detail models.MitigationDetail
	if err := sqlx.GetContext(ctx, r.exec, &detail, selectMitigation, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find mitigation detail: %w", err)
	}
	return &detail, nil
}

// FindAdaptation returns the adaptation detail of a submission, or nil when there is none.
func (r *SubmissionRepository) FindAdaptation(ctx context.Context, submissionID string) (*models.AdaptationDetail, error) {
	var detail models.AdaptationDetail
	if err := sqlx.GetContext(ctx, r.exec, &detail, selectAdaptation, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find adaptation detail: %w", err)
	}
	return &detail, nil
}

// UpsertMitigation writes the single mitigation row of a submission.
func (r *SubmissionRepository) UpsertMitigation(ctx context.Context, detail *models.MitigationDetail) error {
	if _, err := sqlx.NamedExecContext(ctx, r.exec, upsertMitigation, detail); err != nil {
		return fmt.Errorf("upsert mitigation detail: %w", err)
	}
	return nil
}

// UpsertAdaptation writes the single adaptation row of a submission.
func (r *SubmissionRepository) UpsertAdaptation(ctx context.Context, detail *models.AdaptationDetail) error {
	if _, err := sqlx.NamedExecContext(ctx, r.exec, upsertAdaptation, detail); err != nil {
		return fmt.Errorf("upsert adaptation detail: %w", err)
	}
	return nil
}

// DeleteMitigation physically removes the mitigation row, if any.
func (r *SubmissionRepository) DeleteMitigation(ctx context.Context, submissionID string) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM mitigation WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("delete mitigation detail: %w", err)
	}
	return nil
}

// DeleteAdaptation physically removes the adaptation row, if any.
func (r *SubmissionRepository) DeleteAdaptation(ctx context.Context, submissionID string) error {
	if _, err := r.exec.ExecContext(ctx, `DELETE FROM adaptation WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("delete adaptation detail: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertStatement(table string, cols []string) string {
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(named, ", "))
}

func updateStatement(table string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = :" + c
	}
	return fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
}

func upsertClause(cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = EXCLUDED." + c
	}
	return " ON CONFLICT (submission_id) DO UPDATE SET " + strings.Join(sets, ", ")
}
