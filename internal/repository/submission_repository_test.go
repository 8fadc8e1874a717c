package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
	}
}

func strPtr(value string) *string {
	return &value
}

func submissionRow(id, title, intervention string, deleted bool) *sqlmock.Rows {
	cols := append([]string{"_id"}, submissionColumns...)
	values := make([]driver.Value, len(cols))
	for i, c := range cols {
		switch c {
		case "_id":
			values[i] = int64(1)
		case "id":
			values[i] = id
		case "title":
			values[i] = title
		case "intervention_measurement":
			values[i] = intervention
		case "geo_location":
			values[i] = []byte(`{"type":"Point","coordinates":[30.374,-27.936]}`)
		case "is_submitted":
			values[i] = true
		case "deleted":
			values[i] = deleted
		case "created_at":
			values[i] = time.Date(2025, 4, 24, 20, 0, 0, 0, time.UTC)
		default:
			values[i] = nil
		}
	}
	return sqlmock.NewRows(cols).AddRow(values...)
}

func TestSubmissionRepositoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submission").WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{Title: "Solar Farm X", InterventionMeasurement: "Mitigation"}
	require.NoError(t, repo.Insert(context.Background(), sub))
	assert.Len(t, sub.ID, 36)
	assert.False(t, sub.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submission WHERE id = $1")).
		WithArgs("sub-1").
		WillReturnRows(submissionRow("sub-1", "Solar Farm X", "Cross Cutting", false))

	sub, err := repo.FindByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Solar Farm X", sub.Title)
	assert.Equal(t, "Cross Cutting", sub.InterventionMeasurement)
	assert.JSONEq(t, `{"type":"Point","coordinates":[30.374,-27.936]}`, string(sub.Location()))
}

func TestSubmissionRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIDForUpdate(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSubmissionRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submission SET deleted = TRUE")).
		WithArgs("sub-1", at, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submission SET deleted = TRUE")).
		WithArgs("sub-1", at, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SoftDelete(context.Background(), "sub-1", strPtr("user-1"), at))
	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "sub-1", strPtr("user-1"), at), sql.ErrNoRows)
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND deleted = FALSE AND LOWER(title) LIKE $1 ESCAPE '\\' AND LOWER(TRIM(intervention_measurement)) = $2 ORDER BY _id ASC LIMIT 10 OFFSET 10")).
		WithArgs("%solar%", "cross cutting").
		WillReturnRows(submissionRow("sub-1", "Solar Farm X", "Cross Cutting", false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submission WHERE 1=1 AND deleted = FALSE")).
		WithArgs("%solar%", "cross cutting").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	subs, total, err := repo.List(context.Background(), dto.SubmissionFilter{
		Search:       "Solar",
		Intervention: models.InterventionCrossCutting,
		Page:         2,
		PageSize:     10,
	})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListSearchMatchesWildcardsLiterally(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`LOWER(title) LIKE $1 ESCAPE '\' ORDER BY _id ASC`)).
		WithArgs(`%100\%\_a\\b%`).
		WillReturnRows(submissionRow("sub-1", "100%_a\\b", "Mitigation", false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submission")).
		WithArgs(`%100\%\_a\\b%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, total, err := repo.List(context.Background(), dto.SubmissionFilter{Search: `100%_A\b`})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListIncludesDeletedWithoutPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submission WHERE 1=1 ORDER BY _id ASC")).
		WillReturnRows(submissionRow("sub-1", "Old", "Adaptation", true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submission WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	subs, total, err := repo.List(context.Background(), dto.SubmissionFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Deleted)
	assert.Equal(t, 1, total)
}

func TestSubmissionRepositoryFindMitigationAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM mitigation WHERE submission_id = $1")).
		WithArgs("sub-1").
		WillReturnError(sql.ErrNoRows)

	detail, err := repo.FindMitigation(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestSubmissionRepositoryFindAdaptation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	cols := append([]string{"id"}, adaptationColumns...)
	row := make([]driver.Value, len(cols))
	row[0], row[1], row[2] = int64(4), "sub-1", "Water"
	mock.ExpectQuery(regexp.QuoteMeta("FROM adaptation WHERE submission_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	detail, err := repo.FindAdaptation(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Water", detail.Sector)
	assert.Nil(t, detail.Hazard)
}

func TestSubmissionRepositoryWithinTxCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO submission").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO mitigation")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM adaptation WHERE submission_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(store SubmissionStore) error {
		sub := &models.Submission{Title: "Wind", InterventionMeasurement: "Mitigation"}
		if err := store.Insert(context.Background(), sub); err != nil {
			return err
		}
		if err := store.UpsertMitigation(context.Background(), &models.MitigationDetail{SubmissionID: sub.ID, Sector: "Energy"}); err != nil {
			return err
		}
		return store.DeleteAdaptation(context.Background(), sub.ID)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryWithinTxRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO submission").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO adaptation")).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(store SubmissionStore) error {
		sub := &models.Submission{Title: "Dune rehab", InterventionMeasurement: "Adaptation"}
		if err := store.Insert(context.Background(), sub); err != nil {
			return err
		}
		return store.UpsertAdaptation(context.Background(), &models.AdaptationDetail{SubmissionID: sub.ID, Sector: "Coastal"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert adaptation detail")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStatementsTargetSubmissionKey(t *testing.T) {
	assert.Contains(t, upsertMitigation, "ON CONFLICT (submission_id) DO UPDATE SET sector = EXCLUDED.sector")
	assert.NotContains(t, upsertAdaptation, "submission_id = EXCLUDED.submission_id")
	assert.NotContains(t, updateSubmission, "SET id = :id")
}
