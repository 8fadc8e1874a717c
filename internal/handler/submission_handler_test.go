package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/middleware"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/internal/service"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
)

type fakeSubmissionSrv struct {
	createReq  dto.CreateSubmissionRequest
	updateReq  dto.UpdateSubmissionRequest
	filter     dto.SubmissionFilter
	actor      string
	lastID     string
	view       *dto.SubmissionView
	err        error
	listResult []dto.SubmissionSummary
}

func (f *fakeSubmissionSrv) Create(_ context.Context, req dto.CreateSubmissionRequest, actor string) (*dto.CreateSubmissionResponse, error) {
	f.createReq, f.actor = req, actor
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CreateSubmissionResponse{SubmissionID: "new-id", Detail: "submission created"}, nil
}

func (f *fakeSubmissionSrv) Get(_ context.Context, id string) (*dto.SubmissionView, error) {
	f.lastID = id
	return f.view, f.err
}

func (f *fakeSubmissionSrv) List(_ context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionSummary, *models.Pagination, error) {
	f.filter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.listResult, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(f.listResult)}, nil
}

func (f *fakeSubmissionSrv) Update(_ context.Context, id string, req dto.UpdateSubmissionRequest, actor string) (*dto.SubmissionView, error) {
	f.lastID, f.updateReq, f.actor = id, req, actor
	return f.view, f.err
}

func (f *fakeSubmissionSrv) Delete(_ context.Context, id string, actor string) (*dto.DeleteSubmissionResponse, error) {
	f.lastID, f.actor = id, actor
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DeleteSubmissionResponse{Acknowledged: true}, nil
}

type fakeUploader struct {
	filename string
	size     int
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, filename string, content []byte, actor string) (*dto.CreateSubmissionResponse, error) {
	f.filename, f.size = filename, len(content)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CreateSubmissionResponse{SubmissionID: "from-workbook"}, nil
}

type fakeExporter struct {
	format string
	filter dto.SubmissionFilter
}

func (f *fakeExporter) Export(_ context.Context, format string, filter dto.SubmissionFilter) (*service.ExportResult, error) {
	f.format, f.filter = format, filter
	return &service.ExportResult{Filename: "submissions.csv", ContentType: "text/csv", Body: []byte("Title\nSolar\n")}, nil
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func newSubmissionRouter(h *SubmissionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextClaimsKey, &models.JWTClaims{
			Scopes:           []string{models.ScopeSubmissionWrite},
			RegisteredClaims: jwt.RegisteredClaims{Subject: "editor@example.org"},
		})
		c.Next()
	})
	r.GET("/submissions", h.List)
	r.GET("/submissions/export", h.Export)
	r.GET("/submissions/:id", h.Get)
	r.POST("/submissions", h.Create)
	r.POST("/submissions/upload", h.Upload)
	r.PATCH("/submissions/:id", h.Update)
	r.DELETE("/submissions/:id", h.Delete)
	return r
}

func serve(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestSubmissionHandlerCreate(t *testing.T) {
	srv := &fakeSubmissionSrv{}
	r := newSubmissionRouter(NewSubmissionHandler(srv, nil, nil, 0))

	body := `{"title":"Solar Farm X","intervention_measurement":"Cross Cutting","mitigation_data":{"sector":"Energy"},"geo_location":{"type":"Point","coordinates":[1,2]}}`
	rec, env := serve(t, r, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"submission_id":"new-id","detail":"submission created"}`, string(env.Data))
	assert.Equal(t, "editor@example.org", srv.actor)
	require.NotNil(t, srv.createReq.MitigationData)
	assert.Nil(t, srv.createReq.AdaptationData)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, string(srv.createReq.GeoLocation))
}

func TestSubmissionHandlerCreateMapsErrors(t *testing.T) {
	srv := &fakeSubmissionSrv{err: appErrors.Clone(appErrors.ErrMissingRequiredDetail, "mitigation_data is required for this intervention type")}
	r := newSubmissionRouter(NewSubmissionHandler(srv, nil, nil, 0))

	rec, env := serve(t, r, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(`{"title":"x","intervention_measurement":"Mitigation"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "MISSING_REQUIRED_DETAIL", env.Error.Code)

	rec, env = serve(t, r, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(`{"title":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSubmissionHandlerStorageFailureHidesCause(t *testing.T) {
	srv := &fakeSubmissionSrv{err: appErrors.Wrap(assert.AnError, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, appErrors.ErrStorageFailure.Message)}
	r := newSubmissionRouter(NewSubmissionHandler(srv, nil, nil, 0))

	rec, env := serve(t, r, httptest.NewRequest(http.MethodGet, "/submissions/abc", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "STORAGE_FAILURE", env.Error.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestSubmissionHandlerGetUpdateDelete(t *testing.T) {
	view := &dto.SubmissionView{Submission: models.Submission{ID: "abc", Title: "Renamed", InterventionMeasurement: "Adaptation"}}
	srv := &fakeSubmissionSrv{view: view}
	r := newSubmissionRouter(NewSubmissionHandler(srv, nil, nil, 0))

	rec, env := serve(t, r, httptest.NewRequest(http.MethodGet, "/submissions/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", srv.lastID)
	assert.Contains(t, string(env.Data), `"mitigation":null`)

	rec, _ = serve(t, r, httptest.NewRequest(http.MethodPatch, "/submissions/abc", strings.NewReader(`{"title":"Renamed","geo_location":null}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.updateReq.Title)
	assert.Equal(t, "Renamed", *srv.updateReq.Title)
	assert.Equal(t, "null", string(srv.updateReq.GeoLocation))
	assert.Nil(t, srv.updateReq.InterventionMeasurement)

	rec, env = serve(t, r, httptest.NewRequest(http.MethodDelete, "/submissions/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"acknowledged":true}`, string(env.Data))
	assert.Equal(t, "editor@example.org", srv.actor)
}

func TestSubmissionHandlerList(t *testing.T) {
	srv := &fakeSubmissionSrv{listResult: []dto.SubmissionSummary{{Submission: models.Submission{ID: "a"}}}}
	r := newSubmissionRouter(NewSubmissionHandler(srv, nil, nil, 0))

	rec, env := serve(t, r, httptest.NewRequest(http.MethodGet, "/submissions?include_deleted=true&search=+solar+&intervention=mitigation&page=2&limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.filter.IncludeDeleted)
	assert.Equal(t, "solar", srv.filter.Search)
	assert.Equal(t, models.InterventionType("mitigation"), srv.filter.Intervention)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 5, srv.filter.PageSize)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	rec, env = serve(t, r, httptest.NewRequest(http.MethodGet, "/submissions?include_deleted=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestSubmissionHandlerUpload(t *testing.T) {
	uploader := &fakeUploader{}
	r := newSubmissionRouter(NewSubmissionHandler(&fakeSubmissionSrv{}, uploader, nil, 64))

	body, contentType := multipartBody(t, "form.xlsm", []byte("PK-workbook"))
	req := httptest.NewRequest(http.MethodPost, "/submissions/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec, env := serve(t, r, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(env.Data), "from-workbook")
	assert.Equal(t, "form.xlsm", uploader.filename)
	assert.Equal(t, 11, uploader.size)

	body, contentType = multipartBody(t, "form.xlsx", bytes.Repeat([]byte("x"), 65))
	req = httptest.NewRequest(http.MethodPost, "/submissions/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec, env = serve(t, r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", env.Error.Code)

	body, contentType = multipartBody(t, "notes.txt", []byte("hello"))
	req = httptest.NewRequest(http.MethodPost, "/submissions/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec, _ = serve(t, r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, r, httptest.NewRequest(http.MethodPost, "/submissions/upload", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	r := newSubmissionRouter(NewSubmissionHandler(&fakeSubmissionSrv{}, nil, exporter, 0))

	rec, _ := serve(t, r, httptest.NewRequest(http.MethodGet, "/submissions/export?format=csv&intervention=Adaptation", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, models.InterventionType("Adaptation"), exporter.filter.Intervention)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "submissions.csv")
	assert.Equal(t, "Title\nSolar\n", rec.Body.String())
}
