package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/internal/service"
	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/response"
)

type submissionService interface {
	Create(ctx context.Context, req dto.CreateSubmissionRequest, actor string) (*dto.CreateSubmissionResponse, error)
	Get(ctx context.Context, id string) (*dto.SubmissionView, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionSummary, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateSubmissionRequest, actor string) (*dto.SubmissionView, error)
	Delete(ctx context.Context, id string, actor string) (*dto.DeleteSubmissionResponse, error)
}

type workbookUploader interface {
	Upload(ctx context.Context, filename string, content []byte, actor string) (*dto.CreateSubmissionResponse, error)
}

type submissionExporter interface {
	Export(ctx context.Context, format string, filter dto.SubmissionFilter) (*service.ExportResult, error)
}

// multipartOverhead covers form boundaries and headers around the uploaded file.
const multipartOverhead = 1 << 20

var workbookExtensions = map[string]struct{}{".xlsx": {}, ".xlsm": {}}

// SubmissionHandler exposes the submission registry endpoints.
type SubmissionHandler struct {
	submissions submissionService
	workbooks   workbookUploader
	exports     submissionExporter
	maxUpload   int64
}

// NewSubmissionHandler constructs SubmissionHandler. maxUpload bounds workbook uploads in bytes.
func NewSubmissionHandler(submissions submissionService, workbooks workbookUploader, exports submissionExporter, maxUpload int64) *SubmissionHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &SubmissionHandler{submissions: submissions, workbooks: workbooks, exports: exports, maxUpload: maxUpload}
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive title search"
// @Param intervention query string false "Mitigation, Adaptation or Cross Cutting"
// @Param include_deleted query bool false "Include soft-deleted submissions"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter, err := parseSubmissionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get the assembled view of a submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope{data=dto.SubmissionView}
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	view, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Create godoc
// @Summary Create a submission with its detail records
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope{data=dto.CreateSubmissionResponse}
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.submissions.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Partially update a submission
// @Description Only fields present in the payload change. geo_location set to null clears it.
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param payload body dto.UpdateSubmissionRequest true "Fields to change"
// @Success 200 {object} response.Envelope{data=dto.SubmissionView}
// @Router /submissions/{id} [patch]
func (h *SubmissionHandler) Update(c *gin.Context) {
	var req dto.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.submissions.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Delete godoc
// @Summary Soft delete a submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope{data=dto.DeleteSubmissionResponse}
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	ack, err := h.submissions.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ack, nil)
}

// Upload godoc
// @Summary Create a submission from a project form workbook
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Project form (.xlsx or .xlsm)"
// @Success 201 {object} response.Envelope{data=dto.CreateSubmissionResponse}
// @Failure 413 {object} response.Envelope
// @Router /submissions/upload [post]
func (h *SubmissionHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field \"file\" is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	if _, ok := workbookExtensions[strings.ToLower(filepath.Ext(header.Filename))]; !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only .xlsx and .xlsm workbooks are accepted"))
		return
	}
	if header.Size > h.maxUpload {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return
	}
	if int64(len(content)) > h.maxUpload {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}

	created, err := h.workbooks.Upload(c.Request.Context(), header.Filename, content, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Export godoc
// @Summary Export live submissions
// @Tags Submissions
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv (default), pdf or xlsx"
// @Param search query string false "Case-insensitive title search"
// @Param intervention query string false "Mitigation, Adaptation or Cross Cutting"
// @Success 200 {file} file
// @Router /submissions/export [get]
func (h *SubmissionHandler) Export(c *gin.Context) {
	filter := dto.SubmissionFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		Intervention: models.InterventionType(c.Query("intervention")),
	}
	result, err := h.exports.Export(c.Request.Context(), c.Query("format"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

func parseSubmissionFilter(c *gin.Context) (dto.SubmissionFilter, error) {
	filter := dto.SubmissionFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		Intervention: models.InterventionType(c.Query("intervention")),
	}
	if raw := c.Query("include_deleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "include_deleted must be true or false")
		}
		filter.IncludeDeleted = v
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
