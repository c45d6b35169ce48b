package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/service"
)

// RunHandler handles reconciliation run endpoints.
type RunHandler struct {
	reconService service.ReconService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(reconService service.ReconService) *RunHandler {
	return &RunHandler{reconService: reconService}
}

// triggerRunRequest is the body of POST /runs.
type triggerRunRequest struct {
	BusinessGSTIN string `json:"business_gstin" binding:"required"`
	Period        string `json:"period" binding:"required"`
}

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Trigger handles POST /runs
func (h *RunHandler) Trigger(c *gin.Context) {
	var req triggerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "business_gstin and period are required")
		return
	}
	if !periodPattern.MatchString(req.Period) {
		RespondError(c, http.StatusBadRequest, "INVALID_PERIOD", "period must be formatted YYYY-MM")
		return
	}

	run, err := h.reconService.Run(c.Request.Context(), req.BusinessGSTIN, domain.FilingPeriod(req.Period))
	if err != nil && run == nil {
		HandleError(c, err)
		return
	}
	// Partial and timed-out runs are persisted; return them with their
	// explicit status rather than an opaque failure.
	if errors.Is(err, domain.ErrRunTimeout) || errors.Is(err, domain.ErrRunCanceled) {
		c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: run})
		return
	}
	RespondCreated(c, run)
}

// GetByID handles GET /runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RUN_ID", "run id must be a valid UUID")
		return
	}

	run, err := h.reconService.GetRun(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// List handles GET /runs?business_gstin=...&offset=0&limit=20
func (h *RunHandler) List(c *gin.Context) {
	businessGSTIN := c.Query("business_gstin")
	if businessGSTIN == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_BUSINESS_GSTIN", "business_gstin query parameter is required")
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := h.reconService.ListRuns(c.Request.Context(), businessGSTIN, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Export handles GET /runs/:id/export
func (h *RunHandler) Export(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RUN_ID", "run id must be a valid UUID")
		return
	}

	// Buffered so a failed export still gets a JSON error response and the
	// Content-Disposition filename is known before the body is sent.
	var buf bytes.Buffer
	filename, err := h.reconService.ExportCSV(c.Request.Context(), runID, &buf)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ArchiveURL handles GET /runs/:id/archive-url
func (h *RunHandler) ArchiveURL(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RUN_ID", "run id must be a valid UUID")
		return
	}

	url, err := h.reconService.ArchiveURL(c.Request.Context(), runID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"archive_url": url})
}
