package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/service"
)

// RecordHandler handles ledger ingestion endpoints.
type RecordHandler struct {
	recordService service.RecordService
	maxFileSizeMB int64
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(recordService service.RecordService, maxFileSizeMB int64) *RecordHandler {
	return &RecordHandler{recordService: recordService, maxFileSizeMB: maxFileSizeMB}
}

// Ingest handles POST /records
// Multipart form: business_gstin, source (purchase|sales), file (.csv or .xlsx).
func (h *RecordHandler) Ingest(c *gin.Context) {
	businessGSTIN := c.PostForm("business_gstin")
	if businessGSTIN == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_BUSINESS_GSTIN", "business_gstin form field is required")
		return
	}

	source := domain.RecordSource(c.PostForm("source"))
	if source != domain.SourcePurchase && source != domain.SourceSales {
		RespondError(c, http.StatusBadRequest, "INVALID_SOURCE", "source must be purchase or sales")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file form field is required")
		return
	}
	if h.maxFileSizeMB > 0 && fileHeader.Size > h.maxFileSizeMB*1024*1024 {
		RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not open uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.recordService.Ingest(c.Request.Context(), &service.IngestInput{
		BusinessGSTIN: businessGSTIN,
		Source:        source,
		FileName:      fileHeader.Filename,
		Body:          file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, result)
}

// GetByID handles GET /records/:id
func (h *RecordHandler) GetByID(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_RECORD_ID", "record id must be a valid UUID")
		return
	}

	rec, err := h.recordService.Get(c.Request.Context(), recordID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}
