package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/handler"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/service"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/mocks"
)

func multipartUpload(t *testing.T, gstinVal, source, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("business_gstin", gstinVal))
	require.NoError(t, w.WriteField("source", source))
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestRecordHandler_Ingest_Success(t *testing.T) {
	mockSvc := new(mocks.MockRecordService)
	h := handler.NewRecordHandler(mockSvc, 50)

	mockSvc.On("Ingest", mock.Anything, mock.MatchedBy(func(in *service.IngestInput) bool {
		return in.BusinessGSTIN == "29ABCDE1234F1ZW" && in.FileName == "purchases.csv"
	})).Return(&service.IngestResult{Accepted: 2}, nil)

	body, contentType := multipartUpload(t, "29ABCDE1234F1ZW", "purchase", "purchases.csv",
		"GSTIN,Invoice No,Date,Amount\n27AAPFU0939F1ZV,INV001,05/04/2024,10000\n")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/records", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Ingest(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	mockSvc.AssertExpectations(t)
}

func TestRecordHandler_Ingest_InvalidSource(t *testing.T) {
	mockSvc := new(mocks.MockRecordService)
	h := handler.NewRecordHandler(mockSvc, 50)

	body, contentType := multipartUpload(t, "29ABCDE1234F1ZW", "ledger", "purchases.csv", "x\n")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/records", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Ingest(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestRecordHandler_Ingest_MissingFile(t *testing.T) {
	mockSvc := new(mocks.MockRecordService)
	h := handler.NewRecordHandler(mockSvc, 50)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("business_gstin", "29ABCDE1234F1ZW"))
	require.NoError(t, mw.WriteField("source", "purchase"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/records", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())

	h.Ingest(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandler_GetByID_ReturnsRecord(t *testing.T) {
	mockSvc := new(mocks.MockRecordService)
	h := handler.NewRecordHandler(mockSvc, 50)

	rec := &domain.InvoiceRecord{ID: uuid.New(), InvoiceNumber: "INV001"}
	mockSvc.On("Get", mock.Anything, rec.ID).Return(rec, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/records/"+rec.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: rec.ID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV001")
}

func TestRecordHandler_GetByID_NotFound(t *testing.T) {
	mockSvc := new(mocks.MockRecordService)
	h := handler.NewRecordHandler(mockSvc, 50)

	id := uuid.New()
	mockSvc.On("Get", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/records/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
