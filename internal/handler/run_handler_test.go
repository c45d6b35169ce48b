package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/handler"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/mocks"
)

func newRunHandler() (*handler.RunHandler, *mocks.MockReconService) {
	mockSvc := new(mocks.MockReconService)
	return handler.NewRunHandler(mockSvc), mockSvc
}

func TestRunHandler_Trigger_Success(t *testing.T) {
	h, mockSvc := newRunHandler()

	run := &domain.ReconciliationRun{
		ID:            uuid.New(),
		BusinessGSTIN: "29ABCDE1234F1ZW",
		Period:        "2024-04",
		Status:        domain.RunStatusCompleted,
	}
	mockSvc.On("Run", mock.Anything, "29ABCDE1234F1ZW", domain.FilingPeriod("2024-04")).Return(run, nil)

	body, _ := json.Marshal(map[string]string{
		"business_gstin": "29ABCDE1234F1ZW",
		"period":         "2024-04",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Trigger(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	mockSvc.AssertExpectations(t)
}

func TestRunHandler_Trigger_TimedOutRunStillReturned(t *testing.T) {
	h, mockSvc := newRunHandler()

	run := &domain.ReconciliationRun{
		ID:            uuid.New(),
		BusinessGSTIN: "29ABCDE1234F1ZW",
		Period:        "2024-04",
		Status:        domain.RunStatusFailed,
		FailureReason: domain.ErrRunTimeout.Error(),
	}
	mockSvc.On("Run", mock.Anything, "29ABCDE1234F1ZW", domain.FilingPeriod("2024-04")).
		Return(run, domain.ErrRunTimeout)

	body, _ := json.Marshal(map[string]string{
		"business_gstin": "29ABCDE1234F1ZW",
		"period":         "2024-04",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Trigger(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRunHandler_Trigger_InvalidPeriod(t *testing.T) {
	h, mockSvc := newRunHandler()

	body, _ := json.Marshal(map[string]string{
		"business_gstin": "29ABCDE1234F1ZW",
		"period":         "April 2024",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Trigger(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc := newRunHandler()

	runID := uuid.New()
	mockSvc.On("GetRun", mock.Anything, runID).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunHandler_Export_SetsDisposition(t *testing.T) {
	h, mockSvc := newRunHandler()

	runID := uuid.New()
	mockSvc.On("ExportCSV", mock.Anything, runID, mock.Anything).
		Run(func(args mock.Arguments) {
			w := args.Get(2).(io.Writer)
			_, _ = w.Write([]byte("Match Type\nexact\n"))
		}).Return("29ABCDE1234F1ZW_2024-04_2024-05-01.csv", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String()+"/export", nil)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "29ABCDE1234F1ZW_2024-04")
	assert.Contains(t, w.Body.String(), "exact")
}

func TestRunHandler_ArchiveURL_ReturnsPresignedURL(t *testing.T) {
	h, mockSvc := newRunHandler()

	runID := uuid.New()
	mockSvc.On("ArchiveURL", mock.Anything, runID).
		Return("https://exports.example.com/runs/"+runID.String()+".csv?sig=abc", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String()+"/archive-url", nil)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.ArchiveURL(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archive_url")
	assert.Contains(t, w.Body.String(), runID.String())
}

func TestRunHandler_ArchiveURL_Unavailable(t *testing.T) {
	h, mockSvc := newRunHandler()

	runID := uuid.New()
	mockSvc.On("ArchiveURL", mock.Anything, runID).Return("", domain.ErrArchiveUnavailable)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+runID.String()+"/archive-url", nil)
	c.Params = gin.Params{{Key: "id", Value: runID.String()}}

	h.ArchiveURL(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ARCHIVE_UNAVAILABLE")
}
